package schema

// TabTemplate describes one tab a protocol contributes to a session's
// workspace. Templates are expanded into concrete tabs bound to a session id.
type TabTemplate struct {
	ViewType ViewType `json:"view_type" yaml:"view_type"`
	Title    string   `json:"title" yaml:"title"`
	Closable bool     `json:"closable" yaml:"closable"`
}

// CapabilityTab is a tab that only appears once the named capability has
// been discovered on the session (e.g. an SFTP browser after the SSH
// handshake reports SFTP support).
type CapabilityTab struct {
	Requires Capability  `json:"requires" yaml:"requires"`
	Template TabTemplate `json:"template" yaml:"template"`
}

// LaunchOption is an optional feature a user may enable when opening a
// session, optionally gated by a capability the protocol must advertise.
type LaunchOption struct {
	ID       string     `json:"id" yaml:"id"`
	Label    string     `json:"label" yaml:"label"`
	Requires Capability `json:"requires,omitempty" yaml:"requires,omitempty"`
}

// WorkspaceDescriptor declares the workspace a protocol offers: display
// metadata, capability flags, the default tab set, capability-gated tabs,
// and launch options. One descriptor is registered per protocol at startup.
type WorkspaceDescriptor struct {
	ProtocolID     ProtocolID          `json:"protocol_id" yaml:"protocol_id"`
	DisplayName    string              `json:"display_name" yaml:"display_name"`
	Icon           string              `json:"icon" yaml:"icon"`
	Features       map[Capability]bool `json:"features,omitempty" yaml:"features,omitempty"`
	DefaultTabs    []TabTemplate       `json:"default_tabs" yaml:"default_tabs"`
	CapabilityTabs []CapabilityTab     `json:"capability_tabs,omitempty" yaml:"capability_tabs,omitempty"`
	LaunchOptions  []LaunchOption      `json:"launch_options,omitempty" yaml:"launch_options,omitempty"`
}

// Supports reports whether the descriptor advertises the capability.
// Absent keys mean unsupported.
func (d WorkspaceDescriptor) Supports(capability Capability) bool {
	if d.Features == nil {
		return false
	}
	return d.Features[capability]
}

// Instantiate expands a template into a concrete tab bound to a session.
func (t TabTemplate) Instantiate(sessionID SessionID) Tab {
	title := t.Title
	if title == "" {
		title = string(t.ViewType)
	}
	return Tab{
		ID:        MakeTabID(sessionID, t.ViewType),
		SessionID: sessionID,
		ViewType:  t.ViewType,
		Title:     title,
		Closable:  t.Closable,
	}
}
