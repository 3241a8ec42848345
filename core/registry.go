package core

import (
	"sync"

	"github.com/portwayhq/portway/schema"
)

// Registry is the process-wide table of workspace descriptors, one per
// supported protocol. Protocol modules register exactly once at startup and
// there is no deregistration; after startup the table is read-only. The
// RWMutex makes registration a write barrier for multi-threaded hosts.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[schema.ProtocolID]schema.WorkspaceDescriptor
	order       []schema.ProtocolID
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[schema.ProtocolID]schema.WorkspaceDescriptor),
	}
}

// Register adds a descriptor. A second registration for the same protocol id
// fails with ErrDuplicateProtocol; malformed descriptors fail with
// ErrInvalidProtocol or ErrInvalidView.
func (r *Registry) Register(desc schema.WorkspaceDescriptor) error {
	if err := schema.ValidateProtocolID(desc.ProtocolID); err != nil {
		return err
	}
	if len(desc.DefaultTabs) == 0 {
		return schema.ErrInvalidProtocol
	}
	seen := make(map[schema.ViewType]struct{}, len(desc.DefaultTabs)+len(desc.CapabilityTabs))
	for _, tmpl := range desc.DefaultTabs {
		if err := schema.ValidateViewType(tmpl.ViewType); err != nil {
			return err
		}
		if _, dup := seen[tmpl.ViewType]; dup {
			return schema.ErrInvalidProtocol
		}
		seen[tmpl.ViewType] = struct{}{}
	}
	for _, capTab := range desc.CapabilityTabs {
		if err := schema.ValidateViewType(capTab.Template.ViewType); err != nil {
			return err
		}
		if _, dup := seen[capTab.Template.ViewType]; dup {
			return schema.ErrInvalidProtocol
		}
		seen[capTab.Template.ViewType] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.descriptors[desc.ProtocolID]; exists {
		return schema.ErrDuplicateProtocol
	}
	r.descriptors[desc.ProtocolID] = desc
	r.order = append(r.order, desc.ProtocolID)
	return nil
}

// Lookup returns the descriptor for a protocol id. Unknown ids fail with
// ErrUnknownProtocol rather than silently defaulting. The registry owns the
// descriptor; callers must not mutate its maps or slices.
func (r *Registry) Lookup(id schema.ProtocolID) (schema.WorkspaceDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.descriptors[id]
	if !ok {
		return schema.WorkspaceDescriptor{}, schema.ErrUnknownProtocol
	}
	return desc, nil
}

// Descriptors returns all registered descriptors in registration order.
func (r *Registry) Descriptors() []schema.WorkspaceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]schema.WorkspaceDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.descriptors[id])
	}
	return out
}

// InstantiateDefaultTabs expands the protocol's default tab templates into
// concrete tabs bound to sessionID, preserving template order.
func (r *Registry) InstantiateDefaultTabs(id schema.ProtocolID, sessionID schema.SessionID) ([]schema.Tab, error) {
	if err := schema.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	desc, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	tabs := make([]schema.Tab, 0, len(desc.DefaultTabs))
	for _, tmpl := range desc.DefaultTabs {
		tabs = append(tabs, tmpl.Instantiate(sessionID))
	}
	return tabs, nil
}

// CapabilityTab returns the tab template gated by the capability, if the
// protocol declares one.
func (r *Registry) CapabilityTab(id schema.ProtocolID, capability schema.Capability) (schema.CapabilityTab, bool, error) {
	desc, err := r.Lookup(id)
	if err != nil {
		return schema.CapabilityTab{}, false, err
	}
	for _, capTab := range desc.CapabilityTabs {
		if capTab.Requires == capability {
			return capTab, true, nil
		}
	}
	return schema.CapabilityTab{}, false, nil
}
