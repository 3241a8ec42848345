package schema

import "strings"

// ProtocolID identifies a supported remote-access protocol.
type ProtocolID string

// SessionID identifies an open remote session.
type SessionID string

// ViewType identifies which view a tab hosts (terminal, file transfer, ...).
type ViewType string

// TabID identifies a single tab within a session's workspace.
//
// Tab identity is structural: the id is always the owning session id and the
// view type joined by ':'. The same logical tab therefore reconciles to the
// same id on every pass, without allocated handles.
type TabID string

// Capability names an optional protocol feature (e.g. "supportsSftp").
type Capability string

// MakeTabID derives the structural tab id for a view inside a session.
func MakeTabID(sessionID SessionID, viewType ViewType) TabID {
	return TabID(string(sessionID) + ":" + string(viewType))
}

// SessionOf returns the session component of a structural tab id, or ""
// if the id is malformed.
func (id TabID) SessionOf() SessionID {
	raw := string(id)
	if i := strings.IndexByte(raw, ':'); i > 0 {
		return SessionID(raw[:i])
	}
	return ""
}
