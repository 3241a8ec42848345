package schema

import "errors"

var (
	// ErrInvalidProtocol indicates a malformed protocol descriptor or id.
	ErrInvalidProtocol = errors.New("invalid protocol")
	// ErrDuplicateProtocol indicates a protocol id registered twice.
	ErrDuplicateProtocol = errors.New("protocol already registered")
	// ErrUnknownProtocol indicates a lookup for an unregistered protocol id.
	ErrUnknownProtocol = errors.New("unknown protocol")
	// ErrInvalidSession indicates a malformed session identifier.
	ErrInvalidSession = errors.New("invalid session")
	// ErrUnknownSession indicates an operation against a session that does not exist.
	ErrUnknownSession = errors.New("unknown session")
	// ErrInvalidView indicates a malformed view type.
	ErrInvalidView = errors.New("invalid view type")
	// ErrUnknownTab indicates an operation named a tab id not present in the
	// session's current order. This is a caller bug, not a transient condition.
	ErrUnknownTab = errors.New("unknown tab")
	// ErrInvalidReorder indicates a reorder that is not a permutation of the
	// current tab set (stale snapshot or drag-library bug).
	ErrInvalidReorder = errors.New("reorder is not a permutation of current tabs")
	// ErrUnknownCapability indicates a capability the protocol does not advertise.
	ErrUnknownCapability = errors.New("unknown capability")
)
