package schema

// Tab is one addressable panel inside a session's workspace. Tabs are value
// types: a tab is never mutated in place, only replaced wholesale when its
// definition changes, and rebuilt freely on every reconciliation pass.
type Tab struct {
	ID        TabID     `json:"id"`
	SessionID SessionID `json:"session_id"`
	ViewType  ViewType  `json:"view_type"`
	Title     string    `json:"title"`
	Closable  bool      `json:"closable"`
}

// Origin records the provenance of a collection's current order: whether the
// last change came from a user command (drag reorder) or a canonical sync.
// Consumers read the tag directly instead of inferring provenance by diffing
// orders.
type Origin string

const (
	// OriginSync marks an order last written by a canonical sync.
	OriginSync Origin = "sync"
	// OriginUser marks an order last arranged by a user reorder command.
	OriginUser Origin = "user"
)

// TabsSnapshot is a read-only view of one session's tab collection.
type TabsSnapshot struct {
	SessionID SessionID `json:"session_id"`
	Tabs      []Tab     `json:"tabs"`
	ActiveTab TabID     `json:"active_tab,omitempty"`
	Origin    Origin    `json:"origin"`
}
