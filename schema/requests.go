package schema

// Canonical sync.

// SyncTabsRequest feeds a fresh canonical tab list for a session through the
// reconciler. Authoritative marks a deliberate full reorder by the canonical
// source: it overrides local user ordering even when the id set is unchanged.
type SyncTabsRequest struct {
	SessionID     SessionID
	Tabs          []Tab
	Authoritative bool
}

// SyncTabsResponse reports the reconciled collection.
type SyncTabsResponse struct {
	Snapshot TabsSnapshot
	Changed  bool
}

// User commands.

// SelectTabRequest sets the active tab for a session.
type SelectTabRequest struct {
	SessionID SessionID
	TabID     TabID
}

// SelectTabResponse reports the collection after selection.
type SelectTabResponse struct {
	Snapshot TabsSnapshot
}

// CloseTabRequest asks for a user-initiated close of a tab.
type CloseTabRequest struct {
	SessionID SessionID
	TabID     TabID
}

// CloseTabResponse reports the collection after the close. Closed is false
// when the tab was not closable and the request was a no-op.
type CloseTabResponse struct {
	Snapshot TabsSnapshot
	Closed   bool
}

// ReorderTabsRequest applies a completed drag as one full permutation of the
// current order. Partial or incremental reorders are not part of the contract.
type ReorderTabsRequest struct {
	SessionID SessionID
	Order     []TabID
}

// ReorderTabsResponse reports the collection after the reorder.
type ReorderTabsResponse struct {
	Snapshot TabsSnapshot
}

// Reads and teardown.

// ListTabsRequest fetches the current collection for a session.
type ListTabsRequest struct {
	SessionID SessionID
}

// ListTabsResponse reports the current collection.
type ListTabsResponse struct {
	Snapshot TabsSnapshot
}

// RemoveSessionRequest drops a session's collection entirely (session ended).
type RemoveSessionRequest struct {
	SessionID SessionID
}

// RemoveSessionResponse reports whether a collection existed.
type RemoveSessionResponse struct {
	Removed bool
}
