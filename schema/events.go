package schema

// TabsEventReason names the command that produced a tabs event.
type TabsEventReason string

const (
	// TabsSynced indicates a canonical sync changed the collection.
	TabsSynced TabsEventReason = "synced"
	// TabsSelected indicates the active tab changed by user command.
	TabsSelected TabsEventReason = "selected"
	// TabsClosed indicates a tab was closed by user command.
	TabsClosed TabsEventReason = "closed"
	// TabsReordered indicates the order changed by user command.
	TabsReordered TabsEventReason = "reordered"
	// TabsRemoved indicates the whole session collection was dropped.
	TabsRemoved TabsEventReason = "removed"
)

// TabsEvent is emitted after every state-changing store command: exactly one
// event per command that changed state, zero otherwise.
type TabsEvent struct {
	SessionID SessionID       `json:"session_id"`
	Reason    TabsEventReason `json:"reason"`
	Snapshot  TabsSnapshot    `json:"snapshot"`
}
