package core

import (
	"context"

	"github.com/portwayhq/portway/schema"
)

// Service is the transport-agnostic API of the session tabs store: the single
// owner of every session's ordered tab collection and active pointer.
type Service interface {
	SyncTabs(ctx context.Context, req schema.SyncTabsRequest) (schema.SyncTabsResponse, error)
	SelectTab(ctx context.Context, req schema.SelectTabRequest) (schema.SelectTabResponse, error)
	CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.CloseTabResponse, error)
	ReorderTabs(ctx context.Context, req schema.ReorderTabsRequest) (schema.ReorderTabsResponse, error)
	ListTabs(ctx context.Context, req schema.ListTabsRequest) (schema.ListTabsResponse, error)
	RemoveSession(ctx context.Context, req schema.RemoveSessionRequest) (schema.RemoveSessionResponse, error)
	Subscribe(sessionID schema.SessionID, listener Listener) (cancel func())
}

// Listener observes tab events for one session. Listeners run synchronously
// inside the command that changed state, after the store's lock is released.
type Listener func(event schema.TabsEvent)

// EventSink receives every tab event across all sessions, for transports.
type EventSink interface {
	OnTabsEvent(event schema.TabsEvent)
}
