package core

import (
	"context"
	"sync"

	"github.com/portwayhq/portway/internal/logx"
	"github.com/portwayhq/portway/schema"
	"pkt.systems/pslog"
)

// service implements the session tabs store.
type service struct {
	cfg    schema.ServiceConfig
	sink   EventSink
	logger pslog.Logger

	mu       sync.Mutex
	sessions map[schema.SessionID]collectionState
	subs     map[schema.SessionID][]subscriber
	nextSub  int
}

type subscriber struct {
	id       int
	listener Listener
}

// NewService constructs the tabs store.
func NewService(cfg schema.ServiceConfig, deps ServiceDeps) (Service, error) {
	normalized, err := schema.NormalizeServiceConfig(cfg)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &service{
		cfg:      normalized,
		sink:     deps.EventSink,
		logger:   logger,
		sessions: make(map[schema.SessionID]collectionState),
		subs:     make(map[schema.SessionID][]subscriber),
	}, nil
}

// SyncTabs feeds a canonical tab list through the reconciler. An unknown
// session id creates a fresh collection; the only failure mode is a
// malformed session id.
func (s *service) SyncTabs(ctx context.Context, req schema.SyncTabsRequest) (schema.SyncTabsResponse, error) {
	if err := schema.ValidateSessionID(req.SessionID); err != nil {
		return schema.SyncTabsResponse{}, err
	}
	log := logx.WithSession(ctx, req.SessionID)
	canonical := s.normalizeCanonical(log, req.SessionID, req.Tabs)

	s.mu.Lock()
	prev := s.sessions[req.SessionID]
	next := reconcile(prev, canonical, req.Authoritative)
	changed := !equalState(prev, next)
	var event schema.TabsEvent
	if changed {
		s.sessions[req.SessionID] = next
		event = s.eventLocked(req.SessionID, schema.TabsSynced)
	}
	snapshot := s.snapshotLocked(req.SessionID)
	s.mu.Unlock()

	if changed {
		s.emit(event)
		log.Debug("store tabs synced", "tabs", len(next.order), "active", next.activeID, "authoritative", req.Authoritative)
	} else {
		log.Trace("store tabs sync unchanged", "tabs", len(next.order))
	}
	return schema.SyncTabsResponse{Snapshot: snapshot, Changed: changed}, nil
}

// SelectTab sets the active tab. Selecting a tab not in the session's order
// is a caller bug and fails with ErrUnknownTab; re-selecting the active tab
// is a silent no-op.
func (s *service) SelectTab(ctx context.Context, req schema.SelectTabRequest) (schema.SelectTabResponse, error) {
	log := logx.WithSessionTab(ctx, req.SessionID, req.TabID)

	s.mu.Lock()
	state, ok := s.sessions[req.SessionID]
	if !ok {
		s.mu.Unlock()
		log.Warn("store tab select failed", "err", schema.ErrUnknownTab)
		return schema.SelectTabResponse{}, schema.ErrUnknownTab
	}
	if _, ok := state.tabsByID[req.TabID]; !ok {
		s.mu.Unlock()
		log.Warn("store tab select failed", "err", schema.ErrUnknownTab)
		return schema.SelectTabResponse{}, schema.ErrUnknownTab
	}
	if state.activeID == req.TabID {
		snapshot := s.snapshotLocked(req.SessionID)
		s.mu.Unlock()
		log.Trace("store tab select unchanged")
		return schema.SelectTabResponse{Snapshot: snapshot}, nil
	}
	state.activeID = req.TabID
	s.sessions[req.SessionID] = state
	event := s.eventLocked(req.SessionID, schema.TabsSelected)
	snapshot := s.snapshotLocked(req.SessionID)
	s.mu.Unlock()

	s.emit(event)
	log.Info("store tab selected")
	return schema.SelectTabResponse{Snapshot: snapshot}, nil
}

// CloseTab removes a tab on user request. Unknown ids fail with
// ErrUnknownTab. A non-closable tab is a silent no-op: the rendering layer
// may race with a capability change, and the store must stay consistent
// rather than error.
func (s *service) CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.CloseTabResponse, error) {
	log := logx.WithSessionTab(ctx, req.SessionID, req.TabID)

	s.mu.Lock()
	state, ok := s.sessions[req.SessionID]
	if !ok {
		s.mu.Unlock()
		log.Warn("store tab close failed", "err", schema.ErrUnknownTab)
		return schema.CloseTabResponse{}, schema.ErrUnknownTab
	}
	tab, ok := state.tabsByID[req.TabID]
	if !ok {
		s.mu.Unlock()
		log.Warn("store tab close failed", "err", schema.ErrUnknownTab)
		return schema.CloseTabResponse{}, schema.ErrUnknownTab
	}
	if !tab.Closable {
		snapshot := s.snapshotLocked(req.SessionID)
		s.mu.Unlock()
		log.Debug("store tab close ignored", "reason", "not closable")
		return schema.CloseTabResponse{Snapshot: snapshot}, nil
	}

	prevOrder := state.order
	order := make([]schema.TabID, 0, len(prevOrder)-1)
	for _, id := range prevOrder {
		if id != req.TabID {
			order = append(order, id)
		}
	}
	byID := make(map[schema.TabID]schema.Tab, len(order))
	for _, id := range order {
		byID[id] = state.tabsByID[id]
	}
	state = collectionState{
		order:    order,
		tabsByID: byID,
		activeID: repairActive(state.activeID, prevOrder, order, byID),
		origin:   schema.OriginUser,
	}
	s.sessions[req.SessionID] = state
	event := s.eventLocked(req.SessionID, schema.TabsClosed)
	snapshot := s.snapshotLocked(req.SessionID)
	s.mu.Unlock()

	s.emit(event)
	log.Info("store tab closed", "active", state.activeID)
	return schema.CloseTabResponse{Snapshot: snapshot, Closed: true}, nil
}

// ReorderTabs applies a completed drag: the new order must be a permutation
// of the current order's id set, else ErrInvalidReorder. A successful
// reorder marks the collection user-arranged so later non-authoritative
// syncs preserve it.
func (s *service) ReorderTabs(ctx context.Context, req schema.ReorderTabsRequest) (schema.ReorderTabsResponse, error) {
	log := logx.WithSession(ctx, req.SessionID)

	s.mu.Lock()
	state, ok := s.sessions[req.SessionID]
	if !ok || !isPermutation(state.order, req.Order) {
		s.mu.Unlock()
		log.Warn("store tabs reorder failed", "err", schema.ErrInvalidReorder)
		return schema.ReorderTabsResponse{}, schema.ErrInvalidReorder
	}
	if equalOrder(state.order, req.Order) {
		snapshot := s.snapshotLocked(req.SessionID)
		s.mu.Unlock()
		log.Trace("store tabs reorder unchanged")
		return schema.ReorderTabsResponse{Snapshot: snapshot}, nil
	}
	state.order = append([]schema.TabID(nil), req.Order...)
	state.origin = schema.OriginUser
	s.sessions[req.SessionID] = state
	event := s.eventLocked(req.SessionID, schema.TabsReordered)
	snapshot := s.snapshotLocked(req.SessionID)
	s.mu.Unlock()

	s.emit(event)
	log.Info("store tabs reordered", "tabs", len(req.Order))
	return schema.ReorderTabsResponse{Snapshot: snapshot}, nil
}

// ListTabs returns the current collection. An unknown session yields an
// empty snapshot without creating state.
func (s *service) ListTabs(ctx context.Context, req schema.ListTabsRequest) (schema.ListTabsResponse, error) {
	log := logx.WithSession(ctx, req.SessionID)

	s.mu.Lock()
	snapshot := s.snapshotLocked(req.SessionID)
	s.mu.Unlock()

	log.Trace("store tabs listed", "count", len(snapshot.Tabs), "active", snapshot.ActiveTab)
	return schema.ListTabsResponse{Snapshot: snapshot}, nil
}

// RemoveSession drops a session's collection entirely.
func (s *service) RemoveSession(ctx context.Context, req schema.RemoveSessionRequest) (schema.RemoveSessionResponse, error) {
	log := logx.WithSession(ctx, req.SessionID)

	s.mu.Lock()
	_, existed := s.sessions[req.SessionID]
	var event schema.TabsEvent
	if existed {
		delete(s.sessions, req.SessionID)
		event = s.eventLocked(req.SessionID, schema.TabsRemoved)
	}
	s.mu.Unlock()

	if existed {
		s.emit(event)
		log.Info("store session removed")
	}
	return schema.RemoveSessionResponse{Removed: existed}, nil
}

// Subscribe registers a listener for one session's tab events. The returned
// cancel function deregisters it; cancelling twice is safe.
func (s *service) Subscribe(sessionID schema.SessionID, listener Listener) func() {
	if listener == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[sessionID] = append(s.subs[sessionID], subscriber{id: id, listener: listener})
	count := len(s.subs[sessionID])
	s.mu.Unlock()
	s.logger.With("session", sessionID).Debug("store subscribe", "subs", count)

	return func() {
		s.mu.Lock()
		subs := s.subs[sessionID]
		for i, sub := range subs {
			if sub.id == id {
				subs = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(subs) == 0 {
			delete(s.subs, sessionID)
		} else {
			s.subs[sessionID] = subs
		}
		s.mu.Unlock()
		s.logger.With("session", sessionID).Debug("store unsubscribe")
	}
}

// normalizeCanonical rebinds canonical tabs to the session: structural ids
// are recomputed, titles are truncated to the configured limit, and
// duplicate ids are dropped keeping the first occurrence.
func (s *service) normalizeCanonical(log pslog.Logger, sessionID schema.SessionID, tabs []schema.Tab) []schema.Tab {
	out := make([]schema.Tab, 0, len(tabs))
	seen := make(map[schema.TabID]struct{}, len(tabs))
	for _, tab := range tabs {
		if err := schema.ValidateViewType(tab.ViewType); err != nil {
			log.Warn("store canonical tab dropped", "view", tab.ViewType, "err", err)
			continue
		}
		tab.SessionID = sessionID
		tab.ID = schema.MakeTabID(sessionID, tab.ViewType)
		if _, dup := seen[tab.ID]; dup {
			log.Warn("store canonical tab duplicate dropped", "tab", tab.ID)
			continue
		}
		seen[tab.ID] = struct{}{}
		tab.Title = truncateTitle(tab.Title, s.cfg.TabTitleMax, s.cfg.TabTitleSuffix)
		out = append(out, tab)
	}
	return out
}

func (s *service) snapshotLocked(sessionID schema.SessionID) schema.TabsSnapshot {
	state := s.sessions[sessionID]
	tabs := make([]schema.Tab, 0, len(state.order))
	for _, id := range state.order {
		tabs = append(tabs, state.tabsByID[id])
	}
	origin := state.origin
	if origin == "" {
		origin = schema.OriginSync
	}
	return schema.TabsSnapshot{
		SessionID: sessionID,
		Tabs:      tabs,
		ActiveTab: state.activeID,
		Origin:    origin,
	}
}

func (s *service) eventLocked(sessionID schema.SessionID, reason schema.TabsEventReason) schema.TabsEvent {
	return schema.TabsEvent{
		SessionID: sessionID,
		Reason:    reason,
		Snapshot:  s.snapshotLocked(sessionID),
	}
}

// emit delivers one event to the sink and the session's listeners. It runs
// outside the store lock but still synchronously inside the command call.
func (s *service) emit(event schema.TabsEvent) {
	if s.sink != nil {
		s.sink.OnTabsEvent(event)
	}
	s.mu.Lock()
	subs := append([]subscriber(nil), s.subs[event.SessionID]...)
	s.mu.Unlock()
	for _, sub := range subs {
		sub.listener(event)
	}
}

func isPermutation(current, proposed []schema.TabID) bool {
	if len(current) != len(proposed) {
		return false
	}
	set := make(map[schema.TabID]struct{}, len(current))
	for _, id := range current {
		set[id] = struct{}{}
	}
	for _, id := range proposed {
		if _, ok := set[id]; !ok {
			return false
		}
		delete(set, id)
	}
	return len(set) == 0
}

func equalOrder(a, b []schema.TabID) bool {
	if len(a) != len(b) {
		return false
	}
	for i, id := range a {
		if b[i] != id {
			return false
		}
	}
	return true
}

func truncateTitle(title string, max int, suffix string) string {
	runes := []rune(title)
	if max <= 0 || len(runes) <= max {
		return title
	}
	keep := max - len([]rune(suffix))
	return string(runes[:keep]) + suffix
}
