package httpapi

import (
	"context"
	"sync"
	"time"

	"github.com/portwayhq/portway/internal/logx"
	"github.com/portwayhq/portway/schema"
)

// StreamEvent is sent to SSE clients.
type StreamEvent struct {
	Seq       uint64                 `json:"seq"`
	Type      string                 `json:"type"`
	Reason    schema.TabsEventReason `json:"reason,omitempty"`
	Snapshot  *schema.TabsSnapshot   `json:"snapshot,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Hub broadcasts tab events per session.
type Hub struct {
	mu          sync.Mutex
	sessions    map[schema.SessionID]*sessionHub
	historySize int
}

type sessionHub struct {
	seq     uint64
	history []StreamEvent
	subs    map[chan StreamEvent]struct{}
}

// NewHub constructs a hub with the given history size.
func NewHub(historySize int) *Hub {
	if historySize <= 0 {
		historySize = 1000
	}
	return &Hub{
		sessions:    make(map[schema.SessionID]*sessionHub),
		historySize: historySize,
	}
}

// OnTabsEvent implements core.EventSink.
func (h *Hub) OnTabsEvent(event schema.TabsEvent) {
	log := logx.WithSession(context.Background(), event.SessionID)
	log.Trace("hub tabs event", "reason", event.Reason, "tabs", len(event.Snapshot.Tabs))
	snapshot := event.Snapshot
	h.publish(event.SessionID, StreamEvent{
		Type:      "tabs",
		Reason:    event.Reason,
		Snapshot:  &snapshot,
		Timestamp: time.Now(),
	})
}

// Subscribe registers a subscriber for a session. It returns the channel,
// an unsubscribe func, the current seq, and the buffered history.
func (h *Hub) Subscribe(sessionID schema.SessionID) (<-chan StreamEvent, func(), uint64, []StreamEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sh := h.getOrCreateSessionHubLocked(sessionID)
	ch := make(chan StreamEvent, 256)
	sh.subs[ch] = struct{}{}
	history := append([]StreamEvent(nil), sh.history...)
	seq := sh.seq
	log := logx.WithSession(context.Background(), sessionID)
	log.Info("hub subscribe", "subs", len(sh.subs), "history", len(history))
	unsub := func() {
		h.mu.Lock()
		delete(sh.subs, ch)
		close(ch)
		remaining := len(sh.subs)
		h.mu.Unlock()
		log.Info("hub unsubscribe", "subs", remaining)
	}
	return ch, unsub, seq, history
}

// Replay returns events after the provided seq.
func (h *Hub) Replay(sessionID schema.SessionID, after uint64) []StreamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	sh := h.sessions[sessionID]
	if sh == nil {
		return nil
	}
	events := make([]StreamEvent, 0, len(sh.history))
	for _, event := range sh.history {
		if event.Seq > after {
			events = append(events, event)
		}
	}
	logx.WithSession(context.Background(), sessionID).Debug("hub replay", "after", after, "count", len(events))
	return events
}

// Drop releases a session's history and wakes no subscribers; called when
// the session is torn down.
func (h *Hub) Drop(sessionID schema.SessionID) {
	h.mu.Lock()
	sh := h.sessions[sessionID]
	if sh != nil && len(sh.subs) == 0 {
		delete(h.sessions, sessionID)
	}
	h.mu.Unlock()
}

func (h *Hub) publish(sessionID schema.SessionID, event StreamEvent) {
	h.mu.Lock()
	sh := h.getOrCreateSessionHubLocked(sessionID)
	sh.seq++
	event.Seq = sh.seq
	sh.history = append(sh.history, event)
	if len(sh.history) > h.historySize {
		sh.history = sh.history[len(sh.history)-h.historySize:]
	}
	subs := make([]chan StreamEvent, 0, len(sh.subs))
	for sub := range sh.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		logx.WithSession(context.Background(), sessionID).Warn("hub event dropped", "reason", event.Reason, "dropped", dropped)
	}
}

func (h *Hub) getOrCreateSessionHubLocked(sessionID schema.SessionID) *sessionHub {
	sh := h.sessions[sessionID]
	if sh == nil {
		sh = &sessionHub{
			subs: make(map[chan StreamEvent]struct{}),
		}
		h.sessions[sessionID] = sh
	}
	return sh
}
