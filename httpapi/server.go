package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/portwayhq/portway/core"
	"github.com/portwayhq/portway/internal/logx"
	"github.com/portwayhq/portway/internal/sessions"
	"github.com/portwayhq/portway/schema"
)

// Server serves the HTTP API: the protocol catalog, session lifecycle, tab
// commands, and the per-session SSE stream.
type Server struct {
	cfg      Config
	registry *core.Registry
	service  core.Service
	manager  *sessions.Manager
	hub      *Hub
	basePath string
}

// NewServer constructs an HTTP server.
func NewServer(cfg Config, registry *core.Registry, service core.Service, manager *sessions.Manager, hub *Hub) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		service:  service,
		manager:  manager,
		hub:      hub,
		basePath: normalizeBasePath(cfg.BasePath),
	}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/protocols", s.handleProtocols)
	mux.HandleFunc("/api/sessions", s.handleSessionOpen)
	mux.HandleFunc("/api/sessions/close", s.handleSessionClose)
	mux.HandleFunc("/api/sessions/capability", s.handleCapability)
	mux.HandleFunc("/api/tabs", s.handleTabs)
	mux.HandleFunc("/api/tabs/select", s.handleSelect)
	mux.HandleFunc("/api/tabs/close", s.handleClose)
	mux.HandleFunc("/api/tabs/reorder", s.handleReorder)
	mux.HandleFunc("/api/stream", s.handleStream)

	handler := withRequestLogging(mux)
	if s.basePath == "" {
		return handler
	}
	prefix := s.basePath
	root := http.NewServeMux()
	root.Handle(prefix+"/", http.StripPrefix(prefix, handler))
	root.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != prefix {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, prefix+"/", http.StatusTemporaryRedirect)
	})
	return root
}

func (s *Server) handleProtocols(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	descs := s.registry.Descriptors()
	writeJSON(w, http.StatusOK, map[string]any{"protocols": descs})
	logx.Ctx(r.Context()).Debug("http protocols listed", "count", len(descs))
}

func (s *Server) handleSessionOpen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context()).With("remote", clientIP(r))
	var payload struct {
		Protocol string   `json:"protocol"`
		Options  []string `json:"options"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http session open decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.manager.Open(r.Context(), schema.ProtocolID(payload.Protocol), payload.Options)
	if err != nil {
		log.Warn("http session open failed", "protocol", payload.Protocol, "err", err)
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
	log.Info("http session opened", "session", res.SessionID, "protocol", res.Protocol)
}

func (s *Server) handleSessionClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		SessionID string `json:"session_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sessionID := schema.SessionID(payload.SessionID)
	log := logx.WithSession(r.Context(), sessionID)
	if err := s.manager.Close(r.Context(), sessionID); err != nil {
		log.Warn("http session close failed", "err", err)
		writeError(w, errorStatus(err), err)
		return
	}
	s.hub.Drop(sessionID)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	log.Info("http session closed")
}

func (s *Server) handleCapability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		SessionID  string `json:"session_id"`
		Capability string `json:"capability"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sessionID := schema.SessionID(payload.SessionID)
	log := logx.WithSession(r.Context(), sessionID)
	snapshot, err := s.manager.DiscoverCapability(r.Context(), sessionID, schema.Capability(payload.Capability))
	if err != nil {
		log.Warn("http capability failed", "capability", payload.Capability, "err", err)
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshot": snapshot})
	log.Info("http capability ok", "capability", payload.Capability, "tabs", len(snapshot.Tabs))
}

func (s *Server) handleTabs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sessionID := schema.SessionID(r.URL.Query().Get("session"))
	log := logx.WithSession(r.Context(), sessionID)
	resp, err := s.service.ListTabs(r.Context(), schema.ListTabsRequest{SessionID: sessionID})
	if err != nil {
		log.Warn("http tabs list failed", "err", err)
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshot": resp.Snapshot})
	log.Debug("http tabs list ok", "count", len(resp.Snapshot.Tabs))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		SessionID string `json:"session_id"`
		TabID     string `json:"tab_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sessionID := schema.SessionID(payload.SessionID)
	log := logx.WithSessionTab(r.Context(), sessionID, schema.TabID(payload.TabID))
	resp, err := s.service.SelectTab(r.Context(), schema.SelectTabRequest{
		SessionID: sessionID,
		TabID:     schema.TabID(payload.TabID),
	})
	if err != nil {
		log.Warn("http tab select failed", "err", err)
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshot": resp.Snapshot})
	log.Info("http tab select ok")
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		SessionID string `json:"session_id"`
		TabID     string `json:"tab_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sessionID := schema.SessionID(payload.SessionID)
	log := logx.WithSessionTab(r.Context(), sessionID, schema.TabID(payload.TabID))
	resp, err := s.service.CloseTab(r.Context(), schema.CloseTabRequest{
		SessionID: sessionID,
		TabID:     schema.TabID(payload.TabID),
	})
	if err != nil {
		log.Warn("http tab close failed", "err", err)
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshot": resp.Snapshot, "closed": resp.Closed})
	log.Info("http tab close ok", "closed", resp.Closed)
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		SessionID string   `json:"session_id"`
		Order     []string `json:"order"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sessionID := schema.SessionID(payload.SessionID)
	log := logx.WithSession(r.Context(), sessionID)
	order := make([]schema.TabID, 0, len(payload.Order))
	for _, id := range payload.Order {
		order = append(order, schema.TabID(id))
	}
	resp, err := s.service.ReorderTabs(r.Context(), schema.ReorderTabsRequest{
		SessionID: sessionID,
		Order:     order,
	})
	if err != nil {
		log.Warn("http tabs reorder failed", "err", err)
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshot": resp.Snapshot})
	log.Info("http tabs reorder ok", "tabs", len(order))
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	sessionID := schema.SessionID(r.URL.Query().Get("session"))
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, errors.New("session query parameter is required"))
		return
	}
	log := logx.WithSession(r.Context(), sessionID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lastID := parseUint(r.Header.Get("Last-Event-ID"))

	// Subscribe before writing anything: events published while the
	// snapshot and replay go out land on the channel instead of falling
	// into the gap between history and subscription.
	ch, unsubscribe, _, history := s.hub.Subscribe(sessionID)
	defer unsubscribe()

	list, err := s.service.ListTabs(r.Context(), schema.ListTabsRequest{SessionID: sessionID})
	if err == nil {
		snapshot := list.Snapshot
		_ = writeSSEvent(w, StreamEvent{
			Type:      "snapshot",
			Snapshot:  &snapshot,
			Timestamp: time.Now(),
		})
	}

	replayCount := 0
	if lastID > 0 {
		for _, event := range history {
			if event.Seq <= lastID {
				continue
			}
			_ = writeSSEvent(w, event)
			replayCount++
		}
	}
	flusher.Flush()

	notify := r.Context().Done()
	log.Info("http stream opened", "last_id", lastID, "replay", replayCount)
	for {
		select {
		case <-notify:
			log.Info("http stream closed")
			return
		case event := <-ch:
			_ = writeSSEvent(w, event)
			flusher.Flush()
		}
	}
}

// errorStatus maps sentinel errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, schema.ErrUnknownProtocol),
		errors.Is(err, schema.ErrUnknownSession),
		errors.Is(err, schema.ErrUnknownTab):
		return http.StatusNotFound
	case errors.Is(err, schema.ErrDuplicateProtocol):
		return http.StatusConflict
	case errors.Is(err, schema.ErrInvalidProtocol),
		errors.Is(err, schema.ErrInvalidSession),
		errors.Is(err, schema.ErrInvalidView),
		errors.Is(err, schema.ErrInvalidReorder),
		errors.Is(err, schema.ErrUnknownCapability):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeSSEvent(w http.ResponseWriter, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Seq > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", event.Seq)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(data)))
	return nil
}

func parseUint(value string) uint64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
