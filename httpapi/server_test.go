package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/portwayhq/portway/core"
	"github.com/portwayhq/portway/internal/protocols"
	"github.com/portwayhq/portway/internal/sessions"
	"github.com/portwayhq/portway/schema"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	registry := core.NewRegistry()
	if err := protocols.Register(registry, protocols.Builtins()); err != nil {
		t.Fatalf("register builtins: %v", err)
	}
	hub := NewHub(100)
	service, err := core.NewService(schema.ServiceConfig{}, core.ServiceDeps{EventSink: hub})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	manager := sessions.NewManager(registry, service)
	return NewServer(Config{Addr: ":0"}, registry, service, manager, hub)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func openSession(t *testing.T, handler http.Handler, protocol string) sessions.OpenResult {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/sessions", map[string]any{"protocol": protocol})
	if rec.Code != http.StatusOK {
		t.Fatalf("open session: status %d body %s", rec.Code, rec.Body.String())
	}
	var res sessions.OpenResult
	decodeBody(t, rec, &res)
	return res
}

func TestProtocolCatalog(t *testing.T) {
	server := newTestServer(t)
	handler := server.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/protocols", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp struct {
		Protocols []schema.WorkspaceDescriptor `json:"protocols"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Protocols) != len(protocols.Builtins()) {
		t.Fatalf("expected %d protocols, got %d", len(protocols.Builtins()), len(resp.Protocols))
	}
	if resp.Protocols[0].ProtocolID != "ssh" {
		t.Fatalf("expected ssh first, got %q", resp.Protocols[0].ProtocolID)
	}
}

func TestSessionOpenAndTabsList(t *testing.T) {
	server := newTestServer(t)
	handler := server.Handler()

	res := openSession(t, handler, "ssh")
	if len(res.Snapshot.Tabs) != 1 {
		t.Fatalf("expected one default tab, got %+v", res.Snapshot.Tabs)
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/tabs?session="+string(res.SessionID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("tabs list: status %d", rec.Code)
	}
	var resp struct {
		Snapshot schema.TabsSnapshot `json:"snapshot"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Snapshot.Tabs) != 1 || resp.Snapshot.ActiveTab != res.Snapshot.Tabs[0].ID {
		t.Fatalf("unexpected snapshot %+v", resp.Snapshot)
	}
}

func TestSessionOpenUnknownProtocol(t *testing.T) {
	server := newTestServer(t)
	rec := doJSON(t, server.Handler(), http.MethodPost, "/api/sessions", map[string]any{"protocol": "gopher"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCapabilityDiscoveryOverHTTP(t *testing.T) {
	server := newTestServer(t)
	handler := server.Handler()
	res := openSession(t, handler, "ssh")

	rec := doJSON(t, handler, http.MethodPost, "/api/sessions/capability", map[string]any{
		"session_id": string(res.SessionID),
		"capability": "supportsSftp",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("capability: status %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Snapshot schema.TabsSnapshot `json:"snapshot"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Snapshot.Tabs) != 2 || resp.Snapshot.Tabs[1].ViewType != "sftp" {
		t.Fatalf("expected sftp tab appended, got %+v", resp.Snapshot.Tabs)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/sessions/capability", map[string]any{
		"session_id": string(res.SessionID),
		"capability": "supportsTimeTravel",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown capability, got %d", rec.Code)
	}
}

func TestTabSelectCloseReorder(t *testing.T) {
	server := newTestServer(t)
	handler := server.Handler()
	res := openSession(t, handler, "ssh")
	session := string(res.SessionID)

	rec := doJSON(t, handler, http.MethodPost, "/api/sessions/capability", map[string]any{
		"session_id": session,
		"capability": "supportsSftp",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("capability: status %d", rec.Code)
	}

	terminalID := fmt.Sprintf("%s:terminal", session)
	sftpID := fmt.Sprintf("%s:sftp", session)

	rec = doJSON(t, handler, http.MethodPost, "/api/tabs/select", map[string]any{
		"session_id": session,
		"tab_id":     sftpID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("select: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/tabs/select", map[string]any{
		"session_id": session,
		"tab_id":     "nonexistent",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown tab, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/tabs/reorder", map[string]any{
		"session_id": session,
		"order":      []string{sftpID, terminalID},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("reorder: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/tabs/reorder", map[string]any{
		"session_id": session,
		"order":      []string{sftpID},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for partial reorder, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/tabs/close", map[string]any{
		"session_id": session,
		"tab_id":     sftpID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("close: status %d body %s", rec.Code, rec.Body.String())
	}
	var closeResp struct {
		Snapshot schema.TabsSnapshot `json:"snapshot"`
		Closed   bool                `json:"closed"`
	}
	decodeBody(t, rec, &closeResp)
	if !closeResp.Closed || len(closeResp.Snapshot.Tabs) != 1 {
		t.Fatalf("unexpected close response %+v", closeResp)
	}

	// The default terminal tab is not closable; the close reports a no-op.
	rec = doJSON(t, handler, http.MethodPost, "/api/tabs/close", map[string]any{
		"session_id": session,
		"tab_id":     terminalID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("close non-closable: status %d", rec.Code)
	}
	decodeBody(t, rec, &closeResp)
	if closeResp.Closed {
		t.Fatalf("expected non-closable tab kept")
	}
}

func TestSessionClose(t *testing.T) {
	server := newTestServer(t)
	handler := server.Handler()
	res := openSession(t, handler, "vnc")

	rec := doJSON(t, handler, http.MethodPost, "/api/sessions/close", map[string]any{
		"session_id": string(res.SessionID),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("close: status %d body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/sessions/close", map[string]any{
		"session_id": string(res.SessionID),
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second close, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server := newTestServer(t)
	handler := server.Handler()
	rec := doJSON(t, handler, http.MethodPost, "/api/protocols", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/sessions", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestBasePathPrefix(t *testing.T) {
	registry := core.NewRegistry()
	if err := protocols.Register(registry, protocols.Builtins()); err != nil {
		t.Fatalf("register builtins: %v", err)
	}
	hub := NewHub(100)
	service, err := core.NewService(schema.ServiceConfig{}, core.ServiceDeps{EventSink: hub})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	manager := sessions.NewManager(registry, service)
	server := NewServer(Config{BasePath: "/console"}, registry, service, manager, hub)
	handler := server.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/console/api/protocols", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected prefixed route to work, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/protocols", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected unprefixed route 404, got %d", rec.Code)
	}
}

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":          "",
		"/":         "",
		"console":   "/console",
		"/console":  "/console",
		"/console/": "/console",
	}
	for input, want := range cases {
		if got := normalizeBasePath(input); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestStreamReplaysHistoryAfterLastEventID(t *testing.T) {
	server := newTestServer(t)
	handler := server.Handler()

	res := openSession(t, handler, "ssh")
	rec := doJSON(t, handler, http.MethodPost, "/api/sessions/capability", map[string]any{
		"session_id": string(res.SessionID),
		"capability": "supportsSftp",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("capability: status %d body %s", rec.Code, rec.Body.String())
	}

	// A cancelled request context makes the handler return right after the
	// snapshot and replay are written.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/stream?session="+string(res.SessionID), nil).WithContext(ctx)
	req.Header.Set("Last-Event-ID", "1")
	streamRec := httptest.NewRecorder()
	handler.ServeHTTP(streamRec, req)

	body := streamRec.Body.String()
	if !strings.Contains(body, `"type":"snapshot"`) {
		t.Fatalf("expected initial snapshot event, got %q", body)
	}
	if !strings.Contains(body, "id: 2\n") {
		t.Fatalf("expected replay of event 2, got %q", body)
	}
	if strings.Contains(body, "id: 1\n") {
		t.Fatalf("expected events at or before last id to be skipped, got %q", body)
	}
}

func TestStreamSeesEventsPublishedAfterSubscribe(t *testing.T) {
	server := newTestServer(t)
	handler := server.Handler()

	res := openSession(t, handler, "ssh")

	ch, unsubscribe, seq, history := server.hub.Subscribe(res.SessionID)
	defer unsubscribe()
	if seq != 1 || len(history) != 1 {
		t.Fatalf("expected seq 1 with one buffered event, got seq %d history %d", seq, len(history))
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/sessions/capability", map[string]any{
		"session_id": string(res.SessionID),
		"capability": "supportsSftp",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("capability: status %d body %s", rec.Code, rec.Body.String())
	}

	select {
	case event := <-ch:
		if event.Seq != seq+1 {
			t.Fatalf("expected next seq %d, got %d", seq+1, event.Seq)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected event on channel after subscribe")
	}
}
