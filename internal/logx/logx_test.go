package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"pkt.systems/pslog"
)

func TestWithSessionTabAddsFields(t *testing.T) {
	capture := &logCapture{}
	logger := pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
	ctx := pslog.ContextWithLogger(context.Background(), logger)
	log := WithSessionTab(ctx, "sess-1", "sess-1:terminal")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["session"] != "sess-1" {
		t.Fatalf("expected session field, got %+v", entry)
	}
	if entry["tab"] != "sess-1:terminal" {
		t.Fatalf("expected tab field, got %+v", entry)
	}
}

func TestWithSessionSkipsAnnotatedContext(t *testing.T) {
	capture := &logCapture{}
	logger := pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
	ctx := pslog.ContextWithLogger(context.Background(), logger.With("session", "sess-1"))
	ctx = ContextWithSession(ctx, "sess-1")
	WithSession(ctx, "sess-1").Info("hello")

	line := capture.buf.String()
	if bytes.Count([]byte(line), []byte("sess-1")) != 1 {
		t.Fatalf("expected session annotated exactly once, got %q", line)
	}
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}
