package schema

import (
	"errors"
	"testing"
)

func TestValidateSessionID(t *testing.T) {
	valid := []string{"sess-1", "a", "node_3.shell", "0f2c7d9e"}
	for _, id := range valid {
		if err := ValidateSessionID(SessionID(id)); err != nil {
			t.Fatalf("expected %q valid, got %v", id, err)
		}
	}
	invalid := []string{"", "Sess-1", "sess 1", "sess:1", " sess", "sess\n"}
	for _, id := range invalid {
		if err := ValidateSessionID(SessionID(id)); !errors.Is(err, ErrInvalidSession) {
			t.Fatalf("expected %q invalid, got %v", id, err)
		}
	}
}

func TestValidateViewType(t *testing.T) {
	if err := ValidateViewType("terminal"); err != nil {
		t.Fatalf("expected terminal valid, got %v", err)
	}
	if err := ValidateViewType("file:transfer"); !errors.Is(err, ErrInvalidView) {
		t.Fatalf("expected colon rejected, got %v", err)
	}
}

func TestMakeTabID(t *testing.T) {
	id := MakeTabID("sess-1", "terminal")
	if id != "sess-1:terminal" {
		t.Fatalf("unexpected tab id %q", id)
	}
	if got := id.SessionOf(); got != "sess-1" {
		t.Fatalf("unexpected session component %q", got)
	}
	if got := TabID("noseparator").SessionOf(); got != "" {
		t.Fatalf("expected empty session for malformed id, got %q", got)
	}
}

func TestInstantiateTemplateDefaultsTitle(t *testing.T) {
	tab := TabTemplate{ViewType: "sftp", Closable: true}.Instantiate("sess-1")
	if tab.ID != "sess-1:sftp" {
		t.Fatalf("unexpected id %q", tab.ID)
	}
	if tab.Title != "sftp" {
		t.Fatalf("expected view type as fallback title, got %q", tab.Title)
	}
	if !tab.Closable {
		t.Fatalf("expected closable carried over")
	}
}

func TestNormalizeServiceConfig(t *testing.T) {
	cfg, err := NormalizeServiceConfig(ServiceConfig{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.TabTitleMax != DefaultTabTitleMax {
		t.Fatalf("expected default title max, got %d", cfg.TabTitleMax)
	}
	if cfg.TabTitleSuffix == "" {
		t.Fatalf("expected default suffix")
	}
	if _, err := NormalizeServiceConfig(ServiceConfig{TabTitleMax: 1, TabTitleSuffix: "..."}); err == nil {
		t.Fatalf("expected error when max does not exceed suffix")
	}
}
