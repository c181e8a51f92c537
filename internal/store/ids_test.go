package store

import (
	"strings"
	"testing"

	"outliner-cli/internal/model"
)

func TestNewRandomID_PageIDsAreShort(t *testing.T) {
	id, err := newRandomID("page")
	if err != nil {
		t.Fatalf("newRandomID: %v", err)
	}
	if !strings.HasPrefix(id, "page-") {
		t.Fatalf("expected page prefix, got %q", id)
	}
	if got, want := len(strings.TrimPrefix(id, "page-")), 8; got != want {
		t.Fatalf("expected suffix len %d, got %d (%q)", want, got, id)
	}
}

func TestNewNoteID_NeverLooksProvisional(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := newNoteID()
		if err != nil {
			t.Fatalf("newNoteID: %v", err)
		}
		if !strings.HasPrefix(id, "note-") {
			t.Fatalf("expected note prefix, got %q", id)
		}
		if strings.HasPrefix(id, model.ProvisionalPrefix) {
			t.Fatalf("server id %q uses the provisional prefix", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
