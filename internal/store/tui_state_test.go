package store

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestTUIState_SaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	// Missing file => default state.
	st0, err := LoadTUIState(dir)
	if err != nil {
		t.Fatalf("LoadTUIState: %v", err)
	}
	if st0 == nil || st0.Version != 1 || st0.Focus == nil {
		t.Fatalf("expected default state; got %#v", st0)
	}

	want := &TUIState{
		Version:    1,
		LastPageID: "page-1",
		Focus:      map[string]string{"page-1": "note-abc"},
		ShowHelp:   true,
	}
	if err := SaveTUIState(dir, want); err != nil {
		t.Fatalf("SaveTUIState: %v", err)
	}
	got, err := LoadTUIState(dir)
	if err != nil {
		t.Fatalf("LoadTUIState (after save): %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("roundtrip mismatch:\nwant: %#v\ngot:  %#v", want, got)
	}
}

func TestTUIState_CorruptFileIsIgnored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, tuiStateFileName), []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	st, err := LoadTUIState(dir)
	if err != nil {
		t.Fatalf("LoadTUIState: %v", err)
	}
	if st.LastPageID != "" || st.Version != 1 {
		t.Fatalf("expected default state; got %#v", st)
	}
}
