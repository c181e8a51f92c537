package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const tuiStateFileName = "tui_state.json"

// TUIState is small, best-effort UI state for restoring the last screen on relaunch. It lives next
// to the database so it is scoped per data dir. Callers tolerate missing or invalid data.
type TUIState struct {
	Version int `json:"version"`

	LastPageID string `json:"lastPageId,omitempty"`
	// Focus maps page id to the note that had focus when the page was last left.
	Focus map[string]string `json:"focus,omitempty"`

	ShowHelp bool `json:"showHelp,omitempty"`
}

func tuiStatePath(dir string) string {
	return filepath.Join(dir, tuiStateFileName)
}

func LoadTUIState(dir string) (*TUIState, error) {
	empty := &TUIState{Version: 1, Focus: map[string]string{}}
	if strings.TrimSpace(dir) == "" {
		return empty, nil
	}
	b, err := os.ReadFile(tuiStatePath(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return empty, nil
		}
		return nil, err
	}
	var st TUIState
	if err := json.Unmarshal(b, &st); err != nil {
		// Corrupted state is treated as missing.
		return empty, nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	if st.Focus == nil {
		st.Focus = map[string]string{}
	}
	return &st, nil
}

// SaveTUIState writes st atomically (temp file + rename).
func SaveTUIState(dir string, st *TUIState) error {
	if st == nil || strings.TrimSpace(dir) == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if st.Version == 0 {
		st.Version = 1
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	path := tuiStatePath(dir)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
