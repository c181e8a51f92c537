package editor

import (
	"context"

	"outliner-cli/internal/model"
)

type SaveState int

const (
	SaveClean SaveState = iota
	SaveDirty
	SavePending
	SaveError
)

func (s SaveState) String() string {
	switch s {
	case SaveClean:
		return "saved"
	case SaveDirty:
		return "unsaved"
	case SavePending:
		return "saving"
	case SaveError:
		return "save failed"
	default:
		return "unknown"
	}
}

type saveEntry struct {
	state SaveState
	seq   int
}

// SaveState reports the persistence state of a note's content. SaveError sticks until a later save
// of the same note succeeds.
func (e *Editor) SaveState(id string) SaveState {
	id = e.store.Resolve(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saves[id].state
}

// EditContent replaces the note's text locally. Persisting is left to SaveContent.
func (e *Editor) EditContent(id, text string) bool {
	id = e.store.Resolve(id)
	n, ok := e.store.Find(id)
	if !ok {
		e.missing(OpSave, id)
		return false
	}
	if n.Content == text {
		return true
	}
	e.store.Update(id, model.ContentPatch(text))
	e.mu.Lock()
	if ent := e.saves[id]; ent.state != SaveError {
		ent.state = SaveDirty
		e.saves[id] = ent
	}
	e.mu.Unlock()
	return true
}

// BeginSave persists the note's current local content.
func (e *Editor) BeginSave(id string) (*Op, error) {
	id = e.store.Resolve(id)
	n, ok := e.store.Find(id)
	if !ok {
		e.missing(OpSave, id)
		return nil, nil
	}
	e.mu.Lock()
	ent := e.saves[id]
	ent.seq++
	if ent.state != SaveError {
		ent.state = SavePending
	}
	e.saves[id] = ent
	e.mu.Unlock()

	patch := model.ContentPatch(n.Content)
	op := e.newOp(OpSave, id)
	op.patch = &patch
	op.seq = ent.seq
	return op, nil
}

func (e *Editor) SaveContent(ctx context.Context, id string) (Outcome, error) {
	op, err := e.BeginSave(id)
	return e.run(ctx, op, err)
}

// finishSave records the result of save number seq. Results of superseded saves only count when
// they fail, so a stale success cannot hide a newer failure. Edits made while the save was in
// flight keep the note dirty.
func (e *Editor) finishSave(id string, seq int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.saves[id]
	if !ok {
		return
	}
	switch {
	case err != nil:
		ent.state = SaveError
	case seq == ent.seq && ent.state != SaveDirty:
		ent.state = SaveClean
	}
	e.saves[id] = ent
}

func (e *Editor) renameSave(oldID, newID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ent, ok := e.saves[oldID]; ok {
		delete(e.saves, oldID)
		e.saves[newID] = ent
	}
}

func (e *Editor) dropSave(id string) {
	e.mu.Lock()
	delete(e.saves, id)
	e.mu.Unlock()
}

// keepUnsaved remembers the text of notes whose content has not been saved yet. The returned
// func, called after a reload of the same page, puts that text back over the server's copy and
// keeps those notes' save states; every other save state is dropped.
func (e *Editor) keepUnsaved(pageID string) func() {
	texts := map[string]string{}
	kept := map[string]saveEntry{}
	if pageID == e.store.PageID() {
		e.mu.Lock()
		for id, ent := range e.saves {
			if ent.state != SaveClean {
				kept[id] = ent
			}
		}
		e.mu.Unlock()
		for id := range kept {
			if n, ok := e.store.Find(id); ok {
				texts[id] = n.Content
			}
		}
	}
	return func() {
		saves := map[string]saveEntry{}
		for id, text := range texts {
			n, ok := e.store.Find(id)
			if !ok {
				continue
			}
			if n.Content != text {
				e.store.Update(id, model.ContentPatch(text))
			}
			saves[id] = kept[id]
		}
		e.mu.Lock()
		e.saves = saves
		e.mu.Unlock()
	}
}

// ToggleCollapsed flips the display-only collapsed flag. Nothing is sent to the gateway.
func (e *Editor) ToggleCollapsed(id string) bool {
	n, ok := e.store.Find(id)
	if !ok {
		e.missing("collapse", id)
		return false
	}
	if !e.store.HasChildren(n.ID) && !n.Collapsed {
		return false
	}
	c := !n.Collapsed
	e.store.Update(n.ID, model.NotePatch{Collapsed: &c})
	e.view.Rebuild(e.store.DocumentOrder())
	return true
}
