package tui

import (
	"outliner-cli/internal/model"
	"outliner-cli/internal/render"
)

type element struct {
	id     string
	parent string
	level  int
}

// outlineView is the screen-side tree: note elements in display order with their nesting level.
// The editor drives it through render.Renderer in the same step as each store change; the frame
// is drawn from it, with note text looked up in the store.
type outlineView struct {
	elems   []element
	editing string
}

func newOutlineView() *outlineView { return &outlineView{} }

func (v *outlineView) index(id string) int {
	for i, e := range v.elems {
		if e.id == id {
			return i
		}
	}
	return -1
}

// subtreeEnd returns the index just past the element at i and everything nested under it.
func (v *outlineView) subtreeEnd(i int) int {
	j := i + 1
	for j < len(v.elems) && v.elems[j].level > v.elems[i].level {
		j++
	}
	return j
}

// insertAt finds where an element for a child of parent goes: in front of beforeID, or at the end
// of parent's container.
func (v *outlineView) insertAt(parent, beforeID string) int {
	if beforeID != "" {
		if i := v.index(beforeID); i >= 0 {
			return i
		}
	}
	if parent == "" {
		return len(v.elems)
	}
	if i := v.index(parent); i >= 0 {
		return v.subtreeEnd(i)
	}
	return len(v.elems)
}

func (v *outlineView) AddNoteElement(n model.Note, level int, beforeID string) {
	if v.index(n.ID) >= 0 {
		return
	}
	at := v.insertAt(n.Parent(), beforeID)
	v.elems = append(v.elems, element{})
	copy(v.elems[at+1:], v.elems[at:])
	v.elems[at] = element{id: n.ID, parent: n.Parent(), level: level}
}

// MoveNoteElement carries the note's nested elements along, shifted to the new level.
func (v *outlineView) MoveNoteElement(n model.Note, level int, beforeID string) {
	i := v.index(n.ID)
	if i < 0 {
		v.AddNoteElement(n, level, beforeID)
		return
	}
	end := v.subtreeEnd(i)
	moved := append([]element(nil), v.elems[i:end]...)
	delta := level - moved[0].level
	for k := range moved {
		moved[k].level += delta
	}
	moved[0].parent = n.Parent()
	v.elems = append(v.elems[:i], v.elems[end:]...)

	at := v.insertAt(n.Parent(), beforeID)
	rest := append(moved, v.elems[at:]...)
	v.elems = append(v.elems[:at], rest...)
}

func (v *outlineView) RemoveNoteElement(id string) {
	i := v.index(id)
	if i < 0 {
		return
	}
	v.elems = append(v.elems[:i], v.elems[i+1:]...)
	if v.editing == id {
		v.editing = ""
	}
}

func (v *outlineView) SwitchToEditMode(id string) { v.editing = id }

func (v *outlineView) SwitchToRenderedMode(id string) {
	if v.editing == id {
		v.editing = ""
	}
}

func (v *outlineView) NestingLevel(id string) int {
	if i := v.index(id); i >= 0 {
		return v.elems[i].level
	}
	return -1
}

// Rebuild expects notes in document order, parents before children.
func (v *outlineView) Rebuild(notes []model.Note) {
	level := make(map[string]int, len(notes))
	v.elems = v.elems[:0]
	for _, n := range notes {
		l := 0
		if p, ok := level[n.Parent()]; ok {
			l = p + 1
		}
		level[n.ID] = l
		v.elems = append(v.elems, element{id: n.ID, parent: n.Parent(), level: l})
	}
}

func (v *outlineView) RenameNoteElement(oldID, newID string) {
	for i := range v.elems {
		if v.elems[i].id == oldID {
			v.elems[i].id = newID
		}
		if v.elems[i].parent == oldID {
			v.elems[i].parent = newID
		}
	}
	if v.editing == oldID {
		v.editing = newID
	}
}

// visible returns the elements not hidden under a collapsed ancestor.
func (v *outlineView) visible(collapsed func(id string) bool) []element {
	out := make([]element, 0, len(v.elems))
	hideBelow := -1
	for _, e := range v.elems {
		if hideBelow >= 0 {
			if e.level > hideBelow {
				continue
			}
			hideBelow = -1
		}
		out = append(out, e)
		if collapsed(e.id) {
			hideBelow = e.level
		}
	}
	return out
}

var (
	_ render.Renderer = (*outlineView)(nil)
	_ render.Renamer  = (*outlineView)(nil)
)
