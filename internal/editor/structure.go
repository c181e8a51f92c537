package editor

import (
	"context"
	"fmt"
	"strings"

	"outliner-cli/internal/model"
	"outliner-cli/internal/notestore"
	"outliner-cli/internal/order"

	"github.com/sirupsen/logrus"
)

// DeleteRejectedError is returned when a note may not be removed by DeleteIfEmpty.
type DeleteRejectedError struct {
	ID     string
	Reason string
}

func (e *DeleteRejectedError) Error() string {
	return fmt.Sprintf("cannot delete %s: %s", e.ID, e.Reason)
}

// PageMismatchError is returned when an operation names a page other than the loaded one.
type PageMismatchError struct {
	Loaded    string
	Requested string
}

func (e *PageMismatchError) Error() string {
	return fmt.Sprintf("page %s is not loaded (loaded: %s)", e.Requested, e.Loaded)
}

func (e *Editor) missing(op, id string) {
	e.log.WithFields(logrus.Fields{"op": op, "note": id}).Warn("note not in store; ignoring")
}

func (e *Editor) provisional(pageID string, parentID *string, orderIndex int) model.Note {
	return model.Note{
		ID:         e.newID(),
		PageID:     pageID,
		ParentID:   parentID,
		OrderIndex: orderIndex,
	}
}

// BeginCreateRoot appends an empty root note to the page.
func (e *Editor) BeginCreateRoot(pageID string) (*Op, error) {
	pageID = strings.TrimSpace(pageID)
	if loaded := e.store.PageID(); loaded != "" && loaded != pageID {
		return nil, &PageMismatchError{Loaded: loaded, Requested: pageID}
	}
	roots := e.store.ChildrenOf("")
	// Tail is the root count while roots are dense and max+1 otherwise, so it never collides.
	n := e.provisional(pageID, nil, order.Tail(roots))
	if !e.store.Add(n) {
		return nil, fmt.Errorf("editor: could not add root note to page %s", pageID)
	}
	e.view.AddNoteElement(n, 0, "")

	op := e.newOp(OpCreateRoot, n.ID)
	op.PageID = pageID
	op.create = &createReq{orderIndex: n.OrderIndex}
	return op, nil
}

// BeginCreateSibling inserts an empty note right after afterID at the same level. afterID's
// children stay where they are.
func (e *Editor) BeginCreateSibling(afterID string) (*Op, error) {
	after, ok := e.store.Find(afterID)
	if !ok {
		e.missing(OpCreateSibling, afterID)
		return nil, nil
	}
	sibs := e.store.ChildrenOf(after.Parent())
	nextID := ""
	if next, ok := e.store.NextSibling(after.ID); ok {
		nextID = next.ID
	}
	pl, err := e.calc.Place(sibs, after.ID, nextID)
	if err != nil {
		return nil, err
	}
	return e.insert(OpCreateSibling, after.PageID, after.Parent(), sibs, pl, e.store.Depth(after.ID))
}

// BeginCreateChild inserts an empty note as the first child of parentID.
func (e *Editor) BeginCreateChild(parentID string) (*Op, error) {
	parent, ok := e.store.Find(parentID)
	if !ok {
		e.missing(OpCreateChild, parentID)
		return nil, nil
	}
	children := e.store.ChildrenOf(parent.ID)
	nextID := ""
	if len(children) > 0 {
		nextID = children[0].ID
	}
	pl, err := e.calc.Place(children, "", nextID)
	if err != nil {
		return nil, err
	}
	if parent.Collapsed {
		expanded := false
		e.store.Update(parent.ID, model.NotePatch{Collapsed: &expanded})
		e.view.Rebuild(e.store.DocumentOrder())
	}
	return e.insert(OpCreateChild, parent.PageID, parent.ID, children, pl, e.store.Depth(parent.ID)+1)
}

func (e *Editor) insert(kind, pageID, parentID string, sibs []model.Note, pl order.Placement, level int) (*Op, error) {
	n := e.provisional(pageID, model.ParentRef(parentID), pl.OrderIndex)
	added := false
	e.store.Batch(func(tx *notestore.Tx) {
		if added = tx.Add(n); added {
			tx.ApplyOrder(pl.Updates)
		}
	})
	if !added {
		return nil, fmt.Errorf("editor: could not insert note under %q", parentID)
	}
	e.view.AddNoteElement(n, level, e.beforeID(n.ID))

	op := e.newOp(kind, n.ID)
	op.PageID = pageID
	op.create = &createReq{parentID: parentID, orderIndex: n.OrderIndex}
	op.renumber = pl.Updates
	op.prevOrder = previousOrder(sibs, pl.Updates)
	return op, nil
}

func previousOrder(sibs []model.Note, ups []model.OrderUpdate) []model.OrderUpdate {
	if len(ups) == 0 {
		return nil
	}
	byID := map[string]int{}
	for _, s := range sibs {
		byID[s.ID] = s.OrderIndex
	}
	out := make([]model.OrderUpdate, 0, len(ups))
	for _, u := range ups {
		out = append(out, model.OrderUpdate{ID: u.ID, OrderIndex: byID[u.ID]})
	}
	return out
}

func orderIDs(ups []model.OrderUpdate) []string {
	out := make([]string, 0, len(ups)+2)
	for _, u := range ups {
		out = append(out, u.ID)
	}
	return out
}

// BeginIndent makes id the last child of its preceding sibling. Without a preceding sibling it
// returns a nil Op and leaves the store alone.
func (e *Editor) BeginIndent(id string) (*Op, error) {
	n, ok := e.store.Find(id)
	if !ok {
		e.missing(OpIndent, id)
		return nil, nil
	}
	prev, ok := e.store.PrevSibling(n.ID)
	if !ok {
		return nil, nil
	}
	children := e.store.ChildrenOf(prev.ID)
	last := ""
	if len(children) > 0 {
		last = children[len(children)-1].ID
	}
	pl, err := e.calc.Place(children, last, "")
	if err != nil {
		return nil, err
	}

	touched := append(orderIDs(pl.Updates), n.ID, prev.ID)
	before := e.store.Pick(touched...)
	patch := model.MovePatch(prev.ID, pl.OrderIndex)
	e.store.Batch(func(tx *notestore.Tx) {
		tx.ApplyOrder(pl.Updates)
		tx.Update(n.ID, patch)
		if prev.Collapsed {
			expanded := false
			tx.Update(prev.ID, model.NotePatch{Collapsed: &expanded})
		}
	})
	if prev.Collapsed {
		e.view.Rebuild(e.store.DocumentOrder())
	} else {
		moved, _ := e.store.Find(n.ID)
		e.view.MoveNoteElement(moved, e.store.Depth(n.ID), "")
	}

	op := e.newOp(OpIndent, n.ID)
	op.patch = &patch
	op.renumber = pl.Updates
	op.undo = previousOrder(children, pl.Updates)
	op.before, op.after = before, e.store.Pick(touched...)
	return op, nil
}

// BeginOutdent moves id out to its grandparent, right after its old parent. Every later sibling of
// the old parent shifts down by one. At the root it returns a nil Op.
func (e *Editor) BeginOutdent(id string) (*Op, error) {
	n, ok := e.store.Find(id)
	if !ok {
		e.missing(OpOutdent, id)
		return nil, nil
	}
	if n.IsRoot() {
		return nil, nil
	}
	parent, ok := e.store.Find(n.Parent())
	if !ok {
		e.missing(OpOutdent, n.Parent())
		return nil, nil
	}
	grand := parent.Parent()
	gsibs := e.store.ChildrenOf(grand)
	newIdx := parent.OrderIndex + 1
	shift := order.ShiftFrom(gsibs, newIdx)

	touched := append(orderIDs(shift), n.ID)
	before := e.store.Pick(touched...)
	patch := model.MovePatch(grand, newIdx)
	e.store.Batch(func(tx *notestore.Tx) {
		tx.ApplyOrder(shift)
		tx.Update(n.ID, patch)
	})
	moved, _ := e.store.Find(n.ID)
	e.view.MoveNoteElement(moved, e.store.Depth(n.ID), e.beforeID(n.ID))

	op := e.newOp(OpOutdent, n.ID)
	op.patch = &patch
	op.renumber = shift
	op.undo = previousOrder(gsibs, shift)
	op.before, op.after = before, e.store.Pick(touched...)
	return op, nil
}

// BeginDeleteIfEmpty removes an empty, childless note that is not the last one on the page.
// Op.FocusID names the note that should take focus: the previous sibling, else the next sibling,
// else the parent.
func (e *Editor) BeginDeleteIfEmpty(id string) (*Op, error) {
	n, ok := e.store.Find(id)
	if !ok {
		e.missing(OpDelete, id)
		return nil, nil
	}
	switch {
	case strings.TrimSpace(n.Content) != "":
		return nil, &DeleteRejectedError{ID: n.ID, Reason: "note is not empty"}
	case e.store.HasChildren(n.ID):
		return nil, &DeleteRejectedError{ID: n.ID, Reason: "note has children"}
	case e.store.Len() <= 1:
		return nil, &DeleteRejectedError{ID: n.ID, Reason: "last note on the page"}
	}

	focus := n.Parent()
	if prev, ok := e.store.PrevSibling(n.ID); ok {
		focus = prev.ID
	} else if next, ok := e.store.NextSibling(n.ID); ok {
		focus = next.ID
	}

	e.store.Remove(n.ID)
	e.view.RemoveNoteElement(n.ID)
	e.dropSave(n.ID)

	op := e.newOp(OpDelete, n.ID)
	op.FocusID = focus
	op.del = true
	op.removed = n
	return op, nil
}

func (e *Editor) CreateRoot(ctx context.Context, pageID string) (Outcome, error) {
	op, err := e.BeginCreateRoot(pageID)
	return e.run(ctx, op, err)
}

func (e *Editor) CreateSibling(ctx context.Context, afterID string) (Outcome, error) {
	op, err := e.BeginCreateSibling(afterID)
	return e.run(ctx, op, err)
}

func (e *Editor) CreateChild(ctx context.Context, parentID string) (Outcome, error) {
	op, err := e.BeginCreateChild(parentID)
	return e.run(ctx, op, err)
}

func (e *Editor) Indent(ctx context.Context, id string) (Outcome, error) {
	op, err := e.BeginIndent(id)
	return e.run(ctx, op, err)
}

func (e *Editor) Outdent(ctx context.Context, id string) (Outcome, error) {
	op, err := e.BeginOutdent(id)
	return e.run(ctx, op, err)
}

func (e *Editor) DeleteIfEmpty(ctx context.Context, id string) (Outcome, error) {
	op, err := e.BeginDeleteIfEmpty(id)
	return e.run(ctx, op, err)
}
