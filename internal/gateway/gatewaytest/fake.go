// Package gatewaytest provides an in-memory gateway with scriptable failures.
package gatewaytest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"outliner-cli/internal/gateway"
	"outliner-cli/internal/model"
)

// Method names accepted by Fail and recorded in Calls.
const (
	MethodList   = "list"
	MethodCreate = "create"
	MethodUpdate = "update"
	MethodDelete = "delete"
	MethodBatch  = "batch"
)

type Fake struct {
	mu     sync.Mutex
	notes  map[string]model.Note
	nextID int
	fail   map[string][]error
	calls  []string
	now    time.Time
}

func New() *Fake {
	return &Fake{
		notes: map[string]model.Note{},
		fail:  map[string][]error{},
		now:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// Seed stores notes as if the server already had them.
func (f *Fake) Seed(notes ...model.Note) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range notes {
		f.notes[n.ID] = n.Clone()
	}
}

// Fail queues err for the next call of method. Queued errors are consumed in order.
func (f *Fake) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = append(f.fail[method], err)
}

func Network(op string) error {
	return &gateway.NetworkError{Op: op, Err: fmt.Errorf("connection reset")}
}

func NotFound(id string) error {
	return &gateway.NotFoundError{Kind: "note", ID: id}
}

func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *Fake) Note(id string) (model.Note, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[id]
	return n.Clone(), ok
}

// Notes returns the server's notes sorted by parent then order index.
func (f *Fake) Notes() []model.Note {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedLocked()
}

func (f *Fake) sortedLocked() []model.Note {
	out := make([]model.Note, 0, len(f.notes))
	for _, n := range f.notes {
		out = append(out, n.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Parent() != out[j].Parent() {
			return out[i].Parent() < out[j].Parent()
		}
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (f *Fake) begin(method, detail string) error {
	f.calls = append(f.calls, method+" "+detail)
	if q := f.fail[method]; len(q) > 0 {
		err := q[0]
		f.fail[method] = q[1:]
		return err
	}
	return nil
}

func (f *Fake) ListNotes(ctx context.Context, pageID string) ([]model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(MethodList, pageID); err != nil {
		return nil, err
	}
	out := []model.Note{}
	for _, n := range f.sortedLocked() {
		if n.PageID == pageID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *Fake) CreateNote(ctx context.Context, pageID, content string, parentID *string, orderIndex int) (model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(MethodCreate, content); err != nil {
		return model.Note{}, err
	}
	if pid := model.ParentRef(deref(parentID)); pid != nil {
		if _, ok := f.notes[*pid]; !ok {
			return model.Note{}, &gateway.RejectedError{Reason: "unknown parent " + *pid}
		}
	}
	f.nextID++
	f.now = f.now.Add(time.Second)
	n := model.Note{
		ID:         fmt.Sprintf("n%d", f.nextID),
		PageID:     pageID,
		ParentID:   model.ParentRef(deref(parentID)),
		OrderIndex: orderIndex,
		Content:    content,
		CreatedAt:  f.now,
		UpdatedAt:  f.now,
	}
	f.notes[n.ID] = n
	return n.Clone(), nil
}

func (f *Fake) UpdateNote(ctx context.Context, id string, patch model.NotePatch) (model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(MethodUpdate, id); err != nil {
		return model.Note{}, err
	}
	n, ok := f.notes[id]
	if !ok {
		return model.Note{}, NotFound(id)
	}
	next := patch.Apply(n)
	if pid := next.Parent(); pid != "" {
		if _, ok := f.notes[pid]; !ok {
			return model.Note{}, &gateway.RejectedError{Reason: "unknown parent " + pid}
		}
	}
	f.now = f.now.Add(time.Second)
	next.UpdatedAt = f.now
	f.notes[id] = next
	return next.Clone(), nil
}

func (f *Fake) DeleteNote(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(MethodDelete, id); err != nil {
		return err
	}
	if _, ok := f.notes[id]; !ok {
		return NotFound(id)
	}
	delete(f.notes, id)
	return nil
}

func (f *Fake) BatchUpdateOrderIndexes(ctx context.Context, updates []model.OrderUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(MethodBatch, fmt.Sprint(len(updates))); err != nil {
		return err
	}
	for _, u := range updates {
		if _, ok := f.notes[u.ID]; !ok {
			return NotFound(u.ID)
		}
	}
	for _, u := range updates {
		n := f.notes[u.ID]
		n.OrderIndex = u.OrderIndex
		f.notes[u.ID] = n
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ gateway.Gateway = (*Fake)(nil)
