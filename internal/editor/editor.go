// Package editor applies outline edits to the note store optimistically and persists them through a
// gateway, rolling back when the gateway fails.
package editor

import (
	"context"
	"errors"
	"strings"
	"sync"

	"outliner-cli/internal/gateway"
	"outliner-cli/internal/model"
	"outliner-cli/internal/notestore"
	"outliner-cli/internal/order"
	"outliner-cli/internal/render"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Status int

const (
	StatusNoop Status = iota
	StatusApplied
	StatusRolledBack
	StatusReloading
	StatusSaveFailed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusNoop:
		return "noop"
	case StatusApplied:
		return "applied"
	case StatusRolledBack:
		return "rolled-back"
	case StatusReloading:
		return "reloading"
	case StatusSaveFailed:
		return "save-failed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the settled result of an Op.
type Outcome struct {
	Status Status
	// NoteID is the subject note, under its server id once a create has been acknowledged.
	NoteID  string
	FocusID string
	Err     error
	// Followup is set when the page must be reloaded; the caller runs and settles it like any Op.
	Followup *Op
}

type Alert struct {
	Op     string
	NoteID string
	Err    error
}

type Option func(*Editor)

func WithAlerts(fn func(Alert)) Option {
	return func(e *Editor) { e.alert = fn }
}

func WithLogger(log *logrus.Entry) Option {
	return func(e *Editor) {
		if log != nil {
			e.log = log
		}
	}
}

// WithIDSource replaces the provisional id generator. Ids must carry model.ProvisionalPrefix.
func WithIDSource(fn func() string) Option {
	return func(e *Editor) { e.newID = fn }
}

type Editor struct {
	store *notestore.Store
	gw    gateway.Gateway
	view  render.Renderer
	calc  order.Calculator
	log   *logrus.Entry
	alert func(Alert)
	newID func() string
	ids   *idTable

	mu    sync.Mutex
	saves map[string]saveEntry
}

func New(store *notestore.Store, gw gateway.Gateway, view render.Renderer, opts ...Option) *Editor {
	if view == nil {
		view = render.Nop{}
	}
	e := &Editor{
		store: store,
		gw:    gw,
		view:  view,
		log:   logrus.NewEntry(logrus.StandardLogger()),
		newID: func() string { return model.ProvisionalPrefix + uuid.NewString() },
		ids:   newIDTable(),
		saves: map[string]saveEntry{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithField("component", "editor")
	e.calc = order.Calculator{Log: e.log}
	return e
}

func (e *Editor) Store() *notestore.Store { return e.store }

func (e *Editor) newOp(kind, noteID string) *Op {
	return &Op{Kind: kind, NoteID: noteID, PageID: e.store.PageID(), gw: e.gw, ids: e.ids}
}

func (e *Editor) notify(op, noteID string, err error) {
	e.log.WithFields(logrus.Fields{"op": op, "note": noteID, "page": e.store.PageID()}).WithError(err).Warn("operation failed")
	if e.alert != nil {
		e.alert(Alert{Op: op, NoteID: noteID, Err: err})
	}
}

// Settle applies the result of a completed Op. Gateway errors are turned into rollbacks, reloads
// and alerts here; they are reported in the Outcome but never returned.
func (e *Editor) Settle(op *Op) Outcome {
	if op == nil {
		return Outcome{Status: StatusNoop}
	}
	if !op.ran {
		return Outcome{Status: StatusFailed, NoteID: op.NoteID, Err: errors.New("editor: op settled before it ran")}
	}
	if op.err == nil {
		return e.settleOK(op)
	}
	return e.settleErr(op)
}

func (e *Editor) settleOK(op *Op) Outcome {
	out := Outcome{Status: StatusApplied, NoteID: op.NoteID, FocusID: op.FocusID}
	switch op.Kind {
	case OpReload:
		restore := e.keepUnsaved(op.PageID)
		e.store.ReplaceAll(op.PageID, op.listed)
		restore()
		e.view.Rebuild(e.store.DocumentOrder())
		out.NoteID = ""
	case OpCreateRoot, OpCreateSibling, OpCreateChild:
		out.NoteID = e.reconcile(op.NoteID, op.result)
	case OpSave:
		out.NoteID = e.reconcile(op.NoteID, op.result)
		e.finishSave(out.NoteID, op.seq, nil)
	case OpIndent, OpOutdent:
		out.NoteID = e.reconcile(op.NoteID, op.result)
	}
	return out
}

// reconcile copies server ids and timestamps onto the local note and returns its current id.
func (e *Editor) reconcile(localID string, server model.Note) string {
	cur := e.store.Resolve(localID)
	if !e.store.Reconcile(cur, server) {
		return cur
	}
	if server.ID != "" && server.ID != cur {
		if r, ok := e.view.(render.Renamer); ok {
			r.RenameNoteElement(cur, server.ID)
		}
		e.renameSave(cur, server.ID)
		return server.ID
	}
	return cur
}

func (e *Editor) settleErr(op *Op) Outcome {
	out := Outcome{NoteID: e.store.Resolve(op.NoteID), Err: op.err}
	e.notify(op.Kind, out.NoteID, op.err)

	switch op.Kind {
	case OpReload:
		out.Status = StatusFailed
		return out
	case OpSave:
		e.finishSave(out.NoteID, op.seq, op.err)
		out.Status = StatusSaveFailed
		return out
	}

	if gateway.IsNotFound(op.err) || op.diverged {
		out.Status = StatusReloading
		out.Followup = e.BeginReload()
		return out
	}

	switch op.Kind {
	case OpCreateRoot, OpCreateSibling, OpCreateChild:
		e.store.Batch(func(tx *notestore.Tx) {
			if op.step == stepRenumber {
				revertOrder(tx, op.renumber, op.prevOrder)
			}
		})
		e.removeSubtree(op.NoteID)
		out.Status = StatusRolledBack
	case OpIndent, OpOutdent:
		ok := e.store.RevertStructure(op.before, op.after)
		e.view.Rebuild(e.store.DocumentOrder())
		if !ok {
			out.Status = StatusReloading
			out.Followup = e.BeginReload()
			return out
		}
		out.Status = StatusRolledBack
	case OpDelete:
		if !e.restoreDeleted(op.removed) {
			out.Status = StatusReloading
			out.Followup = e.BeginReload()
			return out
		}
		out.Status = StatusRolledBack
	default:
		out.Status = StatusFailed
	}
	return out
}

// revertOrder undoes a local renumbering, skipping notes that were moved again since.
func revertOrder(tx *notestore.Tx, applied, prev []model.OrderUpdate) {
	want := map[string]int{}
	for _, u := range applied {
		want[u.ID] = u.OrderIndex
	}
	var back []model.OrderUpdate
	for _, u := range prev {
		n, ok := tx.Find(u.ID)
		if ok && n.OrderIndex == want[u.ID] {
			back = append(back, u)
		}
	}
	tx.ApplyOrder(back)
}

func (e *Editor) removeSubtree(id string) {
	id = e.store.Resolve(id)
	if _, ok := e.store.Find(id); !ok {
		return
	}
	var doomed []string
	var walk func(id string)
	walk = func(id string) {
		for _, c := range e.store.ChildrenOf(id) {
			walk(c.ID)
		}
		doomed = append(doomed, id)
	}
	walk(id)
	e.store.Batch(func(tx *notestore.Tx) {
		for _, d := range doomed {
			tx.Remove(d)
		}
	})
	for _, d := range doomed {
		e.view.RemoveNoteElement(d)
		e.dropSave(d)
	}
}

// restoreDeleted puts a note back after a failed delete when its old slot is still free.
func (e *Editor) restoreDeleted(n model.Note) bool {
	if n.ID == "" {
		return false
	}
	if pid := n.Parent(); pid != "" {
		if _, ok := e.store.Find(pid); !ok {
			return false
		}
	}
	for _, s := range e.store.ChildrenOf(n.Parent()) {
		if s.OrderIndex == n.OrderIndex {
			return false
		}
	}
	if !e.store.Add(n) {
		return false
	}
	e.view.AddNoteElement(n, e.store.Depth(n.ID), e.beforeID(n.ID))
	return true
}

func (e *Editor) beforeID(id string) string {
	if next, ok := e.store.NextSibling(id); ok {
		return next.ID
	}
	return ""
}

// BeginLoad fetches pageID and replaces the store on Settle.
func (e *Editor) BeginLoad(pageID string) *Op {
	op := e.newOp(OpReload, "")
	op.PageID = strings.TrimSpace(pageID)
	op.list = true
	return op
}

func (e *Editor) BeginReload() *Op {
	return e.BeginLoad(e.store.PageID())
}

// Run executes op and settles it along with any reload it asks for.
func (e *Editor) Run(ctx context.Context, op *Op) Outcome {
	if op == nil {
		return Outcome{Status: StatusNoop}
	}
	op.Run(ctx)
	out := e.Settle(op)
	if f := out.Followup; f != nil {
		f.Run(ctx)
		fo := e.Settle(f)
		if fo.Err != nil && out.Err == nil {
			out.Err = fo.Err
		}
		out.Followup = nil
	}
	return out
}

func (e *Editor) run(ctx context.Context, op *Op, err error) (Outcome, error) {
	if err != nil {
		return Outcome{}, err
	}
	return e.Run(ctx, op), nil
}

func (e *Editor) Load(ctx context.Context, pageID string) Outcome {
	return e.Run(ctx, e.BeginLoad(pageID))
}

func (e *Editor) Reload(ctx context.Context) Outcome {
	return e.Run(ctx, e.BeginReload())
}
