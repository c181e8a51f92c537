package editor

import (
	"context"
	"strings"
	"sync"

	"outliner-cli/internal/gateway"
	"outliner-cli/internal/model"
)

// Operation kinds, also used as Alert.Op.
const (
	OpCreateRoot    = "create-root"
	OpCreateSibling = "create-sibling"
	OpCreateChild   = "create-child"
	OpIndent        = "indent"
	OpOutdent       = "outdent"
	OpDelete        = "delete"
	OpSave          = "save"
	OpReload        = "reload"
)

const (
	stepRenumber = "renumber"
	stepMain     = "main"
)

// Op is one editor operation between its local effect and its settlement. Begin* applies the local
// effect and returns the Op; Run performs the gateway calls; Editor.Settle reconciles or rolls back.
//
// Run touches only the gateway and the id table, so it may be called from a worker goroutine. The
// Op must be handed back to the editor's goroutine before Settle.
type Op struct {
	Kind    string
	NoteID  string
	PageID  string
	FocusID string

	renumber  []model.OrderUpdate
	prevOrder []model.OrderUpdate
	undo      []model.OrderUpdate

	create *createReq
	patch  *model.NotePatch
	del    bool
	list   bool

	// before and after hold the placement of every note a move touched, for rollback.
	before  []model.Note
	after   []model.Note
	removed model.Note
	seq     int

	gw  gateway.Gateway
	ids *idTable

	ran      bool
	err      error
	step     string
	diverged bool
	result   model.Note
	listed   []model.Note
}

type createReq struct {
	content    string
	parentID   string
	orderIndex int
}

// Err is the gateway error, if any, after Run.
func (op *Op) Err() error { return op.err }

func (op *Op) Run(ctx context.Context) {
	if op == nil || op.ran {
		return
	}
	op.err = op.run(ctx)
	op.ran = true
}

func (op *Op) run(ctx context.Context) error {
	if len(op.renumber) > 0 {
		ups, err := op.ids.resolveUpdates(op.renumber)
		if err == nil {
			err = op.gw.BatchUpdateOrderIndexes(ctx, ups)
		}
		if err != nil {
			op.step = stepRenumber
			return err
		}
	}

	err := op.main(ctx)
	if err != nil {
		op.step = stepMain
		if len(op.undo) > 0 {
			ups, rerr := op.ids.resolveUpdates(op.undo)
			if rerr == nil {
				rerr = op.gw.BatchUpdateOrderIndexes(ctx, ups)
			}
			op.diverged = rerr != nil
		}
	}
	return err
}

func (op *Op) main(ctx context.Context) error {
	switch {
	case op.list:
		notes, err := op.gw.ListNotes(ctx, op.PageID)
		if err != nil {
			return err
		}
		op.listed = notes
		return nil

	case op.create != nil:
		parent, err := op.ids.resolveParent(op.create.parentID)
		if err != nil {
			return err
		}
		n, err := op.gw.CreateNote(ctx, op.PageID, op.create.content, model.ParentRef(parent), op.create.orderIndex)
		if err != nil {
			return err
		}
		op.ids.record(op.NoteID, n.ID)
		op.result = n
		return nil

	case op.patch != nil:
		id, err := op.ids.resolve(op.NoteID)
		if err != nil {
			return err
		}
		patch := *op.patch
		if patch.SetParent && patch.ParentID != nil {
			pid, err := op.ids.resolveParent(*patch.ParentID)
			if err != nil {
				return err
			}
			patch.ParentID = model.ParentRef(pid)
		}
		n, err := op.gw.UpdateNote(ctx, id, patch)
		if err != nil {
			return err
		}
		op.result = n
		return nil

	case op.del:
		id, err := op.ids.resolve(op.NoteID)
		if err != nil {
			return err
		}
		return op.gw.DeleteNote(ctx, id)
	}
	return nil
}

// idTable maps provisional ids to server ids as creates complete, so requests queued behind a create
// can address the note it produced.
type idTable struct {
	mu sync.Mutex
	m  map[string]string
}

func newIDTable() *idTable { return &idTable{m: map[string]string{}} }

func (t *idTable) record(local, server string) {
	if local == server {
		return
	}
	t.mu.Lock()
	t.m[local] = server
	t.mu.Unlock()
}

// resolve returns the server id for id. A provisional id that never got one means its create
// failed; the server cannot know the note.
func (t *idTable) resolve(id string) (string, error) {
	id = strings.TrimSpace(id)
	t.mu.Lock()
	server, ok := t.m[id]
	t.mu.Unlock()
	if ok {
		return server, nil
	}
	if model.IsProvisionalID(id) {
		return "", &gateway.NotFoundError{Kind: "note", ID: id}
	}
	return id, nil
}

func (t *idTable) resolveParent(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", nil
	}
	return t.resolve(id)
}

func (t *idTable) resolveUpdates(ups []model.OrderUpdate) ([]model.OrderUpdate, error) {
	out := make([]model.OrderUpdate, 0, len(ups))
	for _, u := range ups {
		id, err := t.resolve(u.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, model.OrderUpdate{ID: id, OrderIndex: u.OrderIndex})
	}
	return out, nil
}
