package gateway

import (
	"context"
	"errors"
	"strings"

	"outliner-cli/internal/model"
	"outliner-cli/internal/store"
)

// Local talks to the SQLite store in-process.
type Local struct {
	DB *store.DB
}

func NewLocal(db *store.DB) *Local { return &Local{DB: db} }

func (g *Local) ListNotes(ctx context.Context, pageID string) ([]model.Note, error) {
	notes, err := g.DB.ListNotes(ctx, pageID)
	return notes, mapStoreErr("list notes", err)
}

func (g *Local) CreateNote(ctx context.Context, pageID, content string, parentID *string, orderIndex int) (model.Note, error) {
	n, err := g.DB.CreateNote(ctx, pageID, content, parentID, orderIndex)
	return n, mapStoreErr("create note", err)
}

func (g *Local) UpdateNote(ctx context.Context, id string, patch model.NotePatch) (model.Note, error) {
	n, err := g.DB.UpdateNote(ctx, id, patch)
	return n, mapStoreErr("update note", err)
}

func (g *Local) DeleteNote(ctx context.Context, id string) error {
	return mapStoreErr("delete note", g.DB.DeleteNote(ctx, id))
}

func (g *Local) BatchUpdateOrderIndexes(ctx context.Context, updates []model.OrderUpdate) error {
	return mapStoreErr("batch order", g.DB.BatchUpdateOrder(ctx, updates))
}

func (g *Local) ListPages(ctx context.Context) ([]model.Page, error) {
	pages, err := g.DB.ListPages(ctx)
	return pages, mapStoreErr("list pages", err)
}

func (g *Local) CreatePage(ctx context.Context, title string) (model.Page, error) {
	p, err := g.DB.CreatePage(ctx, title)
	return p, mapStoreErr("create page", err)
}

// FindPage accepts a page id or a title.
func (g *Local) FindPage(ctx context.Context, idOrTitle string) (model.Page, error) {
	idOrTitle = strings.TrimSpace(idOrTitle)
	p, err := g.DB.FindPage(ctx, idOrTitle)
	var nf *store.NotFoundError
	if errors.As(err, &nf) {
		p, err = g.DB.FindPageByTitle(ctx, idOrTitle)
	}
	return p, mapStoreErr("find page", err)
}

// mapStoreErr translates store failures into the gateway taxonomy. Anything the store does not
// classify (I/O, locked database) counts as transient.
func mapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var nf *store.NotFoundError
	if errors.As(err, &nf) {
		return &NotFoundError{Kind: nf.Kind, ID: nf.ID}
	}
	var inv *store.InvalidError
	if errors.As(err, &inv) {
		return &RejectedError{Reason: inv.Reason}
	}
	return &NetworkError{Op: op, Err: err}
}
