package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"outliner-cli/internal/model"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const noteColumns = `id, page_id, parent_id, order_index, content, collapsed, created_at_unixms, updated_at_unixms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(r rowScanner) (model.Note, error) {
	var n model.Note
	var parent string
	var collapsed int
	var created, updated int64
	if err := r.Scan(&n.ID, &n.PageID, &parent, &n.OrderIndex, &n.Content, &collapsed, &created, &updated); err != nil {
		return model.Note{}, err
	}
	n.ParentID = model.ParentRef(parent)
	n.Collapsed = collapsed != 0
	n.CreatedAt = fromUnixMs(created)
	n.UpdatedAt = fromUnixMs(updated)
	return n, nil
}

func findNote(ctx context.Context, q querier, id string) (model.Note, error) {
	id = strings.TrimSpace(id)
	n, err := scanNote(q.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Note{}, &NotFoundError{Kind: "note", ID: id}
	}
	return n, err
}

func (db *DB) FindNote(ctx context.Context, id string) (model.Note, error) {
	return findNote(ctx, db.sql, id)
}

// ListNotes returns every note of the page ordered by parent then order index.
func (db *DB) ListNotes(ctx context.Context, pageID string) ([]model.Note, error) {
	if _, err := db.FindPage(ctx, pageID); err != nil {
		return nil, err
	}
	rows, err := db.sql.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE page_id = ? ORDER BY parent_id, order_index, created_at_unixms, id`,
		strings.TrimSpace(pageID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (db *DB) CreateNote(ctx context.Context, pageID, content string, parentID *string, orderIndex int) (model.Note, error) {
	pageID = strings.TrimSpace(pageID)
	if orderIndex < 0 {
		return model.Note{}, &InvalidError{Reason: "negative order index"}
	}
	if _, err := db.FindPage(ctx, pageID); err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return model.Note{}, &InvalidError{Reason: "unknown page " + pageID}
		}
		return model.Note{}, err
	}
	parent := ""
	if parentID != nil {
		parent = strings.TrimSpace(*parentID)
	}
	if parent != "" {
		p, err := db.FindNote(ctx, parent)
		if err != nil {
			var nf *NotFoundError
			if errors.As(err, &nf) {
				return model.Note{}, &InvalidError{Reason: "unknown parent " + parent}
			}
			return model.Note{}, err
		}
		if p.PageID != pageID {
			return model.Note{}, &InvalidError{Reason: "parent belongs to another page"}
		}
	}

	id, err := newNoteID()
	if err != nil {
		return model.Note{}, err
	}
	now := db.now()
	n := model.Note{
		ID:         id,
		PageID:     pageID,
		ParentID:   model.ParentRef(parent),
		OrderIndex: orderIndex,
		Content:    content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := db.sql.ExecContext(ctx, `INSERT INTO notes(`+noteColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.PageID, parent, n.OrderIndex, n.Content, 0, now.UnixMilli(), now.UnixMilli()); err != nil {
		return model.Note{}, err
	}
	return n, nil
}

func (db *DB) UpdateNote(ctx context.Context, id string, patch model.NotePatch) (model.Note, error) {
	tx, err := db.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return model.Note{}, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := findNote(ctx, tx, id)
	if err != nil {
		return model.Note{}, err
	}
	if patch.OrderIndex != nil && *patch.OrderIndex < 0 {
		return model.Note{}, &InvalidError{Reason: "negative order index"}
	}
	next := patch.Apply(cur)
	if patch.SetParent && !model.SameParent(cur.ParentID, next.ParentID) {
		if err := checkParent(ctx, tx, cur, next.Parent()); err != nil {
			return model.Note{}, err
		}
	}
	next.UpdatedAt = db.now()

	if _, err := tx.ExecContext(ctx,
		`UPDATE notes SET parent_id = ?, order_index = ?, content = ?, collapsed = ?, updated_at_unixms = ? WHERE id = ?`,
		next.Parent(), next.OrderIndex, next.Content, boolToInt(next.Collapsed), next.UpdatedAt.UnixMilli(), cur.ID); err != nil {
		return model.Note{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Note{}, err
	}
	return next, nil
}

// checkParent rejects unknown parents, parents on another page, and moves under the note's own
// subtree.
func checkParent(ctx context.Context, q querier, n model.Note, parent string) error {
	if parent == "" {
		return nil
	}
	if parent == n.ID {
		return &InvalidError{Reason: "note cannot be its own parent"}
	}
	cur := parent
	for hops := 0; cur != ""; hops++ {
		p, err := findNote(ctx, q, cur)
		if err != nil {
			var nf *NotFoundError
			if errors.As(err, &nf) {
				return &InvalidError{Reason: "unknown parent " + cur}
			}
			return err
		}
		if p.PageID != n.PageID {
			return &InvalidError{Reason: "parent belongs to another page"}
		}
		if p.ID == n.ID || hops > 10000 {
			return &InvalidError{Reason: "move would create a cycle"}
		}
		cur = p.Parent()
	}
	return nil
}

// DeleteNote removes a note. Its children, if any, take its place under its parent; later siblings
// shift to make room.
func (db *DB) DeleteNote(ctx context.Context, id string) error {
	tx, err := db.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	n, err := findNote(ctx, tx, id)
	if err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE parent_id = ? ORDER BY order_index, created_at_unixms, id`, n.ID)
	if err != nil {
		return err
	}
	var children []model.Note
	for rows.Next() {
		c, err := scanNote(rows)
		if err != nil {
			_ = rows.Close()
			return err
		}
		children = append(children, c)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	nowMs := db.now().UnixMilli()
	if k := len(children); k > 1 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE notes SET order_index = order_index + ?, updated_at_unixms = ? WHERE page_id = ? AND parent_id = ? AND order_index > ?`,
			k-1, nowMs, n.PageID, n.Parent(), n.OrderIndex); err != nil {
			return err
		}
	}
	for i, c := range children {
		if _, err := tx.ExecContext(ctx,
			`UPDATE notes SET parent_id = ?, order_index = ?, updated_at_unixms = ? WHERE id = ?`,
			n.Parent(), n.OrderIndex+i, nowMs, c.ID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, n.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// BatchUpdateOrder applies all updates or none.
func (db *DB) BatchUpdateOrder(ctx context.Context, ups []model.OrderUpdate) error {
	if len(ups) == 0 {
		return nil
	}
	tx, err := db.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	nowMs := db.now().UnixMilli()
	for _, u := range ups {
		if u.OrderIndex < 0 {
			return &InvalidError{Reason: "negative order index for " + u.ID}
		}
		res, err := tx.ExecContext(ctx, `UPDATE notes SET order_index = ?, updated_at_unixms = ? WHERE id = ?`,
			u.OrderIndex, nowMs, strings.TrimSpace(u.ID))
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return &NotFoundError{Kind: "note", ID: u.ID}
		}
	}
	return tx.Commit()
}
