package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"outliner-cli/internal/model"
)

func (db *DB) CreatePage(ctx context.Context, title string) (model.Page, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Page{}, &InvalidError{Reason: "missing page title"}
	}
	id, err := newRandomID("page")
	if err != nil {
		return model.Page{}, err
	}
	p := model.Page{ID: id, Title: title, CreatedAt: db.now()}
	if _, err := db.sql.ExecContext(ctx, `INSERT INTO pages(id, title, created_at_unixms) VALUES(?, ?, ?)`,
		p.ID, p.Title, p.CreatedAt.UnixMilli()); err != nil {
		return model.Page{}, err
	}
	return p, nil
}

func (db *DB) FindPage(ctx context.Context, id string) (model.Page, error) {
	id = strings.TrimSpace(id)
	var p model.Page
	var created int64
	err := db.sql.QueryRowContext(ctx, `SELECT id, title, created_at_unixms FROM pages WHERE id = ?`, id).
		Scan(&p.ID, &p.Title, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Page{}, &NotFoundError{Kind: "page", ID: id}
	}
	if err != nil {
		return model.Page{}, err
	}
	p.CreatedAt = fromUnixMs(created)
	return p, nil
}

// FindPageByTitle matches case-insensitively; the oldest page wins on duplicates.
func (db *DB) FindPageByTitle(ctx context.Context, title string) (model.Page, error) {
	title = strings.TrimSpace(title)
	var p model.Page
	var created int64
	err := db.sql.QueryRowContext(ctx,
		`SELECT id, title, created_at_unixms FROM pages WHERE lower(title) = lower(?) ORDER BY created_at_unixms, id LIMIT 1`, title).
		Scan(&p.ID, &p.Title, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Page{}, &NotFoundError{Kind: "page", ID: title}
	}
	if err != nil {
		return model.Page{}, err
	}
	p.CreatedAt = fromUnixMs(created)
	return p, nil
}

func (db *DB) ListPages(ctx context.Context) ([]model.Page, error) {
	rows, err := db.sql.QueryContext(ctx, `SELECT id, title, created_at_unixms FROM pages ORDER BY created_at_unixms, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Page{}
	for rows.Next() {
		var p model.Page
		var created int64
		if err := rows.Scan(&p.ID, &p.Title, &created); err != nil {
			return nil, err
		}
		p.CreatedAt = fromUnixMs(created)
		out = append(out, p)
	}
	return out, rows.Err()
}
