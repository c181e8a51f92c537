package cli

import (
	"context"
	"errors"
	"strings"

	"outliner-cli/internal/gateway"
	"outliner-cli/internal/model"
	"outliner-cli/internal/store"
)

// defaultPageTitle names the page created on first launch.
const defaultPageTitle = "Inbox"

// backend is where notes live for one command: the local sqlite store, or a server.
type backend struct {
	gw    gateway.Gateway
	pages gateway.Pages
	db    *store.DB
}

func openBackend(ctx context.Context, app *App) (*backend, error) {
	if app.cfg.Remote() {
		h := gateway.NewHTTP(app.cfg.ServerURL)
		return &backend{gw: h, pages: h}, nil
	}
	db, err := store.Open(ctx, app.cfg.DataDir)
	if err != nil {
		return nil, err
	}
	l := gateway.NewLocal(db)
	return &backend{gw: l, pages: l, db: db}, nil
}

func (b *backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// resolvePage finds ref by id or title. An empty ref picks the first page; with create set, an
// empty workspace gets a fresh page.
func (b *backend) resolvePage(ctx context.Context, ref string, create bool) (model.Page, error) {
	ref = strings.TrimSpace(ref)
	if ref != "" {
		p, err := b.pages.FindPage(ctx, ref)
		if gateway.IsNotFound(err) {
			return model.Page{}, errNotFound("page", ref)
		}
		return p, err
	}
	pages, err := b.pages.ListPages(ctx)
	if err != nil {
		return model.Page{}, err
	}
	if len(pages) > 0 {
		return pages[0], nil
	}
	if !create {
		return model.Page{}, errors.New("no pages yet; create one with `outliner pages create <title>`")
	}
	return b.pages.CreatePage(ctx, defaultPageTitle)
}
