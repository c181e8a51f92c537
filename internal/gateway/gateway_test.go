package gateway_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"outliner-cli/internal/gateway"
	"outliner-cli/internal/model"
	"outliner-cli/internal/server"
	"outliner-cli/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newHTTP(t *testing.T, db *store.DB) *gateway.HTTP {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	srv, err := server.NewServer(server.ServerConfig{Addr: "127.0.0.1:0"}, db, logrus.NewEntry(log))
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return gateway.NewHTTP(ts.URL + "/")
}

type gw interface {
	gateway.Gateway
	gateway.Pages
}

// Both implementations must behave the same from the editor's point of view.
func TestGateways_Contract(t *testing.T) {
	cases := map[string]func(t *testing.T, db *store.DB) gw{
		"local": func(_ *testing.T, db *store.DB) gw { return gateway.NewLocal(db) },
		"http":  func(t *testing.T, db *store.DB) gw { return newHTTP(t, db) },
	}
	for name, mk := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			db := openDB(t)
			g := mk(t, db)

			p, err := g.CreatePage(ctx, "Inbox")
			require.NoError(t, err)
			found, err := g.FindPage(ctx, "inbox")
			require.NoError(t, err)
			assert.Equal(t, p.ID, found.ID)

			a, err := g.CreateNote(ctx, p.ID, "a", nil, 0)
			require.NoError(t, err)
			b, err := g.CreateNote(ctx, p.ID, "b", nil, 1)
			require.NoError(t, err)
			assert.False(t, model.IsProvisionalID(a.ID))

			moved, err := g.UpdateNote(ctx, b.ID, model.MovePatch(a.ID, 0))
			require.NoError(t, err)
			assert.Equal(t, a.ID, moved.Parent())

			require.NoError(t, g.BatchUpdateOrderIndexes(ctx, []model.OrderUpdate{{ID: a.ID, OrderIndex: 3}}))
			require.NoError(t, g.BatchUpdateOrderIndexes(ctx, nil))

			notes, err := g.ListNotes(ctx, p.ID)
			require.NoError(t, err)
			assert.Len(t, notes, 2)

			require.NoError(t, g.DeleteNote(ctx, b.ID))

			err = g.DeleteNote(ctx, b.ID)
			assert.True(t, gateway.IsNotFound(err), "got %v", err)

			_, err = g.UpdateNote(ctx, "note-ghost", model.ContentPatch("x"))
			assert.True(t, gateway.IsNotFound(err), "got %v", err)

			_, err = g.CreateNote(ctx, p.ID, "x", model.ParentRef("note-ghost"), 0)
			assert.True(t, gateway.IsRejected(err), "got %v", err)

			err = g.BatchUpdateOrderIndexes(ctx, []model.OrderUpdate{{ID: "note-ghost", OrderIndex: 1}})
			assert.True(t, gateway.IsNotFound(err), "got %v", err)

			pages, err := g.ListPages(ctx)
			require.NoError(t, err)
			assert.Len(t, pages, 1)
		})
	}
}

func TestHTTP_TransportFailureIsNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	g := gateway.NewHTTP(url)
	_, err := g.ListNotes(context.Background(), "page-x")
	assert.True(t, gateway.IsNetwork(err), "got %v", err)
}

func TestHTTP_ServerErrorIsNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	t.Cleanup(ts.Close)

	err := gateway.NewHTTP(ts.URL).DeleteNote(context.Background(), "note-1")
	var ne *gateway.NetworkError
	require.True(t, errors.As(err, &ne), "got %v", err)
	assert.Equal(t, "delete note", ne.Op)
}
