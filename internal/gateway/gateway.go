// Package gateway is the persistence boundary of the editor: create, update and delete notes and
// renumber sibling groups on a remote store.
//
// Implementations map their failures onto three error types so callers can pick a recovery
// strategy without knowing the transport:
//
//   - *NetworkError: transient; the operation may be retried or rolled back locally.
//   - *NotFoundError: the server no longer has the entity; the page must be reloaded.
//   - *RejectedError: the server refused the write as invalid.
package gateway

import (
	"context"

	"outliner-cli/internal/model"
)

type Gateway interface {
	ListNotes(ctx context.Context, pageID string) ([]model.Note, error)
	CreateNote(ctx context.Context, pageID, content string, parentID *string, orderIndex int) (model.Note, error)
	UpdateNote(ctx context.Context, id string, patch model.NotePatch) (model.Note, error)
	DeleteNote(ctx context.Context, id string) error
	// BatchUpdateOrderIndexes applies all updates or none.
	BatchUpdateOrderIndexes(ctx context.Context, updates []model.OrderUpdate) error
}

// Pages is implemented by gateways that can also enumerate and create pages.
type Pages interface {
	ListPages(ctx context.Context) ([]model.Page, error)
	CreatePage(ctx context.Context, title string) (model.Page, error)
	FindPage(ctx context.Context, idOrTitle string) (model.Page, error)
}
