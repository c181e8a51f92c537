package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"outliner-cli/internal/model"
)

// HTTP is a Gateway backed by the JSON API served by `outliner serve`.
type HTTP struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTP(baseURL string) *HTTP {
	return &HTTP{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error *apiError       `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	ID      string `json:"id,omitempty"`
}

// CreateNoteRequest is the body of POST /api/pages/{pageId}/notes.
type CreateNoteRequest struct {
	Content    string  `json:"content"`
	ParentID   *string `json:"parentId,omitempty"`
	OrderIndex int     `json:"orderIndex"`
}

// BatchOrderRequest is the body of POST /api/notes/order.
type BatchOrderRequest struct {
	Updates []model.OrderUpdate `json:"updates"`
}

type CreatePageRequest struct {
	Title string `json:"title"`
}

func (g *HTTP) ListNotes(ctx context.Context, pageID string) ([]model.Note, error) {
	var out []model.Note
	err := g.do(ctx, "list notes", http.MethodGet, "/api/pages/"+url.PathEscape(pageID)+"/notes", nil, &out)
	return out, err
}

func (g *HTTP) CreateNote(ctx context.Context, pageID, content string, parentID *string, orderIndex int) (model.Note, error) {
	var out model.Note
	body := CreateNoteRequest{Content: content, ParentID: parentID, OrderIndex: orderIndex}
	err := g.do(ctx, "create note", http.MethodPost, "/api/pages/"+url.PathEscape(pageID)+"/notes", body, &out)
	return out, err
}

func (g *HTTP) UpdateNote(ctx context.Context, id string, patch model.NotePatch) (model.Note, error) {
	var out model.Note
	err := g.do(ctx, "update note", http.MethodPatch, "/api/notes/"+url.PathEscape(id), patch, &out)
	return out, err
}

func (g *HTTP) DeleteNote(ctx context.Context, id string) error {
	return g.do(ctx, "delete note", http.MethodDelete, "/api/notes/"+url.PathEscape(id), nil, nil)
}

func (g *HTTP) BatchUpdateOrderIndexes(ctx context.Context, updates []model.OrderUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return g.do(ctx, "batch order", http.MethodPost, "/api/notes/order", BatchOrderRequest{Updates: updates}, nil)
}

func (g *HTTP) ListPages(ctx context.Context) ([]model.Page, error) {
	var out []model.Page
	err := g.do(ctx, "list pages", http.MethodGet, "/api/pages", nil, &out)
	return out, err
}

func (g *HTTP) CreatePage(ctx context.Context, title string) (model.Page, error) {
	var out model.Page
	err := g.do(ctx, "create page", http.MethodPost, "/api/pages", CreatePageRequest{Title: title}, &out)
	return out, err
}

func (g *HTTP) FindPage(ctx context.Context, idOrTitle string) (model.Page, error) {
	var out model.Page
	err := g.do(ctx, "find page", http.MethodGet, "/api/pages/"+url.PathEscape(strings.TrimSpace(idOrTitle)), nil, &out)
	return out, err
}

func (g *HTTP) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.BaseURL+path, body)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.StatusCode >= 400 {
				return statusError(op, resp.StatusCode, nil)
			}
			return &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	if resp.StatusCode >= 400 {
		return statusError(op, resp.StatusCode, env.Error)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &NetworkError{Op: op, Err: fmt.Errorf("decode data: %w", err)}
		}
	}
	return nil
}

func statusError(op string, status int, e *apiError) error {
	msg := http.StatusText(status)
	if e != nil && strings.TrimSpace(e.Message) != "" {
		msg = e.Message
	}
	switch {
	case status == http.StatusNotFound:
		nf := &NotFoundError{Kind: "note", ID: ""}
		if e != nil {
			if e.Kind != "" {
				nf.Kind = e.Kind
			}
			nf.ID = e.ID
		}
		return nf
	case status == http.StatusBadRequest || status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		return &RejectedError{Reason: msg}
	default:
		return &NetworkError{Op: op, Err: fmt.Errorf("http %d: %s", status, msg)}
	}
}
