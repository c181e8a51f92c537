package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"outliner-cli/internal/gateway"
	"outliner-cli/internal/model"
	"outliner-cli/internal/publish"
	"outliner-cli/internal/store"

	"github.com/sirupsen/logrus"
)

type ServerConfig struct {
	Addr     string
	ReadOnly bool
}

// Server exposes a store.DB as the JSON API consumed by gateway.HTTP.
type Server struct {
	cfg ServerConfig
	db  *store.DB
	log *logrus.Entry
}

func NewServer(cfg ServerConfig, db *store.DB, log *logrus.Entry) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if cfg.Addr == "" {
		return nil, errors.New("server: addr is empty")
	}
	if db == nil {
		return nil, errors.New("server: db is nil")
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{cfg: cfg, db: db, log: log.WithField("component", "server")}, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/pages", s.handlePagesList)
	mux.HandleFunc("POST /api/pages", s.handlePageCreate)
	mux.HandleFunc("GET /api/pages/{pageId}", s.handlePageGet)
	mux.HandleFunc("GET /api/pages/{pageId}/notes", s.handleNotesList)
	mux.HandleFunc("POST /api/pages/{pageId}/notes", s.handleNoteCreate)
	mux.HandleFunc("GET /api/pages/{pageId}/export", s.handlePageExport)
	mux.HandleFunc("PATCH /api/notes/{noteId}", s.handleNoteUpdate)
	mux.HandleFunc("DELETE /api/notes/{noteId}", s.handleNoteDelete)
	mux.HandleFunc("POST /api/notes/order", s.handleNotesOrder)
	return s.logRequests(mux)
}

// Serve handles requests on ln until ctx is cancelled, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.log.WithField("addr", ln.Addr().String()).Info("listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe blocks until ctx is cancelled or the server fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).Round(time.Microsecond).String(),
		}).Debug("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handlePagesList(w http.ResponseWriter, r *http.Request) {
	pages, err := s.db.ListPages(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, pages)
}

func (s *Server) handlePageCreate(w http.ResponseWriter, r *http.Request) {
	if s.rejectReadOnly(w) {
		return
	}
	var req gateway.CreatePageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := s.db.CreatePage(r.Context(), req.Title)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusCreated, p)
}

func (s *Server) handlePageGet(w http.ResponseWriter, r *http.Request) {
	p, err := gateway.NewLocal(s.db).FindPage(r.Context(), r.PathValue("pageId"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (s *Server) handleNotesList(w http.ResponseWriter, r *http.Request) {
	notes, err := s.db.ListNotes(r.Context(), r.PathValue("pageId"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, notes)
}

func (s *Server) handleNoteCreate(w http.ResponseWriter, r *http.Request) {
	if s.rejectReadOnly(w) {
		return
	}
	var req gateway.CreateNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := s.db.CreateNote(r.Context(), r.PathValue("pageId"), req.Content, req.ParentID, req.OrderIndex)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusCreated, n)
}

func (s *Server) handleNoteUpdate(w http.ResponseWriter, r *http.Request) {
	if s.rejectReadOnly(w) {
		return
	}
	var patch model.NotePatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if patch.Empty() {
		writeError(w, http.StatusBadRequest, "bad_request", "patch sets no fields", "", "")
		return
	}
	n, err := s.db.UpdateNote(r.Context(), r.PathValue("noteId"), patch)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, n)
}

func (s *Server) handleNoteDelete(w http.ResponseWriter, r *http.Request) {
	if s.rejectReadOnly(w) {
		return
	}
	if err := s.db.DeleteNote(r.Context(), r.PathValue("noteId")); err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleNotesOrder(w http.ResponseWriter, r *http.Request) {
	if s.rejectReadOnly(w) {
		return
	}
	var req gateway.BatchOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.db.BatchUpdateOrder(r.Context(), req.Updates); err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handlePageExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := s.db.FindPage(ctx, r.PathValue("pageId"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	notes, err := s.db.ListNotes(ctx, p.ID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	md := publish.PageMarkdown(p, notes)
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))) {
	case "", "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, md)
	case "html":
		body, err := publish.RenderHTML(md)
		if err != nil {
			s.writeErr(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, body)
	default:
		writeError(w, http.StatusBadRequest, "invalid_format", "format must be md or html", "", "")
	}
}

func (s *Server) rejectReadOnly(w http.ResponseWriter) bool {
	if !s.cfg.ReadOnly {
		return false
	}
	writeError(w, http.StatusForbidden, "read_only", "server is read-only", "", "")
	return true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid body: %v", err), "", "")
		return false
	}
	return true
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, code, msg, kind, id string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	e := map[string]any{"code": code, "message": msg}
	if kind != "" {
		e["kind"] = kind
	}
	if id != "" {
		e["id"] = id
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"error": e})
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	var nf *store.NotFoundError
	var gnf *gateway.NotFoundError
	var inv *store.InvalidError
	var rej *gateway.RejectedError
	switch {
	case errors.As(err, &nf):
		writeError(w, http.StatusNotFound, "not_found", err.Error(), nf.Kind, nf.ID)
	case errors.As(err, &gnf):
		writeError(w, http.StatusNotFound, "not_found", err.Error(), gnf.Kind, gnf.ID)
	case errors.As(err, &inv):
		writeError(w, http.StatusUnprocessableEntity, "invalid", inv.Reason, "", "")
	case errors.As(err, &rej):
		writeError(w, http.StatusUnprocessableEntity, "invalid", rej.Reason, "", "")
	default:
		s.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal", "internal error", "", "")
	}
}
