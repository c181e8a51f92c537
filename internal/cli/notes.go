package cli

import (
	"context"
	"errors"

	"outliner-cli/internal/editor"
	"outliner-cli/internal/model"
	"outliner-cli/internal/notestore"
	"outliner-cli/internal/render"

	"github.com/spf13/cobra"
)

// outline is one page loaded for a scripted edit. Edits go through the same editor the TUI uses, so
// ordering and rollback behave identically.
type outline struct {
	b     *backend
	page  model.Page
	store *notestore.Store
	ed    *editor.Editor
}

func openOutline(ctx context.Context, app *App) (*outline, error) {
	b, err := openBackend(ctx, app)
	if err != nil {
		return nil, err
	}
	page, err := b.resolvePage(ctx, app.cfg.Page, false)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	log := app.log().WithField("page", page.ID)
	st := notestore.New(log)
	ed := editor.New(st, b.gw, render.Nop{}, editor.WithLogger(log))
	if out := ed.Load(ctx, page.ID); out.Err != nil {
		_ = b.Close()
		return nil, out.Err
	}
	return &outline{b: b, page: page, store: st, ed: ed}, nil
}

func (o *outline) Close() error { return o.b.Close() }

// settled turns an editor outcome into the affected note or an error.
func (o *outline) settled(op, id string, out editor.Outcome, err error) (model.Note, error) {
	if err != nil {
		return model.Note{}, err
	}
	switch out.Status {
	case editor.StatusApplied:
	case editor.StatusNoop:
		return model.Note{}, noChangeError{op: op, id: id}
	default:
		return model.Note{}, outcomeError{op: op, status: out.Status.String(), err: out.Err}
	}
	if out.NoteID == "" {
		return model.Note{}, nil
	}
	n, ok := o.store.Find(out.NoteID)
	if !ok {
		return model.Note{}, errNotFound("note", out.NoteID)
	}
	return n, nil
}

// fill writes content into a freshly created note.
func (o *outline) fill(ctx context.Context, n model.Note, content string) (model.Note, error) {
	if content == "" {
		return n, nil
	}
	if !o.ed.EditContent(n.ID, content) {
		return model.Note{}, errNotFound("note", n.ID)
	}
	out, err := o.ed.SaveContent(ctx, n.ID)
	return o.settled("save", n.ID, out, err)
}

func (o *outline) require(id string) error {
	if _, ok := o.store.Find(id); !ok {
		return errNotFound("note", id)
	}
	return nil
}

type treeRow struct {
	ID          string  `json:"id"`
	ParentID    *string `json:"parentId,omitempty"`
	Depth       int     `json:"depth"`
	OrderIndex  int     `json:"orderIndex"`
	Content     string  `json:"content"`
	HasChildren bool    `json:"hasChildren,omitempty"`
	Collapsed   bool    `json:"collapsed,omitempty"`
}

func newNotesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Note commands (operate on --page, default the first page)",
	}
	cmd.AddCommand(newNotesListCmd(app))
	cmd.AddCommand(newNotesTreeCmd(app))
	cmd.AddCommand(newNotesCheckCmd(app))
	cmd.AddCommand(newNotesAddCmd(app))
	cmd.AddCommand(newNotesAddSiblingCmd(app))
	cmd.AddCommand(newNotesAddChildCmd(app))
	cmd.AddCommand(newNotesMoveCmd(app, "indent", "Make a note the last child of its previous sibling", (*editor.Editor).Indent))
	cmd.AddCommand(newNotesMoveCmd(app, "outdent", "Move a note out to follow its parent", (*editor.Editor).Outdent))
	cmd.AddCommand(newNotesDeleteCmd(app))
	cmd.AddCommand(newNotesEditCmd(app))
	return cmd
}

// withOutline opens the page for the duration of fn.
func withOutline(cmd *cobra.Command, app *App, fn func(ctx context.Context, o *outline) error) error {
	ctx := cmd.Context()
	o, err := openOutline(ctx, app)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer o.Close()
	if err := fn(ctx, o); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}

func newNotesListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the page's notes in document order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOutline(cmd, app, func(ctx context.Context, o *outline) error {
				return writeOut(cmd, app, map[string]any{"data": o.store.DocumentOrder()})
			})
		},
	}
}

func newNotesTreeCmd(app *App) *cobra.Command {
	var visibleOnly bool
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the page's notes with their depth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOutline(cmd, app, func(ctx context.Context, o *outline) error {
				rows := o.store.DocumentRows()
				if visibleOnly {
					rows = o.store.VisibleRows()
				}
				out := make([]treeRow, 0, len(rows))
				for _, r := range rows {
					out = append(out, treeRow{
						ID:          r.Note.ID,
						ParentID:    r.Note.ParentID,
						Depth:       r.Depth,
						OrderIndex:  r.Note.OrderIndex,
						Content:     r.Note.Content,
						HasChildren: r.HasChildren,
						Collapsed:   r.Note.Collapsed,
					})
				}
				return writeOut(cmd, app, map[string]any{
					"data":   map[string]any{"page": o.page, "rows": out},
					"_hints": []string{"outliner export --page " + o.page.ID},
				})
			})
		},
	}
	cmd.Flags().BoolVar(&visibleOnly, "visible", false, "Hide the descendants of collapsed notes")
	return cmd
}

func newNotesCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the page's tree for broken parents, cycles and duplicate order indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOutline(cmd, app, func(ctx context.Context, o *outline) error {
				issues := o.store.Check()
				if err := writeOut(cmd, app, map[string]any{"data": map[string]any{"page": o.page.ID, "issues": issues}}); err != nil {
					return err
				}
				if notestore.HasErrors(issues) {
					return errors.New("check failed")
				}
				return nil
			})
		},
	}
}

func newNotesAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <content>",
		Short: "Append a top-level note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOutline(cmd, app, func(ctx context.Context, o *outline) error {
				out, err := o.ed.CreateRoot(ctx, o.page.ID)
				n, err := o.settled("add", o.page.ID, out, err)
				if err != nil {
					return err
				}
				if n, err = o.fill(ctx, n, args[0]); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": n})
			})
		},
	}
}

func newNotesAddSiblingCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add-sibling <after-note-id> <content>",
		Short: "Insert a note right after another one, at the same level",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOutline(cmd, app, func(ctx context.Context, o *outline) error {
				if err := o.require(args[0]); err != nil {
					return err
				}
				out, err := o.ed.CreateSibling(ctx, args[0])
				n, err := o.settled("add-sibling", args[0], out, err)
				if err != nil {
					return err
				}
				if n, err = o.fill(ctx, n, args[1]); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": n})
			})
		},
	}
}

func newNotesAddChildCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add-child <parent-note-id> <content>",
		Short: "Insert a note as the first child of another one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOutline(cmd, app, func(ctx context.Context, o *outline) error {
				if err := o.require(args[0]); err != nil {
					return err
				}
				out, err := o.ed.CreateChild(ctx, args[0])
				n, err := o.settled("add-child", args[0], out, err)
				if err != nil {
					return err
				}
				if n, err = o.fill(ctx, n, args[1]); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": n})
			})
		},
	}
}

func newNotesMoveCmd(app *App, use, short string, move func(*editor.Editor, context.Context, string) (editor.Outcome, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <note-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOutline(cmd, app, func(ctx context.Context, o *outline) error {
				if err := o.require(args[0]); err != nil {
					return err
				}
				out, err := move(o.ed, ctx, args[0])
				n, err := o.settled(use, args[0], out, err)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{
					"data": map[string]any{"note": n, "depth": o.store.Depth(n.ID)},
				})
			})
		},
	}
}

func newNotesDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <note-id>",
		Short: "Delete an empty note without children",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOutline(cmd, app, func(ctx context.Context, o *outline) error {
				if err := o.require(args[0]); err != nil {
					return err
				}
				out, err := o.ed.DeleteIfEmpty(ctx, args[0])
				if err != nil {
					return err
				}
				if out.Status != editor.StatusApplied {
					return outcomeError{op: "delete", status: out.Status.String(), err: out.Err}
				}
				return writeOut(cmd, app, map[string]any{
					"data": map[string]any{"deleted": args[0], "focus": out.FocusID},
				})
			})
		},
	}
}

func newNotesEditCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <note-id> <content>",
		Short: "Replace a note's content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOutline(cmd, app, func(ctx context.Context, o *outline) error {
				if err := o.require(args[0]); err != nil {
					return err
				}
				o.ed.EditContent(args[0], args[1])
				out, err := o.ed.SaveContent(ctx, args[0])
				n, err := o.settled("edit", args[0], out, err)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": n})
			})
		},
	}
}
