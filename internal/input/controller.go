// Package input turns key events into outline edits. The Controller owns focus, the edit buffer of
// the focused note and its caret; structural changes go through the editor.
package input

import (
	"context"
	"errors"
	"strings"

	"outliner-cli/internal/editor"
	"outliner-cli/internal/notestore"
	"outliner-cli/internal/render"

	"github.com/sirupsen/logrus"
)

type Mode int

const (
	ModeRendered Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "rendered"
}

type KeyType int

const (
	KeyRunes KeyType = iota
	KeyEnter
	KeyTab
	KeyBackspace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEsc
	KeyToggle
)

type Key struct {
	Type  KeyType
	Runes []rune
	Shift bool
}

// Runes is a typed-text key.
func Runes(s string) Key { return Key{Type: KeyRunes, Runes: []rune(s)} }

// Trigger is an inline sequence that expands into a placeholder as soon as it is typed: Open
// immediately before the caret gets Close inserted after it.
type Trigger struct {
	Open  string
	Close string
}

var DefaultTriggers = []Trigger{
	{Open: "[[", Close: "]]"},
	{Open: "((", Close: "))"},
	{Open: "{{", Close: "}}"},
}

var ErrNoPage = errors.New("input: no page loaded")

type Option func(*Controller)

func WithDispatcher(d Dispatcher) Option {
	return func(c *Controller) {
		if d != nil {
			c.disp = d
		}
	}
}

func WithDebouncer(d *Debouncer) Option {
	return func(c *Controller) {
		if d != nil {
			c.deb = d
		}
	}
}

// WithPoster sets how debounced saves get back to the controller's goroutine. The default runs
// them wherever the timer fired, which is only safe when nothing else drives the controller.
func WithPoster(post func(func())) Option {
	return func(c *Controller) {
		if post != nil {
			c.post = post
		}
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

func WithTriggers(ts ...Trigger) Option {
	return func(c *Controller) { c.triggers = ts }
}

// Controller is not safe for concurrent use; the event loop owns it.
type Controller struct {
	ed       *editor.Editor
	store    *notestore.Store
	view     render.Renderer
	disp     Dispatcher
	deb      *Debouncer
	post     func(func())
	log      *logrus.Entry
	triggers []Trigger

	mode  Mode
	focus string
	buf   []rune
	caret int
}

func New(ed *editor.Editor, store *notestore.Store, view render.Renderer, opts ...Option) *Controller {
	if view == nil {
		view = render.Nop{}
	}
	c := &Controller{
		ed:       ed,
		store:    store,
		view:     view,
		disp:     SyncDispatcher{Editor: ed},
		post:     func(fn func()) { fn() },
		log:      logrus.NewEntry(logrus.StandardLogger()),
		triggers: DefaultTriggers,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.deb == nil {
		c.deb = NewDebouncer(DefaultDebounce, nil)
	}
	c.log = c.log.WithField("component", "input")
	c.Sync()
	return c
}

func (c *Controller) Mode() Mode { return c.mode }

// Focused returns the focused note's current id, or "" on an empty page.
func (c *Controller) Focused() string {
	if c.focus == "" {
		return ""
	}
	return c.store.Resolve(c.focus)
}

// Text is the edit buffer of the focused note.
func (c *Controller) Text() string { return string(c.buf) }

// Caret is the caret position in runes.
func (c *Controller) Caret() int { return c.caret }

func (c *Controller) HandleKey(ctx context.Context, k Key) error {
	switch k.Type {
	case KeyEnter:
		return c.enter(ctx, k.Shift)
	case KeyTab:
		if k.Shift {
			return c.structural(ctx, c.ed.BeginOutdent)
		}
		return c.structural(ctx, c.ed.BeginIndent)
	case KeyBackspace:
		return c.backspace(ctx)
	case KeyUp:
		c.step(ctx, -1)
	case KeyDown:
		c.step(ctx, 1)
	case KeyLeft:
		if c.mode == ModeEdit && c.caret > 0 {
			c.caret--
		}
	case KeyRight:
		if c.mode == ModeEdit && c.caret < len(c.buf) {
			c.caret++
		}
	case KeyEsc:
		c.Blur(ctx)
	case KeyToggle:
		if id := c.Focused(); id != "" {
			c.ed.ToggleCollapsed(id)
		}
	case KeyRunes:
		c.insert(ctx, k.Runes)
	}
	return nil
}

// Focus moves focus to id, keeping the current mode. Leaving a note in edit mode saves it.
func (c *Controller) Focus(ctx context.Context, id string) bool {
	id = c.store.Resolve(id)
	if _, ok := c.store.Find(id); !ok {
		return false
	}
	c.moveFocus(ctx, id)
	return true
}

// Blur saves the focused note right away and leaves edit mode.
func (c *Controller) Blur(ctx context.Context) {
	if c.mode != ModeEdit {
		return
	}
	id := c.Focused()
	c.mode = ModeRendered
	if id == "" {
		return
	}
	c.saveNow(ctx, id)
	c.view.SwitchToRenderedMode(id)
}

// Close saves everything still waiting on the debounce delay.
func (c *Controller) Close(ctx context.Context) {
	for _, id := range c.deb.CancelAll() {
		c.save(ctx, id)
	}
	if id := c.Focused(); id != "" {
		c.saveNow(ctx, id)
	}
}

// Sync re-attaches focus and buffer after the store changed underneath the controller, such as a
// page load.
func (c *Controller) Sync() { c.refocus() }

func (c *Controller) enter(ctx context.Context, shift bool) error {
	id := c.Focused()
	if id == "" {
		return c.createRoot(ctx)
	}
	if c.mode == ModeRendered {
		c.mode = ModeEdit
		c.loadBuffer()
		c.view.SwitchToEditMode(id)
		return nil
	}
	if shift {
		c.insert(ctx, []rune{'\n'})
		return nil
	}

	c.saveNow(ctx, id)
	op, err := c.ed.BeginCreateSibling(id)
	if err != nil || op == nil {
		return err
	}
	c.view.SwitchToRenderedMode(id)
	c.focus = op.NoteID
	c.buf, c.caret = nil, 0
	c.view.SwitchToEditMode(op.NoteID)
	c.dispatch(ctx, op, id)
	return nil
}

func (c *Controller) createRoot(ctx context.Context) error {
	pageID := c.store.PageID()
	if pageID == "" {
		return ErrNoPage
	}
	op, err := c.ed.BeginCreateRoot(pageID)
	if err != nil {
		return err
	}
	c.mode = ModeEdit
	c.focus = op.NoteID
	c.buf, c.caret = nil, 0
	c.view.SwitchToEditMode(op.NoteID)
	c.dispatch(ctx, op)
	return nil
}

func (c *Controller) structural(ctx context.Context, begin func(string) (*editor.Op, error)) error {
	id := c.Focused()
	if id == "" {
		return nil
	}
	op, err := begin(id)
	if err != nil || op == nil {
		return err
	}
	c.dispatch(ctx, op, id)
	return nil
}

func (c *Controller) backspace(ctx context.Context) error {
	id := c.Focused()
	if c.mode != ModeEdit || id == "" {
		return nil
	}
	if len(c.buf) > 0 {
		if c.caret == 0 {
			return nil
		}
		c.buf = append(c.buf[:c.caret-1], c.buf[c.caret:]...)
		c.caret--
		c.changed(ctx, id)
		return nil
	}

	op, err := c.ed.BeginDeleteIfEmpty(id)
	var rejected *editor.DeleteRejectedError
	if errors.As(err, &rejected) {
		c.log.WithField("note", id).Debug(rejected.Reason)
		return nil
	}
	if err != nil || op == nil {
		return err
	}
	c.deb.Cancel(id)
	c.focus = op.FocusID
	c.loadBuffer()
	if c.focus == "" {
		c.mode = ModeRendered
	} else {
		c.view.SwitchToEditMode(c.focus)
	}
	c.dispatch(ctx, op, op.FocusID)
	return nil
}

func (c *Controller) step(ctx context.Context, delta int) {
	vis := c.store.VisibleOrder()
	if len(vis) == 0 {
		return
	}
	cur := c.Focused()
	at := -1
	for i, n := range vis {
		if n.ID == cur {
			at = i
			break
		}
	}
	next := at + delta
	if at < 0 {
		next = 0
	}
	if next < 0 || next >= len(vis) {
		return
	}
	c.moveFocus(ctx, vis[next].ID)
}

func (c *Controller) insert(ctx context.Context, runes []rune) {
	id := c.Focused()
	if c.mode != ModeEdit || id == "" || len(runes) == 0 {
		return
	}
	buf := make([]rune, 0, len(c.buf)+len(runes))
	buf = append(buf, c.buf[:c.caret]...)
	buf = append(buf, runes...)
	buf = append(buf, c.buf[c.caret:]...)
	c.buf = buf
	c.caret += len(runes)

	if t, ok := c.trigger(); ok {
		closing := []rune(t.Close)
		buf = make([]rune, 0, len(c.buf)+len(closing))
		buf = append(buf, c.buf[:c.caret]...)
		buf = append(buf, closing...)
		buf = append(buf, c.buf[c.caret:]...)
		c.buf = buf
		c.ed.EditContent(id, string(c.buf))
		c.deb.Cancel(id)
		c.save(ctx, id)
		return
	}
	c.changed(ctx, id)
}

// trigger finds a trigger whose opening sequence ends at the caret and is not already closed.
func (c *Controller) trigger() (Trigger, bool) {
	before := string(c.buf[:c.caret])
	after := string(c.buf[c.caret:])
	for _, t := range c.triggers {
		if t.Open == "" || !strings.HasSuffix(before, t.Open) {
			continue
		}
		if strings.HasPrefix(after, t.Close) {
			continue
		}
		return t, true
	}
	return Trigger{}, false
}

// changed pushes the buffer into the store and restarts the note's debounce delay.
func (c *Controller) changed(ctx context.Context, id string) {
	c.ed.EditContent(id, string(c.buf))
	bg := context.WithoutCancel(ctx)
	c.deb.Schedule(id, func() {
		c.post(func() { c.save(bg, id) })
	})
}

// saveNow persists id immediately when it has anything unsaved.
func (c *Controller) saveNow(ctx context.Context, id string) {
	pending := c.deb.Cancel(id)
	st := c.ed.SaveState(id)
	if pending || st == editor.SaveDirty || st == editor.SaveError {
		c.save(ctx, id)
	}
}

func (c *Controller) save(ctx context.Context, id string) {
	if _, ok := c.store.Find(c.store.Resolve(id)); !ok {
		return
	}
	op, err := c.ed.BeginSave(id)
	if err != nil || op == nil {
		return
	}
	c.dispatch(ctx, op)
}

// dispatch hands op to the dispatcher. fallbacks name the notes focus returns to if the focused
// note is gone once op settles.
func (c *Controller) dispatch(ctx context.Context, op *editor.Op, fallbacks ...string) {
	local := op.NoteID
	c.disp.Dispatch(ctx, op, func(out editor.Outcome) {
		if local != "" && out.NoteID != "" && out.NoteID != local {
			c.deb.Rekey(local, out.NoteID)
		}
		c.refocus(fallbacks...)
	})
}

func (c *Controller) moveFocus(ctx context.Context, id string) {
	old := c.Focused()
	if old == id {
		c.syncBuffer()
		return
	}
	if c.mode == ModeEdit && old != "" {
		if _, ok := c.store.Find(old); ok {
			c.saveNow(ctx, old)
			c.view.SwitchToRenderedMode(old)
		}
	}
	c.focus = id
	c.loadBuffer()
	if c.mode == ModeEdit {
		if id == "" {
			c.mode = ModeRendered
		} else {
			c.view.SwitchToEditMode(id)
		}
	}
}

// refocus keeps focus on the focused note if it still exists, else on the first surviving fallback,
// else on the first visible note.
func (c *Controller) refocus(fallbacks ...string) {
	for _, id := range append([]string{c.focus}, fallbacks...) {
		if id == "" {
			continue
		}
		id = c.store.Resolve(id)
		if _, ok := c.store.Find(id); ok {
			c.retarget(id)
			return
		}
	}
	if vis := c.store.VisibleOrder(); len(vis) > 0 {
		c.retarget(vis[0].ID)
		return
	}
	c.focus = ""
	c.buf, c.caret = nil, 0
	c.mode = ModeRendered
}

// retarget points focus at id without saving the note it leaves, which may no longer exist.
func (c *Controller) retarget(id string) {
	if id == c.Focused() {
		c.focus = id
		c.syncBuffer()
		return
	}
	c.focus = id
	c.loadBuffer()
	if c.mode == ModeEdit {
		c.view.SwitchToEditMode(id)
	}
}

func (c *Controller) loadBuffer() {
	n, ok := c.store.Find(c.Focused())
	if !ok {
		c.buf, c.caret = nil, 0
		return
	}
	c.buf = []rune(n.Content)
	c.caret = len(c.buf)
}

// syncBuffer picks up content that changed in the store, such as after a reload.
func (c *Controller) syncBuffer() {
	n, ok := c.store.Find(c.Focused())
	if !ok {
		c.buf, c.caret = nil, 0
		return
	}
	if n.Content == string(c.buf) {
		return
	}
	c.buf = []rune(n.Content)
	if c.caret > len(c.buf) {
		c.caret = len(c.buf)
	}
}
