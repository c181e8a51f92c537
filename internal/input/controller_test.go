package input

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"outliner-cli/internal/editor"
	"outliner-cli/internal/gateway/gatewaytest"
	"outliner-cli/internal/model"
	"outliner-cli/internal/notestore"
	"outliner-cli/internal/render"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = "page-1"

func mk(id, parent string, idx int, content string) model.Note {
	return model.Note{ID: id, PageID: page, ParentID: model.ParentRef(parent), OrderIndex: idx, Content: content}
}

type fakeTimer struct {
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeClock struct {
	timers []*fakeTimer
}

func (c *fakeClock) after(_ time.Duration, f func()) Timer {
	t := &fakeTimer{fn: f}
	c.timers = append(c.timers, t)
	return t
}

// fire runs every live timer, as if the delay had passed.
func (c *fakeClock) fire() int {
	n := 0
	for _, t := range append([]*fakeTimer(nil), c.timers...) {
		if t.stopped || t.fired {
			continue
		}
		t.fired = true
		t.fn()
		n++
	}
	return n
}

type harness struct {
	fake  *gatewaytest.Fake
	store *notestore.Store
	view  *render.Recorder
	ed    *editor.Editor
	clock *fakeClock
	deb   *Debouncer
	c     *Controller
}

func newHarness(t *testing.T, seed []model.Note, opts ...Option) *harness {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	entry := logrus.NewEntry(log)

	h := &harness{fake: gatewaytest.New(), view: render.NewRecorder(), clock: &fakeClock{}}
	h.fake.Seed(seed...)
	h.store = notestore.New(entry)
	n := 0
	h.ed = editor.New(h.store, h.fake, h.view,
		editor.WithLogger(entry),
		editor.WithIDSource(func() string { n++; return fmt.Sprintf("tmp-%d", n) }),
	)
	require.Equal(t, editor.StatusApplied, h.ed.Load(context.Background(), page).Status)
	h.deb = NewDebouncer(time.Second, h.clock.after)
	opts = append([]Option{WithDebouncer(h.deb), WithLogger(entry)}, opts...)
	h.c = New(h.ed, h.store, h.view, opts...)
	return h
}

func (h *harness) press(t *testing.T, keys ...Key) {
	t.Helper()
	for _, k := range keys {
		require.NoError(t, h.c.HandleKey(context.Background(), k))
	}
}

func (h *harness) typeText(t *testing.T, s string) {
	t.Helper()
	for _, r := range s {
		h.press(t, Key{Type: KeyRunes, Runes: []rune{r}})
	}
}

func (h *harness) content(id string) string {
	n, _ := h.store.Find(id)
	return n.Content
}

func (h *harness) serverContent(id string) string {
	n, _ := h.fake.Note(id)
	return n.Content
}

var (
	enter     = Key{Type: KeyEnter}
	tab       = Key{Type: KeyTab}
	shiftTab  = Key{Type: KeyTab, Shift: true}
	backspace = Key{Type: KeyBackspace}
	up        = Key{Type: KeyUp}
	down      = Key{Type: KeyDown}
	left      = Key{Type: KeyLeft}
	esc       = Key{Type: KeyEsc}
)

func TestNew_FocusesFirstVisibleNote(t *testing.T) {
	h := newHarness(t, []model.Note{mk("b", "", 1, ""), mk("a", "", 0, "")})
	assert.Equal(t, "a", h.c.Focused())
	assert.Equal(t, ModeRendered, h.c.Mode())
}

func TestEnter_RenderedModeStartsEditing(t *testing.T) {
	h := newHarness(t, []model.Note{mk("a", "", 0, "hello")})
	h.press(t, enter)
	assert.Equal(t, ModeEdit, h.c.Mode())
	assert.Equal(t, "a", h.view.Editing())
	assert.Equal(t, "hello", h.c.Text())
	assert.Equal(t, 5, h.c.Caret())
	assert.Equal(t, 1, h.store.Len())
	assert.Equal(t, []string{"list " + page}, h.fake.Calls())
}

func TestEnter_EditModeCreatesSiblingAndFocusesIt(t *testing.T) {
	h := newHarness(t, []model.Note{mk("a", "", 0, "one"), mk("b", "", 1, "two")})
	h.press(t, enter, enter)

	assert.Equal(t, "n1", h.c.Focused())
	assert.Equal(t, ModeEdit, h.c.Mode())
	assert.Equal(t, "n1", h.view.Editing())
	assert.Equal(t, "", h.c.Text())
	assert.Equal(t, []string{"list " + page, "batch 1", "create "}, h.fake.Calls())

	var ids []string
	for _, n := range h.store.VisibleOrder() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"a", "n1", "b"}, ids)

	// The new element was inserted in front of the first sibling with a greater order index.
	var add render.Call
	for _, c := range h.view.Calls() {
		if c.Method == "add" {
			add = c
		}
	}
	assert.Equal(t, "tmp-1", add.ID)
	assert.Equal(t, "b", add.BeforeID)
}

func TestEnter_SavesPendingTextBeforeCreating(t *testing.T) {
	h := newHarness(t, []model.Note{mk("a", "", 0, "")})
	h.press(t, enter)
	h.typeText(t, "hi")
	h.press(t, enter)

	assert.Equal(t, "hi", h.serverContent("a"))
	assert.Equal(t, []string{"list " + page, "update a", "create "}, h.fake.Calls())
	assert.False(t, h.deb.Pending("a"))
}

func TestEnter_OnEmptyPageCreatesRoot(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, "", h.c.Focused())
	h.press(t, enter)
	assert.Equal(t, "n1", h.c.Focused())
	assert.Equal(t, ModeEdit, h.c.Mode())
	assert.Equal(t, 1, h.store.Len())
}

func TestEnter_WithoutPageIsAnError(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	store := notestore.New(logrus.NewEntry(log))
	ed := editor.New(store, gatewaytest.New(), nil)
	c := New(ed, store, nil)
	assert.ErrorIs(t, c.HandleKey(context.Background(), enter), ErrNoPage)
}

func TestEnter_CreateFailureReturnsFocus(t *testing.T) {
	h := newHarness(t, []model.Note{mk("a", "", 0, "one")})
	h.fake.Fail(gatewaytest.MethodCreate, gatewaytest.Network("create"))
	h.press(t, enter, enter)

	assert.Equal(t, 1, h.store.Len())
	assert.Equal(t, "a", h.c.Focused())
	assert.Equal(t, ModeEdit, h.c.Mode())
	assert.Equal(t, "a", h.view.Editing())
	assert.Equal(t, "one", h.c.Text())
}

func TestShiftEnter_InsertsSoftNewline(t *testing.T) {
	h := newHarness(t, []model.Note{mk("a", "", 0, "")})
	h.press(t, enter)
	h.typeText(t, "x")
	h.press(t, Key{Type: KeyEnter, Shift: true})
	h.typeText(t, "y")

	assert.Equal(t, "x\ny", h.c.Text())
	assert.Equal(t, "x\ny", h.content("a"))
	assert.Equal(t, 1, h.store.Len())
	assert.True(t, h.deb.Pending("a"))
}

func TestTyping_SavesAfterDebounce(t *testing.T) {
	h := newHarness(t, []model.Note{mk("a", "", 0, "")})
	h.press(t, enter)
	h.typeText(t, "hi")

	assert.Equal(t, "hi", h.content("a"), "local store sees keystrokes right away")
	assert.Equal(t, editor.SaveDirty, h.ed.SaveState("a"))
	assert.Equal(t, []string{"list " + page}, h.fake.Calls())

	assert.Equal(t, 1, h.clock.fire(), "each keystroke restarts the one pending save")
	assert.Equal(t, []string{"list " + page, "update a"}, h.fake.Calls())
	assert.Equal(t, "hi", h.serverContent("a"))
	assert.Equal(t, editor.SaveClean, h.ed.SaveState("a"))
}

func TestTyping_RenderedModeIgnoresRunes(t *testing.T) {
	h := newHarness(t, []model.Note{mk("a", "", 0, "")})
	h.typeText(t, "zz")
	assert.Equal(t, "", h.content("a"))
	assert.False(t, h.deb.Pending("a"))
}

func TestTrigger_ExpandsAndSavesImmediately(t *testing.T) {
	h := newHarness(t, []model.Note{mk("a", "", 0, "")})
	h.press(t, enter)
	h.typeText(t, "see [[")

	assert.Equal(t, "see [[]]", h.c.Text())
	assert.Equal(t, 6, h.c.Caret())
	assert.Equal(t, "see [[]]", h.serverContent("a"))
	assert.False(t, h.deb.Pending("a"))
	assert.Equal(t, editor.SaveClean, h.ed.SaveState("a"))

	h.typeText(t, "[")
	assert.Equal(t, "see [[[]]", h.c.Text(), "an already closed pair is not expanded again")
}

func TestTrigger_AllDefaults(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"((", "(())"},
		{"{{", "{{}}"},
		{"(", "("},
	} {
		h := newHarness(t, []model.Note{mk("a", "", 0, "")})
		h.press(t, enter)
		h.typeText(t, tc.in)
		assert.Equal(t, tc.want, h.c.Text(), tc.in)
	}
}

func TestTrigger_Custom(t *testing.T) {
	h := newHarness(t, []model.Note{mk("a", "", 0, "")}, WithTriggers(Trigger{Open: "<<", Close: ">>"}))
	h.press(t, enter)
	h.typeText(t, "[[<<")
	assert.Equal(t, "[[<<>>", h.c.Text())
}

func TestTab_IndentAndOutdent(t *testing.T) {
	h := newHarness(t, []model.Note{mk("a", "", 0, ""), mk("b", "", 1, "")})
	h.press(t, down, tab)

	b, _ := h.store.Find("b")
	assert.Equal(t, "a", b.Parent())
	assert.Equal(t, "b", h.c.Focused())
	assert.Equal(t, 1, h.view.NestingLevel("b"))

	h.press(t, shiftTab)
	b, _ = h.store.Find("b")
	assert.True(t, b.IsRoot())
	assert.Equal(t, 1, b.OrderIndex)
	srv, _ := h.fake.Note("b")
	assert.True(t, srv.IsRoot())
}

func TestTab_FirstNoteIsNoop(t *testing.T) {
	h := newHarness(t, []model.Note{mk("a", "", 0, "")})
	h.press(t, tab, shiftTab)
	assert.Equal(t, []string{"list " + page}, h.fake.Calls())
}

func TestBackspace_DeletesEmptyNoteAndFocusesPrevious(t *testing.T) {
	h := newHarness(t, []model.Note{mk("a", "", 0, "x"), mk("b", "", 1, "")})
	h.press(t, down, enter, backspace)

	_, ok := h.store.Find("b")
	assert.False(t, ok)
	_, ok = h.fake.Note("b")
	assert.False(t, ok)
	assert.Equal(t, "a", h.c.Focused())
	assert.Equal(t, ModeEdit, h.c.Mode())
	assert.Equal(t, "a", h.view.Editing())
	assert.Equal(t, "x", h.c.Text())
	assert.Equal(t, 1, h.c.Caret())
}

func TestBackspace_RemovesRuneBeforeCaret(t *testing.T) {
	h := newHarness(t, []model.Note{mk("a", "", 0, "abc")})
	h.press(t, enter, left, backspace)
	assert.Equal(t, "ac", h.c.Text())
	assert.Equal(t, 1, h.c.Caret())
	assert.True(t, h.deb.Pending("a"))
}

func TestBackspace_KeepsLastNote(t *testing.T) {
	h := newHarness(t, []model.Note{mk("a", "", 0, "")})
	h.press(t, enter, backspace)
	assert.Equal(t, 1, h.store.Len())
	assert.Equal(t, "a", h.c.Focused())
}

func TestBackspace_KeepsNoteWithChildren(t *testing.T) {
	h := newHarness(t, []model.Note{mk("a", "", 0, ""), mk("a1", "a", 0, "")})
	h.press(t, enter, backspace)
	assert.Equal(t, 2, h.store.Len())
}

func TestArrows_FollowVisibleOrder(t *testing.T) {
	h := newHarness(t, []model.Note{mk("a", "", 0, ""), mk("a1", "a", 0, ""), mk("b", "", 1, "")})
	h.press(t, down)
	assert.Equal(t, "a1", h.c.Focused())
	h.press(t, down, down)
	assert.Equal(t, "b", h.c.Focused(), "stops at the last note")
	h.press(t, up, up)
	assert.Equal(t, "a", h.c.Focused())

	h.press(t, Key{Type: KeyToggle})
	h.press(t, down)
	assert.Equal(t, "b", h.c.Focused(), "collapsed children are skipped")
	assert.Equal(t, []string{"list " + page}, h.fake.Calls())
}

func TestArrows_LeavingEditedNoteSavesIt(t *testing.T) {
	h := newHarness(t, []model.Note{mk("a", "", 0, ""), mk("b", "", 1, "")})
	h.press(t, enter)
	h.typeText(t, "q")
	h.press(t, down)

	assert.Equal(t, "q", h.serverContent("a"))
	assert.Equal(t, "b", h.view.Editing())
	assert.Equal(t, ModeEdit, h.c.Mode())
}

func TestEsc_SavesAndLeavesEditMode(t *testing.T) {
	h := newHarness(t, []model.Note{mk("a", "", 0, "")})
	h.press(t, enter)
	h.typeText(t, "done")
	h.press(t, esc)

	assert.Equal(t, ModeRendered, h.c.Mode())
	assert.Equal(t, "", h.view.Editing())
	assert.Equal(t, "done", h.serverContent("a"))
	assert.False(t, h.deb.Pending("a"))
}

func TestSaveFailure_KeepsText(t *testing.T) {
	h := newHarness(t, []model.Note{mk("a", "", 0, "")})
	h.fake.Fail(gatewaytest.MethodUpdate, gatewaytest.Network("update"))
	h.press(t, enter)
	h.typeText(t, "keep")
	h.press(t, esc)

	assert.Equal(t, editor.SaveError, h.ed.SaveState("a"))
	assert.Equal(t, "keep", h.content("a"))

	h.press(t, enter, esc)
	assert.Equal(t, editor.SaveClean, h.ed.SaveState("a"), "blur retries a failed save")
	assert.Equal(t, "keep", h.serverContent("a"))
}

func TestClose_FlushesPendingSaves(t *testing.T) {
	h := newHarness(t, []model.Note{mk("a", "", 0, "")})
	h.press(t, enter)
	h.typeText(t, "bye")
	h.c.Close(context.Background())
	assert.Equal(t, "bye", h.serverContent("a"))
	assert.False(t, h.deb.Pending("a"))
}

// queue holds ops the way the terminal UI's worker does, so tests can interleave keys with
// completions.
type queue struct {
	ed      *editor.Editor
	pending []queued
}

type queued struct {
	op   *editor.Op
	done func(editor.Outcome)
}

func (q *queue) Dispatch(_ context.Context, op *editor.Op, done func(editor.Outcome)) {
	q.pending = append(q.pending, queued{op: op, done: done})
}

func (q *queue) drain(ctx context.Context) {
	for len(q.pending) > 0 {
		next := q.pending[0]
		q.pending = q.pending[1:]
		next.op.Run(ctx)
		out := q.ed.Settle(next.op)
		if out.Followup != nil {
			q.pending = append(q.pending, queued{op: out.Followup, done: next.done})
			continue
		}
		next.done(out)
	}
}

func TestDeferredDispatch_TypingIntoUnacknowledgedNote(t *testing.T) {
	q := &queue{}
	h := newHarness(t, []model.Note{mk("a", "", 0, "")}, WithDispatcher(q))
	q.ed = h.ed
	ctx := context.Background()

	h.press(t, enter, enter)
	require.Equal(t, "tmp-1", h.c.Focused())
	h.typeText(t, "hi")
	assert.True(t, h.deb.Pending("tmp-1"))

	q.drain(ctx)
	assert.Equal(t, "n1", h.c.Focused())
	assert.True(t, h.deb.Pending("n1"), "the pending save follows the server id")

	h.clock.fire()
	q.drain(ctx)
	assert.Equal(t, "hi", h.serverContent("n1"))
	assert.Equal(t, editor.SaveClean, h.ed.SaveState("n1"))
	assert.Equal(t, "n1", h.view.Editing())
}

func TestDeferredDispatch_RapidStructuralEdits(t *testing.T) {
	q := &queue{}
	h := newHarness(t, []model.Note{mk("a", "", 0, "")}, WithDispatcher(q))
	q.ed = h.ed

	// a, then a new sibling indented under a and outdented again, all before any reply.
	h.press(t, enter, enter, tab, shiftTab)
	q.drain(context.Background())

	var local []string
	for _, n := range h.store.DocumentOrder() {
		local = append(local, fmt.Sprintf("%s:%s@%d", n.ID, n.Parent(), n.OrderIndex))
	}
	var remote []string
	for _, n := range h.fake.Notes() {
		remote = append(remote, fmt.Sprintf("%s:%s@%d", n.ID, n.Parent(), n.OrderIndex))
	}
	assert.ElementsMatch(t, remote, local)
	assert.Equal(t, []string{"a:@0", "n1:@1"}, local)
	assert.False(t, notestore.HasErrors(h.store.Check()))
}

func placements(notes []model.Note) []string {
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, fmt.Sprintf("%s:%s@%d", n.ID, n.Parent(), n.OrderIndex))
	}
	return out
}

func TestDeferredDispatch_FailedIndentKeepsTypedText(t *testing.T) {
	q := &queue{}
	h := newHarness(t, []model.Note{mk("a", "", 0, "x"), mk("b", "", 1, "y")}, WithDispatcher(q))
	q.ed = h.ed
	ctx := context.Background()

	// Indent b, then keep typing before the server answers.
	h.press(t, down, enter, tab)
	h.typeText(t, "ZZ")
	h.fake.Fail(gatewaytest.MethodUpdate, gatewaytest.Network("update"))
	q.drain(ctx)

	b, _ := h.store.Find("b")
	assert.True(t, b.IsRoot(), "indent rolled back")
	assert.Equal(t, "yZZ", h.content("b"))
	assert.Equal(t, "yZZ", h.c.Text())
	assert.Equal(t, "b", h.c.Focused())

	h.clock.fire()
	q.drain(ctx)
	assert.Equal(t, "yZZ", h.serverContent("b"))
	assert.Equal(t, editor.SaveClean, h.ed.SaveState("b"))
}

func TestDeferredDispatch_FailedIndentKeepsNoteCreatedMeanwhile(t *testing.T) {
	q := &queue{}
	h := newHarness(t, []model.Note{mk("a", "", 0, "x"), mk("b", "", 1, "y")}, WithDispatcher(q))
	q.ed = h.ed

	// Indent b under a, then add a sibling after it, all before any reply.
	h.press(t, down, enter, tab, enter)
	h.fake.Fail(gatewaytest.MethodUpdate, gatewaytest.Network("update"))
	q.drain(context.Background())

	local := placements(h.store.DocumentOrder())
	assert.ElementsMatch(t, placements(h.fake.Notes()), local)
	assert.Equal(t, []string{"a:@0", "n1:a@1", "b:@1"}, local)
	assert.Equal(t, "n1", h.c.Focused())
	assert.False(t, notestore.HasErrors(h.store.Check()))
}
