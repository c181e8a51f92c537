package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"outliner-cli/internal/editor"
	"outliner-cli/internal/gateway"
	"outliner-cli/internal/input"
	"outliner-cli/internal/model"
	"outliner-cli/internal/notestore"
	"outliner-cli/internal/store"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Gateway  gateway.Gateway
	Page     model.Page
	Debounce time.Duration
	// StateDir holds tui_state.json; empty disables restoring focus.
	StateDir string
	Log      *logrus.Entry
}

// session is shared by every copy of the model; bubbletea passes the model by value.
type session struct {
	ctx   context.Context
	log   *logrus.Entry
	store *notestore.Store
	view  *outlineView
	ed    *editor.Editor
	ctl   *input.Controller
	deb   *input.Debouncer

	runJob   func(job)
	send     func(tea.Msg)
	inflight int
	alert    *editor.Alert

	stateDir string
	state    *store.TUIState
}

func (s *session) Dispatch(ctx context.Context, op *editor.Op, done func(editor.Outcome)) {
	s.inflight++
	s.runJob(job{ctx: ctx, op: op, done: done})
}

func (s *session) post(fn func()) {
	if s.send != nil {
		s.send(postMsg{fn: fn})
	}
}

func (s *session) onAlert(a editor.Alert) {
	s.alert = &a
}

type appModel struct {
	s    *session
	page model.Page
	keys keyMap
	help help.Model
	vp   viewport.Model

	width    int
	height   int
	ready    bool
	flash    string
	quitting bool
}

func newAppModel(ctx context.Context, opt Options) (appModel, error) {
	log := opt.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("page", opt.Page.ID)

	s := &session{ctx: ctx, log: log, view: newOutlineView(), stateDir: opt.StateDir}
	s.store = notestore.New(log)
	s.ed = editor.New(s.store, opt.Gateway, s.view, editor.WithLogger(log), editor.WithAlerts(s.onAlert))
	if out := s.ed.Load(ctx, opt.Page.ID); out.Err != nil {
		return appModel{}, fmt.Errorf("load page %s: %w", opt.Page.ID, out.Err)
	}
	// Until the program starts, ops run inline.
	s.runJob = func(j job) {
		j.op.Run(j.ctx)
		s.settle(j)
	}
	s.deb = input.NewDebouncer(opt.Debounce, nil)
	s.ctl = input.New(s.ed, s.store, s.view,
		input.WithDispatcher(s),
		input.WithDebouncer(s.deb),
		input.WithPoster(s.post),
		input.WithLogger(log),
	)

	st, err := store.LoadTUIState(opt.StateDir)
	if err != nil {
		log.WithError(err).Warn("could not read tui state")
		st = &store.TUIState{Version: 1, Focus: map[string]string{}}
	}
	s.state = st
	if id := st.Focus[opt.Page.ID]; id != "" {
		s.ctl.Focus(ctx, id)
	}

	h := help.New()
	h.ShowAll = st.ShowHelp
	return appModel{s: s, page: opt.Page, keys: defaultKeyMap(), help: h}, nil
}

// settle applies a finished job. A reload requested by the outcome is queued behind everything
// already submitted and the job completes when that reload does.
func (s *session) settle(j job) {
	out := s.ed.Settle(j.op)
	if out.Followup != nil {
		s.runJob(job{ctx: j.ctx, op: out.Followup, done: j.done})
		return
	}
	s.inflight--
	if j.done != nil {
		j.done(out)
	}
}

func (m appModel) Init() tea.Cmd { return nil }

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		if !m.ready {
			m.vp = viewport.New(msg.Width, m.bodyHeight())
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = m.bodyHeight()
		}
	case opDoneMsg:
		m.s.settle(msg.job)
		if m.quitting && m.s.inflight == 0 {
			return m, tea.Quit
		}
	case postMsg:
		msg.fn()
	case tea.KeyMsg:
		m, cmd = m.handleKey(msg)
	}
	m.syncViewport()
	return m, cmd
}

func (m appModel) handleKey(msg tea.KeyMsg) (appModel, tea.Cmd) {
	s := m.s
	m.flash = ""
	s.alert = nil
	mode := s.ctl.Mode()

	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		return m.quit()
	case key.Matches(msg, m.keys.Reload):
		s.Dispatch(s.ctx, s.ed.BeginReload(), func(editor.Outcome) { s.ctl.Sync() })
		m.flash = "reloading"
		return m, nil
	}
	if mode == input.ModeRendered {
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m.quit()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			s.state.ShowHelp = m.help.ShowAll
			if m.ready {
				m.vp.Height = m.bodyHeight()
			}
			return m, nil
		case key.Matches(msg, m.keys.Copy):
			m.flash = m.copyFocused()
			return m, nil
		}
	}

	k, ok := toInputKey(msg, m.keys, mode)
	if !ok {
		return m, nil
	}
	if err := s.ctl.HandleKey(s.ctx, k); err != nil {
		s.log.WithError(err).Warn("key not applied")
		m.flash = err.Error()
	}
	return m, nil
}

func (m appModel) copyFocused() string {
	n, ok := m.s.store.Find(m.s.ctl.Focused())
	if !ok {
		return ""
	}
	if err := copyToClipboard(n.Content); err != nil {
		return "copy failed: " + err.Error()
	}
	return "copied"
}

// quit flushes pending saves and waits for the worker to drain before exiting.
func (m appModel) quit() (appModel, tea.Cmd) {
	s := m.s
	s.ctl.Close(s.ctx)
	m.saveState()
	m.quitting = true
	if s.inflight == 0 {
		return m, tea.Quit
	}
	m.flash = "saving…"
	return m, nil
}

func (m appModel) saveState() {
	s := m.s
	if s.stateDir == "" {
		return
	}
	s.state.LastPageID = m.page.ID
	if id := s.ctl.Focused(); id != "" && !model.IsProvisionalID(id) {
		s.state.Focus[m.page.ID] = id
	}
	if err := store.SaveTUIState(s.stateDir, s.state); err != nil {
		s.log.WithError(err).Warn("could not save tui state")
	}
}

func (m appModel) bodyHeight() int {
	h := m.height - 2 - lipgloss.Height(m.help.View(modeKeys{km: m.keys, mode: m.s.ctl.Mode()}))
	if h < 1 {
		return 1
	}
	return h
}

func (m *appModel) syncViewport() {
	if !m.ready {
		return
	}
	m.vp.Height = m.bodyHeight()
	body, focusTop, focusBottom := m.renderOutline(m.width)
	m.vp.SetContent(body)
	switch {
	case focusTop < m.vp.YOffset:
		m.vp.SetYOffset(focusTop)
	case focusBottom >= m.vp.YOffset+m.vp.Height:
		m.vp.SetYOffset(focusBottom - m.vp.Height + 1)
	}
}

func (m appModel) View() string {
	if !m.ready {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteByte('\n')
	b.WriteString(m.vp.View())
	b.WriteByte('\n')
	b.WriteString(m.statusLine())
	b.WriteByte('\n')
	b.WriteString(m.help.View(modeKeys{km: m.keys, mode: m.s.ctl.Mode()}))
	return b.String()
}

func (m appModel) header() string {
	title := styleTitle().Render(m.page.Title)
	var right string
	switch st := m.s.ed.SaveState(m.s.ctl.Focused()); st {
	case editor.SaveClean:
	case editor.SaveError:
		right = styleSaveState(true).Render(st.String())
	default:
		right = styleSaveState(false).Render(st.String())
	}
	if m.s.inflight > 0 {
		right = strings.TrimSpace(right + " " + styleMuted().Render(fmt.Sprintf("syncing %d", m.s.inflight)))
	}
	return splitEnds(title, right, m.width)
}

func (m appModel) statusLine() string {
	if a := m.s.alert; a != nil {
		return styleAlert().Render(fitLine(fmt.Sprintf("%s failed: %v", a.Op, a.Err), m.width))
	}
	return styleMuted().Render(fitLine(m.flash, m.width))
}

// renderOutline draws the visible notes and reports the first and last line of the focused one.
func (m appModel) renderOutline(width int) (string, int, int) {
	s := m.s
	if width < 20 {
		width = 20
	}
	focused := s.ctl.Focused()
	editing := s.ctl.Mode() == input.ModeEdit
	collapsed := func(id string) bool {
		n, ok := s.store.Find(id)
		return ok && n.Collapsed
	}

	var lines []string
	top, bottom := 0, 0
	for _, e := range s.view.visible(collapsed) {
		n, ok := s.store.Find(e.id)
		if !ok {
			continue
		}
		indent := strings.Repeat("  ", e.level)
		bullet := glyphFor(s.store.HasChildren(n.ID), n.Collapsed)
		prefix := indent + bullet + " "
		avail := width - xansi.StringWidth(prefix)
		if avail < 10 {
			avail = 10
		}

		var body []string
		switch {
		case n.ID == focused && editing:
			body = editLines(s.ctl.Text(), s.ctl.Caret(), avail)
		case strings.TrimSpace(n.Content) == "":
			body = []string{""}
		default:
			body = strings.Split(renderNote(n.Content, avail), "\n")
		}

		if n.ID == focused {
			top = len(lines)
		}
		pad := strings.Repeat(" ", xansi.StringWidth(prefix))
		for i, l := range body {
			p := pad
			if i == 0 {
				p = indent + styleBullet().Render(bullet) + " "
			}
			line := p + l
			if n.ID == focused && !editing {
				line = styleFocused().Render(line)
			}
			lines = append(lines, line)
		}
		if n.ID == focused {
			bottom = len(lines) - 1
		}
	}
	if len(lines) == 0 {
		lines = append(lines, styleMuted().Render("Empty page. Press enter to start writing."))
	}
	return strings.Join(lines, "\n"), top, bottom
}

// editLines shows the raw buffer with the caret highlighted, hard-wrapped at width.
func editLines(text string, caret, width int) []string {
	runes := []rune(text)
	var out []string
	var cur strings.Builder
	curW := 0
	flush := func() {
		out = append(out, cur.String())
		cur.Reset()
		curW = 0
	}
	for i := 0; i <= len(runes); i++ {
		atCaret := i == caret
		if i == len(runes) {
			if atCaret {
				cur.WriteString(styleCaret().Render(" "))
			}
			break
		}
		r := runes[i]
		if r == '\n' {
			if atCaret {
				cur.WriteString(styleCaret().Render(" "))
			}
			flush()
			continue
		}
		w := xansi.StringWidth(string(r))
		if curW+w > width {
			flush()
		}
		if atCaret {
			cur.WriteString(styleCaret().Render(string(r)))
		} else {
			cur.WriteRune(r)
		}
		curW += w
	}
	flush()
	return out
}
