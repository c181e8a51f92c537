package tui

import (
	"outliner-cli/internal/input"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	Edit        key.Binding
	NewSibling  key.Binding
	SoftNewline key.Binding
	Indent      key.Binding
	Outdent     key.Binding
	Toggle      key.Binding
	Leave       key.Binding
	Copy        key.Binding
	Reload      key.Binding
	Help        key.Binding
	Quit        key.Binding
	ForceQuit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Edit:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit")),
		NewSibling:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "new note")),
		SoftNewline: key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"), key.WithHelp("alt+enter", "newline")),
		Indent:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "indent")),
		Outdent:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "outdent")),
		Toggle:      key.NewBinding(key.WithKeys("ctrl+t", "z", " "), key.WithHelp("z", "fold")),
		Leave:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "done")),
		Copy:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy")),
		Reload:      key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// modeKeys adapts the help view to the controller's mode.
type modeKeys struct {
	km   keyMap
	mode input.Mode
}

func (k modeKeys) ShortHelp() []key.Binding {
	if k.mode == input.ModeEdit {
		return []key.Binding{k.km.NewSibling, k.km.Indent, k.km.Outdent, k.km.Leave}
	}
	return []key.Binding{k.km.Up, k.km.Down, k.km.Edit, k.km.Toggle, k.km.Help, k.km.Quit}
}

func (k modeKeys) FullHelp() [][]key.Binding {
	if k.mode == input.ModeEdit {
		return [][]key.Binding{
			{k.km.NewSibling, k.km.SoftNewline, k.km.Leave},
			{k.km.Indent, k.km.Outdent, k.km.Toggle},
			{k.km.Reload, k.km.ForceQuit},
		}
	}
	return [][]key.Binding{
		{k.km.Up, k.km.Down, k.km.Edit},
		{k.km.Indent, k.km.Outdent, k.km.Toggle},
		{k.km.Copy, k.km.Reload, k.km.Help, k.km.Quit},
	}
}

// toInputKey translates a terminal key for the controller. In edit mode printable keys are text;
// in rendered mode j/k navigate and z folds. ok is false for keys the controller does not handle.
func toInputKey(msg tea.KeyMsg, km keyMap, mode input.Mode) (input.Key, bool) {
	switch {
	case key.Matches(msg, km.SoftNewline):
		return input.Key{Type: input.KeyEnter, Shift: true}, true
	case msg.Type == tea.KeyEnter:
		return input.Key{Type: input.KeyEnter}, true
	case msg.Type == tea.KeyTab:
		return input.Key{Type: input.KeyTab}, true
	case msg.Type == tea.KeyShiftTab:
		return input.Key{Type: input.KeyTab, Shift: true}, true
	case msg.Type == tea.KeyBackspace:
		return input.Key{Type: input.KeyBackspace}, true
	case msg.Type == tea.KeyUp:
		return input.Key{Type: input.KeyUp}, true
	case msg.Type == tea.KeyDown:
		return input.Key{Type: input.KeyDown}, true
	case msg.Type == tea.KeyLeft:
		return input.Key{Type: input.KeyLeft}, true
	case msg.Type == tea.KeyRight:
		return input.Key{Type: input.KeyRight}, true
	case msg.Type == tea.KeyEsc:
		return input.Key{Type: input.KeyEsc}, true
	case msg.Type == tea.KeyCtrlT:
		return input.Key{Type: input.KeyToggle}, true
	}

	if mode == input.ModeEdit {
		switch msg.Type {
		case tea.KeyRunes:
			return input.Key{Type: input.KeyRunes, Runes: msg.Runes}, true
		case tea.KeySpace:
			return input.Runes(" "), true
		}
		return input.Key{}, false
	}

	switch {
	case key.Matches(msg, km.Up):
		return input.Key{Type: input.KeyUp}, true
	case key.Matches(msg, km.Down):
		return input.Key{Type: input.KeyDown}, true
	case key.Matches(msg, km.Toggle):
		return input.Key{Type: input.KeyToggle}, true
	}
	return input.Key{}, false
}
