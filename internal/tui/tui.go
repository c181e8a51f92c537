package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the interactive outliner on one page and blocks until the user quits.
func Run(ctx context.Context, opt Options) error {
	applyThemePreference()
	applyColorProfilePreference()
	applyGlyphPreference()

	m, err := newAppModel(ctx, opt)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	w := newWorker(p.Send)
	m.s.send = p.Send
	m.s.runJob = w.enqueue
	go w.run()
	defer w.close()

	_, err = p.Run()
	return err
}
