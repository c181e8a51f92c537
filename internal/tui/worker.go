package tui

import (
	"context"
	"sync"

	"outliner-cli/internal/editor"

	tea "github.com/charmbracelet/bubbletea"
)

type job struct {
	ctx  context.Context
	op   *editor.Op
	done func(editor.Outcome)
}

// opDoneMsg carries a job whose gateway calls have finished back to the event loop for Settle.
type opDoneMsg struct{ job job }

// postMsg runs fn on the event loop; debounce timers use it.
type postMsg struct{ fn func() }

// worker runs gateway calls one at a time in submission order, so requests reach the server in
// the order the user made them.
type worker struct {
	send func(tea.Msg)

	mu    sync.Mutex
	queue []job
	wake  chan struct{}
	stop  chan struct{}
	once  sync.Once
}

func newWorker(send func(tea.Msg)) *worker {
	return &worker{
		send: send,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
}

func (w *worker) enqueue(j job) {
	w.mu.Lock()
	w.queue = append(w.queue, j)
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *worker) next() (job, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return job{}, false
	}
	j := w.queue[0]
	w.queue = w.queue[1:]
	return j, true
}

func (w *worker) run() {
	for {
		j, ok := w.next()
		if !ok {
			select {
			case <-w.wake:
				continue
			case <-w.stop:
				return
			}
		}
		j.op.Run(j.ctx)
		w.send(opDoneMsg{job: j})
	}
}

func (w *worker) close() {
	w.once.Do(func() { close(w.stop) })
}
