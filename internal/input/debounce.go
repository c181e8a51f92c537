package input

import (
	"sort"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before buffered keystrokes are saved.
const DefaultDebounce = 750 * time.Millisecond

// Timer is the part of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

// AfterFunc starts a timer that calls f once d has elapsed.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Debouncer runs at most one pending task per key, after the key has been quiet for the delay.
// Scheduling a key again restarts its delay and replaces its task.
type Debouncer struct {
	delay time.Duration
	after AfterFunc

	mu      sync.Mutex
	gen     uint64
	pending map[string]*debounced
}

type debounced struct {
	timer Timer
	gen   uint64
	fn    func()
}

func NewDebouncer(delay time.Duration, after AfterFunc) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if after == nil {
		after = realAfterFunc
	}
	return &Debouncer{delay: delay, after: after, pending: map[string]*debounced{}}
}

func (d *Debouncer) Schedule(key string, fn func()) {
	if d == nil || fn == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}
	d.gen++
	gen := d.gen
	p := &debounced{gen: gen, fn: fn}
	p.timer = d.after(d.delay, func() { d.fire(key, gen) })
	d.pending[key] = p
}

// fire runs on the timer goroutine. A timer that lost the race with Schedule or Cancel finds a
// newer generation (or nothing) under its key and does nothing.
func (d *Debouncer) fire(key string, gen uint64) {
	d.mu.Lock()
	p, ok := d.pending[key]
	if !ok || p.gen != gen {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()
	p.fn()
}

// Cancel drops the pending task for key. It reports whether one was pending.
func (d *Debouncer) Cancel(key string) bool {
	if d == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pending[key]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(d.pending, key)
	return true
}

// Flush runs the pending task for key now, on the caller's goroutine.
func (d *Debouncer) Flush(key string) bool {
	if d == nil {
		return false
	}
	d.mu.Lock()
	p, ok := d.pending[key]
	if ok {
		p.timer.Stop()
		delete(d.pending, key)
	}
	d.mu.Unlock()
	if ok {
		p.fn()
	}
	return ok
}

// CancelAll drops every pending task and returns their keys.
func (d *Debouncer) CancelAll() []string {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := make([]string, 0, len(d.pending))
	for key, p := range d.pending {
		p.timer.Stop()
		keys = append(keys, key)
		delete(d.pending, key)
	}
	sort.Strings(keys)
	return keys
}

// Rekey moves a pending task to newKey and restarts its delay. A task already pending under newKey
// is newer and wins.
func (d *Debouncer) Rekey(oldKey, newKey string) {
	if d == nil || oldKey == newKey {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pending[oldKey]
	if !ok {
		return
	}
	p.timer.Stop()
	delete(d.pending, oldKey)
	if _, ok := d.pending[newKey]; ok {
		return
	}
	gen := p.gen
	p.timer = d.after(d.delay, func() { d.fire(newKey, gen) })
	d.pending[newKey] = p
}

func (d *Debouncer) Pending(key string) bool {
	if d == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}
