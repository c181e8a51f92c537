package render

import (
	"fmt"
	"sync"

	"outliner-cli/internal/model"
)

type Call struct {
	Method   string
	ID       string
	Level    int
	BeforeID string
}

func (c Call) String() string {
	switch c.Method {
	case "add", "move":
		return fmt.Sprintf("%s %s level=%d before=%q", c.Method, c.ID, c.Level, c.BeforeID)
	default:
		return c.Method + " " + c.ID
	}
}

// Recorder keeps every call and tracks levels and edit mode so tests can assert on what the user
// would see.
type Recorder struct {
	mu      sync.Mutex
	calls   []Call
	levels  map[string]int
	editing string
}

func NewRecorder() *Recorder {
	return &Recorder{levels: map[string]int{}}
}

func (r *Recorder) record(c Call) {
	r.calls = append(r.calls, c)
}

func (r *Recorder) AddNoteElement(n model.Note, level int, beforeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels[n.ID] = level
	r.record(Call{Method: "add", ID: n.ID, Level: level, BeforeID: beforeID})
}

func (r *Recorder) MoveNoteElement(n model.Note, level int, beforeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels[n.ID] = level
	r.record(Call{Method: "move", ID: n.ID, Level: level, BeforeID: beforeID})
}

func (r *Recorder) RemoveNoteElement(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.levels, id)
	if r.editing == id {
		r.editing = ""
	}
	r.record(Call{Method: "remove", ID: id})
}

func (r *Recorder) SwitchToEditMode(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.editing = id
	r.record(Call{Method: "edit", ID: id})
}

func (r *Recorder) SwitchToRenderedMode(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.editing == id {
		r.editing = ""
	}
	r.record(Call{Method: "rendered", ID: id})
}

func (r *Recorder) NestingLevel(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.levels[id]; ok {
		return l
	}
	return -1
}

func (r *Recorder) Rebuild(notes []model.Note) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels = map[string]int{}
	byID := make(map[string]model.Note, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
	}
	for _, n := range notes {
		depth := 0
		cur := n
		for i := 0; i <= len(notes) && cur.Parent() != ""; i++ {
			p, ok := byID[cur.Parent()]
			if !ok {
				break
			}
			depth++
			cur = p
		}
		r.levels[n.ID] = depth
	}
	r.record(Call{Method: "rebuild", Level: len(notes)})
}

func (r *Recorder) RenameNoteElement(oldID, newID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.levels[oldID]; ok {
		delete(r.levels, oldID)
		r.levels[newID] = l
	}
	if r.editing == oldID {
		r.editing = newID
	}
	r.record(Call{Method: "rename", ID: newID, BeforeID: oldID})
}

// Editing returns the id of the note currently in edit mode, or "".
func (r *Recorder) Editing() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.editing
}

func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Methods returns the method names of the recorded calls, in order.
func (r *Recorder) Methods() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.Method)
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

var (
	_ Renderer = Nop{}
	_ Renderer = (*Recorder)(nil)
	_ Renamer  = (*Recorder)(nil)
)
