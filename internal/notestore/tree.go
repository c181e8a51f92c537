package notestore

import (
	"fmt"
	"sort"

	"outliner-cli/internal/model"
	"outliner-cli/internal/order"
)

// Row is one note in document order together with its nesting depth.
type Row struct {
	Note        model.Note
	Depth       int
	HasChildren bool
}

// DocumentOrder returns every note, depth first, siblings in order.
func (s *Store) DocumentOrder() []model.Note {
	rows := s.flatten(false)
	out := make([]model.Note, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Note)
	}
	return out
}

func (s *Store) DocumentRows() []Row {
	return s.flatten(false)
}

// VisibleRows is DocumentOrder without the descendants of collapsed notes.
func (s *Store) VisibleRows() []Row {
	return s.flatten(true)
}

func (s *Store) VisibleOrder() []model.Note {
	rows := s.flatten(true)
	out := make([]model.Note, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Note)
	}
	return out
}

func (s *Store) flatten(skipCollapsed bool) []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()

	children := map[string][]model.Note{}
	var roots []model.Note
	for _, n := range s.notes {
		pid := n.Parent()
		if pid == "" {
			roots = append(roots, n.Clone())
			continue
		}
		// A note whose parent is missing is shown as a root instead of vanishing with its subtree.
		if _, ok := s.notes[pid]; !ok {
			roots = append(roots, n.Clone())
			continue
		}
		children[pid] = append(children[pid], n.Clone())
	}
	order.SortSiblings(roots)
	for pid := range children {
		order.SortSiblings(children[pid])
	}

	out := make([]Row, 0, len(s.notes))
	seen := map[string]bool{}
	var walk func(n model.Note, depth int)
	walk = func(n model.Note, depth int) {
		if seen[n.ID] {
			return
		}
		seen[n.ID] = true
		out = append(out, Row{Note: n, Depth: depth, HasChildren: len(children[n.ID]) > 0})
		if skipCollapsed && n.Collapsed {
			return
		}
		for _, c := range children[n.ID] {
			walk(c, depth+1)
		}
	}
	for _, r := range roots {
		walk(r, 0)
	}
	return out
}

// Depth returns the nesting level of id (0 for roots), or -1 when id is unknown.
func (s *Store) Depth(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id = s.resolveLocked(id)
	n, ok := s.notes[id]
	if !ok {
		return -1
	}
	depth := 0
	for guard := 0; guard <= len(s.notes); guard++ {
		pid := n.Parent()
		if pid == "" {
			return depth
		}
		p, ok := s.notes[pid]
		if !ok {
			return depth
		}
		depth++
		n = p
	}
	return depth
}

// Siblings returns the group id belongs to (including id itself), sorted.
func (s *Store) Siblings(id string) []model.Note {
	n, ok := s.Find(id)
	if !ok {
		return nil
	}
	return s.ChildrenOf(n.Parent())
}

// PrevSibling returns the sibling displayed right before id.
func (s *Store) PrevSibling(id string) (model.Note, bool) {
	id = s.Resolve(id)
	sibs := s.Siblings(id)
	for i := range sibs {
		if sibs[i].ID == id {
			if i == 0 {
				return model.Note{}, false
			}
			return sibs[i-1], true
		}
	}
	return model.Note{}, false
}

// NextSibling returns the sibling displayed right after id.
func (s *Store) NextSibling(id string) (model.Note, bool) {
	id = s.Resolve(id)
	sibs := s.Siblings(id)
	for i := range sibs {
		if sibs[i].ID == id {
			if i+1 >= len(sibs) {
				return model.Note{}, false
			}
			return sibs[i+1], true
		}
	}
	return model.Note{}, false
}

func (s *Store) HasChildren(id string) bool {
	return len(s.ChildrenOf(id)) > 0
}

type IssueLevel string

const (
	IssueLevelError IssueLevel = "error"
	IssueLevelWarn  IssueLevel = "warn"
)

type Issue struct {
	Level   IssueLevel `json:"level"`
	Code    string     `json:"code"`
	Message string     `json:"message"`
	NoteID  string     `json:"noteId,omitempty"`
}

// Check verifies the tree invariants: every parent exists, parent links are acyclic, and order
// indexes are unique within each sibling group.
func (s *Store) Check() []Issue {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var issues []Issue
	ids := make([]string, 0, len(s.notes))
	for id := range s.notes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	groups := map[string]map[int]string{}
	for _, id := range ids {
		n := s.notes[id]
		if n.OrderIndex < 0 {
			issues = append(issues, Issue{Level: IssueLevelError, Code: "negative_order", NoteID: id,
				Message: fmt.Sprintf("order index %d is negative", n.OrderIndex)})
		}
		pid := n.Parent()
		if pid != "" {
			if _, ok := s.notes[pid]; !ok {
				issues = append(issues, Issue{Level: IssueLevelError, Code: "missing_parent", NoteID: id,
					Message: "parent " + pid + " not found"})
			}
		}
		g := groups[pid]
		if g == nil {
			g = map[int]string{}
			groups[pid] = g
		}
		if other, dup := g[n.OrderIndex]; dup {
			issues = append(issues, Issue{Level: IssueLevelError, Code: "duplicate_order", NoteID: id,
				Message: fmt.Sprintf("order index %d shared with %s", n.OrderIndex, other)})
		} else {
			g[n.OrderIndex] = id
		}

		// Walk up; more hops than notes means a cycle.
		cur := n
		for hops := 0; ; hops++ {
			if hops > len(s.notes) {
				issues = append(issues, Issue{Level: IssueLevelError, Code: "cycle", NoteID: id,
					Message: "parent chain does not reach a root"})
				break
			}
			p, ok := s.notes[cur.Parent()]
			if cur.Parent() == "" || !ok {
				break
			}
			cur = p
		}
		if n.Provisional() {
			issues = append(issues, Issue{Level: IssueLevelWarn, Code: "provisional", NoteID: id,
				Message: "note has not been acknowledged by the server"})
		}
	}
	return issues
}

func HasErrors(issues []Issue) bool {
	for _, it := range issues {
		if it.Level == IssueLevelError {
			return true
		}
	}
	return false
}
