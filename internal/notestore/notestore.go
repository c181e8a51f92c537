package notestore

import (
	"strings"
	"sync"

	"outliner-cli/internal/model"
	"outliner-cli/internal/order"

	"github.com/sirupsen/logrus"
)

// Store holds every note of the loaded page. It is the single in-memory source of truth; the
// editor is its only writer.
type Store struct {
	mu      sync.RWMutex
	pageID  string
	notes   map[string]model.Note
	aliases map[string]string // provisional id -> server id

	log *logrus.Entry
}

func New(log *logrus.Entry) *Store {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Store{
		notes:   map[string]model.Note{},
		aliases: map[string]string{},
		log:     log.WithField("component", "notestore"),
	}
}

func (s *Store) PageID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pageID
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notes)
}

// ReplaceAll swaps in a freshly loaded page. Aliases from the previous page are dropped.
func (s *Store) ReplaceAll(pageID string, notes []model.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageID = strings.TrimSpace(pageID)
	s.notes = make(map[string]model.Note, len(notes))
	s.aliases = map[string]string{}
	for _, n := range notes {
		if strings.TrimSpace(n.PageID) != s.pageID {
			s.log.WithFields(logrus.Fields{"note": n.ID, "page": n.PageID}).Warn("dropping note from another page")
			continue
		}
		s.notes[n.ID] = n.Clone()
	}
}

func (s *Store) Find(id string) (model.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[s.resolveLocked(id)]
	if !ok {
		return model.Note{}, false
	}
	return n.Clone(), true
}

// Resolve follows provisional-id aliases recorded by Rename.
func (s *Store) Resolve(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveLocked(id)
}

func (s *Store) resolveLocked(id string) string {
	id = strings.TrimSpace(id)
	for i := 0; i < 8; i++ {
		next, ok := s.aliases[id]
		if !ok {
			return id
		}
		id = next
	}
	return id
}

// ChildrenOf returns the sibling group under parentID ("" for roots), sorted for display.
func (s *Store) ChildrenOf(parentID string) []model.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.childrenLocked(s.resolveLocked(parentID))
}

func (s *Store) childrenLocked(parentID string) []model.Note {
	out := []model.Note{}
	for _, n := range s.notes {
		if n.Parent() == parentID {
			out = append(out, n.Clone())
		}
	}
	order.SortSiblings(out)
	return out
}

func (s *Store) Add(n model.Note) bool {
	ok := false
	s.Batch(func(tx *Tx) { ok = tx.Add(n) })
	return ok
}

func (s *Store) Remove(id string) bool {
	ok := false
	s.Batch(func(tx *Tx) { ok = tx.Remove(id) })
	return ok
}

func (s *Store) Update(id string, p model.NotePatch) bool {
	ok := false
	s.Batch(func(tx *Tx) { ok = tx.Update(id, p) })
	return ok
}

// Reconcile copies server-canonical fields (id, timestamps) onto the local note.
func (s *Store) Reconcile(localID string, server model.Note) bool {
	ok := false
	s.Batch(func(tx *Tx) { ok = tx.Reconcile(localID, server) })
	return ok
}

func (s *Store) ApplyOrder(ups []model.OrderUpdate) {
	s.Batch(func(tx *Tx) { tx.ApplyOrder(ups) })
}

// Batch runs fn under the write lock so a multi-note change is observed all at once.
func (s *Store) Batch(fn func(tx *Tx)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&Tx{s: s})
}

// Tx mutates the store inside Batch. It must not escape fn.
type Tx struct {
	s *Store
}

func (tx *Tx) warn(op, id string, msg string) {
	tx.s.log.WithFields(logrus.Fields{"op": op, "note": id}).Warn(msg)
}

func (tx *Tx) Find(id string) (model.Note, bool) {
	n, ok := tx.s.notes[tx.s.resolveLocked(id)]
	return n.Clone(), ok
}

func (tx *Tx) ChildrenOf(parentID string) []model.Note {
	return tx.s.childrenLocked(tx.s.resolveLocked(parentID))
}

func (tx *Tx) Add(n model.Note) bool {
	n = n.Clone()
	if strings.TrimSpace(n.ID) == "" {
		tx.warn("add", n.ID, "note without id ignored")
		return false
	}
	if tx.s.pageID == "" {
		tx.s.pageID = strings.TrimSpace(n.PageID)
	}
	if strings.TrimSpace(n.PageID) != tx.s.pageID {
		tx.warn("add", n.ID, "note belongs to another page")
		return false
	}
	if _, exists := tx.s.notes[n.ID]; exists {
		tx.warn("add", n.ID, "note already present")
		return false
	}
	if pid := n.Parent(); pid != "" {
		pid = tx.s.resolveLocked(pid)
		if _, ok := tx.s.notes[pid]; !ok {
			tx.warn("add", n.ID, "parent not in store")
			return false
		}
		n.ParentID = &pid
	}
	tx.s.notes[n.ID] = n
	return true
}

func (tx *Tx) Remove(id string) bool {
	id = tx.s.resolveLocked(id)
	if _, ok := tx.s.notes[id]; !ok {
		tx.warn("remove", id, "note not found")
		return false
	}
	delete(tx.s.notes, id)
	return true
}

func (tx *Tx) Update(id string, p model.NotePatch) bool {
	id = tx.s.resolveLocked(id)
	n, ok := tx.s.notes[id]
	if !ok {
		tx.warn("update", id, "note not found")
		return false
	}
	if p.SetParent && p.ParentID != nil {
		pid := tx.s.resolveLocked(*p.ParentID)
		if _, ok := tx.s.notes[pid]; !ok || pid == id {
			tx.warn("update", id, "parent not in store")
			return false
		}
		p.ParentID = &pid
	}
	tx.s.notes[id] = p.Apply(n)
	return true
}

func (tx *Tx) ApplyOrder(ups []model.OrderUpdate) {
	for _, u := range ups {
		id := tx.s.resolveLocked(u.ID)
		n, ok := tx.s.notes[id]
		if !ok {
			tx.warn("order", u.ID, "note not found")
			continue
		}
		n.OrderIndex = u.OrderIndex
		tx.s.notes[id] = n
	}
}

func (tx *Tx) Reconcile(localID string, server model.Note) bool {
	localID = tx.s.resolveLocked(localID)
	n, ok := tx.s.notes[localID]
	if !ok {
		tx.warn("reconcile", localID, "note not found")
		return false
	}
	newID := strings.TrimSpace(server.ID)
	if newID != "" && newID != localID {
		tx.rename(localID, newID)
		n.ID = newID
	}
	if !server.CreatedAt.IsZero() {
		n.CreatedAt = server.CreatedAt
	}
	if !server.UpdatedAt.IsZero() {
		n.UpdatedAt = server.UpdatedAt
	}
	tx.s.notes[n.ID] = n
	return true
}

// rename moves a note to a new key and repoints children. An alias keeps the old id resolvable
// for anyone (focus, queued operations) still holding it.
func (tx *Tx) rename(oldID, newID string) {
	n := tx.s.notes[oldID]
	delete(tx.s.notes, oldID)
	n.ID = newID
	tx.s.notes[newID] = n
	for id, c := range tx.s.notes {
		if c.Parent() == oldID {
			pid := newID
			c.ParentID = &pid
			tx.s.notes[id] = c
		}
	}
	tx.s.aliases[oldID] = newID
}

// Pick returns copies of the named notes that exist, in argument order.
func (s *Store) Pick(ids ...string) []model.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Note, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.notes[s.resolveLocked(id)]; ok {
			out = append(out, n.Clone())
		}
	}
	return out
}

// RevertStructure moves notes from their after placement back to their before placement (parent,
// order index and collapsed flag). Content is never touched. A note that has been moved again since
// is left where it is; a note removed since stays removed. It reports whether every surviving note
// could be reverted and the tree still passes Check.
func (s *Store) RevertStructure(before, after []model.Note) bool {
	at := make(map[string]model.Note, len(after))
	for _, n := range after {
		at[n.ID] = n
	}

	clean := true
	s.mu.Lock()
	for _, b := range before {
		id := s.resolveLocked(b.ID)
		cur, ok := s.notes[id]
		if !ok {
			continue
		}
		want, ok := at[b.ID]
		if !ok || s.resolveLocked(cur.Parent()) != s.resolveLocked(want.Parent()) || cur.OrderIndex != want.OrderIndex {
			clean = false
			continue
		}
		cur.ParentID = model.ParentRef(s.resolveLocked(b.Parent()))
		cur.OrderIndex = b.OrderIndex
		if cur.Collapsed == want.Collapsed {
			cur.Collapsed = b.Collapsed
		}
		s.notes[id] = cur
	}
	s.mu.Unlock()

	if !clean {
		s.log.Warn("notes moved again before the revert")
		return false
	}
	if issues := s.Check(); HasErrors(issues) {
		s.log.WithField("issues", len(issues)).Warn("reverted structure is inconsistent")
		return false
	}
	return true
}
