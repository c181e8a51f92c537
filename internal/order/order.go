package order

import (
	"sort"
	"strings"

	"outliner-cli/internal/model"

	"github.com/sirupsen/logrus"
)

// Placement describes where a note lands in a sibling group and which siblings must be renumbered
// to keep order indexes unique. Updates includes only notes whose index changes.
type Placement struct {
	OrderIndex int
	Updates    []model.OrderUpdate

	// Anomaly is set when the requested neighbors could not be honored and the note was appended
	// after the last sibling instead.
	Anomaly *Anomaly
}

func (p Placement) Fallback() bool { return p.Anomaly != nil }

// SortSiblings sorts notes in place by order index, then CreatedAt, then ID. The tie-breaks keep
// the ordering deterministic when a sibling group carries duplicate indexes.
func SortSiblings(notes []model.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		return compareNotes(notes[i], notes[j]) < 0
	})
}

func compareNotes(a, b model.Note) int {
	if a.OrderIndex != b.OrderIndex {
		if a.OrderIndex < b.OrderIndex {
			return -1
		}
		return 1
	}
	if a.CreatedAt.Before(b.CreatedAt) {
		return -1
	}
	if a.CreatedAt.After(b.CreatedAt) {
		return 1
	}
	if a.ID < b.ID {
		return -1
	}
	if a.ID > b.ID {
		return 1
	}
	return 0
}

// Place computes the order index for a note inserted between prevID and nextID (either may be
// empty) within siblings. It never mutates siblings.
//
//   - no prev: head insert at 0; every existing sibling shifts +1 when there is something after.
//   - no next: tail insert at prev+1. If prev is not the last sibling its successor is used as next.
//   - gap > 1: prev+1, nothing else moves.
//   - gap == 1: prev+1, every sibling from next onward shifts +1.
//
// A prev/next ID that is not part of siblings yields a *ValidationError.
func Place(siblings []model.Note, prevID, nextID string) (Placement, error) {
	prevID = strings.TrimSpace(prevID)
	nextID = strings.TrimSpace(nextID)

	sorted := append([]model.Note(nil), siblings...)
	SortSiblings(sorted)

	prevIdx := indexOf(sorted, prevID)
	if prevID != "" && prevIdx < 0 {
		return Placement{}, &ValidationError{Role: "previous", ID: prevID}
	}
	nextIdx := indexOf(sorted, nextID)
	if nextID != "" && nextIdx < 0 {
		return Placement{}, &ValidationError{Role: "next", ID: nextID}
	}

	if prevID == "" {
		if len(sorted) == 0 {
			return Placement{OrderIndex: 0}, nil
		}
		return Placement{OrderIndex: 0, Updates: shiftRange(sorted, 0)}, nil
	}

	prev := sorted[prevIdx]
	if nextID == "" {
		if prevIdx == len(sorted)-1 {
			return Placement{OrderIndex: prev.OrderIndex + 1}, nil
		}
		nextIdx = prevIdx + 1
	}

	if nextIdx != prevIdx+1 {
		return fallback(sorted, &Anomaly{PrevID: prevID, NextID: nextID, Reason: "next is not the immediate successor of previous"}), nil
	}
	next := sorted[nextIdx]
	gap := next.OrderIndex - prev.OrderIndex
	switch {
	case gap > 1:
		return Placement{OrderIndex: prev.OrderIndex + 1}, nil
	case gap == 1:
		return Placement{OrderIndex: prev.OrderIndex + 1, Updates: shiftRange(sorted, nextIdx)}, nil
	default:
		return fallback(sorted, &Anomaly{PrevID: prevID, NextID: next.ID, Reason: "previous and next share an order index"}), nil
	}
}

// ShiftFrom returns +1 updates for every sibling whose index is >= from, preserving relative order.
func ShiftFrom(siblings []model.Note, from int) []model.OrderUpdate {
	sorted := append([]model.Note(nil), siblings...)
	SortSiblings(sorted)
	for i := range sorted {
		if sorted[i].OrderIndex >= from {
			return shiftRange(sorted, i)
		}
	}
	return nil
}

// Tail returns the index right after the last sibling, or 0 for an empty group.
func Tail(siblings []model.Note) int {
	max := -1
	for _, n := range siblings {
		if n.OrderIndex > max {
			max = n.OrderIndex
		}
	}
	return max + 1
}

// shiftRange shifts sorted[from:] by +1. Each index is bumped past its (already bumped)
// predecessor so duplicate indexes in the tail are repaired on the way.
func shiftRange(sorted []model.Note, from int) []model.OrderUpdate {
	if from >= len(sorted) {
		return nil
	}
	out := make([]model.OrderUpdate, 0, len(sorted)-from)
	floor := -1
	for i := from; i < len(sorted); i++ {
		idx := sorted[i].OrderIndex + 1
		if idx <= floor {
			idx = floor + 1
		}
		floor = idx
		out = append(out, model.OrderUpdate{ID: sorted[i].ID, OrderIndex: idx})
	}
	return out
}

func fallback(sorted []model.Note, a *Anomaly) Placement {
	return Placement{OrderIndex: Tail(sorted), Anomaly: a}
}

func indexOf(sorted []model.Note, id string) int {
	if id == "" {
		return -1
	}
	for i := range sorted {
		if strings.TrimSpace(sorted[i].ID) == id {
			return i
		}
	}
	return -1
}

// Calculator wraps Place and reports fallbacks to a logger.
type Calculator struct {
	Log *logrus.Entry
}

func (c Calculator) Place(siblings []model.Note, prevID, nextID string) (Placement, error) {
	p, err := Place(siblings, prevID, nextID)
	if err != nil {
		return p, err
	}
	if p.Anomaly != nil && c.Log != nil {
		c.Log.WithFields(logrus.Fields{
			"prev":   p.Anomaly.PrevID,
			"next":   p.Anomaly.NextID,
			"reason": p.Anomaly.Reason,
			"order":  p.OrderIndex,
		}).Warn("order index anomaly; appended after last sibling")
	}
	return p, nil
}
