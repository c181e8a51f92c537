package order

import "fmt"

// ValidationError reports a neighbor reference that is not part of the sibling group. It means the
// caller worked from a stale view of the tree.
type ValidationError struct {
	Role string // "previous" or "next"
	ID   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("stale %s sibling reference: %s", e.Role, e.ID)
}

// Anomaly describes a placement that could not be computed from the requested neighbors.
type Anomaly struct {
	PrevID string
	NextID string
	Reason string
}

func (a *Anomaly) Error() string {
	return fmt.Sprintf("order anomaly between %q and %q: %s", a.PrevID, a.NextID, a.Reason)
}
