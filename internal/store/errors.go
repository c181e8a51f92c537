package store

import "fmt"

type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// InvalidError is returned when a write would break the page's tree (unknown parent, cycle,
// cross-page reference, negative order index).
type InvalidError struct {
	Reason string
}

func (e *InvalidError) Error() string {
	return "invalid: " + e.Reason
}
