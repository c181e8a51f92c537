package cli

import "fmt"

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

// outcomeError reports an edit the server did not accept; the local outline was rolled back or
// reloaded.
type outcomeError struct {
	op     string
	status string
	err    error
}

func (e outcomeError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("%s: %s", e.op, e.status)
	}
	return fmt.Sprintf("%s: %s: %v", e.op, e.status, e.err)
}

func (e outcomeError) Unwrap() error { return e.err }

// noChangeError is returned when an edit had nothing to do, such as indenting a first child.
type noChangeError struct {
	op string
	id string
}

func (e noChangeError) Error() string {
	return fmt.Sprintf("%s %s: nothing to change", e.op, e.id)
}
