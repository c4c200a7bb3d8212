package parser

import "fmt"

// ErrParse indicates an expected document node is missing.
type ErrParse struct {
	Node string
}

func (e ErrParse) Error() string {
	return fmt.Sprintf("parse: node %q not found", e.Node)
}

// ErrValue indicates a field's raw text could not be converted to its typed form.
type ErrValue struct {
	Field string
	Raw   string
	Err   error
}

func (e ErrValue) Error() string {
	return fmt.Errorf("value: %s %q: %w", e.Field, e.Raw, e.Err).Error()
}

func (e ErrValue) Unwrap() error {
	return e.Err
}
