package scope

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedLeaf reports a value that is neither a style leaf nor a node.
	ErrMalformedLeaf = errors.New("malformed leaf")
	// ErrConflictingDefault reports a node whose own path is styled by both
	// its _default and one of its entries.
	ErrConflictingDefault = errors.New("conflicting default")
)

// Error is a structural error found while compiling a tree. Path is the
// resolved path of the node holding Key.
type Error struct {
	Path   string
	Key    string
	Kind   error
	Detail string
}

func (e *Error) Error() string {
	where := fmt.Sprintf("key %q", e.Key)
	if e.Path != "" {
		where = fmt.Sprintf("%s under %q", where, e.Path)
	}
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", where, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", where, e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Kind
}
