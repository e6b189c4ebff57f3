package visibility

import (
	"errors"
	"fmt"
)

// Argument errors. The command stops before any traversal when one occurs.
var (
	ErrNoCamera        = errors.New("no valid camera specified")
	ErrAmbiguousCamera = errors.New("ambiguous camera")
	ErrNotCamera       = errors.New("not a valid camera")
)

// ErrInvariant marks internal consistency failures; these always abort.
var ErrInvariant = errors.New("internal invariant violated")

// IsArgumentError reports whether err comes from resolving the camera argument.
func IsArgumentError(err error) bool {
	return errors.Is(err, ErrNoCamera) || errors.Is(err, ErrAmbiguousCamera) || errors.Is(err, ErrNotCamera)
}

// QueryError is a failed call into the host scene.
type QueryError struct {
	Op   string
	Path string
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s(%s): %v", e.Op, e.Path, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
