package blockwrite

import (
	"errors"
	"fmt"
)

// ErrNotRewindable matches every error returned by a rejected operation.
var ErrNotRewindable = errors.New("IO adapter is non-rewindable")

// UnsupportedOperationError is returned by Seek, SetPosition and Stringify.
type UnsupportedOperationError struct {
	Op string
}

func unsupported(op string) error {
	return &UnsupportedOperationError{Op: op}
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s not supported - this IO adapter is non-rewindable", e.Op)
}

// Is reports a match against ErrNotRewindable and errors.ErrUnsupported.
func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrNotRewindable || target == errors.ErrUnsupported
}
