package runtime

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrUnsupported = errors.New("unsupported by runtime")

// Error wraps a failed runtime call with the unit and operation it was for.
type Error struct {
	Service string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("runtime %s %q: %v", e.Op, e.Service, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Wrap(service, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Service: service, Op: op, Err: err}
}
