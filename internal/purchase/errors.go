package purchase

import (
	"errors"
	"fmt"
)

// Error is an expected validation or precondition failure. It aborts
// the workflow cleanly with no persisted changes. Anything that is not
// an *Error is unexpected and must be propagated unchanged.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

// Errorf builds a domain error with a formatted message.
func Errorf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// IsDomain reports whether err is an expected workflow failure.
func IsDomain(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}
