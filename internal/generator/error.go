package generator

import "fmt"

// Error attaches a contextual message to one of the sentinel errors of the domain package.
// The wrapped error remains reachable through errors.Is and errors.As.
type Error struct {
	error

	msg string
}

func Errorf(err error, msg string, args ...interface{}) error {
	return &Error{
		error: err,
		msg:   fmt.Sprintf("%v: %s", err, fmt.Sprintf(msg, args...)),
	}
}

func (err *Error) Error() string {
	return err.msg
}

func (err *Error) Unwrap() error {
	return err.error
}
