package warehouse

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrorKindConfig       ErrorKind = "config"
	ErrorKindConnectivity ErrorKind = "connectivity"
	ErrorKindQuery        ErrorKind = "query"
	ErrorKindInvalidInput ErrorKind = "invalid_input"
)

// Error classifies a failure raised while serving a warehouse operation.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of err, defaulting to ErrorKindQuery for unclassified failures.
func KindOf(err error) ErrorKind {
	var werr *Error
	if errors.As(err, &werr) {
		return werr.Kind
	}
	return ErrorKindQuery
}

// Message returns the text reported to callers. Operation prefixes are kept out so the message
// is the underlying driver text.
func Message(err error) string {
	var werr *Error
	if errors.As(err, &werr) {
		return werr.Err.Error()
	}
	return err.Error()
}
