package retry

import (
	"errors"
	"fmt"
)

// RetriableError marks a failure as transient and eligible for the backoff
// retry loop. Stage implementations decide retriability where the operation
// is defined by wrapping the cause with Retriable.
type RetriableError struct {
	err error
}

// Retriable wraps err as a retriable failure. A nil err returns nil.
func Retriable(err error) error {
	if err == nil {
		return nil
	}
	return &RetriableError{err: err}
}

func (e *RetriableError) Error() string {
	return fmt.Sprintf("retriable: %v", e.err)
}

func (e *RetriableError) Unwrap() error {
	return e.err
}

// IsRetriable reports whether any error in err's chain is retriable.
func IsRetriable(err error) bool {
	var re *RetriableError
	return errors.As(err, &re)
}

// FatalError wraps a failure that must terminate processing of the current
// record or task: either the error fell outside the stage's tolerable
// category, or the tolerance policy was exceeded.
type FatalError struct {
	Msg string
	Err error
}

func (e *FatalError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether any error in err's chain is a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
