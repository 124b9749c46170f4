package iofilters

import (
	"errors"
	"fmt"
	"os"
)

var (
	_ error = new(ExitError)
	_ error = new(PanicError)
)

// error returned if Start is called on an already consumed Filter.
var ErrFilterStarted = errors.New("filter already started")

// PanicError is returned if a filter's background goroutine panicked, meaning
// an input or output stream implementation or a user handler failed
// catastrophically instead of returning a result.
type PanicError struct {
	Filter string
	Value  any
}

// Implementation of error.
func (err *PanicError) Error() string {
	return fmt.Sprintf("%s copy goroutine panicked: %v", err.Filter, err.Value)
}

// ExitKind identifies which part of a process-backed filter failed.
type ExitKind uint8

const (
	// Waiting on the child process itself failed.
	ExitWait ExitKind = iota
	// The child process exited unsuccessfully.
	ExitStatus
	// The goroutine bridging the input stream to the child failed.
	ExitInputBridge
	// The goroutine bridging the child to the output stream failed.
	ExitOutputBridge
)

// ExitError is a single failure of a process-backed filter. Independent
// failures that occurred alongside it are linked through Next, so rendering
// the head of a chain enumerates every underlying cause.
type ExitError struct {
	Kind  ExitKind
	Err   error
	State *os.ProcessState
	Next  *ExitError
}

// Implementation of error.
func (err *ExitError) Error() string {
	msg := err.message()
	if err.Next != nil {
		return msg + "\n   and also " + err.Next.Error()
	}

	return msg
}

// Returns the underlying error and the next link of the chain.
func (err *ExitError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if err.Err != nil {
		errs = append(errs, err.Err)
	}

	if err.Next != nil {
		errs = append(errs, err.Next)
	}

	return errs
}

func (err *ExitError) message() string {
	switch err.Kind {
	case ExitStatus:
		return fmt.Sprintf("child exited unsuccessfully: %s", err.State)
	case ExitInputBridge:
		return fmt.Sprintf("input copy goroutine failed: %s", err.Err)
	case ExitOutputBridge:
		return fmt.Sprintf("output copy goroutine failed: %s", err.Err)
	default:
		return fmt.Sprintf("failed to wait on child process: %s", err.Err)
	}
}
