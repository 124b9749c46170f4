package iofilters

import (
	"os"

	"go.uber.org/multierr"
)

// ChildExit carries everything that can independently fail while running a
// ChildProcess: the child itself and the copy goroutine bridging each of the
// input and output, if either was required.
type ChildExit struct {
	// Exit state of the child, nil if waiting on it failed.
	State *os.ProcessState
	// Failure of the wait itself, not of the child.
	WaitErr error

	// Whether a bridging goroutine was created for the input, and its result.
	InputBridged bool
	InputErr     error

	// Whether a bridging goroutine was created for the output, and its result.
	OutputBridged bool
	OutputErr     error
}

// Combine folds the child exit and any bridge failures into one error.
// Failures are visited in fixed order: wait failure, unsuccessful exit, input
// bridge, output bridge. The first one present becomes the head of an
// ExitError chain with every other one linked through Next, so none is
// dropped. Returns nil if nothing failed.
func (e ChildExit) Combine() error {
	var chain *ExitError

	if e.OutputBridged && e.OutputErr != nil {
		chain = &ExitError{Kind: ExitOutputBridge, Err: e.OutputErr, Next: chain}
	}

	if e.InputBridged && e.InputErr != nil {
		chain = &ExitError{Kind: ExitInputBridge, Err: e.InputErr, Next: chain}
	}

	if e.State != nil && !e.State.Success() {
		chain = &ExitError{Kind: ExitStatus, State: e.State, Next: chain}
	}

	if e.WaitErr != nil {
		chain = &ExitError{Kind: ExitWait, Err: e.WaitErr, Next: chain}
	}

	if chain == nil {
		return nil
	}

	return chain
}

// TeeResult carries the outcome of a Tee run: the input reader's failure, if
// any, and one result slot per sink in registration order.
type TeeResult struct {
	Input error
	Sinks []error
}

// Err combines the reader outcome and every sink outcome into one error, nil
// if the whole run succeeded.
func (r TeeResult) Err() error {
	return multierr.Append(r.Input, multierr.Combine(r.Sinks...))
}
