package iofilters

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andriiyaremenko/iofilters/internal"
)

var _ Filter[ChildExit] = new(ChildProcess)

// ChildProcess is a filter which runs a command as a child process with its
// standard input and output rewired to the filter's endpoints.
type ChildProcess struct {
	cmd     *exec.Cmd
	cfg     config
	started atomic.Bool
}

// Returns a new *ChildProcess for the given command. Do not set Stdin or
// Stdout on the command; the filter overwrites both when it starts.
func NewChildProcess(cmd *exec.Cmd, opts ...Option) *ChildProcess {
	return &ChildProcess{cmd: cmd, cfg: newConfig(opts)}
}

func (p *ChildProcess) Start(input ReadStream, output WriteStream) (Running[ChildExit], error) {
	if !p.started.CompareAndSwap(false, true) {
		return nil, ErrFilterStarted
	}

	log := p.cfg.log.With(
		zap.String("filter", "child_process"),
		zap.String("filter_id", uuid.NewString()),
		zap.String("path", p.cmd.Path),
	)

	var (
		childEnds       []*os.File // parent copies of descriptors the child inherits
		inPipe, outPipe *os.File
		inBridge        chan error
		outBridge       chan error
	)

	// Closing every created pipe end unblocks any bridge goroutine stuck in
	// pipe I/O; results go to buffered channels so the goroutines always
	// finish on their own.
	fail := func(err error) (Running[ChildExit], error) {
		for _, f := range childEnds {
			_ = f.Close()
		}

		if inPipe != nil {
			_ = inPipe.Close()
		}

		if outPipe != nil {
			_ = outPipe.Close()
		}

		return nil, err
	}

	switch input.kind {
	case streamNull:
		p.cmd.Stdin = nil
	case streamFile:
		p.cmd.Stdin = input.file
		childEnds = append(childEnds, input.file)
	case streamPipe:
		r, w, err := os.Pipe()
		if err != nil {
			return fail(err)
		}

		p.cmd.Stdin = r
		childEnds = append(childEnds, r)
		inPipe = w
	case streamInProc:
		r, w, err := os.Pipe()
		if err != nil {
			return fail(err)
		}

		p.cmd.Stdin = r
		childEnds = append(childEnds, r)

		inBridge = make(chan error, 1)
		p.runBridge(inBridge, func() error {
			_, copyErr := io.Copy(w, input.r)
			if closeErr := w.Close(); copyErr == nil {
				copyErr = closeErr
			}

			return copyErr
		})
	}

	switch output.kind {
	case streamNull:
		p.cmd.Stdout = nil
	case streamFile:
		p.cmd.Stdout = output.file
		childEnds = append(childEnds, output.file)
	case streamPipe:
		r, w, err := os.Pipe()
		if err != nil {
			return fail(err)
		}

		p.cmd.Stdout = w
		childEnds = append(childEnds, w)
		outPipe = r
	case streamInProc:
		r, w, err := os.Pipe()
		if err != nil {
			return fail(err)
		}

		p.cmd.Stdout = w
		childEnds = append(childEnds, w)

		outBridge = make(chan error, 1)
		p.runBridge(outBridge, func() error {
			_, copyErr := io.Copy(output.w, r)
			if closeErr := r.Close(); copyErr == nil {
				copyErr = closeErr
			}

			return copyErr
		})
	}

	if err := p.cmd.Start(); err != nil {
		return fail(err)
	}

	// The child holds its own copies now.
	for _, f := range childEnds {
		_ = f.Close()
	}

	log.Debug("child process started", zap.Int("pid", p.cmd.Process.Pid))

	return &runningChild{
		pipeEnds:  pipeEnds{in: inPipe, out: outPipe},
		cmd:       p.cmd,
		inBridge:  inBridge,
		outBridge: outBridge,
		log:       log,
	}, nil
}

func (p *ChildProcess) runBridge(done chan<- error, copy func() error) {
	go func() {
		var err error

		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Filter: internal.InstanceTypeName(p), Value: r}
			}

			done <- err
		}()

		err = copy()
	}()
}

// runningChild is a running child process.
type runningChild struct {
	pipeEnds

	cmd       *exec.Cmd
	inBridge  chan error
	outBridge chan error
	log       *zap.Logger

	once sync.Once
	exit ChildExit
}

// Wait joins the bridge goroutines, then waits on the child itself. The
// returned error is ChildExit.Combine of the collected outcomes.
func (r *runningChild) Wait() (ChildExit, error) {
	r.once.Do(func() {
		var exit ChildExit

		if r.inBridge != nil {
			exit.InputBridged = true
			exit.InputErr = <-r.inBridge
		}

		if r.outBridge != nil {
			exit.OutputBridged = true
			exit.OutputErr = <-r.outBridge
		}

		err := r.cmd.Wait()

		var exitErr *exec.ExitError
		switch {
		case err == nil:
			exit.State = r.cmd.ProcessState
		case errors.As(err, &exitErr):
			exit.State = exitErr.ProcessState
		default:
			exit.WaitErr = err
		}

		r.log.Debug("child process finished",
			zap.Stringer("state", exit.State),
			zap.Error(exit.Combine()),
		)

		r.exit = exit
	})

	return r.exit, r.exit.Combine()
}
