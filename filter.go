package iofilters

import (
	"os"
	"sync"
)

// Filter is a not-yet-running unit of pipeline work.
type Filter[R any] interface {
	// Starts the filter with the given input and output endpoints and runs it
	// in the background. A Filter is single-use: starting it a second time
	// fails with ErrFilterStarted.
	Start(input ReadStream, output WriteStream) (Running[R], error)
}

// Running is the live handle to a started Filter.
type Running[R any] interface {
	// Blocks until the filter finishes and returns its result.
	// All failures deferred since Start are reported here; a caller that
	// never waits silently loses them.
	Wait() (R, error)

	// If the filter was started with ReadPipe as its input, returns the write
	// half of that pipe. The half is returned at most once; nil afterwards.
	InputPipe() *os.File

	// If the filter was started with WritePipe as its output, returns the
	// read half of that pipe. The half is returned at most once; nil
	// afterwards.
	OutputPipe() *os.File
}

// pipeEnds holds the pipe halves a running filter surfaces to its caller.
type pipeEnds struct {
	mu  sync.Mutex
	in  *os.File
	out *os.File
}

func (p *pipeEnds) InputPipe() *os.File {
	p.mu.Lock()
	defer p.mu.Unlock()

	f := p.in
	p.in = nil

	return f
}

func (p *pipeEnds) OutputPipe() *os.File {
	p.mu.Lock()
	defer p.mu.Unlock()

	f := p.out
	p.out = nil

	return f
}
