package iofilters

import (
	"bytes"
	"io"
	"os"
)

// streamKind enumerates the endpoint variants.
// The zero value is the null endpoint, so there is no uninitialized state.
type streamKind uint8

const (
	streamNull streamKind = iota
	streamFile
	streamInProc
	streamPipe
)

// ReadStream describes where a Filter takes its input from.
// The zero value reads nothing, like /dev/null.
type ReadStream struct {
	kind streamKind
	file *os.File
	r    io.Reader
}

// ReadNull returns an input endpoint that immediately reports end of data.
func ReadNull() ReadStream {
	return ReadStream{}
}

// ReadFile returns an input endpoint backed by an open file descriptor.
// Ownership of f transfers to the filter, which closes it when it finishes.
func ReadFile(f *os.File) ReadStream {
	return ReadStream{kind: streamFile, file: f}
}

// ReadFrom returns an input endpoint backed by an in-process stream.
// The filter does not close r.
func ReadFrom(r io.Reader) ReadStream {
	return ReadStream{kind: streamInProc, r: r}
}

// ReadPipe requests the filter to create a pipe and attach it to the input
// when it starts up. The write half of the pipe is available by calling
// InputPipe on the running filter.
func ReadPipe() ReadStream {
	return ReadStream{kind: streamPipe}
}

// WriteStream describes where a Filter sends its output.
// The zero value discards everything, like /dev/null.
type WriteStream struct {
	kind streamKind
	file *os.File
	w    io.Writer
}

// WriteNull returns an output endpoint that accepts and discards all bytes.
func WriteNull() WriteStream {
	return WriteStream{}
}

// WriteFile returns an output endpoint backed by an open file descriptor.
// Ownership of f transfers to the filter, which closes it when it finishes.
func WriteFile(f *os.File) WriteStream {
	return WriteStream{kind: streamFile, file: f}
}

// WriteTo returns an output endpoint backed by an in-process stream.
// The filter does not close w.
func WriteTo(w io.Writer) WriteStream {
	return WriteStream{kind: streamInProc, w: w}
}

// WritePipe requests the filter to create a pipe and attach it to the output
// when it starts up. The read half of the pipe is available by calling
// OutputPipe on the running filter.
func WritePipe() WriteStream {
	return WriteStream{kind: streamPipe}
}

// source is a resolved ReadStream.
type source struct {
	r     io.Reader
	owned io.Closer // closed by the filter when it finishes, nil otherwise
	pipe  *os.File  // write half surfaced through InputPipe, pipe endpoints only
}

func (in ReadStream) resolve() (source, error) {
	switch in.kind {
	case streamFile:
		return source{r: in.file, owned: in.file}, nil
	case streamInProc:
		return source{r: in.r}, nil
	case streamPipe:
		r, w, err := os.Pipe()
		if err != nil {
			return source{}, err
		}

		return source{r: r, owned: r, pipe: w}, nil
	default:
		return source{r: bytes.NewReader(nil)}, nil
	}
}

func (s source) close() error {
	if s.owned == nil {
		return nil
	}

	return s.owned.Close()
}

// cleanup releases everything resolve created. Only for Start failure paths,
// before the pipe half is surfaced to the caller.
func (s source) cleanup() {
	_ = s.close()

	if s.pipe != nil {
		_ = s.pipe.Close()
	}
}

// sink is a resolved WriteStream.
type sink struct {
	w     io.Writer
	owned io.Closer
	pipe  *os.File // read half surfaced through OutputPipe, pipe endpoints only
}

func (out WriteStream) resolve() (sink, error) {
	switch out.kind {
	case streamFile:
		return sink{w: out.file, owned: out.file}, nil
	case streamInProc:
		return sink{w: out.w}, nil
	case streamPipe:
		r, w, err := os.Pipe()
		if err != nil {
			return sink{}, err
		}

		return sink{w: w, owned: w, pipe: r}, nil
	default:
		return sink{w: io.Discard}, nil
	}
}

func (s sink) close() error {
	if s.owned == nil {
		return nil
	}

	return s.owned.Close()
}

func (s sink) cleanup() {
	_ = s.close()

	if s.pipe != nil {
		_ = s.pipe.Close()
	}
}
