package iofilters

import (
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andriiyaremenko/iofilters/internal"
)

var _ Filter[TeeResult] = new(Tee)

// Tee reads its input once and copies every chunk it reads to any number of
// output sinks. All sinks see byte-identical data with byte-identical
// chunking: the reader does not refill the shared buffer until every live
// sink has acknowledged the current chunk.
//
// A sink whose writer fails is retired; the remaining sinks keep receiving
// data and the failure is reported in that sink's own result slot. A sink
// whose writer blocks forever stalls the whole tee; there is no barrier
// timeout.
type Tee struct {
	cfg     config
	sinks   []*teeSink
	started atomic.Bool
}

// Returns a new *Tee. The chunk buffer size is taken from options or the
// environment.
func NewTee(opts ...Option) *Tee {
	return &Tee{cfg: newConfig(opts)}
}

// AddOutput registers a destination for the copied stream. w is not closed
// when the tee finishes.
func (t *Tee) AddOutput(w io.Writer) {
	t.addSink(w, nil)
}

func (t *Tee) addSink(w io.Writer, owned io.Closer) {
	t.sinks = append(t.sinks, &teeSink{
		w:     w,
		owned: owned,
		data:  make(chan []byte),
		done:  make(chan struct{}),
	})
}

// Start begins copying to the sinks added with AddOutput. The output endpoint
// is resolved like any other filter output and registers one more sink:
// WriteNull adds nothing, WritePipe makes the read half of the pipe available
// through OutputPipe. Sinks created here are closed when delivery finishes.
func (t *Tee) Start(input ReadStream, output WriteStream) (Running[TeeResult], error) {
	if !t.started.CompareAndSwap(false, true) {
		return nil, ErrFilterStarted
	}

	src, err := input.resolve()
	if err != nil {
		return nil, err
	}

	var outPipe *os.File

	switch output.kind {
	case streamFile:
		t.addSink(output.file, output.file)
	case streamInProc:
		t.addSink(output.w, nil)
	case streamPipe:
		r, w, err := os.Pipe()
		if err != nil {
			src.cleanup()

			return nil, err
		}

		t.addSink(w, w)
		outPipe = r
	}

	log := t.cfg.log.With(
		zap.String("filter", "tee"),
		zap.String("filter_id", uuid.NewString()),
		zap.Int("sinks", len(t.sinks)),
	)

	acks := make(chan struct{})
	for _, s := range t.sinks {
		go s.deliver(acks)
	}

	readerDone := make(chan error, 1)
	go t.read(src, acks, readerDone, log)

	log.Debug("tee filter started")

	return &runningTee{
		pipeEnds:   pipeEnds{in: src.pipe, out: outPipe},
		sinks:      t.sinks,
		readerDone: readerDone,
	}, nil
}

// read fills the shared buffer, hands the chunk to every live sink, and waits
// for one ack per delivered sink before reusing the buffer. The live set is
// rebuilt each round; a sink whose delivery goroutine exited is dropped
// without aborting the others.
func (t *Tee) read(src source, acks <-chan struct{}, done chan<- error, log *zap.Logger) {
	var readErr error

	defer func() {
		if r := recover(); r != nil {
			readErr = &PanicError{Filter: internal.InstanceTypeName(t), Value: r}
		}

		done <- readErr
	}()

	buf := make([]byte, t.cfg.bufferSize)
	live := make([]*teeSink, len(t.sinks))
	copy(live, t.sinks)

	for {
		n, err := fill(src.r, buf)
		if n > 0 {
			chunk := buf[:n]
			next := make([]*teeSink, 0, len(live))

			for _, s := range live {
				select {
				case s.data <- chunk:
					next = append(next, s)
				case <-s.done:
					log.Debug("tee sink retired", zap.Error(s.err))
				}
			}

			for range next {
				<-acks
			}

			live = next
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = err
			}

			break
		}
	}

	for _, s := range live {
		close(s.data)
	}

	_ = src.close()
}

// fill reads until the buffer is full or the stream ends.
func fill(r io.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n

		if err != nil {
			return total, err
		}
	}

	return total, nil
}

type teeSink struct {
	w     io.Writer
	owned io.Closer
	data  chan []byte
	done  chan struct{}
	err   error
}

// deliver writes every received chunk to the sink, acknowledging each one so
// the reader can advance. The first write failure ends delivery; the ack for
// the failing chunk is still sent so the round completes.
func (s *teeSink) deliver(acks chan<- struct{}) {
	defer close(s.done)

	for chunk := range s.data {
		err := s.write(chunk)
		acks <- struct{}{}

		if err != nil {
			s.err = err

			break
		}
	}

	if s.owned != nil {
		if err := s.owned.Close(); s.err == nil {
			s.err = err
		}
	}
}

func (s *teeSink) write(chunk []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Filter: internal.InstanceTypeName(s), Value: r}
		}
	}()

	for len(chunk) > 0 {
		n, err := s.w.Write(chunk)
		chunk = chunk[n:]

		if err != nil {
			return err
		}

		if n == 0 {
			return io.ErrShortWrite
		}
	}

	return nil
}

// runningTee is a running instance of a Tee.
type runningTee struct {
	pipeEnds

	sinks      []*teeSink
	readerDone chan error

	once sync.Once
	res  TeeResult
}

// Wait joins the reader first, then every sink, and reports their outcomes in
// registration order. The returned error is TeeResult.Err.
func (r *runningTee) Wait() (TeeResult, error) {
	r.once.Do(func() {
		res := TeeResult{Sinks: make([]error, len(r.sinks))}
		res.Input = <-r.readerDone

		for i, s := range r.sinks {
			<-s.done
			res.Sinks[i] = s.err
		}

		r.res = res
	})

	return r.res, r.res.Err()
}
