package iofilters

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andriiyaremenko/iofilters/internal"
)

var _ Filter[int64] = new(Lambda[int64])

// Lambda is an in-process filter which invokes a handler on each buffer it
// forwards, but otherwise does not alter the data stream. Once the input is
// exhausted, finish produces the terminal result from the number of bytes
// copied.
type Lambda[T any] struct {
	handler func(chunk []byte)
	finish  func(copied int64) (T, error)
	cfg     config
	started atomic.Bool
}

// Returns a new *Lambda[T]. handler is invoked with exactly the bytes the
// output accepted, after they were written, and may be nil. finish is invoked
// once at end of stream; if nil, Wait returns the zero value of T.
func NewLambda[T any](handler func(chunk []byte), finish func(copied int64) (T, error), opts ...Option) *Lambda[T] {
	return &Lambda[T]{handler: handler, finish: finish, cfg: newConfig(opts)}
}

// Returns a *Lambda[int64] whose result is the number of bytes forwarded.
func NewTap(handler func(chunk []byte), opts ...Option) *Lambda[int64] {
	return NewLambda(handler, func(copied int64) (int64, error) { return copied, nil }, opts...)
}

func (l *Lambda[T]) Start(input ReadStream, output WriteStream) (Running[T], error) {
	if !l.started.CompareAndSwap(false, true) {
		return nil, ErrFilterStarted
	}

	src, err := input.resolve()
	if err != nil {
		return nil, err
	}

	dst, err := output.resolve()
	if err != nil {
		src.cleanup()

		return nil, err
	}

	log := l.cfg.log.With(
		zap.String("filter", "lambda"),
		zap.String("filter_id", uuid.NewString()),
	)

	done := make(chan lambdaOutcome[T], 1)
	run := &runningLambda[T]{
		pipeEnds: pipeEnds{in: src.pipe, out: dst.pipe},
		done:     done,
	}

	go func() {
		var out lambdaOutcome[T]

		defer func() {
			if r := recover(); r != nil {
				out = lambdaOutcome[T]{
					value: internal.ZeroValue[T](),
					err:   &PanicError{Filter: internal.InstanceTypeName(l), Value: r},
				}
			}

			done <- out
		}()

		buf := make([]byte, l.cfg.chunkSize)
		copied, copyErr := io.CopyBuffer(tapWriter{w: dst.w, observe: l.handler}, src.r, buf)

		closeErr := dst.close()
		_ = src.close()

		log.Debug("lambda copy finished", zap.Int64("bytes", copied), zap.Error(copyErr))

		switch {
		case copyErr != nil:
			out.err = copyErr
		case closeErr != nil:
			out.err = closeErr
		case l.finish == nil:
			out.value = internal.ZeroValue[T]()
		default:
			out.value, out.err = l.finish(copied)
		}
	}()

	log.Debug("lambda filter started")

	return run, nil
}

type lambdaOutcome[T any] struct {
	value T
	err   error
}

// runningLambda is a running instance of a Lambda filter.
type runningLambda[T any] struct {
	pipeEnds

	done chan lambdaOutcome[T]
	once sync.Once
	out  lambdaOutcome[T]
}

func (r *runningLambda[T]) Wait() (T, error) {
	r.once.Do(func() {
		r.out = <-r.done
	})

	return r.out.value, r.out.err
}

// tapWriter forwards writes and lets observe see only the bytes the
// underlying writer actually accepted.
type tapWriter struct {
	w       io.Writer
	observe func([]byte)
}

func (t tapWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if n > 0 && t.observe != nil {
		t.observe(p[:n])
	}

	return n, err
}
