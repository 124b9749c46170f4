package iofilters_test

import (
	"bytes"
	"errors"
	"io"
	"os/exec"
	"testing"
)

var (
	errSinkFull = errors.New("sink full")
	errReadBoom = errors.New("read failed")
)

// plainReader hides optimized copy interfaces so copies go through the
// configured chunk size.
type plainReader struct {
	io.Reader
}

// shortWriter accepts limit bytes in total, then fails every write.
type shortWriter struct {
	limit int
	got   bytes.Buffer
}

func (w *shortWriter) Write(p []byte) (int, error) {
	room := w.limit - w.got.Len()
	if room <= 0 {
		return 0, errSinkFull
	}

	if len(p) <= room {
		w.got.Write(p)

		return len(p), nil
	}

	w.got.Write(p[:room])

	return room, errSinkFull
}

// chunkRecorder records the size of every write it receives.
type chunkRecorder struct {
	data  bytes.Buffer
	sizes []int
}

func (r *chunkRecorder) Write(p []byte) (int, error) {
	r.sizes = append(r.sizes, len(p))

	return r.data.Write(p)
}

// failingReader yields its data, then fails.
type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}

	n := copy(p, r.data)
	r.data = r.data[n:]

	return n, nil
}

func requireCommand(t *testing.T, name string) {
	t.Helper()

	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s is not available: %s", name, err)
	}
}
