package iofilters_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/andriiyaremenko/iofilters"
)

func TestTee(t *testing.T) {
	t.Run("FanOutIdenticalData", TeeFanOutIdenticalData)
	t.Run("ChunkingIsIdentical", TeeChunkingIsIdentical)
	t.Run("DeadSinkDoesNotStopOthers", TeeDeadSinkDoesNotStopOthers)
	t.Run("StartOutputAddsSink", TeeStartOutputAddsSink)
	t.Run("OutputPipeChains", TeeOutputPipeChains)
	t.Run("InputPipeFeeds", TeeInputPipeFeeds)
	t.Run("ZeroSinksDrainsInput", TeeZeroSinksDrainsInput)
	t.Run("ReadFailureReported", TeeReadFailureReported)
	t.Run("SecondStartFails", TeeSecondStartFails)
	t.Run("GoroutinesLeaking", TeeGoroutinesLeaking)
}

func TeeFanOutIdenticalData(t *testing.T) {
	suite := assert.New(t)

	payload := bytes.Repeat([]byte("0123456789abcdef"), 12*1024)
	tee := iofilters.NewTee(iofilters.WithBufferSize(1024))

	var a, b, c bytes.Buffer
	tee.AddOutput(&a)
	tee.AddOutput(&b)
	tee.AddOutput(&c)

	run, err := tee.Start(iofilters.ReadFrom(plainReader{bytes.NewReader(payload)}), iofilters.WriteNull())
	suite.NoError(err, "no error should be returned")

	res, err := run.Wait()
	suite.NoError(err, "no error should be returned")
	suite.NoError(res.Input)
	suite.Len(res.Sinks, 3)

	for _, sinkErr := range res.Sinks {
		suite.NoError(sinkErr)
	}

	suite.Equal(payload, a.Bytes())
	suite.Equal(payload, b.Bytes())
	suite.Equal(payload, c.Bytes())
}

func TeeChunkingIsIdentical(t *testing.T) {
	suite := assert.New(t)

	payload := bytes.Repeat([]byte("z"), 250)
	tee := iofilters.NewTee(iofilters.WithBufferSize(100))

	first := &chunkRecorder{}
	second := &chunkRecorder{}
	tee.AddOutput(first)
	tee.AddOutput(second)

	run, err := tee.Start(iofilters.ReadFrom(plainReader{bytes.NewReader(payload)}), iofilters.WriteNull())
	suite.NoError(err, "no error should be returned")

	_, err = run.Wait()
	suite.NoError(err, "no error should be returned")

	suite.Equal([]int{100, 100, 50}, first.sizes)
	suite.Equal(first.sizes, second.sizes, "all sinks should see identical chunking")
	suite.Equal(payload, first.data.Bytes())
	suite.Equal(first.data.Bytes(), second.data.Bytes())
}

func TeeDeadSinkDoesNotStopOthers(t *testing.T) {
	suite := assert.New(t)

	payload := bytes.Repeat([]byte("x"), 4096)
	tee := iofilters.NewTee(iofilters.WithBufferSize(1024))

	bad := &shortWriter{limit: 1024}
	var good bytes.Buffer
	tee.AddOutput(bad)
	tee.AddOutput(&good)

	run, err := tee.Start(iofilters.ReadFrom(plainReader{bytes.NewReader(payload)}), iofilters.WriteNull())
	suite.NoError(err, "no error should be returned")

	res, err := run.Wait()
	suite.ErrorIs(err, errSinkFull, "the dead sink's failure should be aggregated")
	suite.NoError(res.Input)
	suite.Len(res.Sinks, 2)
	suite.ErrorIs(res.Sinks[0], errSinkFull, "the dead sink should report its own failure")
	suite.NoError(res.Sinks[1], "the live sink should be unaffected")
	suite.Equal(payload, good.Bytes(), "the live sink should receive the whole stream")
	suite.Equal(payload[:1024], bad.got.Bytes())
}

func TeeStartOutputAddsSink(t *testing.T) {
	suite := assert.New(t)

	var registered, extra bytes.Buffer
	tee := iofilters.NewTee(iofilters.WithBufferSize(64))
	tee.AddOutput(&registered)

	run, err := tee.Start(
		iofilters.ReadFrom(strings.NewReader("shared stream")),
		iofilters.WriteTo(&extra),
	)
	suite.NoError(err, "no error should be returned")

	res, err := run.Wait()
	suite.NoError(err, "no error should be returned")
	suite.Len(res.Sinks, 2, "the output endpoint should register one more sink")
	suite.Equal("shared stream", registered.String())
	suite.Equal("shared stream", extra.String())
}

func TeeOutputPipeChains(t *testing.T) {
	suite := assert.New(t)

	payload := bytes.Repeat([]byte("chain"), 512)
	tee := iofilters.NewTee(iofilters.WithBufferSize(256))

	var direct bytes.Buffer
	tee.AddOutput(&direct)

	run, err := tee.Start(iofilters.ReadFrom(plainReader{bytes.NewReader(payload)}), iofilters.WritePipe())
	suite.NoError(err, "no error should be returned")

	out := run.OutputPipe()
	suite.NotNil(out)
	suite.Nil(run.OutputPipe(), "pipe halves should be returned at most once")

	piped, err := io.ReadAll(out)
	suite.NoError(err, "no error should be returned")
	suite.Equal(payload, piped)
	suite.NoError(out.Close())

	res, err := run.Wait()
	suite.NoError(err, "no error should be returned")
	suite.Equal(payload, direct.Bytes())
	suite.Len(res.Sinks, 2)
}

func TeeInputPipeFeeds(t *testing.T) {
	suite := assert.New(t)

	var out bytes.Buffer
	tee := iofilters.NewTee()
	tee.AddOutput(&out)

	run, err := tee.Start(iofilters.ReadPipe(), iofilters.WriteNull())
	suite.NoError(err, "no error should be returned")

	in := run.InputPipe()
	suite.NotNil(in)

	_, err = in.Write([]byte("piped in"))
	suite.NoError(err, "no error should be returned")
	suite.NoError(in.Close())

	_, err = run.Wait()
	suite.NoError(err, "no error should be returned")
	suite.Equal("piped in", out.String())
}

func TeeZeroSinksDrainsInput(t *testing.T) {
	suite := assert.New(t)

	src := strings.NewReader("nobody listens")
	tee := iofilters.NewTee()

	run, err := tee.Start(iofilters.ReadFrom(src), iofilters.WriteNull())
	suite.NoError(err, "no error should be returned")

	res, err := run.Wait()
	suite.NoError(err, "no error should be returned")
	suite.Empty(res.Sinks)
	suite.Zero(src.Len(), "input should be drained even with no sinks")
}

func TeeReadFailureReported(t *testing.T) {
	suite := assert.New(t)

	var out bytes.Buffer
	tee := iofilters.NewTee(iofilters.WithBufferSize(1024))
	tee.AddOutput(&out)

	run, err := tee.Start(
		iofilters.ReadFrom(&failingReader{data: bytes.Repeat([]byte("p"), 512), err: errReadBoom}),
		iofilters.WriteNull(),
	)
	suite.NoError(err, "no error should be returned")

	res, err := run.Wait()
	suite.ErrorIs(err, errReadBoom)
	suite.ErrorIs(res.Input, errReadBoom, "the reader should report its own failure")
	suite.NoError(res.Sinks[0])
	suite.Equal(512, out.Len(), "bytes read before the failure should be delivered")
}

func TeeSecondStartFails(t *testing.T) {
	suite := assert.New(t)

	tee := iofilters.NewTee()

	run, err := tee.Start(iofilters.ReadNull(), iofilters.WriteNull())
	suite.NoError(err, "no error should be returned")

	_, err = tee.Start(iofilters.ReadNull(), iofilters.WriteNull())
	suite.ErrorIs(err, iofilters.ErrFilterStarted)

	_, err = run.Wait()
	suite.NoError(err, "no error should be returned")
}

func TeeGoroutinesLeaking(t *testing.T) {
	defer goleak.VerifyNone(t)

	payload := bytes.Repeat([]byte("leakcheck"), 2048)

	for i := 10; i > 0; i-- {
		var a, b bytes.Buffer
		tee := iofilters.NewTee(iofilters.WithBufferSize(512))
		tee.AddOutput(&a)
		tee.AddOutput(&b)

		run, err := tee.Start(iofilters.ReadFrom(plainReader{bytes.NewReader(payload)}), iofilters.WriteNull())
		if err != nil {
			t.Fatal(err)
		}

		_, _ = run.Wait()

		bad := &shortWriter{limit: 512}
		tee = iofilters.NewTee(iofilters.WithBufferSize(512))
		tee.AddOutput(bad)

		run, err = tee.Start(iofilters.ReadFrom(plainReader{bytes.NewReader(payload)}), iofilters.WriteNull())
		if err != nil {
			t.Fatal(err)
		}

		_, _ = run.Wait()
	}
}
