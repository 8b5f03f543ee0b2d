package emit

import (
	"bytes"
	"errors"
	"io"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWriter struct {
	bytes.Buffer
	writes int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.writes++
	return w.Buffer.Write(p)
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestLine_WritesTextAndNewlineOnce(t *testing.T) {
	var w countingWriter
	e := New(&w)

	require.NoError(t, e.Line("first\n  second"))
	require.NoError(t, e.Line(""))

	assert.Equal(t, "first\n  second\n\n", w.String())
	assert.Equal(t, 2, w.writes)
}

func TestLine_BrokenPipeIsErrClosed(t *testing.T) {
	for _, err := range []error{
		syscall.EPIPE,
		&os.PathError{Op: "write", Path: "/dev/stdout", Err: syscall.EPIPE},
		os.ErrClosed,
		io.ErrClosedPipe,
	} {
		got := New(failingWriter{err: err}).Line("x")
		assert.ErrorIs(t, got, ErrClosed, "%v", err)
	}
}

func TestLine_OtherErrorsAreWrapped(t *testing.T) {
	boom := errors.New("disk full")
	err := New(failingWriter{err: boom}).Line("x")

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrClosed)
	assert.Contains(t, err.Error(), "write output")
}
