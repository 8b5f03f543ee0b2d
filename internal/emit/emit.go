// Package emit writes rendered lines to the output stream.
package emit

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
)

// ErrClosed reports that the consumer of the output went away, for example
// the reader side of a pipe exited. It ends the run without an error status.
var ErrClosed = errors.New("output closed")

// Emitter writes one line per call.
type Emitter struct {
	w   io.Writer
	buf []byte
}

// New returns an Emitter writing to w.
func New(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Line writes text followed by a newline in a single write.
func (e *Emitter) Line(text string) error {
	e.buf = append(e.buf[:0], text...)
	e.buf = append(e.buf, '\n')
	if _, err := e.w.Write(e.buf); err != nil {
		if closed(err) {
			return ErrClosed
		}
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func closed(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
