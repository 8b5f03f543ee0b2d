package logtail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Stdin is the input name that selects standard input.
const Stdin = "-"

// ErrFollowStdin is returned when follow mode is requested for standard input.
var ErrFollowStdin = errors.New("follow needs a file input")

// Open returns the named input. An empty name or "-" means standard input.
func Open(name string) (*os.File, error) {
	if name == "" || name == Stdin {
		return os.Stdin, nil
	}
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return file, nil
}

// Tail reads r to the end and returns at most maxLines lines from the end,
// terminators included, so joining them reproduces the input bytes.
func Tail(r io.Reader, maxLines int) ([]string, error) {
	if maxLines <= 0 {
		return nil, nil
	}

	ring := make([]string, maxLines)
	reader := bufio.NewReaderSize(r, 64*1024)
	count := 0
	idx := 0
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			ring[idx] = line
			idx = (idx + 1) % maxLines
			if count < maxLines {
				count++
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read input: %w", err)
		}
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Reader returns the input to process: the last lines of file when lines is
// positive, followed by everything appended later when follow is set.
// Otherwise file is read from its current position as is. Closing the result
// closes file.
func Reader(ctx context.Context, file *os.File, lines int, follow bool) (io.ReadCloser, error) {
	if follow && file == os.Stdin {
		return nil, ErrFollowStdin
	}

	var head io.Reader
	if lines > 0 {
		last, err := Tail(file, lines)
		if err != nil {
			return nil, err
		}
		head = strings.NewReader(strings.Join(last, ""))
	}

	var rest io.ReadCloser = file
	if follow {
		f, err := Follow(ctx, file)
		if err != nil {
			return nil, err
		}
		rest = f
	}

	if head == nil {
		return rest, nil
	}
	return struct {
		io.Reader
		io.Closer
	}{io.MultiReader(head, rest), rest}, nil
}

// Follower reads a file like tail -f: at end of file it blocks until the
// file is written to again, removed or renamed, or until its context ends.
type Follower struct {
	ctx     context.Context
	file    *os.File
	watcher *fsnotify.Watcher
	offset  int64
}

// Follow watches file for writes, continuing from its current offset.
func Follow(ctx context.Context, file *os.File) (*Follower, error) {
	offset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("follow input: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("follow input: %w", err)
	}
	if err := watcher.Add(file.Name()); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", file.Name(), err)
	}
	return &Follower{ctx: ctx, file: file, watcher: watcher, offset: offset}, nil
}

// Read never returns (0, nil). It returns io.EOF once the context is done or
// the file is gone.
func (f *Follower) Read(p []byte) (int, error) {
	for {
		n, err := f.file.Read(p)
		f.offset += int64(n)
		if n > 0 {
			return n, nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("read input: %w", err)
		}
		if err := f.wait(); err != nil {
			return 0, err
		}
	}
}

func (f *Follower) wait() error {
	for {
		select {
		case <-f.ctx.Done():
			return io.EOF
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return io.EOF
			}
			return fmt.Errorf("watch input: %w", err)
		case event, ok := <-f.watcher.Events:
			if !ok {
				return io.EOF
			}
			switch {
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				return io.EOF
			case event.Has(fsnotify.Write):
				return f.rewindIfTruncated()
			}
		}
	}
}

// rewindIfTruncated starts over when the file shrank below what was read,
// which is how copytruncate log rotation looks from here.
func (f *Follower) rewindIfTruncated() error {
	info, err := f.file.Stat()
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if info.Size() >= f.offset {
		return nil
	}
	if _, err := f.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind input: %w", err)
	}
	f.offset = 0
	return nil
}

// Close stops watching and closes the file.
func (f *Follower) Close() error {
	werr := f.watcher.Close()
	ferr := f.file.Close()
	return errors.Join(werr, ferr)
}
