// Package logtail selects and reads the input stream.
//
// # Overview
//
// The pipeline reads from a single io.Reader. This package decides what that
// reader is: standard input, a file, the tail of a file, or a file that keeps
// growing.
//
// # Opening Input
//
// Open treats "-" (and the empty name) as standard input and anything else as
// a file path. A file that cannot be opened is an error wrapped as
// "open input".
//
// # Reading the Last Lines
//
// Tail uses a ring buffer of size maxLines:
//
//	1. Allocate ring buffer of size maxLines
//	2. For each line read:
//	   - Store line at current index
//	   - Increment index (wrapping at maxLines)
//	   - Track total lines seen
//	3. If total < maxLines:
//	   - Return first 'count' entries from buffer
//	4. If total >= maxLines:
//	   - Return buffer starting from current index (oldest line)
//
// Memory use is O(maxLines), not O(input size), and lines come back in input
// order with their terminators, so the pipeline sees exactly the bytes that
// were in the file.
//
// # Following
//
// Follow wraps an open file in a reader that blocks at end of file until an
// fsnotify write event arrives. It returns io.EOF when its context is done or
// the file is removed or renamed, and starts over from the top when the file
// is truncated below the current offset.
//
// Example usage:
//
//	file, err := logtail.Open(path)
//	if err != nil {
//		return err
//	}
//	r, err := logtail.Reader(ctx, file, 10, true)
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//
// Standard input cannot be followed; Reader returns ErrFollowStdin.
package logtail
