package console

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"iter"
	"sync"
)

// Framing constants.
const (
	// Separator terminates every frame in both directions.
	Separator byte = 0x00

	// MaxFrameSize bounds a single inbound frame. Device detail responses for
	// large interfaces run to tens of kilobytes.
	MaxFrameSize = 1 << 20
)

// Framing errors.
var (
	ErrEmptyFrame     = errors.New("frame is empty")
	ErrFrameSeparator = errors.New("frame contains the separator byte")
)

// FrameWriter writes NUL terminated command frames.
type FrameWriter struct {
	w   io.Writer
	mu  sync.Mutex
	buf []byte
}

// NewFrameWriter creates a new frame writer.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteFrame writes cmd followed by the separator in a single write.
func (fw *FrameWriter) WriteFrame(cmd string) error {
	if cmd == "" {
		return ErrEmptyFrame
	}
	if bytes.IndexByte([]byte(cmd), Separator) >= 0 {
		return ErrFrameSeparator
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	fw.buf = append(append(fw.buf[:0], cmd...), Separator)
	_, err := fw.w.Write(fw.buf)
	return err
}

// FrameReader splits an inbound stream into frames. A trailing segment that
// is not terminated by the separator is never yielded. A FrameReader is
// single use; create one per connection.
type FrameReader struct {
	scanner *bufio.Scanner
}

// NewFrameReader creates a frame reader over r.
func NewFrameReader(r io.Reader) *FrameReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), MaxFrameSize)
	s.Split(splitFrames)
	return &FrameReader{scanner: s}
}

// Next advances to the next frame. It returns false when the stream ends.
func (fr *FrameReader) Next() bool {
	return fr.scanner.Scan()
}

// Frame returns the frame produced by the last call to Next.
func (fr *FrameReader) Frame() string {
	return fr.scanner.Text()
}

// Frames yields frames until the stream ends or fails.
func (fr *FrameReader) Frames() iter.Seq[string] {
	return func(yield func(string) bool) {
		for fr.Next() {
			if !yield(fr.Frame()) {
				return
			}
		}
	}
}

// Err returns the error that ended the stream, or nil on a clean EOF.
func (fr *FrameReader) Err() error {
	return fr.scanner.Err()
}

func splitFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.IndexByte(data, Separator); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		// Drop the unterminated remainder.
		return len(data), nil, nil
	}
	return 0, nil, nil
}
