// Package lineprefix implements a writer that tags every line written
// through it with a fixed prefix, so output from several concurrently
// running demos interleaved on one stream stays attributable to its source.
package lineprefix

import (
	"bytes"
	"io"
)

// Writer wraps an io.Writer so that each '\n'-terminated line passed to
// Write is preceded by prefix. Data without a trailing newline is buffered
// until the next newline or a Close, so a caller writing in small or
// arbitrarily split chunks never gets a prefix repeated mid-line.
type Writer struct {
	w      io.Writer
	prefix []byte
	buf    []byte
}

// New returns a Writer that tags each line written to w with prefix.
func New(w io.Writer, prefix string) *Writer {
	return &Writer{w: w, prefix: []byte(prefix)}
}

// Write implements io.Writer.
func (w *Writer) Write(data []byte) (int, error) {
	total := len(data)
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i == -1 {
			w.buf = append(w.buf, data...)
			return total, nil
		}
		if _, err := w.w.Write(w.prefix); err != nil {
			return total - len(data), err
		}
		if _, err := w.w.Write(w.buf); err != nil {
			return total - len(data), err
		}
		w.buf = w.buf[:0]
		n, err := w.w.Write(data[:i+1])
		data = data[n:]
		if err != nil {
			return total - len(data), err
		}
	}
	return total, nil
}

// Close flushes any buffered partial line, prefixed, even though it never
// saw a trailing newline.
func (w *Writer) Close() error {
	if len(w.buf) == 0 {
		return nil
	}
	if _, err := w.w.Write(w.prefix); err != nil {
		return err
	}
	_, err := w.w.Write(w.buf)
	w.buf = w.buf[:0]
	return err
}
