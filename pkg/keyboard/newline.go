package keyboard

import (
	"bytes"
	"io"
)

type crlfWriter struct {
	w io.Writer
}

// NewlineWriter expands \n to \r\n, a terminal in raw mode no longer does it
// for us.
func NewlineWriter(w io.Writer) io.Writer {
	return &crlfWriter{w: w}
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	out := bytes.ReplaceAll(bytes.ReplaceAll(p, []byte("\r\n"), []byte("\n")), []byte("\n"), []byte("\r\n"))
	if _, err := c.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}
