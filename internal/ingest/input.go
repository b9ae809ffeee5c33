package ingest

import (
	"io"
	"os"
	"sync/atomic"
)

type sizedReader struct {
	io.Reader
	size int64
}

func (s sizedReader) Size() int64 { return s.size }

// Sized attaches a known byte length to r so progress can report the
// fraction of input consumed.  Uploads use it with the multipart size.
func Sized(r io.Reader, size int64) io.Reader {
	return sizedReader{Reader: r, size: size}
}

// countingReader tracks bytes read from the input.
type countingReader struct {
	r     io.Reader
	n     atomic.Int64
	total int64
}

func newCountingReader(r io.Reader) *countingReader {
	return &countingReader{r: r, total: inputSize(r)}
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

func (c *countingReader) position() (int64, int64) {
	return c.n.Load(), c.total
}

// inputSize returns the byte length of r when it can be known up front, or 0.
func inputSize(r io.Reader) int64 {
	switch v := r.(type) {
	case interface{ Size() int64 }:
		return v.Size()
	case interface{ Len() int }:
		return int64(v.Len())
	case *os.File:
		if st, err := v.Stat(); err == nil && st.Mode().IsRegular() {
			return st.Size()
		}
	}
	return 0
}
