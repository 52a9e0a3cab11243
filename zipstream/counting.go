package zipstream

import "io"

// CountingWriter counts bytes and writes passing through to W.
type CountingWriter struct {
	W      io.Writer
	Bytes  int64
	Writes int
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.W.Write(p)
	c.Bytes += int64(n)
	if n > 0 {
		c.Writes++
	}
	return n, err
}
