package runs

import "bytes"

// capture keeps the first limit bytes of one output stream.
type capture struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newCapture(limit int) *capture {
	return &capture{limit: limit}
}

func (c *capture) sink(chunk []byte) {
	if c.limit <= 0 {
		if len(chunk) > 0 {
			c.truncated = true
		}
		return
	}
	room := c.limit - c.buf.Len()
	if room <= 0 {
		c.truncated = true
		return
	}
	if len(chunk) > room {
		chunk = chunk[:room]
		c.truncated = true
	}
	c.buf.Write(chunk)
}

func (c *capture) String() string { return c.buf.String() }
