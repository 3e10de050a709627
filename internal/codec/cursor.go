package codec

import (
	"encoding/binary"
	"fmt"
)

// cursor reads forward through buf[pos:end]. Reads past end fail with a
// *CorruptDataError instead of panicking.
type cursor struct {
	buf     []byte
	pos     int
	end     int
	section Section
}

func newCursor(buf []byte, section Section, start, end int) *cursor {
	return &cursor{buf: buf, pos: start, end: end, section: section}
}

func (c *cursor) errorf(format string, args ...any) *CorruptDataError {
	return &CorruptDataError{Section: c.section, Offset: c.pos, Reason: fmt.Sprintf(format, args...)}
}

func (c *cursor) remaining() int { return c.end - c.pos }

func (c *cursor) u8() (byte, error) {
	if c.remaining() < 1 {
		return 0, c.errorf("unexpected end of section reading tag")
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) u64() (uint64, error) {
	if c.remaining() < 8 {
		return 0, c.errorf("unexpected end of section reading u64")
	}
	v := binary.LittleEndian.Uint64(c.buf[c.pos:])
	c.pos += 8
	return v, nil
}

func (c *cursor) bytes(n uint64) ([]byte, error) {
	if n > uint64(c.remaining()) {
		return nil, c.errorf("length %d exceeds %d remaining bytes", n, c.remaining())
	}
	b := c.buf[c.pos : c.pos+int(n)]
	c.pos += int(n)
	return b, nil
}

// count reads an element count and rejects counts that could not fit in
// the rest of the section given each element takes at least minSize bytes.
func (c *cursor) count(what string, minSize int) (int, error) {
	at := c.pos
	n, err := c.u64()
	if err != nil {
		return 0, err
	}
	if minSize > 0 && n > uint64(c.remaining()/minSize) {
		return 0, &CorruptDataError{
			Section: c.section,
			Offset:  at,
			Reason:  fmt.Sprintf("%s count %d does not fit in %d remaining bytes", what, n, c.remaining()),
		}
	}
	return int(n), nil
}

// finish checks that the section was consumed exactly.
func (c *cursor) finish() error {
	if c.pos != c.end {
		return c.errorf("section ends at %d but next section starts at %d", c.pos, c.end)
	}
	return nil
}
