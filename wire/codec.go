package wire

import "encoding/binary"

// cursor is a bounds-checked little-endian reader over a front buffer.
// It is the decode-side analogue of the teacher's versioned-tag-byte
// binary.Read idiom in storage/storage-int.go and
// storage/storage-sparse.go, generalized to the Ceph "start-decoding"
// nested-struct framing.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor { return &cursor{buf: buf} }

func (c *cursor) need(n int) error {
	if n < 0 || c.pos+n > len(c.buf) {
		return ErrBufferShort
	}
	return nil
}

func (c *cursor) u8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

func (c *cursor) u16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *cursor) u32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *cursor) i32() (int32, error) {
	v, err := c.u32()
	return int32(v), err
}

func (c *cursor) u64() (uint64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(c.buf[c.pos:])
	c.pos += 8
	return v, nil
}

func (c *cursor) i64() (int64, error) {
	v, err := c.u64()
	return int64(v), err
}

func (c *cursor) bytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	v := make([]byte, n)
	copy(v, c.buf[c.pos:c.pos+n])
	c.pos += n
	return v, nil
}

func (c *cursor) skip(n int) error {
	if err := c.need(n); err != nil {
		return err
	}
	c.pos += n
	return nil
}

// lenPrefixedString reads a u32 length prefix followed by that many
// bytes, returned as an owned string (step 11 of the decode list:
// oid.name is a length-prefixed byte string, owned copy taken).
func (c *cursor) lenPrefixedString() (string, error) {
	n, err := c.u32()
	if err != nil {
		return "", err
	}
	b, err := c.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// startDecoding reads the Ceph nested-struct frame header (1-byte
// version, 1-byte compat version, 4-byte struct length) and returns
// the absolute cursor position the struct's body ends at. Callers
// read whatever fields they understand, then call finishDecoding to
// force the cursor to end, tolerating forward-compatible extensions
// the caller doesn't know about.
func (c *cursor) startDecoding() (version, compat uint8, end int, err error) {
	version, err = c.u8()
	if err != nil {
		return 0, 0, 0, err
	}
	compat, err = c.u8()
	if err != nil {
		return 0, 0, 0, err
	}
	length, err := c.u32()
	if err != nil {
		return 0, 0, 0, err
	}
	end = c.pos + int(length)
	if end > len(c.buf) || end < c.pos {
		return 0, 0, 0, ErrMalformed
	}
	return version, compat, end, nil
}

// finishDecoding force-advances the cursor to end. If the cursor has
// already overshot end, the frame declared a length shorter than what
// was actually read: Malformed.
func (c *cursor) finishDecoding(end int) error {
	if c.pos > end {
		return ErrMalformed
	}
	c.pos = end
	return nil
}

// writer is the encode-side counterpart: an append-only little-endian
// byte builder.
type writer struct {
	buf []byte
}

func (w *writer) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *writer) u16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }
func (w *writer) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *writer) i32(v int32)  { w.u32(uint32(v)) }
func (w *writer) u64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }
func (w *writer) i64(v int64)  { w.u64(uint64(v)) }
func (w *writer) bytes(b []byte) { w.buf = append(w.buf, b...) }
func (w *writer) zero(n int)   { w.buf = append(w.buf, make([]byte, n)...) }

func (w *writer) lenPrefixedString(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// startEncoding writes the frame header and returns the index of the
// length field to patch once the body has been written.
func (w *writer) startEncoding(version, compat uint8) (lenPos int) {
	w.u8(version)
	w.u8(compat)
	lenPos = len(w.buf)
	w.u32(0) // patched by finishEncoding
	return lenPos
}

func (w *writer) finishEncoding(lenPos int) {
	bodyLen := uint32(len(w.buf) - lenPos - 4)
	binary.LittleEndian.PutUint32(w.buf[lenPos:lenPos+4], bodyLen)
}
