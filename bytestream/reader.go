// Package bytestream provides the endian-aware, buffer-backed cursor the
// parser and encoder use to move through DICOM bytes. Grounded on the
// upstream tree's ElementStream (reader.go): getUint16/getUint32/
// getBytes/skipBytes/GetPosition/GetRemainingBytes, and its pad-byte
// stripping in GetElement. Unlike ElementStream, Reader operates over an
// in-memory buffer (not a *bufio.Reader over an open file), matching the
// byte-stream invariant that the core never suspends on I/O; callers
// read a file fully before handing its bytes to a Reader.
package bytestream

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/b71729/dcmkit/tag"
)

// ErrOutOfRange is returned when a read would run past the end of the
// buffer.
var ErrOutOfRange = errors.New("bytestream: read out of range")

// Reader is a cursor over an in-memory byte buffer.
type Reader struct {
	buf       []byte
	pos       int
	bigEndian bool
}

// NewReader wraps buf for little-endian reads by default.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// SetBigEndian flips the unpack format used by subsequent multi-byte reads.
func (r *Reader) SetBigEndian(big bool) { r.bigEndian = big }

// IsBigEndian reports the reader's current byte order.
func (r *Reader) IsBigEndian() bool { return r.bigEndian }

// Pos returns the current cursor offset.
func (r *Reader) Pos() int { return r.pos }

// Len returns the total buffer length.
func (r *Reader) Len() int { return len(r.buf) }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// Seek moves the cursor to an absolute offset.
func (r *Reader) Seek(offset int) error {
	if offset < 0 || offset > len(r.buf) {
		return ErrOutOfRange
	}
	r.pos = offset
	return nil
}

// Skip advances the cursor by n bytes (n may be negative, acting as a rewind).
func (r *Reader) Skip(n int) error {
	return r.Seek(r.pos + n)
}

func (r *Reader) order() binary.ByteOrder {
	if r.bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// ReadBytes reads and returns the next n bytes, advancing the cursor.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, ErrOutOfRange
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Peek returns the next n bytes without advancing the cursor.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, ErrOutOfRange
	}
	return r.buf[r.pos : r.pos+n], nil
}

// ReadUint16 reads a 2-byte unsigned integer in the reader's current byte order.
func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return r.order().Uint16(b), nil
}

// ReadUint32 reads a 4-byte unsigned integer in the reader's current byte order.
func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return r.order().Uint32(b), nil
}

// ReadInt16 reads a 2-byte signed integer in the reader's current byte order.
func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

// ReadInt32 reads a 4-byte signed integer in the reader's current byte order.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadFloat32 reads a 4-byte IEEE-754 float in the reader's current byte order.
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadFloat64 reads an 8-byte IEEE-754 float in the reader's current byte order.
func (r *Reader) ReadFloat64() (float64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(r.order().Uint64(b)), nil
}

// ReadTag decodes a 4-byte tag (group, then element) in the reader's
// current byte order, returning the canonical Tag regardless of
// on-wire order.
func (r *Reader) ReadTag() (tag.Tag, error) {
	group, err := r.ReadUint16()
	if err != nil {
		return 0, err
	}
	element, err := r.ReadUint16()
	if err != nil {
		return 0, err
	}
	return tag.New(group, element), nil
}

// StripPad trims one trailing pad byte (0x20 or 0x00) from b, used after
// reading a string-family value whose declared length was padded to even.
func StripPad(b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	last := b[len(b)-1]
	if last == 0x20 || last == 0x00 {
		return b[:len(b)-1]
	}
	return b
}
