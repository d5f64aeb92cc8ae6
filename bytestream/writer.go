package bytestream

import (
	"bytes"
	"encoding/binary"

	"github.com/b71729/dcmkit/tag"
)

// Writer is the write-side mirror of Reader: an endian-aware cursor
// appending to an in-memory buffer. Newly authored (the upstream tree
// has no writer anywhere in its tree); modeled on the same
// getUint16/getUint32-style primitives as Reader, informed by
// dicomio.Encoder's WriteUInt16/WriteUInt32/WriteBytes/WriteZeros calls
// in the gillesdemey-go-dicom writer this toolkit's Encoder is grounded on.
type Writer struct {
	buf       bytes.Buffer
	bigEndian bool
}

// NewWriter returns an empty little-endian Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// SetBigEndian flips the byte order used by subsequent multi-byte writes.
func (w *Writer) SetBigEndian(big bool) { w.bigEndian = big }

// IsBigEndian reports the writer's current byte order.
func (w *Writer) IsBigEndian() bool { return w.bigEndian }

func (w *Writer) order() binary.ByteOrder {
	if w.bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.buf.Len() }

// WriteBytes appends b verbatim.
func (w *Writer) WriteBytes(b []byte) {
	w.buf.Write(b)
}

// WriteZeros appends n zero bytes.
func (w *Writer) WriteZeros(n int) {
	w.buf.Write(make([]byte, n))
}

// WriteUint16 appends a 2-byte unsigned integer in the writer's current byte order.
func (w *Writer) WriteUint16(v uint16) {
	var b [2]byte
	w.order().PutUint16(b[:], v)
	w.buf.Write(b[:])
}

// WriteUint32 appends a 4-byte unsigned integer in the writer's current byte order.
func (w *Writer) WriteUint32(v uint32) {
	var b [4]byte
	w.order().PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// WriteTag appends a tag as its group then element halves, in the
// writer's current byte order.
func (w *Writer) WriteTag(t tag.Tag) {
	w.WriteUint16(t.Group())
	w.WriteUint16(t.Element())
}

// WritePadded appends v, followed by pad if len(v) is odd, so the
// emitted value always has even length.
func (w *Writer) WritePadded(v []byte, pad byte) {
	w.buf.Write(v)
	if len(v)%2 == 1 {
		w.buf.WriteByte(pad)
	}
}
