package bytestream

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/b71729/dcmkit/tag"
)

func TestReaderReadTagLittleEndian(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{0x10, 0x00, 0x10, 0x00})
	got, err := r.ReadTag()
	assert.NoError(t, err)
	assert.Equal(t, tag.New(0x0010, 0x0010), got)
	assert.Equal(t, 4, r.Pos())
}

func TestReaderReadTagBigEndian(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{0x00, 0x10, 0x00, 0x10})
	r.SetBigEndian(true)
	got, err := r.ReadTag()
	assert.NoError(t, err)
	assert.Equal(t, tag.New(0x0010, 0x0010), got)
}

func TestReaderSkipActsAsRewind(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{0x01, 0x02, 0x03, 0x04})
	_, _ = r.ReadBytes(4)
	assert.Equal(t, 0, r.Remaining())
	assert.NoError(t, r.Skip(-4))
	assert.Equal(t, 4, r.Remaining())
}

func TestReaderOutOfRange(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{0x01})
	_, err := r.ReadUint32()
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestStripPad(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []byte("John"), StripPad([]byte("John\x00")))
	assert.Equal(t, []byte("John"), StripPad([]byte("John ")))
	assert.Equal(t, []byte("John"), StripPad([]byte("John")))
}

func TestWriterRoundTripLittleEndian(t *testing.T) {
	t.Parallel()
	w := NewWriter()
	w.WriteTag(tag.New(0x0010, 0x0010))
	w.WriteUint32(4)
	w.WritePadded([]byte("John"), 0x20)

	r := NewReader(w.Bytes())
	got, err := r.ReadTag()
	assert.NoError(t, err)
	assert.Equal(t, tag.New(0x0010, 0x0010), got)
	n, err := r.ReadUint32()
	assert.NoError(t, err)
	assert.Equal(t, uint32(4), n)
	val, err := r.ReadBytes(int(n))
	assert.NoError(t, err)
	assert.Equal(t, "John", string(val))
}

func TestWriterPadsOddLength(t *testing.T) {
	t.Parallel()
	w := NewWriter()
	w.WritePadded([]byte("ABC"), 0x00)
	assert.Equal(t, 4, w.Len())
	assert.Equal(t, byte(0x00), w.Bytes()[3])
}
