package pixeldata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/b71729/dcmkit/element"
	"github.com/b71729/dcmkit/tag"
	"github.com/b71729/dcmkit/vr"
)

func TestAdaptSingleLeaf(t *testing.T) {
	t.Parallel()
	leaf := element.NewLeaf(tag.PixelData, vr.OW, []byte{1, 2, 3, 4}, false)

	frags, err := Adapt(leaf)
	assert.NoError(t, err)
	assert.Len(t, frags, 1)
	assert.Equal(t, []byte{1, 2, 3, 4}, frags[0])
	assert.False(t, IsEncapsulated(leaf))
}

func TestAdaptEncapsulatedSkipsOffsetTable(t *testing.T) {
	t.Parallel()
	seq := element.NewSequence(tag.PixelData, true)
	seq.AddChild(element.NewFragmentItem(nil))
	seq.AddChild(element.NewFragmentItem(make([]byte, 16)))
	seq.AddChild(element.NewFragmentItem(make([]byte, 24)))

	frags, err := Adapt(seq)
	assert.NoError(t, err)
	assert.Len(t, frags, 2)
	assert.Len(t, frags[0], 16)
	assert.Len(t, frags[1], 24)
	assert.True(t, IsEncapsulated(seq))
}

func TestAdaptRejectsWrongTag(t *testing.T) {
	t.Parallel()
	leaf := element.NewLeaf(tag.New(0x0010, 0x0010), vr.PN, []byte("A"), false)
	_, err := Adapt(leaf)
	assert.Error(t, err)
}

func TestAdaptRejectsEmptySequence(t *testing.T) {
	t.Parallel()
	seq := element.NewSequence(tag.PixelData, true)
	_, err := Adapt(seq)
	assert.Error(t, err)
}

func TestEncapsulateSingleFrameEmptyOffsetTable(t *testing.T) {
	t.Parallel()
	seq := Encapsulate([][]byte{{1, 2, 3, 4}})

	items := seq.Children()
	assert.Len(t, items, 2)
	assert.Empty(t, items[0].Fragment)
	assert.Equal(t, []byte{1, 2, 3, 4}, items[1].Fragment)
}

func TestEncapsulateMultiFrameOffsetTable(t *testing.T) {
	t.Parallel()
	frameA := make([]byte, 10)
	frameB := make([]byte, 11) // odd length, padded in the offset math

	seq := Encapsulate([][]byte{frameA, frameB})
	items := seq.Children()
	assert.Len(t, items, 3)

	table := items[0].Fragment
	assert.Len(t, table, 8) // 4 bytes per offset, 2 frames

	firstOffset := uint32(table[0]) | uint32(table[1])<<8 | uint32(table[2])<<16 | uint32(table[3])<<24
	secondOffset := uint32(table[4]) | uint32(table[5])<<8 | uint32(table[6])<<16 | uint32(table[7])<<24
	assert.Equal(t, uint32(0), firstOffset)
	assert.Equal(t, uint32(8+10), secondOffset) // frameA is already even length
}

func TestEncapsulateRoundTripsThroughAdapt(t *testing.T) {
	t.Parallel()
	frames := [][]byte{{1, 2}, {3, 4, 5, 6}}
	seq := Encapsulate(frames)

	got, err := Adapt(seq)
	assert.NoError(t, err)
	assert.Equal(t, Fragments(frames), got)
}
