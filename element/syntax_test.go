package element

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/b71729/dcmkit/tag"
	"github.com/b71729/dcmkit/vr"
)

func TestSetTransferSyntaxRejectsNonSyntaxUID(t *testing.T) {
	t.Parallel()
	r := NewRoot()
	err := r.SetTransferSyntax("1.2.3.4.5.6.7.8.9")
	assert.Error(t, err)
}

func TestSetTransferSyntaxEndianSwapIdempotence(t *testing.T) {
	t.Parallel()
	r := NewRoot()
	r.TransferSyntaxUID = "1.2.840.10008.1.2.1"

	original := []byte{0x01, 0x02, 0x03, 0x04}
	leaf := NewLeaf(tag.New(0x0028, 0x0010), vr.UL, append([]byte{}, original...), false)
	r.Add(leaf)

	assert.NoError(t, r.SetTransferSyntax("1.2.840.10008.1.2.2"))
	assert.NotEqual(t, original, leaf.Value)
	assert.True(t, leaf.BigEndian)

	assert.NoError(t, r.SetTransferSyntax("1.2.840.10008.1.2.1"))
	assert.Equal(t, original, leaf.Value)
	assert.False(t, leaf.BigEndian)
}

func TestSetTransferSyntaxExemptsMetaGroup(t *testing.T) {
	t.Parallel()
	r := NewRoot()
	r.TransferSyntaxUID = "1.2.840.10008.1.2.1"

	original := []byte{0x01, 0x02}
	meta := NewLeaf(tag.New(0x0002, 0x0099), vr.US, append([]byte{}, original...), false)
	r.Add(meta)

	assert.NoError(t, r.SetTransferSyntax("1.2.840.10008.1.2.2"))
	assert.Equal(t, original, meta.Value)
}
