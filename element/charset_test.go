package element

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/b71729/dcmkit/tag"
	"github.com/b71729/dcmkit/vr"
)

func TestStringsWithCharsetDecodesLatin1(t *testing.T) {
	t.Parallel()
	// "Müller" with ü as the single Latin-1 byte 0xFC.
	e := NewLeaf(tag.New(0x0010, 0x0010), vr.PN, []byte{'M', 0xFC, 'l', 'l', 'e', 'r'}, false)
	got := e.StringsWithCharset("ISO_IR 100")
	assert.Equal(t, []string{"Müller"}, got)
}

func TestStringsWithCharsetLeavesDefaultRepertoireUnchanged(t *testing.T) {
	t.Parallel()
	e := NewLeaf(tag.New(0x0010, 0x0010), vr.PN, []byte("Smith"), false)
	assert.Equal(t, []string{"Smith"}, e.StringsWithCharset(""))
	assert.Equal(t, []string{"Smith"}, e.StringsWithCharset("ISO_IR 6"))
}

func TestStringsWithCharsetUnrecognizedTermFallsBackVerbatim(t *testing.T) {
	t.Parallel()
	e := NewLeaf(tag.New(0x0010, 0x0010), vr.PN, []byte("Smith"), false)
	assert.Equal(t, []string{"Smith"}, e.StringsWithCharset("ISO_IR 999"))
}
