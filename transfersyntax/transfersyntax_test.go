package transfersyntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveBaselineSyntaxes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		uid                string
		explicit, bigEndian, compressed bool
	}{
		{ImplicitVRLittleEndian, false, false, false},
		{ExplicitVRLittleEndian, true, false, false},
		{DeflatedExplicitVRLittleEndian, true, false, false},
		{ExplicitVRBigEndian, true, true, false},
	}
	for _, c := range cases {
		s := Resolve(c.uid)
		assert.Equal(t, c.explicit, s.Explicit, c.uid)
		assert.Equal(t, c.bigEndian, s.BigEndian, c.uid)
		assert.Equal(t, c.compressed, s.Compressed, c.uid)
	}
}

func TestResolveEmptyDefaultsImplicit(t *testing.T) {
	t.Parallel()
	s := Resolve("")
	assert.Equal(t, Default, s)
}

func TestResolveRecognisedNonBaselineImpliesCompressed(t *testing.T) {
	t.Parallel()
	s := Resolve("1.2.840.10008.1.2.4.50")
	assert.True(t, s.Explicit)
	assert.False(t, s.BigEndian)
	assert.True(t, s.Compressed)
}

func TestResolveUnrecognisedWarnsAndDefaultsExplicit(t *testing.T) {
	t.Parallel()
	s := Resolve("9.9.9.9.9")
	assert.True(t, s.Explicit)
	assert.False(t, s.BigEndian)
	assert.False(t, s.Compressed)
}
