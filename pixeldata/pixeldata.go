// Package pixeldata adapts the PIXEL_DATA element between the element
// tree's two legal shapes — a single leaf blob, or a Sequence of
// fragment Items — and a caller-facing slice of compressed fragments.
// Grounded on other_examples/fomoroller-dicom-anonymizer's
// internal/dicom/encapsulate.go (EncapsulateFrames/
// ExtractFramesFromEncapsulated, writeBasicOffsetTable/writeFrameItem/
// writeSequenceDelimiter) for the offset-table-then-fragments structure;
// reworked to build element.Element nodes directly rather than raw
// wire bytes, since this toolkit's parser/encoder already own framing.
package pixeldata

import (
	"fmt"

	"github.com/b71729/dcmkit/element"
	"github.com/b71729/dcmkit/tag"
	"github.com/b71729/dcmkit/vr"
)

// Fragments holds the compressed byte fragments of an encapsulated
// PIXEL_DATA element, offset table excluded, retrievable in order and
// never decoded.
type Fragments [][]byte

// Adapt reads e (which must be the PIXEL_DATA element as produced by
// the parser) and returns its fragments: a single-element slice holding
// the whole blob if e is a plain Leaf, or one slice entry per
// compressed fragment item (skipping the first, offset-table item) if
// e is an encapsulated Sequence.
func Adapt(e *element.Element) (Fragments, error) {
	if e.Tag != tag.PixelData {
		return nil, fmt.Errorf("pixeldata: %s is not the pixel data element", e.Tag)
	}

	switch e.Kind {
	case element.KindLeaf:
		return Fragments{e.Value}, nil
	case element.KindSequence:
		items := e.Children()
		if len(items) == 0 {
			return nil, fmt.Errorf("pixeldata: encapsulated pixel data has no items (missing offset table)")
		}
		frags := make(Fragments, 0, len(items)-1)
		for _, item := range items[1:] {
			frags = append(frags, item.Fragment)
		}
		return frags, nil
	default:
		return nil, fmt.Errorf("pixeldata: unexpected element kind for pixel data")
	}
}

// IsEncapsulated reports whether e is a Sequence-shaped PIXEL_DATA
// element (compressed, one fragment per Item) rather than a single
// uncompressed leaf blob.
func IsEncapsulated(e *element.Element) bool {
	return e.Kind == element.KindSequence
}

// Encapsulate builds a PIXEL_DATA Sequence element from frames: an
// offset table Item first (empty for zero or one frame, a 4-byte
// little-endian byte offset per frame otherwise — offsets measured
// from the first byte of the first fragment Item, so the first offset
// is 0 and each later one adds the previous fragment Item's 8-byte
// header plus its even-padded length), followed by one fragment Item
// per frame. Each frame is carried verbatim; callers need not pad an
// odd-length frame, since the encoder pads fragment items itself on
// write.
func Encapsulate(frames [][]byte) *element.Element {
	seq := element.NewSequence(tag.PixelData, true)
	seq.VR = vr.OB

	if len(frames) > 1 {
		table := make([]byte, 0, len(frames)*4)
		offset := uint32(0)
		for _, frame := range frames {
			table = appendUint32LE(table, offset)
			frameLen := uint32(len(frame))
			if frameLen%2 == 1 {
				frameLen++
			}
			offset += 8 + frameLen
		}
		seq.AddChild(element.NewFragmentItem(table))
	} else {
		seq.AddChild(element.NewFragmentItem(nil))
	}

	for _, frame := range frames {
		seq.AddChild(element.NewFragmentItem(frame))
	}
	return seq
}

// Single builds a PIXEL_DATA Leaf element holding one uncompressed blob.
func Single(blob []byte, pixelVR vr.VR) *element.Element {
	return element.NewLeaf(tag.PixelData, pixelVR, blob, false)
}

func appendUint32LE(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
