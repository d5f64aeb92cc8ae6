// Package encoder serializes an element.Root back to DICOM bytes. The
// upstream tree has no writer anywhere in its history; this package is
// enriched entirely from the rest of the retrieved corpus, grounded on
// other_examples/gillesdemey-go-dicom's writer.go (EncodeDataElement,
// encodeElementHeader, writeBasicOffsetTable, writeRawItem) for the
// VR-class-dependent header framing and the recursive
// sequence/item-with-delimiters encoding pattern.
package encoder

import (
	"fmt"
	"io"

	"github.com/b71729/dcmkit/bytestream"
	"github.com/b71729/dcmkit/element"
	"github.com/b71729/dcmkit/internal/config"
	"github.com/b71729/dcmkit/tag"
	"github.com/b71729/dcmkit/transfersyntax"
	"github.com/b71729/dcmkit/uidgen"
	"github.com/b71729/dcmkit/vr"
)

// Options controls a single Write call.
type Options struct {
	// IncludeEmptyParents, when true, emits Sequences that have no
	// children instead of omitting them. Items are emitted whether or
	// not they have children.
	IncludeEmptyParents bool

	// IgnoreMeta, when true, skips the file-meta fixup pass and emits
	// whatever group-0002 elements are already present verbatim, except
	// (0002,0000), which Write always recomputes.
	IgnoreMeta bool

	// SourceApplicationEntityTitle fills 0002,0016 when the meta fixup
	// pass must synthesize it.
	SourceApplicationEntityTitle string
}

const implementationVersionName = "DCMKIT_1_0"

// Write serializes root to w: preamble, DICM signature, fixed-up
// file-meta group in explicit-VR little-endian, then the dataset in
// root's current transfer syntax.
func Write(root *element.Root, w io.Writer, opts Options) error {
	if !opts.IgnoreMeta {
		if err := ensureFileMeta(root, opts); err != nil {
			return err
		}
	}

	out := bytestream.NewWriter()
	out.WriteZeros(128)
	out.WriteBytes([]byte("DICM"))

	metaWriter := bytestream.NewWriter()
	metaWriter.SetBigEndian(false)
	for _, e := range root.Group(0x0002) {
		if e.Tag.IsGroupLength() {
			continue
		}
		if err := encodeElement(metaWriter, e, true, false, opts); err != nil {
			return fmt.Errorf("encoder: meta element %s: %w", e.Tag, err)
		}
	}

	glElem := element.NewLeaf(tag.FileMetaInformationGroupLength, vr.UL, encodeUint32(uint32(metaWriter.Len())), false)
	if err := encodeElement(out, glElem, true, false, opts); err != nil {
		return err
	}
	out.WriteBytes(metaWriter.Bytes())

	syntax := transfersyntax.Resolve(root.TransferSyntaxUID)
	for _, e := range root.TopLevel() {
		if e.Tag.Group() == 0x0002 {
			continue
		}
		if err := encodeElement(out, e, syntax.Explicit, syntax.BigEndian, opts); err != nil {
			return fmt.Errorf("encoder: element %s: %w", e.Tag, err)
		}
	}

	_, err := w.Write(out.Bytes())
	return err
}

func encodeUint32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// ensureFileMeta inserts mandatory meta elements that are absent,
// always rewrites (0002,0010) to root's current transfer syntax,
// deletes any stale group-length element (it is recomputed by Write),
// and leaves the rest of the meta group untouched.
func ensureFileMeta(root *element.Root, opts Options) error {
	root.Delete(tag.FileMetaInformationGroupLength)

	if _, ok := root.Lookup(tag.FileMetaInformationVersion); !ok {
		root.Add(element.NewLeaf(tag.FileMetaInformationVersion, vr.OB, []byte{0x00, 0x01}, false))
	}
	if _, ok := root.Lookup(tag.MediaStorageSOPClassUID); !ok {
		if sopClass, ok := root.Lookup(tag.New(0x0008, 0x0016)); ok {
			root.Add(element.NewLeaf(tag.MediaStorageSOPClassUID, vr.UI, sopClass.Value, false))
		}
	}
	if _, ok := root.Lookup(tag.MediaStorageSOPInstanceUID); !ok {
		if sopInstance, ok := root.Lookup(tag.New(0x0008, 0x0018)); ok {
			root.Add(element.NewLeaf(tag.MediaStorageSOPInstanceUID, vr.UI, sopInstance.Value, false))
		}
	}
	if root.TransferSyntaxUID == "" {
		root.TransferSyntaxUID = transfersyntax.ExplicitVRLittleEndian
	}
	root.Add(element.NewLeaf(tag.TransferSyntaxUID, vr.UI, []byte(root.TransferSyntaxUID), false))

	_, hasClass := root.Lookup(tag.ImplementationClassUID)
	_, hasVersion := root.Lookup(tag.ImplementationVersionName)
	if !hasClass && !hasVersion {
		implUID, err := uidgen.Implementation(config.Get().RootUID, false)
		if err != nil {
			return fmt.Errorf("encoder: generate implementation class UID: %w", err)
		}
		root.Add(element.NewLeaf(tag.ImplementationClassUID, vr.UI, []byte(implUID), false))
		root.Add(element.NewLeaf(tag.ImplementationVersionName, vr.SH, []byte(implementationVersionName), false))
	}

	if _, ok := root.Lookup(tag.New(0x0002, 0x0016)); !ok && opts.SourceApplicationEntityTitle != "" {
		root.Add(element.NewLeaf(tag.New(0x0002, 0x0016), vr.AE, []byte(opts.SourceApplicationEntityTitle), false))
	}
	return nil
}

// encodeElement writes one top-level (or nested) element's header and
// value, recursing for Sequence/Item children. explicit/bigEndian are
// the ambient encoding of w at the point of the call.
func encodeElement(w *bytestream.Writer, e *element.Element, explicit, bigEndian bool, opts Options) error {
	w.SetBigEndian(bigEndian)

	switch e.Kind {
	case element.KindSequence:
		return encodeSequence(w, e, explicit, bigEndian, opts)
	case element.KindItem:
		return encodeItemAsElement(w, e, explicit, bigEndian, opts)
	default:
		return encodeLeaf(w, e, explicit)
	}
}

func encodeHeader(w *bytestream.Writer, t tag.Tag, v vr.VR, explicit bool, length uint32) {
	w.WriteTag(t)
	if !explicit {
		w.WriteUint32(length)
		return
	}
	w.WriteBytes([]byte(v))
	if v.IsLongForm() {
		w.WriteZeros(2)
		w.WriteUint32(length)
	} else {
		w.WriteUint16(uint16(length))
	}
}

func encodeLeaf(w *bytestream.Writer, e *element.Element, explicit bool) error {
	encodeHeader(w, e.Tag, e.VR, explicit, uint32(len(e.Value)))
	w.WriteBytes(e.Value)
	return nil
}

const undefinedLength = 0xFFFFFFFF

func encodeSequence(w *bytestream.Writer, e *element.Element, explicit, bigEndian bool, opts Options) error {
	if len(e.Children()) == 0 && !opts.IncludeEmptyParents {
		return nil
	}
	encodeHeader(w, e.Tag, e.VR, explicit, undefinedLength)
	for _, item := range e.Children() {
		if err := encodeItemAsElement(w, item, explicit, bigEndian, opts); err != nil {
			return err
		}
	}
	w.WriteTag(tag.SequenceDelimitationItem)
	w.WriteUint32(0)
	return nil
}

// encodeItemAsElement writes one Item: either its raw pixel-data
// fragment bytes with a defined (even-padded) length and no delimiter,
// or its nested element children using undefined length followed by an
// item delimiter (the encoder never takes the second pass needed to
// compute a defined length for an item with children).
func encodeItemAsElement(w *bytestream.Writer, item *element.Element, explicit, bigEndian bool, opts Options) error {
	if item.IsFragment {
		paddedLen := len(item.Fragment)
		if paddedLen%2 == 1 {
			paddedLen++
		}
		w.WriteTag(tag.Item)
		w.WriteUint32(uint32(paddedLen))
		w.WritePadded(item.Fragment, 0x00)
		return nil
	}

	w.WriteTag(tag.Item)
	w.WriteUint32(undefinedLength)
	for _, child := range item.Children() {
		if err := encodeElement(w, child, explicit, bigEndian, opts); err != nil {
			return err
		}
	}
	w.WriteTag(tag.ItemDelimitationItem)
	w.WriteUint32(0)
	return nil
}
