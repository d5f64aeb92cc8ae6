// Package parser implements the recursive, transfer-syntax-sensitive
// reader that turns DICOM bytes into an element.Root. Grounded on the
// upstream tree's reader.go (crawlMeta/crawlElements/GetElement/
// getSequence) for the two-phase meta/dataset structure and on
// element.go's ElementReader (ReadElement/readItem/
// shouldReadEmbeddedElements) for the item/fragment decision logic —
// reimplemented against bytestream.Reader instead of github.com/b71729/bin
// (never verifiably available as a dependency) and against the
// deterministic meta-boundary rule the spec mandates in place of
// element.go's byte-sniffing determineEncoding heuristic.
package parser

import (
	"errors"
	"fmt"
	"io"

	"github.com/b71729/dcmkit/bytestream"
	"github.com/b71729/dcmkit/dictionary"
	"github.com/b71729/dcmkit/element"
	"github.com/b71729/dcmkit/internal/config"
	"github.com/b71729/dcmkit/internal/log"
	"github.com/b71729/dcmkit/tag"
	"github.com/b71729/dcmkit/transfersyntax"
	"github.com/b71729/dcmkit/vr"
)

// Options controls a single Parse call.
type Options struct {
	// Overwrite, when true, replaces an existing element at a parent
	// when a duplicate tag is encountered instead of keeping the first.
	Overwrite bool

	// ForcedSyntax, if non-empty, overrides transfer-syntax resolution
	// at the meta/dataset boundary (used by callers that already know
	// the dataset's encoding, e.g. from an out-of-band source).
	ForcedSyntax string
}

// Diagnostics accumulates non-fatal conditions recovered during a parse.
type Diagnostics struct {
	Warnings []string
	Partial  bool
}

func (d *Diagnostics) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	d.Warnings = append(d.Warnings, msg)
	log.L().Warn().Msg(msg)
}

const undefinedLength = 0xFFFFFFFF

var errMalformed = errors.New("parser: malformed element")

type state struct {
	r            *bytestream.Reader
	diag         *Diagnostics
	opts         Options
	strict       bool
	explicit     bool
	bigEndian    bool
	metaSwitched bool
	inPixels     bool
}

// Parse reads a complete DICOM stream from r (preamble optional) and
// returns the resulting tree plus a diagnostics record. A non-nil error
// is returned only for conditions the spec classifies as fatal I/O
// (the stream could not be read at all); malformed content is recorded
// in Diagnostics and the partially built tree is still returned.
func Parse(r io.Reader, opts Options) (*element.Root, *Diagnostics, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parser: read input: %w", err)
	}
	return ParseBytes(buf, opts)
}

// ParseBytes is Parse over an already-loaded in-memory buffer.
func ParseBytes(buf []byte, opts Options) (*element.Root, *Diagnostics, error) {
	if len(buf) < 4 {
		return nil, nil, fmt.Errorf("parser: input too short (%d bytes)", len(buf))
	}

	root := element.NewRoot()
	diag := &Diagnostics{}

	hasPreamble := len(buf) >= 132 && string(buf[128:132]) == "DICM"
	offset := 0
	st := &state{diag: diag, opts: opts, strict: config.Get().StrictMode}
	if hasPreamble {
		offset = 132
		st.explicit = true
		st.bigEndian = false
	} else {
		st.explicit = false
		st.bigEndian = false
	}
	st.r = bytestream.NewReader(buf[offset:])
	st.r.SetBigEndian(st.bigEndian)

	if opts.ForcedSyntax != "" {
		syn := transfersyntax.Resolve(opts.ForcedSyntax)
		st.explicit = syn.Explicit
		st.bigEndian = syn.BigEndian
		st.r.SetBigEndian(st.bigEndian)
		st.metaSwitched = true
		root.TransferSyntaxUID = opts.ForcedSyntax
	}

	for st.r.Remaining() > 0 {
		if err := parseTopLevel(root, st); err != nil {
			diag.Partial = true
			diag.warn("aborting parse at offset %d: %v", st.r.Pos(), err)
			break
		}
	}
	return root, diag, nil
}

func parseTopLevel(root *element.Root, st *state) error {
	startPos := st.r.Pos()
	t, err := st.r.ReadTag()
	if err != nil {
		return err
	}

	if t.Group() != 0x0002 && !st.metaSwitched {
		if err := performMetaSwitch(root, st, startPos); err != nil {
			return err
		}
		t, err = peekTagAt(st, startPos)
		if err != nil {
			return err
		}
	}

	el, err := parseOneElement(t, st)
	if err != nil {
		return err
	}
	if el == nil {
		return nil // delimiter at top level: tolerated, nothing to attach
	}

	if _, ok := root.Lookup(t); ok {
		st.diag.warn("duplicate tag %s at top level", t)
		if !st.opts.Overwrite {
			return nil
		}
	}
	root.AddTopLevel(el)
	if t == tag.TransferSyntaxUID {
		root.TransferSyntaxUID = el.FirstString()
	}
	return nil
}

// performMetaSwitch resolves the dataset's transfer syntax from the
// already-parsed 0002,0010 element (or ForcedSyntax), rewinding 4 bytes
// and re-decoding the tag if the byte order changed.
func performMetaSwitch(root *element.Root, st *state, tagStart int) error {
	uid := root.TransferSyntaxUID
	var syn transfersyntax.Syntax
	if st.opts.ForcedSyntax != "" {
		syn = transfersyntax.Resolve(st.opts.ForcedSyntax)
	} else if uid == "" {
		syn = transfersyntax.Default
		st.diag.warn("no transfer syntax UID in file meta; defaulting to implicit little-endian")
	} else {
		syn = transfersyntax.Resolve(uid)
	}

	endianFlipped := syn.BigEndian != st.bigEndian
	st.explicit = syn.Explicit
	st.bigEndian = syn.BigEndian
	st.r.SetBigEndian(st.bigEndian)
	st.metaSwitched = true

	if endianFlipped {
		if err := st.r.Seek(tagStart); err != nil {
			return err
		}
	}
	return nil
}

func peekTagAt(st *state, tagStart int) (tag.Tag, error) {
	if err := st.r.Seek(tagStart); err != nil {
		return 0, err
	}
	return st.r.ReadTag()
}

// parseOneElement reads the VR/length header for t (already consumed
// from the stream) and constructs the resulting element, recursing into
// sequences/items as needed. A nil element with a nil error indicates a
// delimiter tag that was consumed but produces no node.
func parseOneElement(t tag.Tag, st *state) (*element.Element, error) {
	if t == tag.ItemDelimitationItem || t == tag.SequenceDelimitationItem {
		if _, err := st.r.ReadUint32(); err != nil { // filler length, always 0
			return nil, err
		}
		return nil, nil
	}

	entry := dictionary.Lookup(t)
	finalVR := entry.VR
	isDelimiterShaped := t == tag.Item

	var length uint32
	if isDelimiterShaped {
		n, err := st.r.ReadUint32()
		if err != nil {
			return nil, err
		}
		length = n
	} else if st.explicit {
		vrBytes, err := st.r.ReadBytes(2)
		if err != nil {
			return nil, err
		}
		wireVR := vr.VR(vrBytes)
		if vr.Valid(string(vrBytes)) {
			finalVR = wireVR
		} else if st.strict {
			return nil, fmt.Errorf("%w: tag %s has invalid wire VR %q", errMalformed, t, vrBytes)
		} else {
			st.diag.warn("tag %s: invalid wire VR %q; using dictionary VR %s", t, vrBytes, finalVR)
		}
		if finalVR.IsLongForm() {
			if _, err := st.r.ReadBytes(2); err != nil { // reserved
				return nil, err
			}
			n, err := st.r.ReadUint32()
			if err != nil {
				return nil, err
			}
			length = n
		} else {
			n, err := st.r.ReadUint16()
			if err != nil {
				return nil, err
			}
			length = uint32(n)
		}
	} else {
		n, err := st.r.ReadUint32()
		if err != nil {
			return nil, err
		}
		length = n
	}

	if length != undefinedLength && length%2 == 1 {
		return nil, fmt.Errorf("%w: tag %s has odd length %d", errMalformed, t, length)
	}

	if t == tag.Item {
		return parseItem(t, length, st)
	}

	if t == tag.PixelData && length == undefinedLength {
		return parsePixelSequence(t, st)
	}

	if finalVR == vr.SQ || (finalVR == vr.UN && length == undefinedLength) {
		return parseSequence(t, finalVR, length, st)
	}

	raw, err := st.r.ReadBytes(int(length))
	if err != nil {
		return nil, err
	}
	leaf := element.NewLeaf(t, finalVR, append([]byte{}, raw...), st.bigEndian)
	return leaf, nil
}

func parsePixelSequence(t tag.Tag, st *state) (*element.Element, error) {
	seq := element.NewSequence(t, true)
	seq.VR = vr.OW
	prevInPixels := st.inPixels
	st.inPixels = true
	defer func() { st.inPixels = prevInPixels }()

	for {
		childTag, err := st.r.ReadTag()
		if err != nil {
			return nil, err
		}
		if childTag == tag.SequenceDelimitationItem {
			if _, err := st.r.ReadUint32(); err != nil {
				return nil, err
			}
			return seq, nil
		}
		if childTag != tag.Item {
			return nil, fmt.Errorf("%w: expected item or sequence delimiter inside encapsulated pixel data, got %s", errMalformed, childTag)
		}
		item, err := parseOneElement(childTag, st)
		if err != nil {
			return nil, err
		}
		seq.AddChild(item)
	}
}

func parseItem(t tag.Tag, length uint32, st *state) (*element.Element, error) {
	if st.inPixels {
		var frag []byte
		if length != undefinedLength && length > 0 {
			b, err := st.r.ReadBytes(int(length))
			if err != nil {
				return nil, err
			}
			frag = append([]byte{}, b...)
		}
		return element.NewFragmentItem(frag), nil
	}

	undefined := length == undefinedLength
	item := element.NewItem(undefined)

	var endPos int
	if !undefined {
		endPos = st.r.Pos() + int(length)
	}

	for {
		if !undefined && st.r.Pos() >= endPos {
			break
		}
		childTag, err := st.r.ReadTag()
		if err != nil {
			return nil, err
		}
		if childTag == tag.ItemDelimitationItem {
			if _, err := st.r.ReadUint32(); err != nil {
				return nil, err
			}
			break
		}
		child, err := parseOneElement(childTag, st)
		if err != nil {
			return nil, err
		}
		if child == nil {
			continue
		}
		attachWithDuplicatePolicy(item, childTag, child, st)
	}
	return item, nil
}

func parseSequence(t tag.Tag, sqVR vr.VR, length uint32, st *state) (*element.Element, error) {
	undefined := length == undefinedLength
	seq := element.NewSequence(t, undefined)

	var savedExplicit bool
	explicitnessReset := sqVR == vr.UN && undefined
	if explicitnessReset {
		savedExplicit = st.explicit
		st.explicit = false
		defer func() { st.explicit = savedExplicit }()
	}

	var endPos int
	if !undefined {
		endPos = st.r.Pos() + int(length)
	}

	for {
		if !undefined && st.r.Pos() >= endPos {
			break
		}
		childTag, err := st.r.ReadTag()
		if err != nil {
			return nil, err
		}
		if childTag == tag.SequenceDelimitationItem {
			if _, err := st.r.ReadUint32(); err != nil {
				return nil, err
			}
			break
		}
		if childTag != tag.Item {
			return nil, fmt.Errorf("%w: expected item tag inside sequence %s, got %s", errMalformed, t, childTag)
		}
		item, err := parseOneElement(childTag, st)
		if err != nil {
			return nil, err
		}
		seq.AddChild(item)
	}
	return seq, nil
}

// attachWithDuplicatePolicy implements the warn-and-keep-first (or
// overwrite) rule for a parent that is an Item (top-level duplicates
// are handled directly in parseTopLevel against the Root's tag index).
func attachWithDuplicatePolicy(parent *element.Element, t tag.Tag, child *element.Element, st *state) {
	for i, existing := range parent.Children() {
		if existing.Tag != t {
			continue
		}
		st.diag.warn("duplicate tag %s inside item", t)
		if !st.opts.Overwrite {
			return
		}
		parent.ReplaceChildAt(i, child)
		return
	}
	parent.AddChild(child)
}
