// Package element implements the DICOM element tree: a tagged sum type
// over {Leaf, Sequence, Item, Root}, with parent back-pointers kept as
// plain non-owning references (the design's original arena/index scheme
// guards against owning-pointer cycles in languages with manual memory
// management; Go's garbage collector already makes parent<->child
// reference cycles safe and cheap to rewire, so the idiomatic Go
// rendering is a parent field that participates in traversal but never
// in ownership — ownership flows strictly Root/parent -> children).
// Grounded on the upstream tree's Element/Item/DataSet triad
// (representation.go, element.go), restructured into the four-variant
// sum type the design calls for (the upstream tree conflates
// Element/Item/DataSet into one map-keyed type with no distinct Root
// or Leaf/Sequence split, and preserves no top-level insertion order).
package element

import (
	"strconv"
	"strings"

	"github.com/b71729/dcmkit/bytestream"
	"github.com/b71729/dcmkit/tag"
	"github.com/b71729/dcmkit/vr"
)

// Kind discriminates the three non-Root Element variants.
type Kind int

const (
	KindLeaf Kind = iota
	KindSequence
	KindItem
)

// Element is the single struct backing all three non-Root variants,
// discriminated by Kind. Which fields are meaningful depends on Kind:
//   - KindLeaf: VR, Value, BigEndian. Strings/FirstString decode the
//     string-family VRs; Numbers decodes the numeric-family VRs.
//   - KindSequence: Undefined, children (Item elements).
//   - KindItem: Undefined, children (Leaf/Sequence elements), or
//     Fragment when it is an encapsulated pixel-data fragment.
type Element struct {
	Tag       tag.Tag
	Kind      Kind
	VR        vr.VR
	Value     []byte // raw bytes, Leaf only; always even length
	BigEndian bool
	Undefined  bool   // Sequence/Item: length was (or will be emitted as) undefined
	IsFragment bool   // Item: true when this item holds a pixel-data fragment (or offset table) rather than nested elements
	Fragment   []byte // Item: the fragment's raw bytes when IsFragment is true; may be empty for the offset table

	parent   *Element
	children []*Element
}

// Root is the top-level container: an ordered map of top-level Elements
// keyed by tag, owning the entire subtree.
type Root struct {
	TransferSyntaxUID string

	order []*Element
	index map[tag.Tag]*Element
}

// NewRoot returns an empty tree.
func NewRoot() *Root {
	return &Root{index: make(map[tag.Tag]*Element)}
}

// NewLeaf constructs a detached Leaf element. Value is padded to even
// length using the VR's pad byte if needed, preserving the pad invariant.
func NewLeaf(t tag.Tag, v vr.VR, value []byte, bigEndian bool) *Element {
	return &Element{
		Tag:       t,
		Kind:      KindLeaf,
		VR:        v,
		Value:     pad(value, v.PadByte()),
		BigEndian: bigEndian,
	}
}

// NewSequence constructs a detached, initially empty Sequence element.
func NewSequence(t tag.Tag, undefined bool) *Element {
	return &Element{Tag: t, Kind: KindSequence, VR: vr.SQ, Undefined: undefined}
}

// NewItem constructs a detached, initially empty Item element.
func NewItem(undefined bool) *Element {
	return &Element{Tag: tag.Item, Kind: KindItem, Undefined: undefined}
}

// NewFragmentItem constructs an Item holding one encapsulated
// pixel-data fragment (or the offset table, which may be empty).
func NewFragmentItem(fragment []byte) *Element {
	return &Element{Tag: tag.Item, Kind: KindItem, IsFragment: true, Fragment: fragment}
}

func pad(v []byte, padByte byte) []byte {
	if len(v)%2 == 1 {
		v = append(append([]byte{}, v...), padByte)
	}
	return v
}

// SetString replaces a Leaf's value with s, re-applying the VR's pad
// byte so the raw-bytes-length invariant (always even) holds.
func (e *Element) SetString(s string) {
	e.Value = pad([]byte(s), e.VR.PadByte())
}

// AddTopLevel attaches child as a top-level element of r, in insertion
// order (or replacing the existing element of the same tag in place,
// preserving its position). It does not apply any duplicate policy;
// callers (the parser, anonymizer) decide whether to call this when a
// tag already exists.
func (r *Root) AddTopLevel(child *Element) {
	child.parent = nil
	if existing, ok := r.index[child.Tag]; ok {
		for i, e := range r.order {
			if e == existing {
				r.order[i] = child
				break
			}
		}
	} else {
		r.order = append(r.order, child)
	}
	r.index[child.Tag] = child
}

// AddChild attaches child as a child of e (a Sequence gaining an Item,
// or an Item gaining an Element), in insertion order.
func (e *Element) AddChild(child *Element) {
	child.parent = e
	e.children = append(e.children, child)
}

// ReplaceChildAt swaps the child at position i for replacement, in place.
func (e *Element) ReplaceChildAt(i int, replacement *Element) {
	replacement.parent = e
	e.children[i] = replacement
}

// Children returns e's direct children in insertion order.
func (e *Element) Children() []*Element {
	return e.children
}

// Parent returns e's parent element and true, or (nil, false) if e is
// top-level (its parent is the Root itself).
func (e *Element) Parent() (*Element, bool) {
	if e.parent == nil {
		return nil, false
	}
	return e.parent, true
}

// Lookup returns the top-level element for t, if any.
func (r *Root) Lookup(t tag.Tag) (*Element, bool) {
	e, ok := r.index[t]
	return e, ok
}

// TopLevel returns the top-level elements in emit order.
func (r *Root) TopLevel() []*Element {
	return r.order
}

// Add attaches or replaces a top-level element; equivalent to AddTopLevel.
func (r *Root) Add(e *Element) { r.AddTopLevel(e) }

// Delete removes the top-level element for t, if present.
func (r *Root) Delete(t tag.Tag) {
	existing, ok := r.index[t]
	if !ok {
		return
	}
	delete(r.index, t)
	for i, e := range r.order {
		if e == existing {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Group returns the top-level elements whose tag belongs to the given
// group number.
func (r *Root) Group(group uint16) []*Element {
	var out []*Element
	for _, e := range r.order {
		if e.Tag.Group() == group {
			out = append(out, e)
		}
	}
	return out
}

// Walk visits every element in the tree (top-level and nested,
// depth-first, pre-order). visit returning false stops descent into
// that element's children, not the whole walk.
func (r *Root) Walk(visit func(*Element) bool) {
	for _, e := range r.order {
		walk(e, visit)
	}
}

func walk(e *Element, visit func(*Element) bool) {
	if !visit(e) {
		return
	}
	for _, c := range e.children {
		walk(c, visit)
	}
}

// DeletePrivate removes every element, at any depth, whose tag group is
// odd.
func (r *Root) DeletePrivate() {
	for _, t := range topLevelTags(r) {
		if t.IsPrivate() {
			r.Delete(t)
		}
	}
	r.Walk(func(e *Element) bool {
		e.deletePrivateChildren()
		return true
	})
}

func topLevelTags(r *Root) []tag.Tag {
	out := make([]tag.Tag, 0, len(r.order))
	for _, e := range r.order {
		out = append(out, e.Tag)
	}
	return out
}

func (e *Element) deletePrivateChildren() {
	kept := e.children[:0:0]
	for _, child := range e.children {
		if child.Tag.IsPrivate() {
			continue
		}
		kept = append(kept, child)
	}
	e.children = kept
}

// Strings decodes a string-family Leaf's value into its backslash
// multi-valued components.
func (e *Element) Strings() []string {
	return splitTrimmed(e.Value)
}

// StringsWithCharset is Strings, transcoded component-by-component from
// the DICOM Specific Character Set (0008,0005) defined term
// specificCharacterSet into UTF-8. An empty term, "ISO_IR 6" (the
// default, already ASCII/UTF-8-compatible), or any term this package
// does not recognize leaves the components unchanged.
func (e *Element) StringsWithCharset(specificCharacterSet string) []string {
	return decodeCharset(splitTrimmed(e.Value), specificCharacterSet)
}

func splitTrimmed(raw []byte) []string {
	s := strings.TrimRight(string(raw), "\x00 ")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\\")
}

// FirstString returns the first (or only) component of a string-family
// Leaf's value, or "" if empty.
func (e *Element) FirstString() string {
	parts := e.Strings()
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// Numbers decodes a numeric-family Leaf's raw bytes into its
// scalar-or-list components, widened to float64 regardless of the VR's
// native width (US/SS/UL/SL as integers, FL/FD as IEEE-754 floats).
// Returns nil for a non-numeric VR. Byte order follows e.BigEndian, the
// encoding state the value was parsed or last re-encoded under.
func (e *Element) Numbers() []float64 {
	size := e.VR.Size()
	if !e.VR.IsNumeric() || size == 0 {
		return nil
	}
	r := bytestream.NewReader(e.Value)
	r.SetBigEndian(e.BigEndian)

	var out []float64
	for r.Remaining() >= size {
		switch e.VR {
		case vr.US:
			v, _ := r.ReadUint16()
			out = append(out, float64(v))
		case vr.SS:
			v, _ := r.ReadInt16()
			out = append(out, float64(v))
		case vr.UL:
			v, _ := r.ReadUint32()
			out = append(out, float64(v))
		case vr.SL:
			v, _ := r.ReadInt32()
			out = append(out, float64(v))
		case vr.FL:
			v, _ := r.ReadFloat32()
			out = append(out, float64(v))
		case vr.FD:
			v, _ := r.ReadFloat64()
			out = append(out, v)
		}
	}
	return out
}

// IsEmpty reports whether a Leaf carries no meaningful value.
func (e *Element) IsEmpty() bool {
	return len(strings.TrimRight(string(e.Value), "\x00 ")) == 0
}

// ParseInt attempts to parse s as a decimal integer, reporting whether
// it succeeded.
func ParseInt(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
