package element

import (
	"fmt"

	"github.com/b71729/dcmkit/dictionary"
	"github.com/b71729/dcmkit/tag"
	"github.com/b71729/dcmkit/transfersyntax"
	"github.com/b71729/dcmkit/vr"
)

// SetTransferSyntax updates r's transfer syntax UID (and its 0002,0010
// leaf, if present) and, if the byte order changes, walks every
// numeric or AT leaf in the tree (group 0002 exempt) re-encoding its
// raw bytes from the old endianness to the new one. uid must be a
// recognised transfer syntax UID; setting it to anything else is an
// invariant violation and returns an error rather than silently
// defaulting (unlike parser resolution, which recovers with a warning).
func (r *Root) SetTransferSyntax(uid string) error {
	if !transfersyntax.IsTransferSyntaxUID(uid) && !dictionary.IsTransferSyntax(uid) {
		return fmt.Errorf("element: %q is not a transfer syntax UID", uid)
	}

	oldSyntax := transfersyntax.Resolve(r.TransferSyntaxUID)
	newSyntax := transfersyntax.Resolve(uid)

	if oldSyntax.BigEndian != newSyntax.BigEndian {
		r.Walk(func(e *Element) bool {
			if e.Kind == KindLeaf && e.Tag.Group() != 0x0002 && isEndianSensitive(e.VR) {
				reverseValueChunks(e.Value, chunkSize(e.VR))
				e.BigEndian = newSyntax.BigEndian
			}
			return true
		})
	}

	r.TransferSyntaxUID = uid
	if tsElem, ok := r.Lookup(tag.TransferSyntaxUID); ok {
		tsElem.SetString(uid)
	}
	return nil
}

func isEndianSensitive(v vr.VR) bool {
	return v.IsNumeric() || v == vr.AT
}

func chunkSize(v vr.VR) int {
	if v == vr.AT {
		return 2 // AT is a pair of uint16 group/element halves, each swapped independently
	}
	return v.Size()
}

func reverseValueChunks(b []byte, size int) {
	if size <= 1 {
		return
	}
	for i := 0; i+size <= len(b); i += size {
		chunk := b[i : i+size]
		for l, rt := 0, size-1; l < rt; l, rt = l+1, rt-1 {
			chunk[l], chunk[rt] = chunk[rt], chunk[l]
		}
	}
}
