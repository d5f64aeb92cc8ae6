// Package transfersyntax maps transfer syntax UID strings to the three
// booleans that govern wire encoding: VR explicitness, byte order, and
// whether pixel data is compressed. Grounded on the upstream tree's
// TransferSyntaxToEncodingMap, extended with the catch-all/unrecognized
// distinction that map lacked.
package transfersyntax

import (
	"github.com/b71729/dcmkit/dictionary"
	"github.com/b71729/dcmkit/internal/log"
)

// Syntax is the resolved encoding behavior implied by a transfer syntax UID.
type Syntax struct {
	UID        string
	Explicit   bool
	BigEndian  bool
	Compressed bool
}

const (
	ImplicitVRLittleEndian     = "1.2.840.10008.1.2"
	ExplicitVRLittleEndian     = "1.2.840.10008.1.2.1"
	DeflatedExplicitVRLittleEndian = "1.2.840.10008.1.2.1.99"
	ExplicitVRBigEndian        = "1.2.840.10008.1.2.2"
)

var baseline = map[string]Syntax{
	ImplicitVRLittleEndian: {UID: ImplicitVRLittleEndian, Explicit: false, BigEndian: false, Compressed: false},
	ExplicitVRLittleEndian: {UID: ExplicitVRLittleEndian, Explicit: true, BigEndian: false, Compressed: false},
	DeflatedExplicitVRLittleEndian: {UID: DeflatedExplicitVRLittleEndian, Explicit: true, BigEndian: false, Compressed: false},
	ExplicitVRBigEndian:    {UID: ExplicitVRBigEndian, Explicit: true, BigEndian: true, Compressed: false},
}

// Default is used when a dataset declares no transfer syntax at all
// (e.g. a headerless implicit-VR stream).
var Default = baseline[ImplicitVRLittleEndian]

// Resolve maps a transfer syntax UID to its Syntax. An empty UID
// resolves to Default. A UID recognised by the dictionary as some other
// transfer syntax resolves to explicit/little-endian/compressed. A
// wholly unrecognized UID resolves to explicit/little-endian and logs a
// warning.
func Resolve(uid string) Syntax {
	if uid == "" {
		return Default
	}
	if s, ok := baseline[uid]; ok {
		return s
	}
	if dictionary.IsTransferSyntax(uid) {
		return Syntax{UID: uid, Explicit: true, BigEndian: false, Compressed: true}
	}
	log.L().Warn().Str("uid", uid).Msg("unrecognized transfer syntax UID; defaulting to explicit little-endian")
	return Syntax{UID: uid, Explicit: true, BigEndian: false, Compressed: false}
}

// IsTransferSyntaxUID reports whether uid is one of the four baseline
// syntaxes this engine knows unconditionally.
func IsTransferSyntaxUID(uid string) bool {
	_, ok := baseline[uid]
	return ok
}
