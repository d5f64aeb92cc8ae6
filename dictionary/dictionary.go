// Package dictionary is the process-wide, immutable-after-init table of
// tag and UID metadata the parser and encoder consult. It is rebuilt
// from scratch against the field shapes the upstream tree's code
// referenced (dictionary.DictEntry, dictionary.UIDEntry,
// dictionary.LookupTag, dictionary.LookupUID) — its own source was
// never part of the retrieved tree, only a codegen tool
// (util/gendatadict) documenting those shapes. Table data is loaded
// from two embedded tab-separated files rather than generated Go
// source literals.
package dictionary

import (
	"bufio"
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/b71729/dcmkit/tag"
	"github.com/b71729/dcmkit/vr"
)

//go:embed data/elements.tsv data/uids.tsv
var dataFS embed.FS

// DictEntry describes a known or synthesized data element tag.
type DictEntry struct {
	Tag        tag.Tag
	Name       string
	VR         vr.VR
	VM         string
	Retired    bool
	Synthetic  bool // true when this entry was fabricated by lookup fallback
}

// UIDEntry describes a known UID (transfer syntax, SOP class, etc.).
type UIDEntry struct {
	UID     string
	Name    string
	Type    string
	Retired bool
}

type wildcard struct {
	groupMask, groupValue     uint16
	elementMask, elementValue uint16
	entry                     DictEntry
}

var (
	loadOnce  sync.Once
	byTag     map[tag.Tag]DictEntry
	byUID     map[string]UIDEntry
	wildcards []wildcard
)

func ensureLoaded() {
	loadOnce.Do(func() {
		byTag = make(map[tag.Tag]DictEntry)
		byUID = make(map[string]UIDEntry)
		mustLoadElements()
		mustLoadUIDs()
		installWildcards()
	})
}

func mustLoadElements() {
	f, err := dataFS.Open("data/elements.tsv")
	if err != nil {
		panic(fmt.Sprintf("dictionary: embedded elements.tsv missing: %v", err))
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 5 {
			continue
		}
		t, err := parseTag(fields[0])
		if err != nil {
			continue
		}
		byTag[t] = DictEntry{
			Tag:     t,
			Name:    fields[1],
			VR:      vr.VR(fields[2]),
			VM:      fields[3],
			Retired: fields[4] == "true",
		}
	}
}

func mustLoadUIDs() {
	f, err := dataFS.Open("data/uids.tsv")
	if err != nil {
		panic(fmt.Sprintf("dictionary: embedded uids.tsv missing: %v", err))
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 4 {
			continue
		}
		byUID[fields[0]] = UIDEntry{
			UID:     fields[0],
			Name:    fields[1],
			Type:    fields[2],
			Retired: fields[3] == "true",
		}
	}
}

// parseTag parses a "GGGG,EEEE" hex tag literal.
func parseTag(s string) (tag.Tag, error) {
	var g, e uint32
	if _, err := fmt.Sscanf(s, "%04X,%04X", &g, &e); err != nil {
		return 0, err
	}
	return tag.New(uint16(g), uint16(e)), nil
}

// installWildcards registers the repeater-group patterns the spec names
// explicitly: (1000,xxxx), (1010,xxxx), (50xx,xxxx), (0028,xxxx).
func installWildcards() {
	wildcards = []wildcard{
		{
			groupMask: 0xFFFF, groupValue: 0x1000,
			elementMask: 0x0000, elementValue: 0x0000,
			entry: DictEntry{Name: "Escape Triplet", VR: vr.US, VM: "3"},
		},
		{
			groupMask: 0xFFFF, groupValue: 0x1010,
			elementMask: 0x0000, elementValue: 0x0000,
			entry: DictEntry{Name: "Zoom Center Coordinates", VR: vr.SS, VM: "2"},
		},
		{
			groupMask: 0xFF00, groupValue: 0x5000,
			elementMask: 0x0000, elementValue: 0x0000,
			entry: DictEntry{Name: "Overlay Data", VR: vr.OW, VM: "1"},
		},
		{
			groupMask: 0xFFFF, groupValue: 0x0028,
			elementMask: 0x0000, elementValue: 0x0000,
			entry: DictEntry{Name: "Image Presentation Group", VR: vr.UN, VM: "1"},
		},
	}
}

// Lookup returns the dictionary entry for t, synthesizing a fallback per
// the rules: group-length suffix, private odd group, wildcard repeater
// patterns, and finally "Unknown".
func Lookup(t tag.Tag) DictEntry {
	ensureLoaded()

	if e, ok := byTag[t]; ok {
		return e
	}
	if t.IsGroupLength() {
		return DictEntry{Tag: t, Name: "Group Length", VR: vr.UL, VM: "1", Synthetic: true}
	}
	if t.IsPrivate() {
		return DictEntry{Tag: t, Name: "Private", VR: vr.UN, VM: "1", Synthetic: true}
	}
	for _, w := range wildcards {
		if t.Group()&w.groupMask == w.groupValue {
			e := w.entry
			e.Tag = t
			e.Synthetic = true
			return e
		}
	}
	return DictEntry{Tag: t, Name: "Unknown", VR: vr.UN, VM: "1", Synthetic: true}
}

// LookupUID returns the UID registry entry for value, if known.
func LookupUID(value string) (UIDEntry, bool) {
	ensureLoaded()
	e, ok := byUID[strings.TrimRight(value, "\x00 ")]
	return e, ok
}

// IsTransferSyntax reports whether value is a UID registered as a
// transfer syntax.
func IsTransferSyntax(value string) bool {
	e, ok := LookupUID(value)
	return ok && e.Type == "TransferSyntax"
}

// IsSOPClass reports whether value is a UID registered as a SOP class.
func IsSOPClass(value string) bool {
	e, ok := LookupUID(value)
	return ok && e.Type == "SOPClass"
}
