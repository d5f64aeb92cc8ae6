package anonymize

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/b71729/dcmkit/element"
	"github.com/b71729/dcmkit/encoder"
	"github.com/b71729/dcmkit/parser"
	"github.com/b71729/dcmkit/tag"
	"github.com/b71729/dcmkit/transfersyntax"
	"github.com/b71729/dcmkit/vr"
)

func writeSampleFile(t *testing.T, dir, name, patientID, sopInstance string) string {
	t.Helper()
	root := element.NewRoot()
	root.TransferSyntaxUID = transfersyntax.ExplicitVRLittleEndian
	root.Add(element.NewLeaf(tag.New(0x0010, 0x0010), vr.PN, []byte("Doe^Jane"), false))
	root.Add(element.NewLeaf(tag.New(0x0010, 0x0020), vr.LO, []byte(patientID), false))
	root.Add(element.NewLeaf(tag.New(0x0008, 0x0018), vr.UI, []byte(sopInstance), false))
	root.Add(element.NewLeaf(tag.New(0x0009, 0x0010), vr.UN, []byte("private"), false))

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	assert.NoError(t, err)
	defer f.Close()
	assert.NoError(t, encoder.Write(root, f, encoder.Options{}))
	return path
}

func TestValidateRequiresUIDRootWhenUIDEnabled(t *testing.T) {
	t.Parallel()
	err := Validate(Config{UID: true})
	assert.Error(t, err)

	err = Validate(Config{UID: true, UIDRoot: "1.2.3."})
	assert.NoError(t, err)
}

// Rewriting replaces a rule's target value and leaves an untouched
// tag alone.
func TestRunAppliesRewriteTable(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeSampleFile(t, dir, "a.dcm", "P001", "1.2.3.4")

	outDir := filepath.Join(dir, "out")
	cfg := Config{
		Rewrite:  []RewriteRule{{Tag: tag.New(0x0010, 0x0010), Replacement: "ANONYMOUS"}},
		WriteDir: outDir,
	}
	report, err := Run([]string{path}, cfg, time.Now())
	assert.NoError(t, err)
	assert.Equal(t, 1, report.FilesRead)
	assert.Equal(t, 1, report.FilesWritten)
	assert.Empty(t, report.Errors)

	outPath := filepath.Join(outDir, "a.dcm")
	data, err := os.ReadFile(outPath)
	assert.NoError(t, err)

	root, _, err := parser.ParseBytes(data, parser.Options{})
	assert.NoError(t, err)
	name, ok := root.Lookup(tag.New(0x0010, 0x0010))
	assert.True(t, ok)
	assert.Equal(t, "ANONYMOUS", name.FirstString())

	patientID, ok := root.Lookup(tag.New(0x0010, 0x0020))
	assert.True(t, ok)
	assert.Equal(t, "P001", patientID.FirstString())
}

// Enumeration gives each unique original value a distinct, stable
// replacement across files in the same run, recorded in the audit trail.
func TestEnumerationIsDeterministicAcrossFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	pathA := writeSampleFile(t, dir, "a.dcm", "P001", "1.2.3.4")
	pathB := writeSampleFile(t, dir, "b.dcm", "P002", "1.2.3.5")
	pathC := writeSampleFile(t, dir, "c.dcm", "P001", "1.2.3.6") // same patient ID as a.dcm

	outDir := filepath.Join(dir, "out")
	auditPath := filepath.Join(dir, "audit.json")
	cfg := Config{
		Rewrite:   []RewriteRule{{Tag: tag.New(0x0010, 0x0020), Replacement: "ANON", Enumerate: true}},
		WriteDir:  outDir,
		AuditPath: auditPath,
	}
	_, err := Run([]string{pathA, pathB, pathC}, cfg, time.Now())
	assert.NoError(t, err)

	readPatientID := func(name string) string {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		assert.NoError(t, err)
		root, _, err := parser.ParseBytes(data, parser.Options{})
		assert.NoError(t, err)
		el, ok := root.Lookup(tag.New(0x0010, 0x0020))
		assert.True(t, ok)
		return el.FirstString()
	}

	idA := readPatientID("a.dcm")
	idB := readPatientID("b.dcm")
	idC := readPatientID("c.dcm")

	assert.Equal(t, "ANON1", idA)
	assert.Equal(t, "ANON2", idB)
	assert.Equal(t, idA, idC) // same original patient ID reuses the same replacement

	auditData, err := os.ReadFile(auditPath)
	assert.NoError(t, err)
	assert.Contains(t, string(auditData), "ANON1")
}

// UID remapping replaces SOP Instance UID and mirrors it into Media
// Storage SOP Instance UID in file meta.
func TestUIDRemapMirrorsMediaStorageSOPInstance(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeSampleFile(t, dir, "a.dcm", "P001", "1.2.3.4")

	outDir := filepath.Join(dir, "out")
	cfg := Config{
		UID:      true,
		UIDRoot:  "1.2.826.0.1.3680043.9.7484.",
		WriteDir: outDir,
	}
	_, err := Run([]string{path}, cfg, time.Now())
	assert.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "a.dcm"))
	assert.NoError(t, err)
	root, _, err := parser.ParseBytes(data, parser.Options{})
	assert.NoError(t, err)

	sopInstance, ok := root.Lookup(tag.New(0x0008, 0x0018))
	assert.True(t, ok)
	assert.NotEqual(t, "1.2.3.4", sopInstance.FirstString())

	msInstance, ok := root.Lookup(tag.MediaStorageSOPInstanceUID)
	assert.True(t, ok)
	assert.Equal(t, sopInstance.FirstString(), msInstance.FirstString())
}

// DeletePrivate removes the private tag written into the fixture.
func TestRunDeletesPrivateTags(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeSampleFile(t, dir, "a.dcm", "P001", "1.2.3.4")

	outDir := filepath.Join(dir, "out")
	cfg := Config{DeletePrivate: true, WriteDir: outDir}
	_, err := Run([]string{path}, cfg, time.Now())
	assert.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "a.dcm"))
	assert.NoError(t, err)
	root, _, err := parser.ParseBytes(data, parser.Options{})
	assert.NoError(t, err)

	_, ok := root.Lookup(tag.New(0x0009, 0x0010))
	assert.False(t, ok)
}

// An unreadable input is recorded as a per-file error without
// aborting the rest of the batch.
func TestRunRecordsPerFileErrorsAndContinues(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	good := writeSampleFile(t, dir, "a.dcm", "P001", "1.2.3.4")
	missing := filepath.Join(dir, "does-not-exist.dcm")

	outDir := filepath.Join(dir, "out")
	cfg := Config{WriteDir: outDir}
	report, err := Run([]string{missing, good}, cfg, time.Now())
	assert.NoError(t, err)
	assert.Len(t, report.Errors, 1)
	assert.Equal(t, 1, report.FilesRead)
	assert.Equal(t, 1, report.FilesWritten)
}

// Write-path derivation: multiple inputs sharing a directory prefix
// have that prefix stripped and the residue appended under WriteDir.
func TestDerivePathStripsCommonPrefix(t *testing.T) {
	t.Parallel()
	prefix := commonDirPrefix([]string{"/data/study1/a.dcm", "/data/study2/b.dcm"})
	assert.Equal(t, "/data", prefix)

	got := derivePath("/data/study1/a.dcm", "/out", 2, prefix)
	assert.Equal(t, filepath.Join("/out", "study1", "a.dcm"), got)
}

func TestDerivePathSingleInputUsesBasename(t *testing.T) {
	t.Parallel()
	got := derivePath("/data/study1/a.dcm", "/out", 1, "")
	assert.Equal(t, filepath.Join("/out", "a.dcm"), got)
}

// Re-running Run on the same inputs against the same audit trail file
// reuses every prior replacement rather than generating new ones, so
// the two runs' outputs are byte-identical.
func TestRunIsDeterministicAcrossRepeatedRunsWithSameAuditTrail(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeSampleFile(t, dir, "a.dcm", "P001", "1.2.3.4")

	outDir := filepath.Join(dir, "out")
	auditPath := filepath.Join(dir, "audit.json")
	cfg := Config{
		UID:       true,
		UIDRoot:   "1.2.826.0.1.3680043.9.7484.",
		Rewrite:   []RewriteRule{{Tag: tag.New(0x0010, 0x0020), Replacement: "ANON", Enumerate: true}},
		WriteDir:  outDir,
		AuditPath: auditPath,
	}

	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	_, err := Run([]string{path}, cfg, now)
	assert.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(outDir, "a.dcm"))
	assert.NoError(t, err)

	_, err = Run([]string{path}, cfg, now.Add(time.Hour))
	assert.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(outDir, "a.dcm"))
	assert.NoError(t, err)

	assert.Equal(t, first, second)
}
