// Package uidgen generates DICOM UIDs: fresh instance UIDs for
// anonymization's remapping pass and the implementation class UID the
// encoder stamps into file meta. Grounded on the upstream tree's
// common/uid.go (GetImplementationUID, NewRandInstanceUID), generalized
// from that package's hardcoded OpenDCMRootUID/OpenDCMVersion pair to
// accept a caller-supplied root, prefix, and timestamp per the
// uid_root.prefix.yyyyMMdd.HHmmss.rand layout.
package uidgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const maxUIDLength = 64

const version = "1"

// Implementation returns the toolkit's implementation class UID, built
// from root and a fixed version component, with a trailing 1 or 0
// marking whether the data it identifies is synthetic (anonymized) or not.
func Implementation(root string, synthetic bool) (string, error) {
	instanceType := "0"
	if synthetic {
		instanceType = "1"
	}
	uid := fmt.Sprintf("%s%s.%s", root, version, instanceType)
	if len(uid) > maxUIDLength {
		return "", fmt.Errorf("uidgen: implementation UID %q exceeds %d characters", uid, maxUIDLength)
	}
	return uid, nil
}

const (
	minRand = 1
	maxRand = 99999
)

// New generates a fresh instance UID of the form
// root.prefix.yyyyMMdd.HHmmss.rand, rand drawn uniformly from
// [1, 99999]. prefix may be empty, in which case its dot separator is
// omitted. now is supplied by the caller so the timestamp components
// are reproducible under test rather than reaching for time.Now
// directly; the random component differs on every call.
func New(root, prefix string, now time.Time) (string, error) {
	var head strings.Builder
	head.WriteString(strings.TrimSuffix(root, "."))
	if prefix != "" {
		head.WriteByte('.')
		head.WriteString(prefix)
	}
	head.WriteByte('.')
	head.WriteString(now.Format("20060102.150405"))

	n, err := randomInRange(minRand, maxRand)
	if err != nil {
		return "", err
	}

	uid := fmt.Sprintf("%s.%d", head.String(), n)
	if len(uid) > maxUIDLength {
		return "", fmt.Errorf("uidgen: generated UID %q exceeds %d characters", uid, maxUIDLength)
	}
	return uid, nil
}

// randomInRange returns a uniformly distributed integer in [min, max].
func randomInRange(min, max int) (int, error) {
	span := big.NewInt(int64(max - min + 1))
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return 0, fmt.Errorf("uidgen: generate random component: %w", err)
	}
	return int(n.Int64()) + min, nil
}
