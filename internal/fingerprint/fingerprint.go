// Package fingerprint computes content identities for attachment payloads.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Length is the number of hex digits in a fingerprint.
const Length = sha256.Size * 2

const shortLength = 12

// Fingerprint is the lowercase hex SHA-256 digest of a payload.
type Fingerprint string

// Of returns the fingerprint of data.
func Of(data []byte) Fingerprint {
	sum := sha256.Sum256(data)
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// OfReader streams r through the digest and returns the fingerprint and
// the number of bytes read.
func OfReader(r io.Reader) (Fingerprint, int64, error) {
	if r == nil {
		return "", 0, fmt.Errorf("reader is required")
	}
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil))), n, nil
}

// Parse validates a textual fingerprint. Uppercase digits are rejected so
// that one payload has exactly one spelling.
func Parse(raw string) (Fingerprint, error) {
	fp := Fingerprint(strings.TrimSpace(raw))
	if !fp.Valid() {
		return "", fmt.Errorf("invalid fingerprint %q", raw)
	}
	return fp, nil
}

// Valid reports whether fp is exactly Length lowercase hex digits.
func (fp Fingerprint) Valid() bool {
	if len(fp) != Length {
		return false
	}
	for i := 0; i < len(fp); i++ {
		c := fp[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Short returns an abbreviated form for display.
func (fp Fingerprint) Short() string {
	if len(fp) <= shortLength {
		return string(fp)
	}
	return string(fp[:shortLength])
}

func (fp Fingerprint) String() string {
	return string(fp)
}
