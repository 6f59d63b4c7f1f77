package blobstore

import (
	"errors"

	"ocv/internal/fingerprint"
)

// ErrFingerprintMismatch is returned by Put when a payload does not hash to
// the fingerprint it is being stored under.
var ErrFingerprintMismatch = errors.New("payload does not match fingerprint")

// Store is the content-addressed payload map held by a workspace.
//
// Payloads are immutable once stored: Get hands out copies and Add/Put keep
// private copies of their input.
type Store interface {
	Add(payload []byte) fingerprint.Fingerprint
	Put(fp fingerprint.Fingerprint, payload []byte) error
	Get(fp fingerprint.Fingerprint) ([]byte, bool)
	Has(fp fingerprint.Fingerprint) bool
	Remove(fp fingerprint.Fingerprint)
	Keys() []fingerprint.Fingerprint
	Len() int
	TotalBytes() int64
	Clone() Store
}
