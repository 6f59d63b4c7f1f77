package blobstore

import (
	"fmt"
	"sort"

	"ocv/internal/fingerprint"
)

// MemoryStore keeps attachment payloads in a map keyed by fingerprint.
// It is not safe for concurrent use; the owning session serialises access.
type MemoryStore struct {
	blobs map[fingerprint.Fingerprint][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: map[fingerprint.Fingerprint][]byte{}}
}

// Add fingerprints payload and stores it unless the same content is
// already present. The fingerprint is returned either way.
func (s *MemoryStore) Add(payload []byte) fingerprint.Fingerprint {
	fp := fingerprint.Of(payload)
	if _, ok := s.blobs[fp]; ok {
		return fp
	}
	s.blobs[fp] = clone(payload)
	return fp
}

// Put stores payload under a known fingerprint, as when restoring from an
// archive or snapshot. The payload must hash to fp.
func (s *MemoryStore) Put(fp fingerprint.Fingerprint, payload []byte) error {
	if !fp.Valid() {
		return fmt.Errorf("invalid fingerprint %q", fp)
	}
	if got := fingerprint.Of(payload); got != fp {
		return fmt.Errorf("%w: want %s, got %s", ErrFingerprintMismatch, fp.Short(), got.Short())
	}
	if _, ok := s.blobs[fp]; ok {
		return nil
	}
	s.blobs[fp] = clone(payload)
	return nil
}

// Get returns a copy of the payload for fp.
func (s *MemoryStore) Get(fp fingerprint.Fingerprint) ([]byte, bool) {
	payload, ok := s.blobs[fp]
	if !ok {
		return nil, false
	}
	return clone(payload), true
}

// Has reports whether fp is stored.
func (s *MemoryStore) Has(fp fingerprint.Fingerprint) bool {
	_, ok := s.blobs[fp]
	return ok
}

// Remove deletes fp. Missing fingerprints are ignored.
func (s *MemoryStore) Remove(fp fingerprint.Fingerprint) {
	delete(s.blobs, fp)
}

// Keys returns the stored fingerprints in ascending order.
func (s *MemoryStore) Keys() []fingerprint.Fingerprint {
	keys := make([]fingerprint.Fingerprint, 0, len(s.blobs))
	for fp := range s.blobs {
		keys = append(keys, fp)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Len returns the number of stored payloads.
func (s *MemoryStore) Len() int {
	return len(s.blobs)
}

// TotalBytes returns the summed size of all stored payloads.
func (s *MemoryStore) TotalBytes() int64 {
	var total int64
	for _, payload := range s.blobs {
		total += int64(len(payload))
	}
	return total
}

// Clone returns an independent store holding the same payloads. Stored
// payloads are never written in place, so the byte slices are shared.
func (s *MemoryStore) Clone() Store {
	blobs := make(map[fingerprint.Fingerprint][]byte, len(s.blobs))
	for fp, payload := range s.blobs {
		blobs[fp] = payload
	}
	return &MemoryStore{blobs: blobs}
}

func clone(payload []byte) []byte {
	out := make([]byte, len(payload))
	copy(out, payload)
	return out
}

var _ Store = (*MemoryStore)(nil)
