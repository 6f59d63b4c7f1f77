package models

import (
	"time"

	"ocv/internal/fingerprint"
)

// Manifest is the metadata ledger of a workspace.
type Manifest struct {
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
	Files     []AttachmentRecord
}

// NewManifest returns an empty version-1 manifest created at now.
func NewManifest(now time.Time) Manifest {
	now = now.UTC().Truncate(time.Millisecond)
	return Manifest{
		Version:   FormatVersion,
		CreatedAt: now,
		UpdatedAt: now,
		Files:     []AttachmentRecord{},
	}
}

// File returns the record for fp.
func (m *Manifest) File(fp fingerprint.Fingerprint) (AttachmentRecord, bool) {
	for _, record := range m.Files {
		if record.Hash == fp {
			return record, true
		}
	}
	return AttachmentRecord{}, false
}

// HasFile reports whether a record for fp exists.
func (m *Manifest) HasFile(fp fingerprint.Fingerprint) bool {
	_, ok := m.File(fp)
	return ok
}

// RemoveFile drops the record for fp and reports whether one was present.
func (m *Manifest) RemoveFile(fp fingerprint.Fingerprint) bool {
	kept := make([]AttachmentRecord, 0, len(m.Files))
	removed := false
	for _, record := range m.Files {
		if record.Hash == fp {
			removed = true
			continue
		}
		kept = append(kept, record)
	}
	m.Files = kept
	return removed
}

// Clone returns a deep copy.
func (m Manifest) Clone() Manifest {
	out := m
	out.Files = make([]AttachmentRecord, len(m.Files))
	copy(out.Files, m.Files)
	return out
}
