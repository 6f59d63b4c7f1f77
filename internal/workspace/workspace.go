// Package workspace holds the in-memory aggregate a user edits: the
// manifest, the CV document and the attachment payloads.
//
// A Workspace is owned by exactly one caller at a time and is not safe for
// concurrent use. Operations mutate it in place.
package workspace

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ocv/internal/blobstore"
	"ocv/internal/fingerprint"
	"ocv/internal/models"
)

var (
	// ErrAttachmentNotFound means the manifest has no record for a fingerprint.
	ErrAttachmentNotFound = errors.New("attachment not found")
	// ErrAttachmentUnavailable means a record exists but its bytes are not
	// in the store, e.g. the archive it came from lacked the member.
	ErrAttachmentUnavailable = errors.New("attachment unavailable")
	// ErrAmbiguousFingerprint is returned when a prefix matches several
	// attachments.
	ErrAmbiguousFingerprint = errors.New("ambiguous fingerprint prefix")
)

const minFingerprintPrefix = 6

// Workspace is the unit the rest of the application manipulates.
type Workspace struct {
	Manifest    models.Manifest
	CV          models.CV
	Attachments blobstore.Store
}

// AttachmentStatus pairs a manifest record with the availability of its
// bytes.
type AttachmentStatus struct {
	Record    models.AttachmentRecord `json:"record"`
	Available bool                    `json:"available"`
}

// New returns an empty workspace created at now.
func New(now time.Time) *Workspace {
	return &Workspace{
		Manifest:    models.NewManifest(now),
		CV:          models.NewCV(),
		Attachments: blobstore.NewMemoryStore(),
	}
}

// Assemble builds a workspace from decoded parts. A nil store is replaced
// by an empty one.
func Assemble(manifest models.Manifest, cv models.CV, store blobstore.Store) *Workspace {
	if store == nil {
		store = blobstore.NewMemoryStore()
	}
	if manifest.Files == nil {
		manifest.Files = []models.AttachmentRecord{}
	}
	cv.Normalize()
	return &Workspace{Manifest: manifest, CV: cv, Attachments: store}
}

// AddAttachment stores payload and records it in the manifest unless the
// same content is already recorded. Identical bytes are one attachment: a
// repeated add keeps the first record's name and media type.
func (w *Workspace) AddAttachment(originalName, mediaType string, payload []byte) fingerprint.Fingerprint {
	fp := w.Attachments.Add(payload)
	if w.Manifest.HasFile(fp) {
		return fp
	}
	w.Manifest.Files = append(w.Manifest.Files, models.AttachmentRecord{
		Hash:         fp,
		OriginalName: strings.TrimSpace(originalName),
		MediaType:    normalizeMediaType(mediaType),
		Size:         int64(len(payload)),
	})
	return fp
}

// RemoveAttachment drops fp from the store and the manifest. Removing an
// unknown fingerprint does nothing.
func (w *Workspace) RemoveAttachment(fp fingerprint.Fingerprint) {
	w.Attachments.Remove(fp)
	w.Manifest.RemoveFile(fp)
}

// Attachment returns the record and bytes for fp.
func (w *Workspace) Attachment(fp fingerprint.Fingerprint) (models.AttachmentRecord, []byte, error) {
	record, ok := w.Manifest.File(fp)
	if !ok {
		return models.AttachmentRecord{}, nil, fmt.Errorf("%w: %s", ErrAttachmentNotFound, fp)
	}
	payload, ok := w.Attachments.Get(fp)
	if !ok {
		return record, nil, fmt.Errorf("%w: %s (%s)", ErrAttachmentUnavailable, record.OriginalName, fp.Short())
	}
	return record, payload, nil
}

// AttachmentStatuses lists manifest records in order with availability.
func (w *Workspace) AttachmentStatuses() []AttachmentStatus {
	out := make([]AttachmentStatus, 0, len(w.Manifest.Files))
	for _, record := range w.Manifest.Files {
		out = append(out, AttachmentStatus{Record: record, Available: w.Attachments.Has(record.Hash)})
	}
	return out
}

// MissingAttachments returns recorded fingerprints without backing bytes.
func (w *Workspace) MissingAttachments() []fingerprint.Fingerprint {
	var missing []fingerprint.Fingerprint
	for _, record := range w.Manifest.Files {
		if !w.Attachments.Has(record.Hash) {
			missing = append(missing, record.Hash)
		}
	}
	return missing
}

// OrphanBlobs returns stored fingerprints that no record references.
func (w *Workspace) OrphanBlobs() []fingerprint.Fingerprint {
	var orphans []fingerprint.Fingerprint
	for _, fp := range w.Attachments.Keys() {
		if !w.Manifest.HasFile(fp) {
			orphans = append(orphans, fp)
		}
	}
	return orphans
}

// ResolveFingerprint expands a full fingerprint or a unique prefix of at
// least six digits to a recorded or stored fingerprint.
func (w *Workspace) ResolveFingerprint(raw string) (fingerprint.Fingerprint, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if fp, err := fingerprint.Parse(raw); err == nil {
		return fp, nil
	}
	if len(raw) < minFingerprintPrefix {
		return "", fmt.Errorf("fingerprint prefix %q is too short (need %d digits)", raw, minFingerprintPrefix)
	}

	candidates := map[fingerprint.Fingerprint]struct{}{}
	for _, record := range w.Manifest.Files {
		if strings.HasPrefix(string(record.Hash), raw) {
			candidates[record.Hash] = struct{}{}
		}
	}
	for _, fp := range w.Attachments.Keys() {
		if strings.HasPrefix(string(fp), raw) {
			candidates[fp] = struct{}{}
		}
	}

	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrAttachmentNotFound, raw)
	case 1:
		for fp := range candidates {
			return fp, nil
		}
	}
	return "", fmt.Errorf("%w: %s matches %d attachments", ErrAmbiguousFingerprint, raw, len(candidates))
}

// Clone returns a deep copy, payloads included.
func (w *Workspace) Clone() *Workspace {
	return &Workspace{
		Manifest:    w.Manifest.Clone(),
		CV:          w.CV.Clone(),
		Attachments: w.Attachments.Clone(),
	}
}

func normalizeMediaType(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return models.DefaultMediaType
	}
	return value
}
