package models

import "ocv/internal/fingerprint"

// AttachmentRecord is the manifest entry describing one stored payload.
// Field names follow the manifest.json schema.
type AttachmentRecord struct {
	Hash         fingerprint.Fingerprint `json:"hash" yaml:"hash"`
	OriginalName string                  `json:"originalName" yaml:"original_name"`
	MediaType    string                  `json:"mime" yaml:"mime"`
	Size         int64                   `json:"size" yaml:"size"`
}
