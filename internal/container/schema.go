package container

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"ocv/internal/fingerprint"
	"ocv/internal/models"
)

// Member names inside an .ocv archive.
const (
	ManifestPath   = "manifest.json"
	CVPath         = "cv.json"
	AttachmentsDir = "attachments/"
)

// timestampLayout matches the ISO-8601 form browsers produce.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// manifestDocument is the manifest.json wire shape. Pointer fields
// distinguish absent keys from zero values.
type manifestDocument struct {
	Version   *int                       `json:"version"`
	CreatedAt *string                    `json:"createdAt"`
	UpdatedAt *string                    `json:"updatedAt"`
	Files     *[]models.AttachmentRecord `json:"files"`
}

func encodeManifest(m models.Manifest) ([]byte, error) {
	version := m.Version
	createdAt := formatTimestamp(m.CreatedAt)
	updatedAt := formatTimestamp(m.UpdatedAt)
	files := m.Files
	if files == nil {
		files = []models.AttachmentRecord{}
	}
	return marshalPretty(manifestDocument{
		Version:   &version,
		CreatedAt: &createdAt,
		UpdatedAt: &updatedAt,
		Files:     &files,
	})
}

func decodeManifest(data []byte) (models.Manifest, error) {
	var doc manifestDocument
	if err := unmarshalStrict(data, &doc); err != nil {
		return models.Manifest{}, malformed("manifest.json is not a valid manifest", err)
	}

	switch {
	case doc.Version == nil:
		return models.Manifest{}, malformedf("manifest.json: version is required")
	case *doc.Version != models.FormatVersion:
		return models.Manifest{}, malformedf("unsupported container version %d (want %d)", *doc.Version, models.FormatVersion)
	case doc.CreatedAt == nil:
		return models.Manifest{}, malformedf("manifest.json: createdAt is required")
	case doc.UpdatedAt == nil:
		return models.Manifest{}, malformedf("manifest.json: updatedAt is required")
	case doc.Files == nil:
		return models.Manifest{}, malformedf("manifest.json: files is required")
	}

	createdAt, err := parseTimestamp(*doc.CreatedAt)
	if err != nil {
		return models.Manifest{}, malformed("manifest.json: invalid createdAt", err)
	}
	updatedAt, err := parseTimestamp(*doc.UpdatedAt)
	if err != nil {
		return models.Manifest{}, malformed("manifest.json: invalid updatedAt", err)
	}

	files := make([]models.AttachmentRecord, 0, len(*doc.Files))
	seen := make(map[fingerprint.Fingerprint]struct{}, len(*doc.Files))
	for i, record := range *doc.Files {
		if !record.Hash.Valid() {
			return models.Manifest{}, malformedf("manifest.json: files[%d]: invalid hash %q", i, record.Hash)
		}
		if record.Size < 0 {
			return models.Manifest{}, malformedf("manifest.json: files[%d]: negative size %d", i, record.Size)
		}
		if _, dup := seen[record.Hash]; dup {
			return models.Manifest{}, malformedf("manifest.json: files[%d]: duplicate hash %s", i, record.Hash)
		}
		seen[record.Hash] = struct{}{}
		files = append(files, record)
	}

	return models.Manifest{
		Version:   *doc.Version,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Files:     files,
	}, nil
}

func encodeCV(cv models.CV) ([]byte, error) {
	cv.Normalize()
	return marshalPretty(cv)
}

func decodeCV(data []byte) (models.CV, error) {
	var cv models.CV
	if err := unmarshalStrict(data, &cv); err != nil {
		return models.CV{}, malformed("cv.json is not a valid CV document", err)
	}
	cv.Normalize()
	return cv, nil
}

func marshalPretty(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func unmarshalStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON document")
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
