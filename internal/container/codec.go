// Package container reads and writes .ocv archives.
//
// An archive is a zip file with a manifest.json, a cv.json and one
// attachments/<fingerprint> member per stored payload. Decoding is strict
// about the two JSON regions and lenient about attachment members: a
// record whose member is missing still opens, with the payload absent.
package container

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"ocv/internal/blobstore"
	"ocv/internal/clock"
	"ocv/internal/fingerprint"
	"ocv/internal/workspace"
)

// DefaultMaxMemberBytes bounds the uncompressed size of any one member.
const DefaultMaxMemberBytes int64 = 64 * 1024 * 1024

// Option configures a Codec.
type Option func(*Codec)

// WithClock sets the clock used to stamp updatedAt on export.
func WithClock(c clock.Clock) Option {
	return func(codec *Codec) {
		if c != nil {
			codec.clock = c
		}
	}
}

// WithMaxMemberBytes overrides DefaultMaxMemberBytes.
func WithMaxMemberBytes(n int64) Option {
	return func(codec *Codec) {
		if n > 0 {
			codec.maxMemberBytes = n
		}
	}
}

// WithLogger sets the logger for recoverable decode gaps.
func WithLogger(logger *slog.Logger) Option {
	return func(codec *Codec) {
		if logger != nil {
			codec.logger = logger
		}
	}
}

// Codec converts workspaces to and from archive bytes.
type Codec struct {
	clock          clock.Clock
	maxMemberBytes int64
	logger         *slog.Logger
}

// New creates a Codec.
func New(opts ...Option) *Codec {
	c := &Codec{
		clock:          clock.Real(),
		maxMemberBytes: DefaultMaxMemberBytes,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Decode builds a workspace from archive bytes. Structural failures return
// a *MalformedError and no workspace.
func (c *Codec) Decode(data []byte) (*workspace.Workspace, error) {
	members, err := c.openArchive(data)
	if err != nil {
		return nil, err
	}

	manifestFile, ok := members[ManifestPath]
	if !ok {
		return nil, malformedf("missing %s", ManifestPath)
	}
	raw, err := c.readMember(manifestFile)
	if err != nil {
		return nil, err
	}
	manifest, err := decodeManifest(raw)
	if err != nil {
		return nil, err
	}

	cvFile, ok := members[CVPath]
	if !ok {
		return nil, malformedf("missing %s", CVPath)
	}
	raw, err = c.readMember(cvFile)
	if err != nil {
		return nil, err
	}
	cv, err := decodeCV(raw)
	if err != nil {
		return nil, err
	}

	store := blobstore.NewMemoryStore()
	for _, record := range manifest.Files {
		file, ok := members[AttachmentsDir+string(record.Hash)]
		if !ok {
			c.logger.Warn("attachment member missing", "hash", record.Hash.Short(), "name", record.OriginalName)
			continue
		}
		payload, err := c.readMember(file)
		if err != nil {
			c.logger.Warn("attachment member unreadable", "hash", record.Hash.Short(), "name", record.OriginalName, "error", err)
			continue
		}
		if err := store.Put(record.Hash, payload); err != nil {
			c.logger.Warn("attachment member does not match its hash", "hash", record.Hash.Short(), "name", record.OriginalName, "error", err)
			continue
		}
	}

	return workspace.Assemble(manifest, cv, store), nil
}

// Encode serialises ws stamped with the current time.
func (c *Codec) Encode(ws *workspace.Workspace) ([]byte, error) {
	return c.EncodeAt(ws, c.clock.Now())
}

// EncodeAt serialises ws with updatedAt set to now. ws itself is not
// modified.
func (c *Codec) EncodeAt(ws *workspace.Workspace, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.WriteTo(&buf, ws, now); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo streams the archive for ws to w. Every stored payload is written,
// including ones no manifest record references.
func (c *Codec) WriteTo(w io.Writer, ws *workspace.Workspace, now time.Time) error {
	if ws == nil {
		return fmt.Errorf("workspace is required")
	}
	now = now.UTC().Truncate(time.Millisecond)

	manifest := ws.Manifest.Clone()
	manifest.UpdatedAt = now
	manifestJSON, err := encodeManifest(manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	cvJSON, err := encodeCV(ws.CV.Clone())
	if err != nil {
		return fmt.Errorf("encode cv: %w", err)
	}

	zw := zip.NewWriter(w)
	if err := writeMember(zw, ManifestPath, manifestJSON, now); err != nil {
		return err
	}
	if err := writeMember(zw, CVPath, cvJSON, now); err != nil {
		return err
	}
	for _, fp := range ws.Attachments.Keys() {
		payload, ok := ws.Attachments.Get(fp)
		if !ok {
			continue
		}
		if err := writeMember(zw, AttachmentsDir+string(fp), payload, now); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}

func writeMember(zw *zip.Writer, name string, payload []byte, modified time.Time) error {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	}
	fw, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := fw.Write(payload); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (c *Codec) openArchive(data []byte) (map[string]*zip.File, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, malformed("not a valid archive", err)
	}
	members := make(map[string]*zip.File, len(zr.File))
	for _, file := range zr.File {
		name := strings.ReplaceAll(file.Name, "\\", "/")
		if strings.HasSuffix(name, "/") {
			continue
		}
		if _, dup := members[name]; dup {
			continue
		}
		members[name] = file
	}
	return members, nil
}

func (c *Codec) readMember(file *zip.File) ([]byte, error) {
	if file.UncompressedSize64 > uint64(c.maxMemberBytes) {
		return nil, malformedf("%s exceeds %d bytes", file.Name, c.maxMemberBytes)
	}
	rc, err := file.Open()
	if err != nil {
		return nil, malformed("open "+file.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, c.maxMemberBytes+1))
	if err != nil {
		return nil, malformed("read "+file.Name, err)
	}
	if int64(len(data)) > c.maxMemberBytes {
		return nil, malformedf("%s exceeds %d bytes", file.Name, c.maxMemberBytes)
	}
	return data, nil
}

// Summary describes an archive without opening it as a workspace.
type Summary struct {
	Members        []MemberInfo              `json:"members"`
	Version        int                       `json:"version,omitempty"`
	Records        int                       `json:"records"`
	MissingMembers []fingerprint.Fingerprint `json:"missing_members,omitempty"`
	OrphanMembers  []string                  `json:"orphan_members,omitempty"`
	Valid          bool                      `json:"valid"`
	Problem        string                    `json:"problem,omitempty"`
}

// MemberInfo is one archive entry.
type MemberInfo struct {
	Name           string `json:"name"`
	Size           uint64 `json:"size"`
	CompressedSize uint64 `json:"compressed_size"`
}

// Inspect lists the members of an archive and reports whether it decodes.
// Only a non-zip input is an error; decode problems land in Summary.Problem.
func (c *Codec) Inspect(data []byte) (Summary, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Summary{}, malformed("not a valid archive", err)
	}

	summary := Summary{Members: make([]MemberInfo, 0, len(zr.File))}
	for _, file := range zr.File {
		summary.Members = append(summary.Members, MemberInfo{
			Name:           file.Name,
			Size:           file.UncompressedSize64,
			CompressedSize: file.CompressedSize64,
		})
	}

	ws, err := c.Decode(data)
	if err != nil {
		summary.Problem = err.Error()
		return summary, nil
	}
	summary.Valid = true
	summary.Version = ws.Manifest.Version
	summary.Records = len(ws.Manifest.Files)
	referenced := map[string]struct{}{}
	for _, record := range ws.Manifest.Files {
		referenced[AttachmentsDir+string(record.Hash)] = struct{}{}
		if !ws.Attachments.Has(record.Hash) {
			summary.MissingMembers = append(summary.MissingMembers, record.Hash)
		}
	}
	for _, member := range summary.Members {
		if !strings.HasPrefix(member.Name, AttachmentsDir) || member.Name == AttachmentsDir {
			continue
		}
		if _, ok := referenced[member.Name]; !ok {
			summary.OrphanMembers = append(summary.OrphanMembers, member.Name)
		}
	}
	return summary, nil
}
