package persist

import (
	"bytes"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"

	"ocv/internal/blobstore"
	"ocv/internal/fingerprint"
	"ocv/internal/models"
	"ocv/internal/workspace"
)

// Snapshot framing: magic, format byte, BLAKE2b-256 of the payload, then
// the zstd-compressed CBOR payload.
const (
	snapshotMagic  = "OCVS"
	snapshotFormat = byte(1)
	headerSize     = len(snapshotMagic) + 1 + blake2b.Size256
)

type snapshot struct {
	Manifest    snapshotManifest     `cbor:"manifest"`
	CV          models.CV            `cbor:"cv"`
	Attachments []snapshotAttachment `cbor:"attachments"`
}

type snapshotManifest struct {
	Version   int                       `cbor:"version"`
	CreatedAt time.Time                 `cbor:"created_at"`
	UpdatedAt time.Time                 `cbor:"updated_at"`
	Files     []models.AttachmentRecord `cbor:"files"`
}

type snapshotAttachment struct {
	Hash fingerprint.Fingerprint `cbor:"hash"`
	Data []byte                  `cbor:"data"`
}

var (
	encMode     cbor.EncMode
	decMode     cbor.DecMode
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("persist: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("persist: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("persist: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("persist: zstd decoder initialization failed: " + err.Error())
	}
}

func encodeSnapshot(ws *workspace.Workspace) ([]byte, error) {
	snap := snapshot{
		Manifest: snapshotManifest{
			Version:   ws.Manifest.Version,
			CreatedAt: ws.Manifest.CreatedAt.UTC(),
			UpdatedAt: ws.Manifest.UpdatedAt.UTC(),
			Files:     ws.Manifest.Files,
		},
		CV:          ws.CV,
		Attachments: make([]snapshotAttachment, 0, ws.Attachments.Len()),
	}
	for _, fp := range ws.Attachments.Keys() {
		payload, ok := ws.Attachments.Get(fp)
		if !ok {
			continue
		}
		snap.Attachments = append(snap.Attachments, snapshotAttachment{Hash: fp, Data: payload})
	}

	raw, err := encMode.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	payload := zstdEncoder.EncodeAll(raw, nil)
	sum := blake2b.Sum256(payload)

	out := make([]byte, 0, headerSize+len(payload))
	out = append(out, snapshotMagic...)
	out = append(out, snapshotFormat)
	out = append(out, sum[:]...)
	out = append(out, payload...)
	return out, nil
}

func decodeSnapshot(data []byte) (*workspace.Workspace, error) {
	if len(data) < headerSize || !bytes.HasPrefix(data, []byte(snapshotMagic)) {
		return nil, fmt.Errorf("%w: missing snapshot header", ErrCorruptSnapshot)
	}
	if format := data[len(snapshotMagic)]; format != snapshotFormat {
		return nil, fmt.Errorf("%w: unsupported snapshot format %d", ErrCorruptSnapshot, format)
	}
	sumStart := len(snapshotMagic) + 1
	payload := data[headerSize:]
	sum := blake2b.Sum256(payload)
	if !bytes.Equal(sum[:], data[sumStart:headerSize]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptSnapshot)
	}

	raw, err := zstdDecoder.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd decompress: %v", ErrCorruptSnapshot, err)
	}
	var snap snapshot
	if err := decMode.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrCorruptSnapshot, err)
	}

	store := blobstore.NewMemoryStore()
	for _, attachment := range snap.Attachments {
		if err := store.Put(attachment.Hash, attachment.Data); err != nil {
			return nil, fmt.Errorf("%w: attachment %s: %v", ErrCorruptSnapshot, attachment.Hash.Short(), err)
		}
	}

	manifest := models.Manifest{
		Version:   snap.Manifest.Version,
		CreatedAt: snap.Manifest.CreatedAt.UTC(),
		UpdatedAt: snap.Manifest.UpdatedAt.UTC(),
		Files:     snap.Manifest.Files,
	}
	return workspace.Assemble(manifest, snap.CV, store), nil
}
