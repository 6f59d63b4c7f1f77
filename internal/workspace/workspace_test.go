package workspace

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"ocv/internal/blobstore"
	"ocv/internal/fingerprint"
	"ocv/internal/models"
)

var testNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func reportPayload() []byte {
	return []byte("%PDF-1.4 report!!")
}

func TestNewWorkspaceIsEmpty(t *testing.T) {
	ws := New(testNow)
	if ws.Manifest.Version != models.FormatVersion {
		t.Fatalf("expected version %d, got %d", models.FormatVersion, ws.Manifest.Version)
	}
	if !ws.Manifest.CreatedAt.Equal(testNow) {
		t.Fatalf("expected createdAt %v, got %v", testNow, ws.Manifest.CreatedAt)
	}
	if len(ws.Manifest.Files) != 0 || ws.Attachments.Len() != 0 {
		t.Fatalf("expected empty workspace, got %d files / %d blobs", len(ws.Manifest.Files), ws.Attachments.Len())
	}
	if ws.CV.Skills == nil || ws.CV.Experience == nil {
		t.Fatal("expected normalized CV lists")
	}
}

func TestAddAttachmentRecordsPayload(t *testing.T) {
	ws := New(testNow)
	payload := reportPayload()
	if len(payload) != 17 {
		t.Fatalf("fixture should be 17 bytes, got %d", len(payload))
	}

	fp := ws.AddAttachment("report.pdf", "application/pdf", payload)
	if fp != fingerprint.Of(payload) {
		t.Fatalf("expected content fingerprint, got %s", fp)
	}
	if len(ws.Manifest.Files) != 1 {
		t.Fatalf("expected one record, got %d", len(ws.Manifest.Files))
	}
	record := ws.Manifest.Files[0]
	if record.OriginalName != "report.pdf" || record.MediaType != "application/pdf" || record.Size != 17 {
		t.Fatalf("unexpected record: %+v", record)
	}
	got, ok := ws.Attachments.Get(fp)
	if !ok || !bytes.Equal(got, payload) {
		t.Fatalf("expected stored payload, got %q ok=%v", got, ok)
	}
}

func TestAddAttachmentDedupFirstWriteWins(t *testing.T) {
	ws := New(testNow)
	first := ws.AddAttachment("report.pdf", "application/pdf", reportPayload())
	second := ws.AddAttachment("report_copy.pdf", "application/x-pdf", reportPayload())

	if first != second {
		t.Fatalf("expected identical fingerprints, got %s and %s", first, second)
	}
	if len(ws.Manifest.Files) != 1 {
		t.Fatalf("expected one record after duplicate add, got %d", len(ws.Manifest.Files))
	}
	if ws.Attachments.Len() != 1 {
		t.Fatalf("expected one stored payload, got %d", ws.Attachments.Len())
	}
	if got := ws.Manifest.Files[0].OriginalName; got != "report.pdf" {
		t.Fatalf("expected first name to win, got %q", got)
	}
	if got := ws.Manifest.Files[0].MediaType; got != "application/pdf" {
		t.Fatalf("expected first media type to win, got %q", got)
	}
}

func TestAddAttachmentDefaultsMediaType(t *testing.T) {
	ws := New(testNow)
	fp := ws.AddAttachment("photo", "  ", []byte{0x89, 'P', 'N', 'G'})
	record, _ := ws.Manifest.File(fp)
	if record.MediaType != models.DefaultMediaType {
		t.Fatalf("expected %q, got %q", models.DefaultMediaType, record.MediaType)
	}
}

func TestRemoveAttachment(t *testing.T) {
	ws := New(testNow)
	keep := ws.AddAttachment("keep.txt", "text/plain", []byte("keep"))
	drop := ws.AddAttachment("drop.txt", "text/plain", []byte("drop"))

	ws.RemoveAttachment(drop)
	if ws.Manifest.HasFile(drop) || ws.Attachments.Has(drop) {
		t.Fatal("expected removed fingerprint to be gone from manifest and store")
	}
	if !ws.Manifest.HasFile(keep) || !ws.Attachments.Has(keep) {
		t.Fatal("expected other attachment to survive")
	}

	before := ws.Clone()
	ws.RemoveAttachment(drop)
	ws.RemoveAttachment(fingerprint.Of([]byte("never added")))
	if len(ws.Manifest.Files) != len(before.Manifest.Files) || ws.Attachments.Len() != before.Attachments.Len() {
		t.Fatal("removing an absent fingerprint changed the workspace")
	}
}

func TestAttachmentUnavailable(t *testing.T) {
	ws := New(testNow)
	fp := ws.AddAttachment("transcript.pdf", "application/pdf", []byte("grades"))
	ws.Attachments.Remove(fp)

	record, payload, err := ws.Attachment(fp)
	if !errors.Is(err, ErrAttachmentUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if record.OriginalName != "transcript.pdf" || payload != nil {
		t.Fatalf("expected record without payload, got %+v %q", record, payload)
	}

	statuses := ws.AttachmentStatuses()
	if len(statuses) != 1 || statuses[0].Available {
		t.Fatalf("expected one unavailable status, got %+v", statuses)
	}
	if missing := ws.MissingAttachments(); len(missing) != 1 || missing[0] != fp {
		t.Fatalf("expected missing %s, got %v", fp, missing)
	}

	_, _, err = ws.Attachment(fingerprint.Of([]byte("unknown")))
	if !errors.Is(err, ErrAttachmentNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestOrphanBlobs(t *testing.T) {
	ws := New(testNow)
	orphan := ws.Attachments.Add([]byte("orphan"))
	ws.AddAttachment("cv.pdf", "application/pdf", []byte("cv"))

	orphans := ws.OrphanBlobs()
	if len(orphans) != 1 || orphans[0] != orphan {
		t.Fatalf("expected orphan %s, got %v", orphan, orphans)
	}
}

func TestResolveFingerprint(t *testing.T) {
	ws := New(testNow)
	fp := ws.AddAttachment("a.txt", "text/plain", []byte("alpha"))

	got, err := ws.ResolveFingerprint(string(fp[:8]))
	if err != nil {
		t.Fatalf("resolve prefix: %v", err)
	}
	if got != fp {
		t.Fatalf("expected %s, got %s", fp, got)
	}

	got, err = ws.ResolveFingerprint(strings.ToUpper(string(fp)))
	if err != nil || got != fp {
		t.Fatalf("expected full uppercase fingerprint to resolve, got %s err=%v", got, err)
	}

	if _, err := ws.ResolveFingerprint("abc"); err == nil {
		t.Fatal("expected short prefix error")
	}
	unknown := fingerprint.Of([]byte("never attached"))
	if _, err := ws.ResolveFingerprint(string(unknown[:10])); !errors.Is(err, ErrAttachmentNotFound) {
		t.Fatalf("expected not found for unknown prefix, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	ws := New(testNow)
	fp := ws.AddAttachment("a.txt", "text/plain", []byte("alpha"))
	ws.AddSkill("go")

	cloned := ws.Clone()
	cloned.RemoveAttachment(fp)
	cloned.AddSkill("rust")
	cloned.CV.Name = "Someone Else"

	if !ws.Manifest.HasFile(fp) || !ws.Attachments.Has(fp) {
		t.Fatal("clone removal leaked into original")
	}
	if len(ws.CV.Skills) != 1 || ws.CV.Name != "" {
		t.Fatalf("clone edits leaked into original: %+v", ws.CV)
	}
}

// scrambledStore hands out payloads that no longer match their fingerprint.
type scrambledStore struct {
	*blobstore.MemoryStore
}

func (s scrambledStore) Get(fp fingerprint.Fingerprint) ([]byte, bool) {
	data, ok := s.MemoryStore.Get(fp)
	if !ok {
		return nil, false
	}
	return append(data, '!'), true
}

func TestCloneKeepsPayloadsOfAnyStore(t *testing.T) {
	inner := blobstore.NewMemoryStore()
	fp := inner.Add([]byte("alpha"))
	manifest := models.NewManifest(testNow)
	manifest.Files = append(manifest.Files, models.AttachmentRecord{Hash: fp, OriginalName: "a.txt", MediaType: "text/plain", Size: 5})
	ws := Assemble(manifest, models.NewCV(), scrambledStore{inner})

	cloned := ws.Clone()
	if !cloned.Attachments.Has(fp) || cloned.Attachments.Len() != 1 {
		t.Fatal("clone dropped a stored payload")
	}
	if missing := cloned.MissingAttachments(); len(missing) != 0 {
		t.Fatalf("expected no missing attachments, got %v", missing)
	}
}
