package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ocv/internal/config"
	"ocv/internal/persist"
	"ocv/internal/session"
	"ocv/internal/store"
	"ocv/internal/workspace"
)

type cliEnv struct {
	cfg *config.Config
	dir string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("OCV_CONFIG_DIR", dir)
	t.Setenv(logLevelEnvKey, "error")
	cfg := config.Default()
	cfg.DBPath = filepath.Join(dir, "data", "ocv.db")
	return &cliEnv{cfg: &cfg, dir: dir}
}

func (e *cliEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCmd(e.cfg)
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(""))
	return cmd.Execute()
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) {
	t.Helper()
	if err := e.run(t, args...); err != nil {
		t.Fatalf("ocv %s: %v", strings.Join(args, " "), err)
	}
}

func (e *cliEnv) saved(t *testing.T) (*workspace.Workspace, bool) {
	t.Helper()
	st, err := store.Open(e.cfg.DBPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	ws, ok, err := persist.New(st).Load(context.Background())
	if err != nil {
		t.Fatalf("load saved workspace: %v", err)
	}
	return ws, ok
}

func (e *cliEnv) writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestCLIRequiresWorkspace(t *testing.T) {
	env := newCLIEnv(t)
	err := env.run(t, "cv", "set", "name", "Ada")
	if !errors.Is(err, session.ErrNoWorkspace) {
		t.Fatalf("expected ErrNoWorkspace, got %v", err)
	}
}

func TestCLIEditExportReopen(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun(t, "new")
	if err := env.run(t, "new"); err == nil {
		t.Fatal("second new without --force should fail")
	}
	env.mustRun(t, "cv", "set", "name", "Jane  Doe")
	env.mustRun(t, "cv", "skill", "add", "Go, SQL", "Go", " ")
	env.mustRun(t, "cv", "add", "experience", "title=Engineer", "company=Acme", "from=2020")
	env.mustRun(t, "cv", "add", "cert", "title=CKA", "issuer=CNCF")

	report := env.writeFile(t, "report.pdf", []byte("%PDF-1.4 report!!"))
	env.mustRun(t, "attach", "add", report)
	copyPath := env.writeFile(t, "report_copy.pdf", []byte("%PDF-1.4 report!!"))
	env.mustRun(t, "attach", "add", copyPath)

	ws, ok := env.saved(t)
	if !ok {
		t.Fatal("expected saved workspace")
	}
	if ws.CV.Name != "Jane  Doe" {
		t.Fatalf("unexpected name %q", ws.CV.Name)
	}
	if got := strings.Join(ws.CV.Skills, ","); got != "Go,SQL" {
		t.Fatalf("unexpected skills %q", got)
	}
	if len(ws.CV.Experience) != 1 || len(ws.CV.Certificates) != 1 {
		t.Fatalf("unexpected entries: %+v", ws.CV)
	}
	if len(ws.Manifest.Files) != 1 {
		t.Fatalf("expected deduplicated attachment, got %d records", len(ws.Manifest.Files))
	}
	record := ws.Manifest.Files[0]
	if record.OriginalName != "report.pdf" || record.MediaType != "application/pdf" || record.Size != 17 {
		t.Fatalf("unexpected record %+v", record)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.Chdir(env.dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	env.mustRun(t, "export")
	exported := filepath.Join(env.dir, "Jane_Doe.ocv")
	if _, err := os.Stat(exported); err != nil {
		t.Fatalf("expected suggested export name: %v", err)
	}
	if err := env.run(t, "export"); err == nil {
		t.Fatal("export over an existing file without --force should fail")
	}

	env.mustRun(t, "close", "--yes")
	if _, ok := env.saved(t); ok {
		t.Fatal("close should clear the saved workspace")
	}

	env.mustRun(t, "open", exported)
	reopened, ok := env.saved(t)
	if !ok {
		t.Fatal("expected opened workspace to be saved")
	}
	if reopened.CV.Name != "Jane  Doe" || len(reopened.Manifest.Files) != 1 {
		t.Fatalf("unexpected reopened workspace: %+v", reopened.CV)
	}
	if _, payload, err := reopened.Attachment(record.Hash); err != nil || string(payload) != "%PDF-1.4 report!!" {
		t.Fatalf("expected attachment bytes, got %q err=%v", payload, err)
	}
	if reopened.Manifest.UpdatedAt.Before(reopened.Manifest.CreatedAt) {
		t.Fatalf("updatedAt %v before createdAt %v", reopened.Manifest.UpdatedAt, reopened.Manifest.CreatedAt)
	}

	env.mustRun(t, "attach", "rm", record.Hash.Short())
	afterRemove, _ := env.saved(t)
	if len(afterRemove.Manifest.Files) != 0 || afterRemove.Attachments.Len() != 0 {
		t.Fatal("expected attachment removed")
	}
}

func TestCLIOpenMalformedKeepsWorkspace(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "new")
	env.mustRun(t, "cv", "set", "email", "ada@example.com")

	bogus := env.writeFile(t, "bogus.ocv", []byte("not a zip"))
	if err := env.run(t, "open", "--force", bogus); err == nil {
		t.Fatal("expected malformed container error")
	}
	ws, ok := env.saved(t)
	if !ok || ws.CV.Email != "ada@example.com" {
		t.Fatalf("previous workspace must survive, got ok=%v", ok)
	}
}

func TestCLICloseWithoutConfirmationKeepsWorkspace(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "new")
	env.mustRun(t, "close")
	if _, ok := env.saved(t); !ok {
		t.Fatal("close without confirmation must keep the workspace")
	}
}

func TestCLIAttachRespectsLimits(t *testing.T) {
	env := newCLIEnv(t)
	env.cfg.Attachments.MaxBytes = 4
	env.mustRun(t, "new")

	big := env.writeFile(t, "big.txt", []byte("too large"))
	if err := env.run(t, "attach", "add", big); err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("expected size limit error, got %v", err)
	}

	env.cfg.Attachments.MaxBytes = 1024
	env.cfg.Attachments.AllowedMediaTypes = []string{"application/pdf"}
	text := env.writeFile(t, "notes.txt", []byte("notes"))
	if err := env.run(t, "attach", "add", text); err == nil || !strings.Contains(err.Error(), "not allowed") {
		t.Fatalf("expected media type error, got %v", err)
	}
	ws, _ := env.saved(t)
	if len(ws.Manifest.Files) != 0 {
		t.Fatal("rejected attachments must not be recorded")
	}
}

func TestCLIImportYAML(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "new")
	path := env.writeFile(t, "cv.yaml", []byte("name: Grace Hopper\nskills:\n  - COBOL\n  - COBOL\n  - Compilers\n"))
	env.mustRun(t, "cv", "import", path)

	ws, _ := env.saved(t)
	if ws.CV.Name != "Grace Hopper" {
		t.Fatalf("unexpected name %q", ws.CV.Name)
	}
	if got := strings.Join(ws.CV.Skills, ","); got != "COBOL,Compilers" {
		t.Fatalf("expected de-duplicated skills, got %q", got)
	}
}

func TestParseKeyValues(t *testing.T) {
	values, err := parseKeyValues([]string{"Title=Engineer", "company = Acme Corp ", "to="})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if values["title"] != "Engineer" || values["company"] != "Acme Corp" || values["to"] != "" {
		t.Fatalf("unexpected values %v", values)
	}

	for _, bad := range [][]string{{"novalue"}, {"=x"}, {"a=1", "A=2"}} {
		if _, err := parseKeyValues(bad); err == nil {
			t.Fatalf("expected error for %v", bad)
		}
	}
}

func TestParseCVDocument(t *testing.T) {
	cv, err := parseCVDocument("cv.json", []byte(`{"name":"Ada","skills":["Math"]}`))
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}
	if cv.Name != "Ada" || cv.Experience == nil {
		t.Fatalf("unexpected cv %+v", cv)
	}
	if _, err := parseCVDocument("cv.json", []byte(`{"nickname":"A"}`)); err == nil {
		t.Fatal("expected unknown JSON field to be rejected")
	}
	if _, err := parseCVDocument("cv.yml", []byte("nickname: A\n")); err == nil {
		t.Fatal("expected unknown YAML field to be rejected")
	}
}

func TestCLIDBStatus(t *testing.T) {
	env := newCLIEnv(t)
	ctx := context.Background()

	env.mustRun(t, "db", "status")
	status, err := loadDBStatus(ctx, env.cfg.DBPath)
	if err != nil {
		t.Fatalf("db status: %v", err)
	}
	if status.Migrations.CurrentVersion != 2 || status.Migrations.AvailableVersion != 2 || len(status.Migrations.Pending) != 0 {
		t.Fatalf("unexpected migrations %+v", status.Migrations)
	}
	if len(status.Keys) != 0 {
		t.Fatalf("expected no stored keys, got %+v", status.Keys)
	}

	env.mustRun(t, "new")
	env.mustRun(t, "--json", "db", "status")
	status, err = loadDBStatus(ctx, env.cfg.DBPath)
	if err != nil {
		t.Fatalf("db status: %v", err)
	}
	if len(status.Keys) != 1 || status.Keys[0].Key != persist.DefaultKey || status.Keys[0].Size == 0 {
		t.Fatalf("expected one saved workspace slot, got %+v", status.Keys)
	}
	if status.Path != env.cfg.DBPath {
		t.Fatalf("unexpected path %q", status.Path)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:                "0 B",
		17:               "17 B",
		1024:             "1.0 KiB",
		1536:             "1.5 KiB",
		25 * 1024 * 1024: "25 MiB",
		-1:               "0 B",
	}
	for n, want := range tests {
		if got := formatBytes(n); got != want {
			t.Fatalf("formatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestSplitCommaList(t *testing.T) {
	got := splitCommaList("Go, SQL", " ", "Rust,,")
	if strings.Join(got, "|") != "Go|SQL|Rust" {
		t.Fatalf("unexpected split %v", got)
	}
}
