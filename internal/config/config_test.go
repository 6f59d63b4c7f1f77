package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.DBPath != "" {
		t.Fatalf("expected empty db path, got %q", cfg.DBPath)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.AutosaveDelayDuration() != 750*time.Millisecond {
		t.Fatalf("expected 750ms autosave delay, got %v", cfg.AutosaveDelayDuration())
	}
	if cfg.ExportName != "cv.ocv" {
		t.Fatalf("expected export name cv.ocv, got %q", cfg.ExportName)
	}
	if cfg.Container.MaxMemberBytes != DefaultContainerMaxMemberBytes {
		t.Fatalf("expected container max member default %d, got %d", DefaultContainerMaxMemberBytes, cfg.Container.MaxMemberBytes)
	}
	if cfg.Attachments.MaxBytes != DefaultAttachmentMaxBytes {
		t.Fatalf("expected attachment max default %d, got %d", DefaultAttachmentMaxBytes, cfg.Attachments.MaxBytes)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".ocv.toml")
	if err := os.WriteFile(path, []byte(`db_path = "/tmp/cv.db"
log_level = "warn"
autosave_delay = "2s"

[attachments]
max_bytes = 1024
allowed_media_types = ["application/pdf"]
`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/cv.db" {
		t.Fatalf("expected db_path, got %q", cfg.DBPath)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected log_level 'warn', got %q", cfg.LogLevel)
	}
	if cfg.AutosaveDelayDuration() != 2*time.Second {
		t.Fatalf("expected 2s autosave delay, got %v", cfg.AutosaveDelayDuration())
	}
	if cfg.Attachments.MaxBytes != 1024 {
		t.Fatalf("expected max_bytes 1024, got %d", cfg.Attachments.MaxBytes)
	}
	if cfg.ExportName != DefaultExportName {
		t.Fatalf("expected default export name preserved, got %q", cfg.ExportName)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFile("/nonexistent/path/.ocv.toml", &cfg); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("defaults should be preserved")
	}
}

func TestLoadFileInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ocv.toml")
	if err := os.WriteFile(path, []byte("log_level = \n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg := Default()
	if err := loadFile(path, &cfg); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestIsAllowedKey(t *testing.T) {
	for _, key := range []string{
		"db_path",
		"log_level",
		"autosave_delay",
		"export_name",
		"container.max_member_bytes",
		"attachments.max_bytes",
		"attachments.allowed_media_types",
	} {
		if !IsAllowedKey(key) {
			t.Fatalf("expected %q to be allowed", key)
		}
	}
	if IsAllowedKey("invalid") {
		t.Fatal("expected 'invalid' to not be allowed")
	}
}

func TestGetKey(t *testing.T) {
	cfg := Config{
		DBPath:        "/tmp/test.db",
		LogLevel:      "warn",
		AutosaveDelay: "1s",
		ExportName:    "mine.ocv",
		Container:     ContainerConfig{MaxMemberBytes: 123},
		Attachments: AttachmentConfig{
			MaxBytes:          456,
			AllowedMediaTypes: []string{"application/pdf", "text/plain"},
		},
	}

	tests := map[string]string{
		"db_path":                         "/tmp/test.db",
		"log_level":                       "warn",
		"autosave_delay":                  "1s",
		"export_name":                     "mine.ocv",
		"container.max_member_bytes":      "123",
		"attachments.max_bytes":           "456",
		"attachments.allowed_media_types": "application/pdf,text/plain",
	}
	for key, want := range tests {
		val, err := cfg.Get(key)
		if err != nil || val != want {
			t.Fatalf("Get(%q) = %q (err: %v), want %q", key, val, err, want)
		}
	}
	if _, err := cfg.Get("invalid"); err == nil {
		t.Fatal("expected error for invalid key")
	}
}

func TestSetKeyCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "new.toml")
	if err := SetKey(path, "export_name", "jane.ocv"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ExportName != "jane.ocv" {
		t.Fatalf("expected 'jane.ocv', got %q", cfg.ExportName)
	}
}

func TestSetKeyUpdatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.toml")
	if err := os.WriteFile(path, []byte("log_level = \"debug\"\ndb_path = \"/keep.db\"\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := SetKey(path, "log_level", "error"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Fatalf("expected 'error', got %q", cfg.LogLevel)
	}
	if cfg.DBPath != "/keep.db" {
		t.Fatalf("expected preserved db_path '/keep.db', got %q", cfg.DBPath)
	}
}

func TestSetKeyInvalidKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.toml")
	if err := SetKey(path, "invalid_key", "value"); err == nil {
		t.Fatal("expected error for invalid key")
	}
}

func TestSetKeyValidatesValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.toml")
	tests := []struct {
		key   string
		value string
	}{
		{key: "attachments.max_bytes", value: "0"},
		{key: "attachments.max_bytes", value: "lots"},
		{key: "container.max_member_bytes", value: "-5"},
		{key: "autosave_delay", value: "soon"},
		{key: "autosave_delay", value: "-1s"},
		{key: "export_name", value: "../escape.ocv"},
		{key: "export_name", value: " "},
	}
	for _, tc := range tests {
		if err := SetKey(path, tc.key, tc.value); err == nil {
			t.Fatalf("expected error for %s=%q", tc.key, tc.value)
		}
	}
}

func TestSetNestedAttachmentKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attachments.toml")
	if err := SetKey(path, "attachments.max_bytes", "321"); err != nil {
		t.Fatalf("set nested key: %v", err)
	}
	if err := SetKey(path, "attachments.allowed_media_types", "application/pdf, image/png"); err != nil {
		t.Fatalf("set media types: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Attachments.MaxBytes != 321 {
		t.Fatalf("expected max_bytes 321, got %d", cfg.Attachments.MaxBytes)
	}
	if len(cfg.Attachments.AllowedMediaTypes) != 2 || cfg.Attachments.AllowedMediaTypes[1] != "image/png" {
		t.Fatalf("unexpected media types: %v", cfg.Attachments.AllowedMediaTypes)
	}
}

func TestConfigDirOverridePath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OCV_CONFIG_DIR", dir)

	globalPath, err := GlobalPath()
	if err != nil {
		t.Fatalf("global path: %v", err)
	}
	if globalPath != filepath.Join(dir, ".ocv.toml") {
		t.Fatalf("unexpected global path: %s", globalPath)
	}
}

func TestLoadConfigDirOverride(t *testing.T) {
	configDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(configDir, ".ocv.toml"), []byte("export_name = \"override.ocv\"\n"), 0644); err != nil {
		t.Fatalf("write override config: %v", err)
	}
	homeDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(homeDir, ".ocv.toml"), []byte("export_name = \"home.ocv\"\n"), 0644); err != nil {
		t.Fatalf("write home config: %v", err)
	}

	t.Setenv("HOME", homeDir)
	t.Setenv("OCV_CONFIG_DIR", configDir)
	t.Setenv("OCV_DB", "")
	t.Setenv("XDG_DATA_HOME", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ExportName != "override.ocv" {
		t.Fatalf("expected config-dir export name, got %q", cfg.ExportName)
	}
	if cfg.DBPath != filepath.Join(homeDir, ".local", "share", "ocv", DefaultDBFileName) {
		t.Fatalf("expected default data-dir db path, got %q", cfg.DBPath)
	}
}

func TestLoadDefaultDBPathHonoursXDG(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("OCV_CONFIG_DIR", t.TempDir())
	t.Setenv("OCV_DB", "")
	t.Setenv("XDG_DATA_HOME", dataHome)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != filepath.Join(dataHome, "ocv", DefaultDBFileName) {
		t.Fatalf("expected XDG db path, got %q", cfg.DBPath)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OCV_CONFIG_DIR", t.TempDir())
	t.Setenv("OCV_DB", "/tmp/override.db")
	t.Setenv("OCV_AUTOSAVE_DELAY", "3s")
	t.Setenv("OCV_ATTACH_ALLOWED_MEDIA_TYPES", "Image/PNG, application/pdf; q=1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/override.db" {
		t.Fatalf("expected env override for DB path, got %q", cfg.DBPath)
	}
	if cfg.AutosaveDelayDuration() != 3*time.Second {
		t.Fatalf("expected env override for autosave delay, got %v", cfg.AutosaveDelayDuration())
	}
	want := []string{"application/pdf", "image/png"}
	if len(cfg.Attachments.AllowedMediaTypes) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.Attachments.AllowedMediaTypes)
	}
	for i := range want {
		if cfg.Attachments.AllowedMediaTypes[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, cfg.Attachments.AllowedMediaTypes)
		}
	}
}

func TestInvalidAutosaveDelayEnvIgnored(t *testing.T) {
	t.Setenv("OCV_CONFIG_DIR", t.TempDir())
	t.Setenv("OCV_AUTOSAVE_DELAY", "whenever")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AutosaveDelayDuration() != DefaultAutosaveDelay {
		t.Fatalf("expected default delay, got %v", cfg.AutosaveDelayDuration())
	}
}

func TestLoadFallsBackToDefaultsWhenConfiguredEmpty(t *testing.T) {
	configDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(configDir, ".ocv.toml"), []byte("log_level = \"\"\nexport_name = \"\"\nautosave_delay = \"0s\"\n[attachments]\nmax_bytes = 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("OCV_CONFIG_DIR", configDir)
	t.Setenv("OCV_AUTOSAVE_DELAY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.ExportName != DefaultExportName {
		t.Fatalf("expected default export name, got %q", cfg.ExportName)
	}
	if cfg.AutosaveDelay != DefaultAutosaveDelay.String() {
		t.Fatalf("expected default autosave delay, got %q", cfg.AutosaveDelay)
	}
	if cfg.Attachments.MaxBytes != DefaultAttachmentMaxBytes {
		t.Fatalf("expected default max bytes, got %d", cfg.Attachments.MaxBytes)
	}
}

func TestMediaTypeAllowed(t *testing.T) {
	open := Default()
	if !open.MediaTypeAllowed("anything/at-all") {
		t.Fatal("empty allow-list should admit every type")
	}

	restricted := Default()
	restricted.Attachments.AllowedMediaTypes = []string{"application/pdf"}
	if !restricted.MediaTypeAllowed("Application/PDF") {
		t.Fatal("expected case-insensitive match")
	}
	if restricted.MediaTypeAllowed("image/png") {
		t.Fatal("expected image/png to be rejected")
	}
	if restricted.MediaTypeAllowed("not a media type") {
		t.Fatal("expected unparsable type to be rejected")
	}
}
