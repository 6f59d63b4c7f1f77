package config

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultLogLevel      = "info"
	DefaultAutosaveDelay = 750 * time.Millisecond
	DefaultExportName    = "cv.ocv"
	DefaultDBFileName    = "ocv.db"

	DefaultContainerMaxMemberBytes int64 = 64 * 1024 * 1024
	DefaultAttachmentMaxBytes      int64 = 25 * 1024 * 1024

	configFileName        = ".ocv.toml"
	configDirEnvKey       = "OCV_CONFIG_DIR"
	dbPathEnvKey          = "OCV_DB"
	autosaveDelayEnvKey   = "OCV_AUTOSAVE_DELAY"
	allowedMediaEnvKey    = "OCV_ATTACH_ALLOWED_MEDIA_TYPES"
	xdgDataHomeEnvKey     = "XDG_DATA_HOME"
	defaultDataDirRelPath = ".local/share"
)

// ContainerConfig bounds archive decoding.
type ContainerConfig struct {
	MaxMemberBytes int64 `toml:"max_member_bytes"`
}

// AttachmentConfig defines limits for attaching local files.
type AttachmentConfig struct {
	MaxBytes          int64    `toml:"max_bytes"`
	AllowedMediaTypes []string `toml:"allowed_media_types"`
}

// Config defines runtime configuration for ocv.
type Config struct {
	DBPath        string           `toml:"db_path"`
	LogLevel      string           `toml:"log_level"`
	AutosaveDelay string           `toml:"autosave_delay"`
	ExportName    string           `toml:"export_name"`
	Container     ContainerConfig  `toml:"container"`
	Attachments   AttachmentConfig `toml:"attachments"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		DBPath:        "",
		LogLevel:      DefaultLogLevel,
		AutosaveDelay: DefaultAutosaveDelay.String(),
		ExportName:    DefaultExportName,
		Container: ContainerConfig{
			MaxMemberBytes: DefaultContainerMaxMemberBytes,
		},
		Attachments: AttachmentConfig{
			MaxBytes:          DefaultAttachmentMaxBytes,
			AllowedMediaTypes: nil,
		},
	}
}

// AutosaveDelayDuration parses AutosaveDelay, falling back to the default
// for empty, invalid or non-positive values.
func (c *Config) AutosaveDelayDuration() time.Duration {
	parsed, err := parseDuration(c.AutosaveDelay)
	if err != nil {
		return DefaultAutosaveDelay
	}
	return parsed
}

// MediaTypeAllowed reports whether an attachment of mediaType may be added.
// An empty allow-list admits everything.
func (c *Config) MediaTypeAllowed(mediaType string) bool {
	if len(c.Attachments.AllowedMediaTypes) == 0 {
		return true
	}
	parsed, _, err := mime.ParseMediaType(strings.TrimSpace(mediaType))
	if err != nil {
		return false
	}
	parsed = strings.ToLower(parsed)
	for _, allowed := range c.Attachments.AllowedMediaTypes {
		if allowed == parsed {
			return true
		}
	}
	return false
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

var allowedKeys = []string{
	"db_path",
	"log_level",
	"autosave_delay",
	"export_name",
	"container.max_member_bytes",
	"attachments.max_bytes",
	"attachments.allowed_media_types",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "autosave_delay":
		return c.AutosaveDelay, nil
	case "export_name":
		return c.ExportName, nil
	case "container.max_member_bytes":
		return strconv.FormatInt(c.Container.MaxMemberBytes, 10), nil
	case "attachments.max_bytes":
		return strconv.FormatInt(c.Attachments.MaxBytes, 10), nil
	case "attachments.allowed_media_types":
		return strings.Join(c.Attachments.AllowedMediaTypes, ","), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// DefaultDBPath returns the database location used when db_path is unset.
func DefaultDBPath() (string, error) {
	if dataHome := strings.TrimSpace(os.Getenv(xdgDataHomeEnvKey)); dataHome != "" {
		return filepath.Join(dataHome, "ocv", DefaultDBFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, defaultDataDirRelPath, "ocv", DefaultDBFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads the global config file and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
			return nil, err
		}
	}

	if dbPath := strings.TrimSpace(os.Getenv(dbPathEnvKey)); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if cfg.DBPath == "" {
		if path, err := DefaultDBPath(); err == nil {
			cfg.DBPath = path
		}
	}
	if raw := strings.TrimSpace(os.Getenv(autosaveDelayEnvKey)); raw != "" {
		if _, err := parseDuration(raw); err == nil {
			cfg.AutosaveDelay = raw
		}
	}
	if raw := strings.TrimSpace(os.Getenv(allowedMediaEnvKey)); raw != "" {
		cfg.Attachments.AllowedMediaTypes = splitCSV(raw)
	}

	cfg.normalizeDefaults()

	return &cfg, nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "container.max_member_bytes", "attachments.max_bytes":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "autosave_delay":
		if _, err := parseDuration(value); err != nil {
			return nil, fmt.Errorf("%s must be a positive duration such as 750ms", key)
		}
		return value, nil
	case "export_name":
		if value == "" || strings.ContainsAny(value, `/\`) {
			return nil, fmt.Errorf("%s must be a plain file name", key)
		}
		return value, nil
	case "attachments.allowed_media_types":
		return splitCSV(value), nil
	default:
		return value, nil
	}
}

func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty duration")
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}
	return parsed, nil
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (c *Config) normalizeDefaults() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if _, err := parseDuration(c.AutosaveDelay); err != nil {
		c.AutosaveDelay = DefaultAutosaveDelay.String()
	}
	if strings.TrimSpace(c.ExportName) == "" {
		c.ExportName = DefaultExportName
	}
	if c.Container.MaxMemberBytes <= 0 {
		c.Container.MaxMemberBytes = DefaultContainerMaxMemberBytes
	}
	if c.Attachments.MaxBytes <= 0 {
		c.Attachments.MaxBytes = DefaultAttachmentMaxBytes
	}
	c.Attachments.AllowedMediaTypes = normalizeConfiguredMediaTypes(c.Attachments.AllowedMediaTypes)
}

func normalizeConfiguredMediaTypes(rawValues []string) []string {
	if len(rawValues) == 0 {
		return nil
	}
	out := make([]string, 0, len(rawValues))
	seen := map[string]struct{}{}
	for _, raw := range rawValues {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parsed, _, err := mime.ParseMediaType(raw)
		if err != nil {
			continue
		}
		normalized := strings.ToLower(strings.TrimSpace(parsed))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
