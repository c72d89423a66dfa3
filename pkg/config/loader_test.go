package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"
)

// ===========================================================================
// Test Types
// ===========================================================================

// testSecret mimics auth.Secret: a named string type whose String()
// redacts the value. Verifies setField handles named string types
// without importing the auth package.
type testSecret string

func (s testSecret) String() string { return "[REDACTED]" }
func (s testSecret) Value() string  { return string(s) }

type serverConfig struct {
	Addr      string        `env:"ADDR" envDefault:":8080" yaml:"addr" json:"addr"`
	Workers   int           `env:"WORKERS" envDefault:"4" yaml:"workers" json:"workers"`
	Debug     bool          `env:"DEBUG" envDefault:"false" yaml:"debug" json:"debug"`
	AccessTTL time.Duration `env:"ACCESS_TTL" envDefault:"30m" yaml:"access_ttl" json:"access_ttl"`
}

type requiredConfig struct {
	SigningKey string `env:"SIGNING_KEY" required:"true"`
	Addr       string `env:"ADDR"`
}

type secretConfig struct {
	Addr       string     `env:"ADDR"`
	SigningKey testSecret `env:"SIGNING_KEY"`
}

type nestedConfig struct {
	App      string      `env:"APP"`
	Database dbSubConfig `env:"DB"`
}

type dbSubConfig struct {
	Host     string     `env:"HOST" yaml:"host" json:"host"`
	Port     int        `env:"PORT" yaml:"port" json:"port"`
	Password testSecret `env:"PASSWORD"`
}

type sliceConfig struct {
	Extensions []string `env:"EXTENSIONS" envDefault:"mp4,avi,mkv"`
}

type validatableConfig struct {
	Addr    string `env:"ADDR"`
	Workers int    `env:"WORKERS"`
}

func (c *validatableConfig) Validate() error {
	if c.Workers < 1 {
		return vherr.Newf(vherr.CodeValidation,
			"config: workers %d must be positive", c.Workers)
	}
	return nil
}

type validatableStdlibConfig struct {
	Name string `env:"NAME"`
}

func (c *validatableStdlibConfig) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

// writeTestFile creates a file in the test's temp directory and returns
// its path. The test fails if the file cannot be written.
func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writeTestFile() error: %v", err)
	}
	return path
}

// ===========================================================================
// Load — Input Validation Tests
// ===========================================================================

// TestLoader_Load_InvalidTargets verifies that Load rejects nil
// pointers, plain struct values, and pointers to non-structs.
func TestLoader_Load_InvalidTargets(t *testing.T) {
	n := 42
	tests := []struct {
		name   string
		target any
	}{
		{name: "nil_pointer", target: (*serverConfig)(nil)},
		{name: "non_pointer", target: serverConfig{}},
		{name: "pointer_to_non_struct", target: &n},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().Load(tt.target)
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !vherr.IsInternal(err) {
				t.Error("IsInternal() = false, want true for invalid target")
			}
		})
	}
}

// ===========================================================================
// Load — envDefault Tag Tests
// ===========================================================================

// TestLoader_Load_Defaults_Applied verifies that envDefault tags fill
// zero-valued fields for every supported kind.
func TestLoader_Load_Defaults_Applied(t *testing.T) {
	var cfg serverConfig
	if err := New().Load(&cfg); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, ":8080")
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.Debug {
		t.Error("Debug = true, want false")
	}
	if cfg.AccessTTL != 30*time.Minute {
		t.Errorf("AccessTTL = %v, want %v", cfg.AccessTTL, 30*time.Minute)
	}
}

// TestLoader_Load_Defaults_NotOverwriteExisting verifies that
// envDefault tags leave pre-set non-zero values alone.
func TestLoader_Load_Defaults_NotOverwriteExisting(t *testing.T) {
	cfg := serverConfig{Addr: ":9090", Workers: 16}
	if err := New().Load(&cfg); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q, want %q (should not be overwritten)", cfg.Addr, ":9090")
	}
	if cfg.Workers != 16 {
		t.Errorf("Workers = %d, want 16 (should not be overwritten)", cfg.Workers)
	}
}

// TestLoader_Load_Defaults_Slice verifies that comma-separated
// envDefault values become a string slice.
func TestLoader_Load_Defaults_Slice(t *testing.T) {
	var cfg sliceConfig
	if err := New().Load(&cfg); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	want := []string{"mp4", "avi", "mkv"}
	if len(cfg.Extensions) != len(want) {
		t.Fatalf("Extensions length = %d, want %d", len(cfg.Extensions), len(want))
	}
	for i := range want {
		if cfg.Extensions[i] != want[i] {
			t.Errorf("Extensions[%d] = %q, want %q", i, cfg.Extensions[i], want[i])
		}
	}
}

// ===========================================================================
// Load — File Loading Tests
// ===========================================================================

// TestLoader_Load_YAMLFile verifies that values load from a YAML file
// and override defaults.
func TestLoader_Load_YAMLFile(t *testing.T) {
	path := writeTestFile(t, "config.yaml", `
addr: ":3000"
workers: 8
debug: true
access_ttl: 15m
`)

	var cfg serverConfig
	if err := New().WithFile(path).Load(&cfg); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Addr != ":3000" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, ":3000")
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
	if cfg.AccessTTL != 15*time.Minute {
		t.Errorf("AccessTTL = %v, want %v", cfg.AccessTTL, 15*time.Minute)
	}
}

// TestLoader_Load_JSONFile verifies that .json files load through the
// JSON unmarshaler.
func TestLoader_Load_JSONFile(t *testing.T) {
	path := writeTestFile(t, "config.json", `{"addr": ":4000", "workers": 12}`)

	var cfg serverConfig
	if err := New().WithFile(path).Load(&cfg); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Addr != ":4000" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, ":4000")
	}
	if cfg.Workers != 12 {
		t.Errorf("Workers = %d, want 12", cfg.Workers)
	}
}

// TestLoader_Load_MissingFile_NoError verifies that a nonexistent
// config file is skipped and defaults still apply.
func TestLoader_Load_MissingFile_NoError(t *testing.T) {
	var cfg serverConfig
	if err := New().WithFile("/nonexistent/config.yaml").Load(&cfg); err != nil {
		t.Fatalf("Load() with missing file error: %v (expected nil)", err)
	}

	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want %q (default should apply)", cfg.Addr, ":8080")
	}
}

// TestLoader_Load_UnsupportedExtension verifies that an unknown file
// extension fails with an internal configuration error.
func TestLoader_Load_UnsupportedExtension(t *testing.T) {
	path := writeTestFile(t, "config.toml", `addr = ":8080"`)

	var cfg serverConfig
	err := New().WithFile(path).Load(&cfg)
	if err == nil {
		t.Fatal("Load() with .toml expected error, got nil")
	}
	if !vherr.IsInternal(err) {
		t.Error("IsInternal() = false, want true for unsupported extension")
	}
}

// TestLoader_Load_DirectoryTraversal verifies that file paths with
// traversal sequences are rejected.
func TestLoader_Load_DirectoryTraversal(t *testing.T) {
	var cfg serverConfig
	err := New().WithFile("../../../etc/passwd").Load(&cfg)
	if err == nil {
		t.Fatal("Load() with directory traversal expected error, got nil")
	}
	if !vherr.IsInternal(err) {
		t.Error("IsInternal() = false, want true for directory traversal")
	}
}

// ===========================================================================
// Load — Environment Variable Tests
// ===========================================================================

// TestLoader_Load_PriorityOrder verifies the full chain: env wins over
// file, file wins over default, default fills the rest.
func TestLoader_Load_PriorityOrder(t *testing.T) {
	path := writeTestFile(t, "config.yaml", `
addr: ":3000"
workers: 8
`)

	t.Setenv("ADDR", ":5000")
	// WORKERS is not set in the environment so the file value stays.

	var cfg serverConfig
	if err := New().WithFile(path).Load(&cfg); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Addr != ":5000" {
		t.Errorf("Addr = %q, want %q (env > file)", cfg.Addr, ":5000")
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8 (file > default)", cfg.Workers)
	}
	if cfg.AccessTTL != 30*time.Minute {
		t.Errorf("AccessTTL = %v, want %v (default only)", cfg.AccessTTL, 30*time.Minute)
	}
}

// TestLoader_Load_EnvPrefix verifies that WithEnvPrefix prepends and
// uppercases the prefix for environment lookups.
func TestLoader_Load_EnvPrefix(t *testing.T) {
	t.Setenv("VIDHIVE_ADDR", ":7070")

	var cfg serverConfig
	if err := New().WithEnvPrefix("vidhive").Load(&cfg); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Addr != ":7070" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, ":7070")
	}
}

// TestLoader_Load_NestedStruct_Env verifies that a nested struct's env
// tag becomes the prefix for its children, combined with the global
// prefix when set.
func TestLoader_Load_NestedStruct_Env(t *testing.T) {
	t.Setenv("VIDHIVE_APP", "vidhive")
	t.Setenv("VIDHIVE_DB_HOST", "db.internal")
	t.Setenv("VIDHIVE_DB_PORT", "5432")
	t.Setenv("VIDHIVE_DB_PASSWORD", "dbpass")

	var cfg nestedConfig
	if err := New().WithEnvPrefix("VIDHIVE").Load(&cfg); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.App != "vidhive" {
		t.Errorf("App = %q, want %q", cfg.App, "vidhive")
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "db.internal")
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want 5432", cfg.Database.Port)
	}
	if cfg.Database.Password.Value() != "dbpass" {
		t.Errorf("Database.Password.Value() = %q, want %q",
			cfg.Database.Password.Value(), "dbpass")
	}
}

// TestLoader_Load_SecretFromEnv verifies that named string types are
// set from env and stay redacted through String().
func TestLoader_Load_SecretFromEnv(t *testing.T) {
	t.Setenv("SIGNING_KEY", "super-secret-signing-key")

	var cfg secretConfig
	if err := New().Load(&cfg); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.SigningKey.Value() != "super-secret-signing-key" {
		t.Errorf("SigningKey.Value() = %q, want the raw key", cfg.SigningKey.Value())
	}
	if cfg.SigningKey.String() != "[REDACTED]" {
		t.Errorf("SigningKey.String() = %q, want %q", cfg.SigningKey.String(), "[REDACTED]")
	}
}

// TestLoader_Load_ParseErrors verifies that unparseable env values
// return internal configuration errors.
func TestLoader_Load_ParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
	}{
		{name: "invalid_int", envKey: "WORKERS", envVal: "not-a-number"},
		{name: "invalid_bool", envKey: "DEBUG", envVal: "not-a-bool"},
		{name: "invalid_duration", envKey: "ACCESS_TTL", envVal: "not-a-duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.envKey, tt.envVal)

			var cfg serverConfig
			err := New().Load(&cfg)
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !vherr.IsInternal(err) {
				t.Error("IsInternal() = false, want true for parse error")
			}
		})
	}
}

// ===========================================================================
// Load — Validation Tests
// ===========================================================================

// TestLoader_Load_RequiredField_Missing verifies that a zero-valued
// required field fails with CodeValidationRequired.
func TestLoader_Load_RequiredField_Missing(t *testing.T) {
	var cfg requiredConfig
	err := New().Load(&cfg)
	if err == nil {
		t.Fatal("Load() expected error for missing required field, got nil")
	}

	var vhErr *vherr.Error
	if !errors.As(err, &vhErr) {
		t.Fatalf("error type = %T, want *vherr.Error", err)
	}
	if vhErr.Code != vherr.CodeValidationRequired {
		t.Errorf("error code = %q, want %q", vhErr.Code, vherr.CodeValidationRequired)
	}
}

// TestLoader_Load_RequiredField_Set verifies that a populated required
// field passes.
func TestLoader_Load_RequiredField_Set(t *testing.T) {
	t.Setenv("SIGNING_KEY", "some-key")

	var cfg requiredConfig
	if err := New().Load(&cfg); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.SigningKey != "some-key" {
		t.Errorf("SigningKey = %q, want %q", cfg.SigningKey, "some-key")
	}
}

// TestLoader_Load_Validator_ReturnsError verifies that a Validate()
// failure surfaces through Load as a validation error.
func TestLoader_Load_Validator_ReturnsError(t *testing.T) {
	t.Setenv("WORKERS", "0")

	var cfg validatableConfig
	err := New().Load(&cfg)
	if err == nil {
		t.Fatal("Load() expected error from Validator, got nil")
	}
	if !vherr.IsValidation(err) {
		t.Error("IsValidation() = false, want true for Validator error")
	}
}

// TestLoader_Load_Validator_StdlibError verifies that plain errors from
// Validate() are wrapped with CodeValidation.
func TestLoader_Load_Validator_StdlibError(t *testing.T) {
	var cfg validatableStdlibConfig
	err := New().Load(&cfg)
	if err == nil {
		t.Fatal("Load() expected error from Validator, got nil")
	}
	if !vherr.IsValidation(err) {
		t.Error("IsValidation() = false, want true for wrapped stdlib error")
	}
}

// ===========================================================================
// MustLoad Tests
// ===========================================================================

// TestMustLoad_Success verifies that MustLoad returns a populated
// struct when loading succeeds.
func TestMustLoad_Success(t *testing.T) {
	cfg := MustLoad[serverConfig](New())

	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, ":8080")
	}
}

// TestMustLoad_Panics verifies that MustLoad panics on a missing
// required field.
func TestMustLoad_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("MustLoad() expected panic, got none")
		}
	}()

	_ = MustLoad[requiredConfig](New())
}
