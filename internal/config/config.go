// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New(ctx) returns a Config populated with defaults.
// - Load(ctx) layers an optional YAML file and FIXIT_ environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"io/fs"
	"strconv"
)

// Input store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. "127.0.0.1:5000".
	Addr string `koanf:"addr"`

	// InputStoreBackend selects where recorded inputs live: "file" or "sqlite".
	InputStoreBackend string `koanf:"input_store_backend"`

	// InputStorePath is the JSON array file used by the file backend.
	InputStorePath string `koanf:"input_store_path"`

	// InputStoreFileMode is the octal permission of the JSON store file, e.g. "0644".
	InputStoreFileMode string `koanf:"input_store_file_mode"`

	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `koanf:"sqlite_path"`

	// ProviderCatalogPath points at the externally maintained provider list.
	ProviderCatalogPath string `koanf:"provider_catalog_path"`

	// MaxInputBytes caps the POST /store_input body size.
	MaxInputBytes int64 `koanf:"max_input_bytes"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "debug",
		Addr:                "127.0.0.1:5000",
		InputStoreBackend:   BackendFile,
		InputStorePath:      "user_inputs.json",
		InputStoreFileMode:  "0644",
		SQLitePath:          "user_inputs.db",
		ProviderCatalogPath: "../updated_dummy_service_providers.json",
		MaxInputBytes:       1 << 20,
	}
}

// FileMode parses InputStoreFileMode as octal permission bits.
func (c *Config) FileMode() (fs.FileMode, error) {
	mode, err := strconv.ParseUint(c.InputStoreFileMode, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: input_store_file_mode %q is not an octal mode", ErrInvalidConfig, c.InputStoreFileMode)
	}
	if mode == 0 || mode > uint64(fs.ModePerm) {
		return 0, fmt.Errorf("%w: input_store_file_mode %q out of range", ErrInvalidConfig, c.InputStoreFileMode)
	}
	return fs.FileMode(mode), nil
}
