// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/credkeep/internal/crypto"
)

// ConfigVersion is the current config schema. Older files are migrated
// forward on load; newer files are rejected.
const ConfigVersion = 1

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete credkeep configuration. The schema is fixed
// and versioned; unknown future versions are refused rather than
// partially interpreted.
type Config struct {
	Version int `toml:"version"`

	Storage  StorageConfig  `toml:"storage"`
	Security SecurityConfig `toml:"security"`
	CLI      CLIConfig      `toml:"cli"`
}

// StorageConfig locates the database and controls tamper watching.
type StorageConfig struct {
	// DatabasePath is the SQLite database file (empty = default
	// ~/.credkeep/credkeep.db).
	DatabasePath string `toml:"database_path"`

	// WatchEnabled turns on detection of external modification of the
	// database file.
	WatchEnabled bool `toml:"watch_enabled"`

	// WatchDebounceMS is the debounce window for watch events.
	WatchDebounceMS int `toml:"watch_debounce_ms"`
}

// SecurityConfig holds the tunable cryptographic costs. Every knob has
// a hard floor; values below it are clamped up, never honored.
type SecurityConfig struct {
	// Argon2MemoryKiB is the password hashing memory cost.
	// Floor: 65536 (64 MiB).
	Argon2MemoryKiB int `toml:"argon2_memory_kib"`

	// Argon2Time is the password hashing time cost. Floor: 3.
	Argon2Time int `toml:"argon2_time"`

	// PBKDF2Iterations is the vault key derivation cost.
	// Floor: 100000.
	PBKDF2Iterations int `toml:"pbkdf2_iterations"`

	// LoginBurst is how many login attempts per username may arrive
	// back to back before throttling.
	LoginBurst int `toml:"login_burst"`

	// AuditEnabled turns the security event log on or off.
	AuditEnabled bool `toml:"audit_enabled"`
}

// CLIConfig controls terminal output.
type CLIConfig struct {
	// ColorEnabled allows styled output. NO_COLOR and a dumb terminal
	// still win over this.
	ColorEnabled bool `toml:"color_enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: ConfigVersion,
		Storage: StorageConfig{
			WatchEnabled:    true,
			WatchDebounceMS: 500,
		},
		Security: SecurityConfig{
			Argon2MemoryKiB:  crypto.Argon2MinMemoryKiB,
			Argon2Time:       crypto.Argon2MinTime,
			PBKDF2Iterations: crypto.PBKDF2Iterations,
			LoginBurst:       5,
			AuditEnabled:     true,
		},
		CLI: CLIConfig{
			ColorEnabled: true,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the credkeep data directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".credkeep"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DatabasePath resolves the effective database path.
func (c *Config) DatabasePath() (string, error) {
	if c.Storage.DatabasePath != "" {
		return c.Storage.DatabasePath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "credkeep.db"), nil
}

// EnsureConfigDir ensures the data directory exists, owner-only.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions fixes over-permissive modes on the config
// file.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm() != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions: %w", err)
		}
	}
	return nil
}

// =============================================================================
// LOAD
// =============================================================================

// Load reads the config file, falling back to defaults when absent.
// Environment overrides are applied after the file, clamping last.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadFrom(cfg, path); err != nil {
				return nil, err
			}
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Migrate(); err != nil {
		return nil, err
	}
	cfg.Clamp()
	return cfg, nil
}

// LoadFrom decodes the TOML file at path into cfg.
func LoadFrom(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}
	return nil
}

// Migrate brings an older config forward. A file written by a newer
// credkeep is refused.
func (c *Config) Migrate() error {
	if c.Version == 0 {
		c.Version = ConfigVersion
	}
	if c.Version > ConfigVersion {
		return fmt.Errorf("config version %d is newer than supported version %d", c.Version, ConfigVersion)
	}
	return nil
}

// Clamp enforces the security floors. Misconfiguration can raise the
// cost of cryptography but never lower it.
func (c *Config) Clamp() {
	if c.Security.Argon2MemoryKiB < crypto.Argon2MinMemoryKiB {
		c.Security.Argon2MemoryKiB = crypto.Argon2MinMemoryKiB
	}
	if c.Security.Argon2Time < crypto.Argon2MinTime {
		c.Security.Argon2Time = crypto.Argon2MinTime
	}
	if c.Security.PBKDF2Iterations < crypto.PBKDF2MinIterations {
		c.Security.PBKDF2Iterations = crypto.PBKDF2MinIterations
	}
	if c.Security.LoginBurst < 1 {
		c.Security.LoginBurst = 1
	}
	if c.Storage.WatchDebounceMS < 100 {
		c.Storage.WatchDebounceMS = 100
	}
}

// Argon2Params converts the configured costs into hashing parameters.
func (c *Config) Argon2Params() crypto.Argon2Params {
	p := crypto.DefaultArgon2Params()
	p.MemoryKiB = uint32(c.Security.Argon2MemoryKiB)
	p.Time = uint32(c.Security.Argon2Time)
	return p.Clamp()
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variables on top of the file:
//
//   - CREDKEEP_DB: overrides storage.database_path
//   - CREDKEEP_NO_WATCH: "1" or "true" disables the tamper watch
//   - CREDKEEP_NO_AUDIT: "1" or "true" disables the event log
//   - CREDKEEP_NO_COLOR: "1" or "true" disables styled output
//   - CREDKEEP_PBKDF2_ITERATIONS: overrides the key derivation cost
func (c *Config) ApplyEnvOverrides() {
	if db := os.Getenv("CREDKEEP_DB"); db != "" {
		c.Storage.DatabasePath = db
	}
	if v := os.Getenv("CREDKEEP_NO_WATCH"); isTruthy(v) {
		c.Storage.WatchEnabled = false
	}
	if v := os.Getenv("CREDKEEP_NO_AUDIT"); isTruthy(v) {
		c.Security.AuditEnabled = false
	}
	if v := os.Getenv("CREDKEEP_NO_COLOR"); isTruthy(v) {
		c.CLI.ColorEnabled = false
	}
	if v := os.Getenv("CREDKEEP_PBKDF2_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Security.PBKDF2Iterations = n
		}
	}
}

func isTruthy(v string) bool {
	return v == "1" || v == "true"
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes the config file with owner-only permissions.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# credkeep configuration file")
	fmt.Fprintln(file, "# Generated by credkeep - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
