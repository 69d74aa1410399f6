// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// credkeep.
//
// The schema is a fixed, versioned struct: TOML file plus CREDKEEP_*
// environment overrides, then clamping. Security knobs have hard
// floors — a config file can make cryptography more expensive, never
// cheaper.
//
// # Key Types
//
//   - Config: the versioned configuration structure
//   - StorageConfig: database location and tamper watching
//   - SecurityConfig: cryptographic cost knobs with floors
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (CREDKEEP_*)
//   - ~/.credkeep/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	dbPath, err := cfg.DatabasePath()
package config
