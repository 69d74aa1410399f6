// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Engine wiring shared by all credkeep command handlers.
//
// Every command opens the same stack: config, SQLite store, audit log,
// session manager, auth engine, vault store. Short-lived commands skip
// the background pieces (sweeper, file watcher); the interactive shell
// runs them for its whole lifetime.

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/credkeep/internal/audit"
	"github.com/jeranaias/credkeep/internal/auth"
	"github.com/jeranaias/credkeep/internal/config"
	"github.com/jeranaias/credkeep/internal/session"
	"github.com/jeranaias/credkeep/internal/store"
	"github.com/jeranaias/credkeep/internal/util"
	"github.com/jeranaias/credkeep/internal/vault"
)

// sessionFileName holds the active session token between invocations,
// stored in the config directory with owner-only permissions.
const sessionFileName = "session"

// App is the wired credkeep engine.
type App struct {
	Config   *config.Config
	Store    store.Store
	Events   *audit.Logger
	Sessions *session.Manager
	Engine   *auth.Engine
	Vault    *vault.Store

	sqlite  *store.SQLiteStore
	watcher *store.Watcher
	sweeper *session.Sweeper
}

// OpenApp loads configuration and wires the engine.
//
// interactive enables the long-running pieces: the session sweeper and,
// when configured, the fsnotify watch that flags external modification
// of the database file. One-shot commands leave both off.
func OpenApp(interactive bool) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}

	sq, err := store.OpenSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	app := &App{Config: cfg, sqlite: sq}

	var st store.Store = sq
	if interactive && cfg.Storage.WatchEnabled {
		debounce := time.Duration(cfg.Storage.WatchDebounceMS) * time.Millisecond
		watcher, err := store.NewWatcher(dbPath, debounce, func() {
			if app.Events != nil {
				_ = app.Events.Record(audit.EventStoreTampered, "",
					"database file modified outside credkeep")
			}
			fmt.Fprintln(os.Stderr, WarningStyle.Render(
				"warning: database file was modified by another process"))
		})
		if err != nil {
			sq.Close()
			return nil, fmt.Errorf("failed to create file watcher: %w", err)
		}
		app.watcher = watcher
		st = store.WithWriteHook(sq, watcher.MarkOwnWrite)
	}
	app.Store = st

	if cfg.Security.AuditEnabled {
		app.Events = audit.NewLogger(st)
	}

	device := "cli"
	if interactive {
		device = "shell"
	}

	app.Sessions = session.NewManager(st, app.Events)
	app.Engine = auth.NewEngine(st, app.Sessions, app.Events,
		auth.WithArgon2Params(cfg.Argon2Params()),
		auth.WithKeyIterations(cfg.Security.PBKDF2Iterations),
		auth.WithLoginRate(rate.Every(time.Second), cfg.Security.LoginBurst),
		auth.WithOrigin(device, "local"),
	)
	app.Vault = vault.NewStore(st, app.Engine, app.Events,
		vault.WithKeyIterations(cfg.Security.PBKDF2Iterations))
	app.Engine.SetRekeyer(app.Vault)

	if interactive {
		app.sweeper = app.Sessions.StartSweeper()
		if app.watcher != nil {
			if err := app.watcher.Watch(); err != nil {
				app.Close()
				return nil, fmt.Errorf("failed to start file watcher: %w", err)
			}
		}
	}

	return app, nil
}

// Close stops background work and releases the database.
func (a *App) Close() {
	if a.sweeper != nil {
		a.sweeper.Stop()
	}
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	if a.sqlite != nil {
		_ = a.sqlite.Close()
	}
}

// =============================================================================
// SESSION TOKEN PERSISTENCE
// =============================================================================
// One-shot commands carry the login across invocations through a token
// file next to the config. The token is only useful to the local user:
// file permissions are 0600 and the vault key it unlocks lives in the
// process that created it, so a stale file simply fails validation.

func sessionTokenPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, sessionFileName), nil
}

// LoadSessionToken returns the persisted session token, or "" when the
// user is not logged in.
func LoadSessionToken() string {
	path, err := sessionTokenPath()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// SaveSessionToken persists the session token with secure permissions.
func SaveSessionToken(token string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	path, err := sessionTokenPath()
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(path, []byte(token+"\n"), 0600)
}

// ClearSessionToken removes the persisted token. Missing file is fine.
func ClearSessionToken() error {
	path, err := sessionTokenPath()
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// RequireToken returns the persisted token after validating it against
// the session manager. An absent or expired token is an auth error so
// callers can print a consistent "please log in" message.
func (a *App) RequireToken() (string, error) {
	token := LoadSessionToken()
	if token == "" {
		return "", &auth.SessionExpiredError{}
	}
	if !a.Engine.IsAuthenticated(token) {
		_ = ClearSessionToken()
		return "", &auth.SessionExpiredError{}
	}
	return token, nil
}

// EnsureUnlocked makes sure the vault key for token is in memory.
//
// A one-shot command resuming a persisted session runs in a fresh
// process, so the key derived at login is gone; the password is asked
// for once and the key re-derived. Inside the shell the key survives
// from login and this is a no-op.
func (a *App) EnsureUnlocked(token string) error {
	if a.Engine.HasVaultKey(token) {
		return nil
	}
	password, err := PromptPassword("Master password: ")
	if err != nil {
		return err
	}
	return a.Engine.Unlock(token, password)
}
