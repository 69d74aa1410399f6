// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides authenticated session lifecycle management.
//
// Every session carries two independent deadlines: an idle timeout that
// moves forward with activity, and an absolute timeout fixed at creation
// time. A session is expired the moment either deadline is reached;
// activity never extends the absolute deadline.
//
// Expired sessions are removed lazily on validation and proactively by a
// background sweeper. The sweeper is an owned handle: whoever starts it
// stops it, there is no global state.
//
// # Key Types
//
//   - Session: one authenticated session with both deadlines
//   - Manager: create, validate, touch, invalidate, sweep
//   - Sweeper: background expiry sweep with an owned Stop
//   - Clock: injectable time source for deterministic tests
//
// # Usage
//
//	mgr := session.NewManager(st, logger)
//	s, err := mgr.Create(accountID, "cli", "local")
//
//	sweeper := mgr.StartSweeper()
//	defer sweeper.Stop()
package session
