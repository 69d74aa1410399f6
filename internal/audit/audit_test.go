// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package audit

import (
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/credkeep/internal/store"
)

// TestRecordAndRead tests the append and filtered read path.
func TestRecordAndRead(t *testing.T) {
	logger := NewLogger(store.NewMemoryStore())

	if err := logger.Record(EventRegistration, "acct-1", "new account"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := logger.Record(EventLoginSuccess, "acct-1", ""); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := logger.Record(EventLoginFailure, "acct-2", "bad password"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	all, err := logger.Events(Filter{})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Got %d events, want 3", len(all))
	}

	// Newest first.
	if all[0].Kind != EventLoginFailure {
		t.Errorf("First event is %s, want %s", all[0].Kind, EventLoginFailure)
	}

	byAccount, err := logger.Events(Filter{AccountID: "acct-1"})
	if err != nil {
		t.Fatalf("Events by account failed: %v", err)
	}
	if len(byAccount) != 2 {
		t.Errorf("Got %d events for acct-1, want 2", len(byAccount))
	}

	byKind, err := logger.Events(Filter{Kind: EventRegistration})
	if err != nil {
		t.Fatalf("Events by kind failed: %v", err)
	}
	if len(byKind) != 1 || byKind[0].AccountID != "acct-1" {
		t.Errorf("Registration filter returned %v", byKind)
	}
}

// TestRecordRejectsUnknownKind tests the closed kind set.
func TestRecordRejectsUnknownKind(t *testing.T) {
	logger := NewLogger(store.NewMemoryStore())

	if err := logger.Record(EventKind("made_up"), "acct-1", ""); err == nil {
		t.Error("Unknown event kind accepted")
	}
}

// TestRecordRedactsSecrets tests that secret material never lands in
// stored detail text.
func TestRecordRedactsSecrets(t *testing.T) {
	logger := NewLogger(store.NewMemoryStore())

	cases := []struct {
		detail string
		leak   string
	}{
		{"password=hunter2hunter2", "hunter2"},
		{"enrolled via otpauth://totp/credkeep:alice?secret=JBSWY3DPEHPK3PXP", "JBSWY3DP"},
		{"secret: JBSWY3DPEHPK3PXPJBSW", "JBSWY3DP"},
		{"token " + strings.Repeat("ab", 32) + " rejected", strings.Repeat("ab", 32)},
	}

	for _, tc := range cases {
		if err := logger.Record(EventLoginFailure, "acct-1", tc.detail); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	events, err := logger.Events(Filter{})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	for _, e := range events {
		for _, tc := range cases {
			if strings.Contains(e.Detail, tc.leak) {
				t.Errorf("Detail leaked secret %q: %s", tc.leak, e.Detail)
			}
		}
	}
}

// TestRecordTruncatesDetail tests the detail length cap.
func TestRecordTruncatesDetail(t *testing.T) {
	logger := NewLogger(store.NewMemoryStore())

	long := strings.Repeat("x", MaxDetailLength*2)
	if err := logger.Record(EventLogout, "acct-1", long); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	events, err := logger.Events(Filter{})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events[0].Detail) > MaxDetailLength+3 {
		t.Errorf("Detail not truncated: %d chars", len(events[0].Detail))
	}
}

// TestEventsSinceAndLimit tests the time and count filters.
func TestEventsSinceAndLimit(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	logger := NewLogger(store.NewMemoryStore(), WithClock(clock))

	for i := 0; i < 5; i++ {
		if err := logger.Record(EventLoginSuccess, "acct-1", ""); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		now = now.Add(time.Minute)
	}

	since, err := logger.Events(Filter{Since: time.Date(2025, 3, 1, 10, 3, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(since) != 2 {
		t.Errorf("Since filter returned %d events, want 2", len(since))
	}

	limited, err := logger.Events(Filter{Limit: 3})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(limited) != 3 {
		t.Errorf("Limit filter returned %d events, want 3", len(limited))
	}
}

// TestClear tests per-account removal.
func TestClear(t *testing.T) {
	logger := NewLogger(store.NewMemoryStore())

	logger.Record(EventLoginSuccess, "acct-1", "")
	logger.Record(EventLoginSuccess, "acct-2", "")
	logger.Record(EventStoreTampered, "", "database changed on disk")

	if err := logger.Clear("acct-1"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	events, err := logger.Events(Filter{})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Got %d events after clear, want 2", len(events))
	}
	for _, e := range events {
		if e.AccountID == "acct-1" {
			t.Errorf("Event for cleared account survived: %v", e)
		}
	}
}

// TestToLogLine tests the human-readable format.
func TestToLogLine(t *testing.T) {
	e := SecurityEvent{
		Timestamp: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Kind:      EventLoginFailure,
		AccountID: "acct-1",
		Detail:    "bad password",
	}

	line := e.ToLogLine()
	for _, want := range []string{"2025-03-01 10:00:00", "login_failure", "acct-1", "bad password"} {
		if !strings.Contains(line, want) {
			t.Errorf("Log line missing %q: %s", want, line)
		}
	}
}
