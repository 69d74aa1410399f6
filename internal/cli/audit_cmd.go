// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// audit_cmd.go - Security event log CLI commands for credkeep.
//
// Command: audit [subcommand]
//
// Subcommands:
//   list (default)      Show recent security events for your account
//   clear               Clear your account's events (--confirm)
//
// Examples:
//   credkeep audit
//   credkeep audit list --limit 100
//   credkeep audit list --kind login_failure --since 24h
//   credkeep audit clear --confirm

package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/credkeep/internal/audit"
)

// defaultAuditLimit is how many events "audit list" shows by default.
const defaultAuditLimit = 50

// HandleAudit handles the "audit" command group.
func HandleAudit(args Args) error {
	parser := NewArgParser(args.Raw)

	app, err := OpenApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.Events == nil {
		return NewUsageError("audit", "audit logging is disabled in the configuration")
	}

	token, err := app.RequireToken()
	if err != nil {
		return err
	}
	account, err := app.Engine.Account(token)
	if err != nil {
		return err
	}

	return dispatchAudit(app, account.ID, args, parser)
}

// dispatchAudit routes a parsed audit subcommand. Shared by the
// one-shot command and the shell.
func dispatchAudit(app *App, accountID string, args Args, parser *ArgParser) error {
	switch parser.Subcommand() {
	case "", "list", "show":
		return handleAuditList(app, accountID, args, parser)
	case "clear":
		return handleAuditClear(app, accountID, args, parser)
	default:
		return NewUsageError("audit",
			"unknown subcommand %q\nUsage: credkeep audit [list|clear]",
			parser.Subcommand())
	}
}

// =============================================================================
// LIST
// =============================================================================

func handleAuditList(app *App, accountID string, args Args, parser *ArgParser) error {
	filter := audit.Filter{
		AccountID: accountID,
		Limit:     parser.FlagIntOrDefault("limit", defaultAuditLimit),
	}
	if kind := parser.Flag("kind"); kind != "" {
		filter.Kind = audit.EventKind(kind)
	}
	if since := parser.Flag("since"); since != "" {
		d, err := parseRelativeDuration(since)
		if err != nil {
			return NewUsageError("audit list", "invalid --since value %q: %v", since, err)
		}
		filter.Since = time.Now().Add(-d)
	}

	events, err := app.Events.Events(filter)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("audit list", events).Print()
	}

	if len(events) == 0 {
		fmt.Println(DimStyle.Render("No events."))
		return nil
	}

	fmt.Println(TitleStyle.Render("Security events"))
	for _, e := range events {
		line := fmt.Sprintf("%s  %-26s",
			DimStyle.Render(e.Timestamp.Local().Format("2006-01-02 15:04:05")),
			styleEventKind(e.Kind))
		if e.Detail != "" {
			line += "  " + ValueStyle.Render(e.Detail)
		}
		fmt.Println(line)
	}
	fmt.Println(DimStyle.Render(fmt.Sprintf("%d events", len(events))))
	return nil
}

// styleEventKind colors the event kind by severity.
func styleEventKind(kind audit.EventKind) string {
	switch kind {
	case audit.EventLoginFailure, audit.EventTwoFactorFailed,
		audit.EventAccountLocked, audit.EventStoreTampered:
		return ErrorStyle.Render(string(kind))
	case audit.EventBackupCodeUsed, audit.EventSessionExpired:
		return WarningStyle.Render(string(kind))
	default:
		return ValueStyle.Render(string(kind))
	}
}

// parseRelativeDuration parses durations like "90m", "24h", "7d".
// The "d" suffix (days) is accepted on top of time.ParseDuration.
func parseRelativeDuration(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("expected a positive day count")
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("expected a positive duration")
	}
	return d, nil
}

// =============================================================================
// CLEAR
// =============================================================================

func handleAuditClear(app *App, accountID string, args Args, parser *ArgParser) error {
	confirmed, err := ConfirmDangerousAction(parser.BoolFlag("confirm"),
		"clear this account's security event history", "CLEAR", args.JSON)
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Println(DimStyle.Render("Cancelled."))
		return nil
	}

	if err := app.Events.Clear(accountID); err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("audit clear", map[string]bool{"cleared": true}).Print()
	}
	fmt.Printf("%s security events cleared\n", SuccessStyle.Render("OK:"))
	return nil
}
