// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// vault_cmd.go - Vault entry CLI commands for credkeep.
//
// Command: vault [subcommand]
//
// Subcommands:
//   add [name]          Add an entry (prompts for fields)
//   list                List entries (--tag filters)
//   get <name|id>       Show one entry (--show-password reveals it)
//   search <query>      Search names and URLs
//   update <name|id>    Update fields of an entry
//   delete <name|id>    Delete an entry (--confirm)
//   reuse               Find entries sharing a password
//
// Examples:
//   credkeep vault add github
//   credkeep vault list --tag work
//   credkeep vault get github --show-password
//   credkeep vault search bank
//   credkeep vault update github --url https://github.com
//   credkeep vault delete github --confirm
//   credkeep vault reuse

package cli

import (
	"fmt"
	"strings"

	"github.com/jeranaias/credkeep/internal/util"
	"github.com/jeranaias/credkeep/internal/vault"
)

// HandleVault handles the "vault" command with various subcommands.
func HandleVault(args Args) error {
	parser := NewArgParser(args.Raw)

	app, err := OpenApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	token, err := app.RequireToken()
	if err != nil {
		return err
	}
	if err := app.EnsureUnlocked(token); err != nil {
		return err
	}

	return dispatchVault(app, token, args, parser)
}

// dispatchVault routes a parsed vault subcommand. Shared by the
// one-shot command and the shell.
func dispatchVault(app *App, token string, args Args, parser *ArgParser) error {
	switch parser.Subcommand() {
	case "add", "new":
		return handleVaultAdd(app, token, args, parser)
	case "", "list", "ls":
		return handleVaultList(app, token, args, parser)
	case "get", "show":
		return handleVaultGet(app, token, args, parser)
	case "search":
		return handleVaultSearch(app, token, args, parser)
	case "update", "edit":
		return handleVaultUpdate(app, token, args, parser)
	case "delete", "rm":
		return handleVaultDelete(app, token, args, parser)
	case "reuse":
		return handleVaultReuse(app, token, args)
	default:
		return NewUsageError("vault",
			"unknown subcommand %q\nUsage: credkeep vault [add|list|get|search|update|delete|reuse]",
			parser.Subcommand())
	}
}

// resolveEntry finds an entry by ID or (case-insensitive) name.
func resolveEntry(app *App, token, ref string) (*vault.Entry, error) {
	if ref == "" {
		return nil, NewUsageError("vault", "entry name or id required")
	}

	entries, err := app.Vault.ListEntries(token)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ID == ref {
			return &entries[i], nil
		}
	}
	for i := range entries {
		if strings.EqualFold(entries[i].Name, ref) {
			return &entries[i], nil
		}
	}
	return nil, vault.ErrEntryNotFound
}

// =============================================================================
// ADD
// =============================================================================

func handleVaultAdd(app *App, token string, args Args, parser *ArgParser) error {
	name := parser.Positional(1)
	if name == "" {
		var err error
		name, err = PromptLine("Name: ")
		if err != nil {
			return err
		}
	}

	in := vault.EntryInput{
		Name:     name,
		URL:      parser.Flag("url"),
		Username: parser.Flag("username"),
		Notes:    parser.Flag("notes"),
		Tags:     splitTags(parser.Flag("tags")),
	}

	// Optional fields are prompted only when not already given as flags.
	var err error
	if in.URL == "" && !parser.HasFlag("url") {
		if in.URL, err = PromptLine("URL (optional): "); err != nil {
			return err
		}
	}
	if in.Username == "" && !parser.HasFlag("username") {
		if in.Username, err = PromptLine("Login username (optional): "); err != nil {
			return err
		}
	}
	if in.Password, err = PromptPassword("Entry password: "); err != nil {
		return err
	}

	entry, err := app.Vault.CreateEntry(token, in)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("vault add", entry).Print()
	}
	fmt.Printf("%s entry %s stored (id %s)\n",
		SuccessStyle.Render("OK:"), ValueStyle.Render(entry.Name), DimStyle.Render(entry.ID))
	return nil
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// =============================================================================
// LIST / SEARCH
// =============================================================================

func handleVaultList(app *App, token string, args Args, parser *ArgParser) error {
	entries, err := app.Vault.ListEntries(token)
	if err != nil {
		return err
	}

	if tag := parser.Flag("tag"); tag != "" {
		filtered := entries[:0]
		for _, e := range entries {
			for _, t := range e.Tags {
				if strings.EqualFold(t, tag) {
					filtered = append(filtered, e)
					break
				}
			}
		}
		entries = filtered
	}

	if args.JSON {
		return NewJSONResponse("vault list", redactEntries(entries)).Print()
	}
	printEntryTable(entries)
	return nil
}

func handleVaultSearch(app *App, token string, args Args, parser *ArgParser) error {
	query := JoinPositionalArgs(parser, 1)
	if query == "" {
		return NewUsageError("vault search", "query required")
	}

	entries, err := app.Vault.SearchEntries(token, query)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("vault search", redactEntries(entries)).Print()
	}
	printEntryTable(entries)
	return nil
}

// redactedEntry is the list/search JSON shape; passwords are only
// included by "vault get".
type redactedEntry struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	URL      string   `json:"url,omitempty"`
	Username string   `json:"username,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

func redactEntries(entries []vault.Entry) []redactedEntry {
	out := make([]redactedEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, redactedEntry{
			ID:       e.ID,
			Name:     e.Name,
			URL:      e.URL,
			Username: e.Username,
			Tags:     e.Tags,
		})
	}
	return out
}

// printEntryTable renders entries as aligned columns. Column widths use
// display width so wide runes do not break alignment.
func printEntryTable(entries []vault.Entry) {
	if len(entries) == 0 {
		fmt.Println(DimStyle.Render("No entries."))
		return
	}

	nameW, userW := len("NAME"), len("USERNAME")
	for _, e := range entries {
		if w := util.StringWidth(e.Name); w > nameW {
			nameW = w
		}
		if w := util.StringWidth(e.Username); w > userW {
			userW = w
		}
	}
	if nameW > 30 {
		nameW = 30
	}
	if userW > 24 {
		userW = 24
	}

	fmt.Printf("%s  %s  %s\n",
		SectionStyle.Render(padCell("NAME", nameW)),
		SectionStyle.Render(padCell("USERNAME", userW)),
		SectionStyle.Render("URL"))
	for _, e := range entries {
		fmt.Printf("%s  %s  %s\n",
			ValueStyle.Render(padCell(e.Name, nameW)),
			ValueStyle.Render(padCell(e.Username, userW)),
			DimStyle.Render(util.TruncateWidth(e.URL, 40)))
	}
	fmt.Println(DimStyle.Render(fmt.Sprintf("%d entries", len(entries))))
}

// padCell truncates to width and pads with spaces to exactly width.
func padCell(s string, width int) string {
	s = util.TruncateWidth(s, width)
	if pad := width - util.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

// =============================================================================
// GET
// =============================================================================

func handleVaultGet(app *App, token string, args Args, parser *ArgParser) error {
	entry, err := resolveEntry(app, token, parser.Positional(1))
	if err != nil {
		return err
	}

	if args.JSON {
		// JSON get includes the password: this is the programmatic read
		// path and the caller already proved vault access.
		return NewJSONResponse("vault get", entry).Print()
	}

	fmt.Println(TitleStyle.Render(entry.Name))
	fmt.Printf("%s %s\n", RenderLabel("ID"), DimStyle.Render(entry.ID))
	if entry.URL != "" {
		fmt.Printf("%s %s\n", RenderLabel("URL"), ValueStyle.Render(entry.URL))
	}
	if entry.Username != "" {
		fmt.Printf("%s %s\n", RenderLabel("Username"), ValueStyle.Render(entry.Username))
	}
	if parser.BoolFlag("show-password") {
		fmt.Printf("%s %s\n", RenderLabel("Password"), HighlightStyle.Render(entry.Password))
	} else {
		fmt.Printf("%s %s\n", RenderLabel("Password"), DimStyle.Render("(hidden, use --show-password)"))
	}
	if entry.Notes != "" {
		fmt.Printf("%s %s\n", RenderLabel("Notes"), ValueStyle.Render(entry.Notes))
	}
	if len(entry.Tags) > 0 {
		fmt.Printf("%s %s\n", RenderLabel("Tags"), ValueStyle.Render(strings.Join(entry.Tags, ", ")))
	}
	fmt.Printf("%s %s\n", RenderLabel("Updated"),
		DimStyle.Render(entry.UpdatedAt.Local().Format("2006-01-02 15:04")))
	return nil
}

// =============================================================================
// UPDATE
// =============================================================================

func handleVaultUpdate(app *App, token string, args Args, parser *ArgParser) error {
	entry, err := resolveEntry(app, token, parser.Positional(1))
	if err != nil {
		return err
	}

	// Start from the current values; flags override, password is
	// prompted (empty input keeps the old one).
	in := vault.EntryInput{
		Name:     parser.FlagOrDefault("name", entry.Name),
		URL:      parser.FlagOrDefault("url", entry.URL),
		Username: parser.FlagOrDefault("username", entry.Username),
		Notes:    parser.FlagOrDefault("notes", entry.Notes),
		Password: entry.Password,
		Tags:     entry.Tags,
	}
	if parser.HasFlag("tags") {
		in.Tags = splitTags(parser.Flag("tags"))
	}

	if CanPrompt() && !args.JSON {
		password, err := PromptPassword("New entry password (empty keeps current): ")
		if err != nil {
			return err
		}
		if password != "" {
			in.Password = password
		}
	}

	updated, err := app.Vault.UpdateEntry(token, entry.ID, in)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("vault update", updated).Print()
	}
	fmt.Printf("%s entry %s updated\n",
		SuccessStyle.Render("OK:"), ValueStyle.Render(updated.Name))
	return nil
}

// =============================================================================
// DELETE
// =============================================================================

func handleVaultDelete(app *App, token string, args Args, parser *ArgParser) error {
	entry, err := resolveEntry(app, token, parser.Positional(1))
	if err != nil {
		return err
	}

	confirmed, err := RequireConfirmation(parser.BoolFlag("confirm"),
		fmt.Sprintf("delete entry %q", entry.Name), args.JSON)
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Println(DimStyle.Render("Cancelled."))
		return nil
	}

	if err := app.Vault.DeleteEntry(token, entry.ID); err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("vault delete", map[string]string{"deleted": entry.ID}).Print()
	}
	fmt.Printf("%s entry %s deleted\n",
		SuccessStyle.Render("OK:"), ValueStyle.Render(entry.Name))
	return nil
}

// =============================================================================
// REUSE
// =============================================================================

// handleVaultReuse reports entries sharing a password with at least one
// other entry.
func handleVaultReuse(app *App, token string, args Args) error {
	entries, err := app.Vault.ListEntries(token)
	if err != nil {
		return err
	}

	byPassword := make(map[string][]vault.Entry)
	for _, e := range entries {
		byPassword[e.Password] = append(byPassword[e.Password], e)
	}

	var groups [][]vault.Entry
	for _, group := range byPassword {
		if len(group) > 1 {
			groups = append(groups, group)
		}
	}

	if args.JSON {
		out := make([][]redactedEntry, 0, len(groups))
		for _, group := range groups {
			out = append(out, redactEntries(group))
		}
		return NewJSONResponse("vault reuse", out).Print()
	}

	if len(groups) == 0 {
		fmt.Printf("%s no shared passwords\n", SuccessStyle.Render("OK:"))
		return nil
	}

	fmt.Println(WarningStyle.Render(fmt.Sprintf(
		"%d password(s) are shared between entries:", len(groups))))
	for i, group := range groups {
		names := make([]string, 0, len(group))
		for _, e := range group {
			names = append(names, e.Name)
		}
		fmt.Printf("  %d. %s\n", i+1, ValueStyle.Render(strings.Join(names, ", ")))
	}
	return nil
}
