// Copyright (C) 2025 the deskhand authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/chzyer/readline"
	"github.com/pterm/pterm"

	"deskhand/internal/paths"
)

// Command represents a slash command
type Command struct {
	Name        string
	Description string
}

// getAvailableCommands returns the list of all slash commands
func getAvailableCommands() []Command {
	return []Command{
		{Name: "help", Description: "Show available commands"},
		{Name: "dirs", Description: "List allowed directories"},
		{Name: "allow", Description: "Add a directory to the allowlist: /allow <dir>"},
		{Name: "remove", Description: "Remove a directory from the allowlist"},
		{Name: "peek", Description: "List an allowed directory's contents: /peek <dir>"},
		{Name: "status", Description: "Show agent status"},
		{Name: "start", Description: "Start the agent now"},
		{Name: "history", Description: "Show recent operations"},
		{Name: "search", Description: "Search and re-run a previous command"},
		{Name: "undo", Description: "Undo an operation: /undo <id>"},
		{Name: "quit", Description: "Exit the application"},
		{Name: "exit", Description: "Exit the application"},
	}
}

// handleCommand processes slash commands, returns true if should quit
func handleCommand(input string, a *app) bool {
	cmdName, arg := splitCommand(input)

	a.log.Debug().Str("command", cmdName).Str("arg", arg).Msg("Executing command")

	switch cmdName {
	case "help":
		showHelp()
		return false

	case "dirs":
		showDirs(a)
		return false

	case "allow":
		allowDir(a, arg)
		return false

	case "remove":
		removeDir(a)
		return false

	case "peek":
		peekDir(a, arg)
		return false

	case "status":
		showStatus(a)
		return false

	case "start":
		startAgent(a)
		return false

	case "history":
		showHistory(a)
		return false

	case "search":
		searchCommandHistory(a)
		return false

	case "undo":
		undoOperation(a, arg)
		return false

	case "quit", "exit":
		return true

	default:
		fmt.Printf("✗ Unknown command: /%s (type /help for available commands)\n", cmdName)
		return false
	}
}

// splitCommand separates "/allow ~/Projects" into name and argument.
func splitCommand(input string) (name, arg string) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(input), "/")
	name, arg, _ = strings.Cut(trimmed, " ")
	return strings.ToLower(strings.TrimSpace(name)), strings.TrimSpace(arg)
}

func showHelp() {
	fmt.Println("\nAvailable Commands:")
	seen := make(map[string]bool)
	for _, cmd := range getAvailableCommands() {
		if seen[cmd.Name] {
			continue
		}
		seen[cmd.Name] = true
		fmt.Printf("  /%-10s - %s\n", cmd.Name, cmd.Description)
	}
	fmt.Println("\nAnything else you type is treated as a file command, for example:")
	fmt.Println("  organize my downloads by type")
	fmt.Println("  move the PDFs from downloads to documents")
	fmt.Println()
}

func showDirs(a *app) {
	dirs := a.store.Directories()
	if len(dirs) == 0 {
		fmt.Println("No allowed directories. Use /allow <dir> to add one.")
		return
	}

	fmt.Println("\nAllowed Directories:")
	for _, dir := range dirs {
		fmt.Printf("  %s\n", dir)
	}
	fmt.Println()
}

func allowDir(a *app, arg string) {
	if arg == "" {
		fmt.Println("Usage: /allow <dir>")
		return
	}
	if err := a.store.AddDirectory(arg); err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}
	fmt.Printf("✓ %s added to allowed directories\n", paths.ExpandHome(arg))
}

// removeDir shows an interactive selector over the current allowlist.
func removeDir(a *app) {
	dirs := a.store.Directories()
	if len(dirs) == 0 {
		fmt.Println("No allowed directories to remove.")
		return
	}

	selected, err := pterm.DefaultInteractiveSelect.
		WithOptions(dirs).
		WithDefaultText("Select a directory to remove").
		WithFilter(true).
		Show()
	if err != nil {
		a.log.Debug().Err(err).Msg("Directory removal cancelled")
		return
	}

	if err := a.store.RemoveDirectory(selected); err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}
	fmt.Printf("✓ %s removed from allowed directories\n", selected)
}

func showStatus(a *app) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fmt.Printf("\nAgent state: %s\n", a.supervisor.State())
	if a.supervisor.HealthCheck(ctx) {
		fmt.Println("Health:      reachable")
	} else {
		fmt.Println("Health:      not reachable (use /start)")
	}
	fmt.Println()
}

func startAgent(a *app) {
	fmt.Println("Starting agent...")
	if err := a.supervisor.EnsureRunning(context.Background()); err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}
	fmt.Println("✓ Agent is running")
}

func showHistory(a *app) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	records, err := a.client.History(ctx, 20)
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}
	if len(records) == 0 {
		fmt.Println("No operation history")
		return
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, '\t', 0)
	fmt.Fprintln(w, "ID\tWhen\tOperation\tStatus\tUndo")
	fmt.Fprintln(w, "──\t────\t─────────\t──────\t────")
	for _, rec := range records {
		when := time.Unix(rec.Timestamp, 0).Format("Jan 02 15:04")
		undo := "-"
		if rec.CanUndo {
			undo = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", rec.ID, when, rec.OperationType, rec.Status, undo)
	}
	w.Flush()
	fmt.Println()
}

func undoOperation(a *app, arg string) {
	if arg == "" {
		fmt.Println("Usage: /undo <id> (see /history for ids)")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.client.Undo(ctx, arg); err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}
	fmt.Printf("✓ Operation %s undone\n", arg)
}

// searchCommandHistory shows an interactive fuzzy search over past
// commands and re-runs the selection.
func searchCommandHistory(a *app) {
	entries := a.history.Entries()
	if len(entries) == 0 {
		fmt.Println("No command history available")
		return
	}

	// Deduplicate and reverse (most recent first).
	seen := make(map[string]bool)
	var unique []string
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if !seen[entry] {
			seen[entry] = true
			unique = append(unique, entry)
		}
	}

	selected, err := pterm.DefaultInteractiveSelect.
		WithOptions(unique).
		WithDefaultText("Select a previous command").
		WithFilter(true).
		Show()
	if err != nil {
		a.log.Debug().Err(err).Msg("History search cancelled")
		return
	}

	fmt.Printf("❯ %s\n", selected)
	a.history.Add(selected)
	handleRequest(a, selected)
}

// getCommandCompleter builds a readline completer from available commands
func getCommandCompleter() *readline.PrefixCompleter {
	commands := getAvailableCommands()
	items := make([]readline.PrefixCompleterInterface, len(commands))
	for i, cmd := range commands {
		items[i] = readline.PcItem("/" + cmd.Name)
	}
	return readline.NewPrefixCompleter(items...)
}
