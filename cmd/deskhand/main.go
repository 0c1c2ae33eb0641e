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
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"

	"deskhand/internal/agent"
	"deskhand/internal/config"
	"deskhand/internal/dispatch"
	"deskhand/internal/errors"
	"deskhand/internal/intent"
	"deskhand/internal/security"
	"deskhand/internal/ui"
)

var (
	debugMode  = flag.Bool("d", false, "Enable debug mode")
	logFile    = flag.String("log-file", "", "Log file path (logs disabled by default)")
	configPath = flag.String("config", "", "Config file path (default: user config directory)")
)

// app bundles the wired components so command handlers do not grow
// a parameter each time a dependency is added.
type app struct {
	store      *config.Store
	supervisor *agent.Supervisor
	client     *agent.Client
	dispatcher *dispatch.Dispatcher
	history    *ui.History
	log        zerolog.Logger
}

func main() {
	flag.Parse()

	logger := initLogger(*debugMode, *logFile)
	logger.Info().Msg("Deskhand starting")

	path := *configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to locate config")
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	a := newApp(cfg, path, logger)
	defer a.supervisor.Shutdown()

	runREPL(a, cfg)
	logger.Info().Msg("Session ended")
}

func newApp(cfg *config.Config, path string, logger zerolog.Logger) *app {
	store := config.NewStore(cfg, path, logger)
	supervisor := agent.NewSupervisor(agent.Config{
		BaseURL:      cfg.Agent.BaseURL,
		Command:      cfg.Agent.Command,
		Args:         []string{cfg.Agent.Script},
		Dir:          cfg.Agent.Dir,
		ProbeTimeout: cfg.Agent.ProbeTimeout(),
		PollInterval: cfg.Agent.PollInterval(),
		PollAttempts: cfg.Agent.PollAttempts,
	}, logger)
	client := agent.NewClient(cfg.Agent.BaseURL, 0, logger)
	processor := intent.NewProcessor(cfg.Intent.APIKey, cfg.Intent.APIURL, cfg.Intent.Model, logger)

	return &app{
		store:      store,
		supervisor: supervisor,
		client:     client,
		history:    ui.NewHistory(ui.LoadHistoryFromFile(cfg.HistoryFile)),
		dispatcher: &dispatch.Dispatcher{
			Store:      store,
			Validator:  security.NewValidator(logger),
			Supervisor: supervisor,
			Client:     client,
			Processor:  processor,
			Limits:     security.DefaultLimits(),
			Confirm:    newConfirmer(),
			Log:        logger,
		},
		log: logger,
	}
}

func runREPL(a *app, cfg *config.Config) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "❯ ",
		HistoryFile:     cfg.HistoryFile,
		AutoComplete:    getCommandCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		a.log.Fatal().Err(err).Msg("Failed to initialize readline")
	}
	defer rl.Close()

	fmt.Println("Deskhand — your files, your words")
	fmt.Printf("Agent endpoint: %s\n", cfg.Agent.BaseURL)
	fmt.Println("Type /help for commands, Ctrl+C or /quit to exit")
	fmt.Println()

	for {
		line, err := rl.Readline()
		if err != nil {
			a.log.Debug().Msg("Readline interrupted")
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		a.log.Info().Str("user_input", line).Msg("User input received")

		if strings.HasPrefix(line, "/") {
			if handleCommand(line, a) {
				break
			}
			continue
		}

		a.history.Add(line)
		handleRequest(a, line)
	}
}

// handleRequest runs one natural-language command through the
// dispatcher and reports the outcome.
func handleRequest(a *app, line string) {
	record, err := a.dispatcher.Run(context.Background(), line)
	if err != nil {
		switch {
		case errors.HasCode(err, errors.CodeCancelled):
			fmt.Println("Cancelled.")
		case errors.HasCode(err, errors.CodePermission):
			fmt.Printf("✗ %v\n", err)
			fmt.Println("  Use /allow <dir> to grant access to a directory.")
		default:
			fmt.Printf("✗ %v\n", err)
		}
		return
	}

	fmt.Printf("✓ %s", record.Status)
	if len(record.FilesAffected) > 0 {
		fmt.Printf(" (%d files affected)", len(record.FilesAffected))
	}
	if record.CanUndo {
		fmt.Printf(" — /undo %s to revert", record.ID)
	}
	fmt.Println()
}

func initLogger(debug bool, logFilePath string) zerolog.Logger {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// No logging to console by default; the REPL owns stdout.
	var output io.Writer = io.Discard
	if logFilePath != "" {
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		output = file
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
