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

// Package dispatch runs one user command through the full trust
// boundary: intent extraction, agent readiness, path validation, risk
// gating, and finally forwarding to the agent. A failure at any gate
// aborts the whole command; there is no partial execution.
package dispatch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"deskhand/internal/agent"
	"deskhand/internal/config"
	"deskhand/internal/errors"
	"deskhand/internal/intent"
	"deskhand/internal/paths"
	"deskhand/internal/risk"
	"deskhand/internal/security"
)

// ConfirmFunc asks the user to approve a risky operation. Returning
// false aborts the dispatch without error side effects.
type ConfirmFunc func(in intent.Intent, assessment risk.Assessment) (bool, error)

// Dispatcher owns the ordered gates in front of the agent.
type Dispatcher struct {
	Store      *config.Store
	Validator  *security.Validator
	Supervisor *agent.Supervisor
	Client     *agent.Client
	Processor  *intent.Processor
	Limits     security.Limits
	Confirm    ConfirmFunc
	Log        zerolog.Logger
}

// Run executes one user command end to end and returns the agent's
// operation record.
func (d *Dispatcher) Run(ctx context.Context, text string) (*agent.OperationRecord, error) {
	in := d.Processor.Parse(ctx, text)
	d.Log.Debug().Str("action", in.Action).Str("target", in.Target).
		Float64("confidence", in.Confidence).Msg("intent parsed")

	if err := d.Supervisor.EnsureRunning(ctx); err != nil {
		return nil, err
	}

	allowed := d.Store.Directories()
	targets, err := d.resolveTargets(in, allowed)
	if err != nil {
		return nil, err
	}

	fileCount, totalBytes, isDirectory := 0, int64(0), false
	for _, target := range targets {
		if !d.Validator.ValidatePath(target, allowed) {
			return nil, errors.New(errors.CodePermission,
				fmt.Sprintf("access to %s is not allowed", target))
		}
		if in.Operation.Destructive() && security.IsSystemCritical(target) {
			return nil, errors.New(errors.CodePermission,
				fmt.Sprintf("refusing to %s system directory %s", in.Operation, target))
		}
		count, size, dir := measure(target, d.Limits.MaxBatchFiles)
		fileCount += count
		totalBytes += size
		isDirectory = isDirectory || dir
	}

	if !in.Operation.ReadOnly() {
		if err := d.Limits.CheckBatch(fileCount, totalBytes); err != nil {
			return nil, err
		}
	}

	assessment := risk.Assess(in.Operation, fileCount, totalBytes, isDirectory, in.Recursive)
	snapshot := d.Store.Snapshot()
	if snapshot.ConfirmationRequired && assessment.RequiresConfirmation {
		if d.Confirm == nil {
			return nil, errors.New(errors.CodeCancelled,
				"operation requires confirmation but no confirmer is available")
		}
		ok, err := d.Confirm(in, assessment)
		if err != nil {
			return nil, errors.Wrap(errors.CodeCancelled, "confirmation failed", err)
		}
		if !ok {
			d.Log.Info().Str("action", in.Action).Msg("operation declined by user")
			return nil, errors.New(errors.CodeCancelled, "operation cancelled")
		}
	}

	return d.Client.Execute(ctx, text)
}

// resolveTargets maps the intent's spoken-name targets onto filesystem
// paths. Mutating commands must name a resolvable target; read-only
// commands may run target-less (the agent searches within its own
// allowlist snapshot).
func (d *Dispatcher) resolveTargets(in intent.Intent, allowed []string) ([]string, error) {
	var targets []string
	for _, name := range []string{in.Target, in.Destination} {
		if name == "" {
			continue
		}
		resolved, ok := resolveFolderName(name, allowed)
		if !ok {
			if in.Operation.ReadOnly() {
				continue
			}
			return nil, errors.New(errors.CodeIntent,
				fmt.Sprintf("cannot tell which folder %q refers to", name))
		}
		targets = append(targets, resolved)
	}
	if len(targets) == 0 && !in.Operation.ReadOnly() {
		return nil, errors.New(errors.CodeIntent,
			"cannot tell which files this command refers to")
	}
	return targets, nil
}

// resolveFolderName turns a spoken folder name into a path: explicit
// paths pass through, bare names match an allowed directory by base
// name.
func resolveFolderName(name string, allowed []string) (string, bool) {
	name = paths.ExpandHome(strings.TrimSpace(name))
	if filepath.IsAbs(name) || strings.ContainsRune(name, os.PathSeparator) {
		return name, true
	}
	for _, dir := range allowed {
		if strings.EqualFold(filepath.Base(dir), name) {
			return dir, true
		}
	}
	return "", false
}

// measure counts the files, bytes and directory-ness of a target. The
// walk bails out once maxFiles is exceeded; the exact count past the
// limit never matters.
func measure(target string, maxFiles int) (fileCount int, totalBytes int64, isDirectory bool) {
	info, err := os.Stat(target)
	if err != nil {
		return 0, 0, false
	}
	if !info.IsDir() {
		return 1, info.Size(), false
	}

	isDirectory = true
	_ = filepath.WalkDir(target, func(_ string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		fileCount++
		if fi, err := entry.Info(); err == nil {
			totalBytes += fi.Size()
		}
		if maxFiles > 0 && fileCount > maxFiles {
			return fs.SkipAll
		}
		return nil
	})
	return fileCount, totalBytes, isDirectory
}
