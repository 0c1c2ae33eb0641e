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

// Package security decides which filesystem paths a command may touch.
// Validation is fail-closed: a path that cannot be resolved, or that
// matches the compiled-in blocklist, is denied no matter what the
// allowlist says. Callers receive a plain boolean; the deny reason goes
// to the diagnostic log only.
package security

import (
	"strings"

	"github.com/rs/zerolog"

	"deskhand/internal/paths"
)

// forbiddenPaths is the fixed, process-wide substring blocklist covering
// OS-critical and credential-bearing locations. Matching is deliberately
// coarse: a blocklist entry anywhere in the resolved path denies it, a
// bias toward over-blocking rather than under-blocking.
var forbiddenPaths = []string{
	"/System",
	"/Library",
	"/bin",
	"/sbin",
	"/usr/bin",
	"/usr/sbin",
	`C:\Windows`,
	`C:\Program Files`,
	`C:\Program Files (x86)`,
	".ssh",
	".env",
	".aws",
	".config",
}

// criticalDirectories are root-level locations guarded by exact match,
// independent of the allow/deny check, for destructive operations.
var criticalDirectories = []string{
	"/",
	"/System",
	"/Library",
	"/bin",
	"/sbin",
	`C:\`,
	`C:\Windows`,
	`C:\Program Files`,
}

// ForbiddenPaths returns a copy of the substring blocklist.
func ForbiddenPaths() []string {
	return append([]string{}, forbiddenPaths...)
}

// Validator admits or denies candidate paths against the blocklist and a
// caller-supplied allowlist snapshot. It holds no state besides a logger
// and is safe for concurrent use.
type Validator struct {
	log zerolog.Logger
}

// NewValidator constructs a Validator logging denials through logger.
func NewValidator(logger zerolog.Logger) *Validator {
	return &Validator{log: logger.With().Str("component", "security").Logger()}
}

// ValidatePath reports whether candidate may be touched given the allowed
// directory snapshot. The candidate is canonicalized first; failure to
// resolve denies, since a nonexistent path can never be proven safe. The
// blocklist always overrides the allowlist. Admission requires the
// resolved candidate to be equal to or nested under a resolved allowed
// directory; allowlist entries that no longer resolve are skipped.
func (v *Validator) ValidatePath(candidate string, allowed []string) bool {
	resolved, err := paths.Canonicalize(candidate)
	if err != nil {
		v.log.Warn().Str("path", candidate).Err(err).Msg("denied unresolvable path")
		return false
	}

	lowered := strings.ToLower(resolved)
	for _, forbidden := range forbiddenPaths {
		if strings.Contains(lowered, strings.ToLower(forbidden)) {
			v.log.Warn().Str("path", resolved).Str("match", forbidden).
				Msg("blocked access to forbidden path")
			return false
		}
	}

	for _, dir := range allowed {
		allowedResolved, err := paths.Canonicalize(dir)
		if err != nil {
			// An allowed directory that no longer exists simply
			// cannot admit anything.
			continue
		}
		if paths.HasPathPrefix(resolved, allowedResolved) {
			return true
		}
	}

	v.log.Warn().Str("path", resolved).Msg("path not in allowed directories")
	return false
}

// IsSystemCritical reports whether path names a root-level critical
// directory. The test is an exact string match, uncanonicalized; it is a
// separate guard callers combine with ValidatePath before permitting
// destructive operations on whole directories.
func IsSystemCritical(path string) bool {
	for _, critical := range criticalDirectories {
		if path == critical {
			return true
		}
	}
	return false
}
