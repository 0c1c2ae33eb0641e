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

package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func newTestValidator() *Validator {
	return NewValidator(zerolog.Nop())
}

func TestValidatePathAdmitsNestedPath(t *testing.T) {
	v := newTestValidator()
	base := t.TempDir()
	nested := filepath.Join(base, "sub", "dir")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("failed to create nested dir: %v", err)
	}
	if !v.ValidatePath(nested, []string{base}) {
		t.Fatal("expected nested path under allowed directory to be admitted")
	}
	if !v.ValidatePath(base, []string{base}) {
		t.Fatal("expected allowed directory itself to be admitted")
	}
}

func TestValidatePathDeniesUnresolvablePath(t *testing.T) {
	v := newTestValidator()
	base := t.TempDir()
	missing := filepath.Join(base, "no-such-file")
	if v.ValidatePath(missing, []string{base}) {
		t.Fatal("nonexistent path must be denied")
	}
}

func TestValidatePathDeniesOutsideAllowlist(t *testing.T) {
	v := newTestValidator()
	allowed := t.TempDir()
	other := t.TempDir()
	if v.ValidatePath(other, []string{allowed}) {
		t.Fatal("path outside allowed directories must be denied")
	}
}

func TestValidatePathDeniesWithEmptyAllowlist(t *testing.T) {
	v := newTestValidator()
	if v.ValidatePath(t.TempDir(), nil) {
		t.Fatal("empty allowlist must deny everything")
	}
}

func TestValidatePathForbiddenOverridesAllowlist(t *testing.T) {
	v := newTestValidator()
	base := t.TempDir()
	// A directory whose name contains a blocklist entry is denied even
	// though it sits under an allowed directory.
	secret := filepath.Join(base, ".ssh")
	if err := os.MkdirAll(secret, 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if v.ValidatePath(secret, []string{base}) {
		t.Fatal("blocklist match must override the allowlist")
	}
}

func TestValidatePathBlocklistIsCaseInsensitive(t *testing.T) {
	v := newTestValidator()
	base := t.TempDir()
	secret := filepath.Join(base, ".SSH")
	if err := os.MkdirAll(secret, 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if v.ValidatePath(secret, []string{base}) {
		t.Fatal("blocklist match must ignore case")
	}
}

func TestValidatePathBlocklistMatchesSubstrings(t *testing.T) {
	v := newTestValidator()
	base := t.TempDir()
	// Substring matching is intentionally coarse: .config anywhere in
	// the path denies, even inside an otherwise harmless name.
	dir := filepath.Join(base, "my.config.backup")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if v.ValidatePath(dir, []string{base}) {
		t.Fatal("substring blocklist match must deny")
	}
}

func TestValidatePathSkipsUnresolvableAllowedDirs(t *testing.T) {
	v := newTestValidator()
	base := t.TempDir()
	target := filepath.Join(base, "docs")
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	gone := filepath.Join(base, "removed-dir")
	// An allowed directory that no longer exists cannot admit anything,
	// but it must not poison the rest of the allowlist either.
	if !v.ValidatePath(target, []string{gone, base}) {
		t.Fatal("later allowlist entries must still be consulted")
	}
	if v.ValidatePath(target, []string{gone}) {
		t.Fatal("an unresolvable allowed directory must admit nothing")
	}
}

func TestValidatePathFollowsSymlinks(t *testing.T) {
	v := newTestValidator()
	allowed := t.TempDir()
	outside := t.TempDir()
	escape := filepath.Join(allowed, "escape")
	if err := os.Symlink(outside, escape); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	// The link sits under the allowed directory but resolves outside it.
	if v.ValidatePath(escape, []string{allowed}) {
		t.Fatal("symlink escaping the allowed directory must be denied")
	}
}

func TestIsSystemCritical(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"/", true},
		{"/System", true},
		{"/bin", true},
		{`C:\Windows`, true},
		{"/home/user", false},
		{"/System/Library", false}, // exact match only
		{"", false},
	}
	for _, tc := range cases {
		if got := IsSystemCritical(tc.path); got != tc.want {
			t.Errorf("IsSystemCritical(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestForbiddenPathsReturnsCopy(t *testing.T) {
	list := ForbiddenPaths()
	if len(list) == 0 {
		t.Fatal("blocklist must not be empty")
	}
	list[0] = "mutated"
	if ForbiddenPaths()[0] == "mutated" {
		t.Fatal("callers must not be able to mutate the blocklist")
	}
}
