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

package config

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"deskhand/internal/errors"
	"deskhand/internal/paths"
)

// Store is the mutex-protected owner of the runtime configuration.
// Readers get snapshot copies; writers mutate and persist under the
// lock. The lock is never held across a network or process call.
type Store struct {
	mu   sync.Mutex
	cfg  *Config
	path string
	log  zerolog.Logger
}

// NewStore wraps a loaded config for shared access. Mutations persist
// back to path.
func NewStore(cfg *Config, path string, logger zerolog.Logger) *Store {
	return &Store{
		cfg:  cfg,
		path: path,
		log:  logger.With().Str("component", "config").Logger(),
	}
}

// Snapshot returns a copy of the current config.
func (s *Store) Snapshot() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.cfg
	cp.AllowedDirectories = append([]string{}, s.cfg.AllowedDirectories...)
	return cp
}

// Directories returns a snapshot copy of the allowed directory set, in
// insertion order. Entries are stored raw; canonicalization happens at
// validation time.
func (s *Store) Directories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.cfg.AllowedDirectories...)
}

// AddDirectory appends a directory to the allowlist and persists the
// config. Adding an already-present entry is a no-op.
func (s *Store) AddDirectory(dir string) error {
	if err := paths.ValidatePathString(dir, 4096); err != nil {
		return errors.Wrap(errors.CodeConfig, "invalid directory", err)
	}
	dir = paths.ExpandHome(dir)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.cfg.AllowedDirectories {
		if existing == dir {
			return nil
		}
	}
	updated := append(append([]string{}, s.cfg.AllowedDirectories...), dir)
	if err := s.persist(updated); err != nil {
		return err
	}
	s.log.Info().Str("dir", dir).Msg("allowed directory added")
	return nil
}

// RemoveDirectory deletes a directory from the allowlist and persists
// the config. Removing an absent entry is an error so the caller can
// tell the user nothing changed.
func (s *Store) RemoveDirectory(dir string) error {
	dir = paths.ExpandHome(dir)

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]string, 0, len(s.cfg.AllowedDirectories))
	removed := false
	for _, existing := range s.cfg.AllowedDirectories {
		if existing == dir {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	if !removed {
		return errors.New(errors.CodeConfig,
			fmt.Sprintf("directory %s is not in the allowlist", dir))
	}
	if err := s.persist(kept); err != nil {
		return err
	}
	s.log.Info().Str("dir", dir).Msg("allowed directory removed")
	return nil
}

// persist writes the updated allowlist to disk first and commits it to
// memory only on success, so a failed save leaves the in-memory config
// matching what is on disk. Callers hold the lock.
func (s *Store) persist(dirs []string) error {
	cp := *s.cfg
	cp.AllowedDirectories = dirs
	if err := cp.Save(s.path); err != nil {
		return errors.Wrap(errors.CodeConfig, "failed to persist allowlist", err)
	}
	s.cfg.AllowedDirectories = dirs
	return nil
}
