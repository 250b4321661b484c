// Package linkstore persists the SyncLink set between runs and guards
// it with an advisory exclusive lock for the duration of a run.
package linkstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"

	"github.com/BoweyLou/obssync/internal/model"
	"github.com/BoweyLou/obssync/internal/syncerr"
)

// Store persists the link set for a single vault to a JSON file and
// guards concurrent access with an advisory exclusive lock.
type Store struct {
	path string
	lock *flock.Flock
}

// New builds a Store backed by path. The lock file is path + ".lock".
func New(path string) *Store {
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Lock acquires the exclusive advisory lock without blocking. If it is
// already held, returns a syncerr.BusyLock error so a second concurrent
// run against the same vault exits with a distinguishable busy status.
func (s *Store) Lock() error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return syncerr.New(syncerr.BusyLock, "linkstore.Lock", err)
	}
	if !ok {
		return syncerr.Newf(syncerr.BusyLock, "linkstore.Lock", "link file %s is locked by another run", s.path)
	}
	return nil
}

// Unlock releases the advisory lock.
func (s *Store) Unlock() error {
	return s.lock.Unlock()
}

// Load reads the persisted link set. A missing file is treated as an
// empty set, not an error - the very first run of a fresh vault has no
// link history.
func (s *Store) Load() ([]model.SyncLink, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("linkstore: read %s: %w", s.path, err)
	}
	var links []model.SyncLink
	if err := json.Unmarshal(data, &links); err != nil {
		return nil, fmt.Errorf("linkstore: decode %s: %w", s.path, err)
	}
	return links, nil
}

// Save writes the link set atomically, sorted for a stable textual
// form, and only touches disk if the serialized bytes actually differ
// from what's there.
func (s *Store) Save(links []model.SyncLink) error {
	sorted := make([]model.SyncLink, len(links))
	copy(sorted, links)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ObsID != sorted[j].ObsID {
			return sorted[i].ObsID < sorted[j].ObsID
		}
		return sorted[i].RemID < sorted[j].RemID
	})

	payload, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return fmt.Errorf("linkstore: encode: %w", err)
	}
	payload = append(payload, '\n')

	existing, err := os.ReadFile(s.path)
	if err == nil && bytes.Equal(existing, payload) {
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("linkstore: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".linkstore-*")
	if err != nil {
		return fmt.Errorf("linkstore: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("linkstore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("linkstore: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("linkstore: rename into place: %w", err)
	}
	return nil
}

// Now returns the current instant. A single indirection point so tests
// can exercise deterministic StaleSince and LastSynced values (stamped
// by Normalize) if needed later.
var Now = time.Now
