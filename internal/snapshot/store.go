package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// Store reads and writes a snapshot file. Every call goes back to the
// file, nothing is cached between calls.
type Store struct {
	fs   afero.Fs
	path string

	// mu serializes read-modify-write cycles within this process.
	mu sync.Mutex
}

// NewStore creates a store bound to path on fs.
func NewStore(fs afero.Fs, path string) *Store {
	return &Store{fs: fs, path: path}
}

// NewOSStore creates a store backed by the operating system file system.
func NewOSStore(path string) *Store {
	return NewStore(afero.NewOsFs(), path)
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the snapshot. A missing or empty file yields an empty snapshot.
func (s *Store) Load() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save replaces the snapshot file with snap.
func (s *Store) Save(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(snap)
}

// Get returns the record stored under key, if any.
func (s *Store) Get(key string) (Record, bool, error) {
	snap, err := s.Load()
	if err != nil {
		return Record{}, false, err
	}
	rec, ok := snap[key]
	return rec, ok, nil
}

// Upsert re-reads the snapshot, sets key to rec and writes the whole
// mapping back.
func (s *Store) Upsert(key string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load()
	if err != nil {
		return err
	}
	snap[key] = rec
	return s.save(snap)
}

func (s *Store) load() (Snapshot, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, nil
		}
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return Snapshot{}, nil
	}

	snap := Snapshot{}
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot file %s: %w", s.path, err)
	}
	return snap, nil
}

func (s *Store) save(snap Snapshot) error {
	if snap == nil {
		snap = Snapshot{}
	}

	data, err := Encode(snap)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	if err := afero.WriteFile(s.fs, s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	return nil
}

// Encode renders snap in the on-disk format: two-space indented JSON
// with sorted keys and a trailing newline. Chunk names are written
// without HTML escaping.
func Encode(snap Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return buf.Bytes(), nil
}
