package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

type Storer[T Validator] interface {
	Save(key string, v T) error
	Get(key string) T
	Keys() []string
}

// DirStore keeps one JSON file per key in a single directory and serves
// reads from memory.
type DirStore[T Validator] struct {
	dir string
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]T
}

// NewDirStore opens dir, creating it if needed, and loads what is there.
// A file that fails to load stops the open.
func NewDirStore[T Validator](dir string) (*DirStore[T], error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	s := &DirStore[T]{
		dir:     dir,
		now:     time.Now,
		entries: map[string]T{},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DirStore[T]) load() error {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("listing %s: %w", s.dir, err)
	}

	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}

		r, err := readRecord[T](filepath.Join(s.dir, f.Name()))
		if err != nil {
			return fmt.Errorf("loading %s: %w", f.Name(), err)
		}
		if want := strings.TrimSuffix(f.Name(), ".json"); r.Key != want {
			return fmt.Errorf("loading %s: key %q does not match file name", f.Name(), r.Key)
		}
		s.entries[r.Key] = r.Body
	}
	return nil
}

func readRecord[T Validator](path string) (*record[T], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	r := &record[T]{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("validating record: %w", err)
	}
	return r, nil
}

// Save validates v and writes it under key, replacing what was there.
func (s *DirStore[T]) Save(key string, v T) error {
	r := &record[T]{
		Format: recordFormat,
		Key:    key,
		Saved:  s.now().UTC(),
		Body:   v,
	}
	if err := r.validate(); err != nil {
		return fmt.Errorf("validating %s: %w", key, err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := replaceFile(s.dir, key+".json", data); err != nil {
		return err
	}
	s.entries[key] = v
	return nil
}

// replaceFile writes through a temp file in the same directory so readers
// never see a partial record.
func replaceFile(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	cleanup := func() {
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			slog.Warn("leaving temp file behind", "path", tmp.Name(), "error", err)
		}
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		cleanup()
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Get returns what is stored under key, or the zero value.
func (s *DirStore[T]) Get(key string) T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[key]
}

// Keys lists every stored key in ascending order.
func (s *DirStore[T]) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
