package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Summary describes a dataset file on disk
type Summary struct {
	Name     string
	Valid    int
	Expired  int
	Size     int64
	Modified time.Time
}

type rawEntry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp float64         `json:"timestamp"`
}

// List returns the names of the dataset files in the cache directory
func (s *Store) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list cache directory: %w", err)
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Inspect counts the valid and expired entries of a dataset file without
// loading it into a Dataset
func (s *Store) Inspect(name string) (Summary, error) {
	sum := Summary{Name: name}

	info, err := os.Stat(s.path(name))
	if err != nil {
		return sum, fmt.Errorf("failed to stat cache %s: %w", name, err)
	}
	sum.Size = info.Size()
	sum.Modified = info.ModTime()

	entries, err := s.readRaw(name)
	if err != nil {
		return sum, err
	}
	for _, e := range entries {
		if s.valid(e.Timestamp) {
			sum.Valid++
		} else {
			sum.Expired++
		}
	}
	return sum, nil
}

// Prune rewrites a dataset file without its expired entries and returns
// how many were removed
func (s *Store) Prune(name string) (int, error) {
	entries, err := s.readRaw(name)
	if err != nil {
		return 0, err
	}

	removed := 0
	for k, e := range entries {
		if !s.valid(e.Timestamp) {
			delete(entries, k)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to encode cache %s: %w", name, err)
	}
	if err := s.writeFile(name, data); err != nil {
		return 0, err
	}
	return removed, nil
}

// Clear deletes a dataset file
func (s *Store) Clear(name string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock cache directory: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache %s: %w", name, err)
	}
	return nil
}

func (s *Store) readRaw(name string) (map[string]rawEntry, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return nil, fmt.Errorf("failed to read cache %s: %w", name, err)
	}

	entries := make(map[string]rawEntry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse cache %s: %w", name, err)
	}
	return entries, nil
}
