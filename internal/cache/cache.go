// Package cache provides the on-disk TTL cache shared by the fetch stages.
//
// Each dataset is one JSON file mapping a key to {data, timestamp}, where
// timestamp is seconds since the epoch. An entry is valid while
// timestamp + TTL is after the current time. Expired entries are dropped
// on load and never served.
package cache

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a cached provider response stays valid
const DefaultTTL = 7 * 24 * time.Hour

const lockFile = ".riffnet.lock"

// Entry is the persisted form of a cached value
type Entry[T any] struct {
	Data      T       `json:"data"`
	Timestamp float64 `json:"timestamp"`
}

// Store owns the cache directory for one run. It hands out exactly one
// Dataset per name for its whole lifetime.
type Store struct {
	dir    string
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
	lock   *flock.Flock

	writeMu  sync.Mutex
	mu       sync.Mutex
	datasets map[string]any
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source used for expiry decisions
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a Store rooted at dir, creating the directory if needed
func NewStore(dir string, ttl time.Duration, logger zerolog.Logger, opts ...Option) (*Store, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	s := &Store{
		dir:      dir,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger.With().Str("component", "cache").Logger(),
		lock:     flock.New(filepath.Join(dir, lockFile)),
		datasets: make(map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the cache directory
func (s *Store) Dir() string {
	return s.dir
}

// TTL returns the entry lifetime
func (s *Store) TTL() time.Duration {
	return s.ttl
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// valid reports whether an entry written at ts is still live
func (s *Store) valid(ts float64) bool {
	return fromEpoch(ts).Add(s.ttl).After(s.now())
}

func (s *Store) timestamp() float64 {
	return float64(s.now().UnixNano()) / float64(time.Second)
}

// Dataset is the in-memory mapping for one cache file
type Dataset[T any] struct {
	store *Store
	name  string

	mu      sync.Mutex
	entries map[string]Entry[T]
	group   singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// Open returns the dataset called name, loading it from disk on first use.
// Opening the same name twice returns the same instance.
func Open[T any](s *Store, name string) (*Dataset[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.datasets[name]; ok {
		d, ok := existing.(*Dataset[T])
		if !ok {
			return nil, fmt.Errorf("cache dataset %s already opened with type %T", name, existing)
		}
		return d, nil
	}

	d := &Dataset[T]{
		store:   s,
		name:    name,
		entries: make(map[string]Entry[T]),
	}
	if err := d.load(); err != nil {
		return nil, err
	}
	s.datasets[name] = d
	return d, nil
}

func (d *Dataset[T]) load() error {
	data, err := os.ReadFile(d.store.path(d.name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read cache %s: %w", d.name, err)
	}

	var raw map[string]Entry[T]
	if err := json.Unmarshal(data, &raw); err != nil {
		// A corrupt file is treated as an empty cache; the next Save
		// overwrites it.
		d.store.logger.Warn().Err(err).Str("dataset", d.name).Msg("Ignoring unreadable cache file")
		return nil
	}

	expired := 0
	for k, e := range raw {
		if d.store.valid(e.Timestamp) {
			d.entries[k] = e
		} else {
			expired++
		}
	}

	d.store.logger.Debug().
		Str("dataset", d.name).
		Int("entries", len(d.entries)).
		Int("expired", expired).
		Msg("Loaded cache")
	return nil
}

// Name returns the dataset name
func (d *Dataset[T]) Name() string {
	return d.name
}

// Get returns the cached value for key if it is present and unexpired
func (d *Dataset[T]) Get(key string) (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.entries[key]
	if !ok || !d.store.valid(e.Timestamp) {
		var zero T
		return zero, false
	}
	return e.Data, true
}

// Put stores value under key with the current time
func (d *Dataset[T]) Put(key string, value T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.entries[key] = Entry[T]{Data: value, Timestamp: d.store.timestamp()}
}

// GetOrCompute returns the cached value for key, calling compute and
// caching its result on a miss. Concurrent callers for the same key share
// a single compute call; distinct keys compute in parallel.
func (d *Dataset[T]) GetOrCompute(key string, compute func() T) T {
	if v, ok := d.Get(key); ok {
		d.hits.Add(1)
		return v
	}

	v, _, _ := d.group.Do(key, func() (any, error) {
		if v, ok := d.Get(key); ok {
			d.hits.Add(1)
			return v, nil
		}
		d.misses.Add(1)
		v := compute()
		d.Put(key, v)
		return v, nil
	})
	return v.(T)
}

// Len returns the number of entries held in memory
func (d *Dataset[T]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Stats returns the hit and miss counters since the dataset was opened
func (d *Dataset[T]) Stats() (hits, misses int64) {
	return d.hits.Load(), d.misses.Load()
}

// Save writes every entry, loaded and new, back to the dataset file
func (d *Dataset[T]) Save() error {
	d.mu.Lock()
	data, err := json.MarshalIndent(d.entries, "", "  ")
	n := len(d.entries)
	d.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode cache %s: %w", d.name, err)
	}

	if err := d.store.writeFile(d.name, data); err != nil {
		return err
	}

	d.store.logger.Debug().Str("dataset", d.name).Int("entries", n).Msg("Saved cache")
	return nil
}

// writeFile replaces a dataset file while holding the directory lock
func (s *Store) writeFile(name string, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock cache directory: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	path := s.path(name)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace cache %s: %w", name, err)
	}
	return nil
}

func fromEpoch(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
