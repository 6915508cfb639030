// Package cache is a content-addressed, TTL-based store for query results.
// Keys are the sha256 digest of the exact query text; each entry lives in
// its own JSON file under the store's root directory. Cache I/O failures
// never propagate: a failed read is a miss, a failed write leaves the
// result uncached.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// entry is the on-disk record: opaque payload plus creation time and TTL.
type entry struct {
	Data             json.RawMessage `json:"data"`
	CreatedAtEpochMs int64           `json:"createdAtEpochMs"`
	TTLSeconds       int             `json:"ttlSeconds"`
}

// live reports whether the entry is still within its TTL at nowMs.
// The boundary is inclusive: an entry aged exactly TTL is still live.
func (e *entry) live(nowMs int64) bool {
	return nowMs-e.CreatedAtEpochMs <= int64(e.TTLSeconds)*1000
}

// Store is an explicit cache value: root directory, default TTL, and an
// enabled flag. When disabled every operation is a no-op or miss and the
// filesystem is never touched — callers need no special casing.
type Store struct {
	dir        string
	defaultTTL int
	enabled    bool
	logger     *zap.Logger
	cacheTotal *prometheus.CounterVec
	now        func() time.Time
}

// New creates a cache store rooted at dir with the given default TTL.
func New(dir string, defaultTTLSeconds int, enabled bool, logger *zap.Logger) *Store {
	return &Store{
		dir:        dir,
		defaultTTL: defaultTTLSeconds,
		enabled:    enabled,
		logger:     logger,
		now:        time.Now,
	}
}

// WithMetrics attaches a hit/miss counter vec (label "result").
func (s *Store) WithMetrics(cacheTotal *prometheus.CounterVec) *Store {
	s.cacheTotal = cacheTotal
	return s
}

// WithClock overrides the time source. Test hook.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Enabled reports whether the store touches storage at all.
func (s *Store) Enabled() bool { return s.enabled }

// Get returns the cached payload for the query text, or a miss.
// Expired entries are deleted on read. Read and decode failures are logged
// and degrade to a miss.
func (s *Store) Get(queryText string) (json.RawMessage, bool) {
	if !s.enabled {
		return nil, false
	}

	path := s.entryPath(queryText)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Failed to read cache entry", zap.String("path", path), zap.Error(err))
		}
		s.incCache("miss")
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		s.logger.Warn("Failed to decode cache entry", zap.String("path", path), zap.Error(err))
		s.incCache("miss")
		return nil, false
	}

	if !e.live(s.now().UnixMilli()) {
		s.remove(path)
		s.incCache("miss")
		return nil, false
	}

	s.incCache("hit")
	return e.Data, true
}

// Set writes a payload for the query text, replacing any existing entry for
// the same key. ttlOverride (if given) replaces the store default for this
// entry only. Write failures are logged; the caller's request proceeds
// uncached.
func (s *Store) Set(queryText string, data json.RawMessage, ttlOverride ...int) {
	if !s.enabled {
		return
	}

	ttl := s.defaultTTL
	if len(ttlOverride) > 0 && ttlOverride[0] > 0 {
		ttl = ttlOverride[0]
	}

	e := entry{
		Data:             data,
		CreatedAtEpochMs: s.now().UnixMilli(),
		TTLSeconds:       ttl,
	}

	raw, err := json.Marshal(&e)
	if err != nil {
		s.logger.Warn("Failed to encode cache entry", zap.Error(err))
		return
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.logger.Warn("Failed to create cache directory", zap.String("dir", s.dir), zap.Error(err))
		return
	}

	path := s.entryPath(queryText)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		s.logger.Warn("Failed to write cache entry", zap.String("path", path), zap.Error(err))
	}
}

// Delete removes the entry for the query text. Absent entries are a no-op.
func (s *Store) Delete(queryText string) {
	if !s.enabled {
		return
	}
	s.remove(s.entryPath(queryText))
}

// Clear removes all entries unconditionally.
func (s *Store) Clear() {
	if !s.enabled {
		return
	}
	for _, path := range s.entryFiles() {
		s.remove(path)
	}
}

// SweepExpired removes entries past their TTL and returns the count removed.
// Housekeeping only — never called on the request hot path.
func (s *Store) SweepExpired() int {
	if !s.enabled {
		return 0
	}

	nowMs := s.now().UnixMilli()
	removed := 0
	for _, path := range s.entryFiles() {
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("Failed to read cache entry during sweep", zap.String("path", path), zap.Error(err))
			continue
		}
		var e entry
		if err := json.Unmarshal(data, &e); err != nil {
			// Undecodable entries can never be served; sweep them too.
			s.remove(path)
			removed++
			continue
		}
		if !e.live(nowMs) {
			s.remove(path)
			removed++
		}
	}
	return removed
}

// Stats returns the total and expired entry counts.
func (s *Store) Stats() (total, expired int) {
	if !s.enabled {
		return 0, 0
	}

	nowMs := s.now().UnixMilli()
	for _, path := range s.entryFiles() {
		total++
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var e entry
		if err := json.Unmarshal(data, &e); err != nil || !e.live(nowMs) {
			expired++
		}
	}
	return total, expired
}

// Key returns the content-hash key for a query text. Two byte-identical
// query strings always map to the same key; any difference (whitespace,
// casing) maps to a different one. No normalization.
func Key(queryText string) string {
	h := sha256.Sum256([]byte(queryText))
	return hex.EncodeToString(h[:])
}

func (s *Store) entryPath(queryText string) string {
	return filepath.Join(s.dir, Key(queryText)+".json")
}

func (s *Store) entryFiles() []string {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		s.logger.Warn("Failed to list cache entries", zap.String("dir", s.dir), zap.Error(err))
		return nil
	}
	return paths
}

func (s *Store) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("Failed to remove cache entry", zap.String("path", path), zap.Error(err))
	}
}

func (s *Store) incCache(result string) {
	if s.cacheTotal != nil {
		s.cacheTotal.WithLabelValues(result).Inc()
	}
}
