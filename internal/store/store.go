package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/clusterautomation/perfwatch/internal/compute"
)

// Entry is the outcome of one evaluation run. Exactly one of Evaluation and
// Err describes the run; a nothing-to-evaluate result carries both the
// partial Evaluation and the error.
type Entry struct {
	Evaluation *compute.Evaluation
	Err        error
	UpdatedAt  time.Time
	Version    uint64
}

// Day returns the evaluated day as YYYY-MM-DD, or "" when the run failed
// before a day was fixed.
func (e *Entry) Day() string {
	if e.Evaluation == nil {
		return ""
	}
	return e.Evaluation.Day.Format(time.DateOnly)
}

// Store is a thread-safe in-memory evaluation store. It holds the latest
// entry plus the last entry of each evaluated day; a background goroutine
// (Run) evicts days not updated within the retention period.
type Store struct {
	mu        sync.RWMutex
	latest    *Entry
	byDay     map[string]*Entry
	version   uint64
	retention time.Duration
	now       func() time.Time // injectable for deterministic tests
}

// New creates a Store that keeps per-day entries for retention.
func New(retention time.Duration) *Store {
	return &Store{
		byDay:     make(map[string]*Entry),
		retention: retention,
		now:       time.Now,
	}
}

// Put records the result of an evaluation run and returns the stored entry.
// Callers must not modify ev after calling Put.
func (s *Store) Put(ev *compute.Evaluation, err error) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	e := &Entry{
		Evaluation: ev,
		Err:        err,
		UpdatedAt:  s.now(),
		Version:    s.version,
	}
	s.latest = e
	if day := e.Day(); day != "" {
		s.byDay[day] = e
	}
	return e
}

// Latest returns the most recent entry, or false when nothing has been
// stored yet.
func (s *Store) Latest() (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}

// Get returns the last entry for day (YYYY-MM-DD).
func (s *Store) Get(day string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byDay[day]
	return e, ok
}

// Days returns the stored days, newest first.
func (s *Store) Days() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.byDay))
	for d := range s.byDay {
		out = append(out, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// Version returns the version of the latest entry; 0 when empty.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Evict removes per-day entries whose UpdatedAt is older than now minus the
// retention. The latest entry is never evicted. It returns the number of
// entries removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.retention)
	removed := 0
	for day, e := range s.byDay {
		if e == s.latest {
			continue
		}
		if !e.UpdatedAt.After(cutoff) {
			delete(s.byDay, day)
			removed++
		}
	}
	return removed
}

// Run starts the background eviction loop. It ticks at half the retention
// (minimum 1 second, maximum 1 hour). Run blocks until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.retention / 2
	if interval < time.Second {
		interval = time.Second
	}
	if interval > time.Hour {
		interval = time.Hour
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted old evaluations", "count", n)
			}
		}
	}
}
