// Package session caches loaded tables and per-user exploration state in memory.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"github.com/KaramelBytes/pivotloom-cli/internal/filter"
	"github.com/KaramelBytes/pivotloom-cli/internal/pivot"
	"github.com/KaramelBytes/pivotloom-cli/internal/summary"
	"github.com/KaramelBytes/pivotloom-cli/internal/table"
)

// ErrNotFound is returned for unknown or evicted session ids.
var ErrNotFound = errors.New("session not found")

// DefaultCapacity bounds both cached tables and live sessions.
const DefaultCapacity = 32

// Key identifies an input by its bytes and the options used to decode it.
func Key(data []byte, options string) uint64 {
	h := xxh3.New()
	_, _ = h.Write(data)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(options)
	return h.Sum64()
}

// Session is one exploration: a base table plus the current selections.
// Sessions are values; use With* to derive an updated copy and Store.Save to keep it.
type Session struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Key       uint64          `json:"-"`
	Table     *table.Table    `json:"-"`
	Filter    filter.Spec     `json:"filter,omitempty"`
	Pivot     pivot.Spec      `json:"pivot"`
	Augment   summary.Options `json:"augment"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// WithSelections returns a copy of s carrying new filter, pivot and augment choices.
func (s Session) WithSelections(f filter.Spec, p pivot.Spec, a summary.Options) *Session {
	cp := s
	cp.Filter = cloneFilter(f)
	cp.Pivot = pivot.Spec{
		RowFields:   append([]string(nil), p.RowFields...),
		ColFields:   append([]string(nil), p.ColFields...),
		ValueFields: append([]string(nil), p.ValueFields...),
		Aggregator:  p.Aggregator,
	}
	cp.Augment = a
	cp.UpdatedAt = time.Now()
	return &cp
}

func cloneFilter(f filter.Spec) filter.Spec {
	if f == nil {
		return nil
	}
	out := make(filter.Spec, len(f))
	for k, v := range f {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Store holds base tables by content key and sessions by id, both LRU-bounded.
type Store struct {
	tables   *lru[uint64, *table.Table]
	sessions *lru[string, *Session]
}

// NewStore creates a store; capacity <= 0 uses DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		tables:   newLRU[uint64, *table.Table](capacity),
		sessions: newLRU[string, *Session](capacity),
	}
}

// Table returns the cached table for key.
func (s *Store) Table(key uint64) (*table.Table, bool) { return s.tables.get(key) }

// PutTable caches t under key.
func (s *Store) PutTable(key uint64, t *table.Table) { s.tables.put(key, t) }

// Tables returns the number of cached tables.
func (s *Store) Tables() int { return s.tables.len() }

// Open starts a session over t.
func (s *Store) Open(name string, key uint64, t *table.Table) *Session {
	now := time.Now()
	sess := &Session{ID: uuid.NewString(), Name: name, Key: key, Table: t, CreatedAt: now, UpdatedAt: now}
	s.sessions.put(sess.ID, sess)
	return sess
}

// Get looks a session up by id.
func (s *Store) Get(id string) (*Session, error) {
	sess, ok := s.sessions.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Save replaces the stored session with the same id.
func (s *Store) Save(sess *Session) error {
	if _, ok := s.sessions.get(sess.ID); !ok {
		return ErrNotFound
	}
	s.sessions.put(sess.ID, sess)
	return nil
}

// Close drops a session.
func (s *Store) Close(id string) bool { return s.sessions.remove(id) }

// Len returns the number of live sessions.
func (s *Store) Len() int { return s.sessions.len() }
