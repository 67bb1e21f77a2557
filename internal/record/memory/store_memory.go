// Package memory keeps the record store in process memory. It favors clarity
// over performance and backs tests and single-node deployments.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"certpass/internal/record"
	"certpass/pkg/platform/sentinel"
)

type Store struct {
	mu      sync.RWMutex
	records map[string]record.Record
}

func New() *Store {
	return &Store{records: make(map[string]record.Record)}
}

func (s *Store) Save(_ context.Context, rec record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CustomFields = maps.Clone(rec.CustomFields)
	s.records[rec.Fingerprint] = rec
	return nil
}

func (s *Store) FindByFingerprint(_ context.Context, fp string) (record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.records[fp]; ok {
		rec.CustomFields = maps.Clone(rec.CustomFields)
		return rec, nil
	}
	return record.Record{}, sentinel.ErrNotFound
}

// Len reports the number of stored records; used by tests.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
