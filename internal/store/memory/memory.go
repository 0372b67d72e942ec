// Package memory is an in-process result store.
//
// It backs DB_DRIVER=memory, the resultctl dry runs and the tests. Data lives
// only as long as the process.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/resultportal/internal/core"
)

// Store is a concurrency-safe map of results keyed by (rollNumber, courseCode).
type Store struct {
	mu     sync.RWMutex
	byKey  map[core.Key]core.ResultRecord
	byID   map[string]core.Key
	byRoll map[string]map[string]struct{} // roll -> course codes
	now    func() time.Time
}

var _ core.Repository = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		byKey:  make(map[core.Key]core.ResultRecord),
		byID:   make(map[string]core.Key),
		byRoll: make(map[string]map[string]struct{}),
		now:    time.Now,
	}
}

// FindByKey returns the record stored under key.
func (s *Store) FindByKey(ctx context.Context, key core.Key) (core.ResultRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return core.ResultRecord{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byKey[key]
	return rec, ok, nil
}

// Upsert inserts rec or overwrites the record with the same key. The stored
// ID and creation time of an existing record are kept.
func (s *Store) Upsert(ctx context.Context, rec core.ResultRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := rec.Key()
	now := s.now()

	if existing, ok := s.byKey[key]; ok {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	} else {
		rec.CreatedAt = now
		if s.byRoll[key.RollNumber] == nil {
			s.byRoll[key.RollNumber] = make(map[string]struct{})
		}
		s.byRoll[key.RollNumber][key.CourseCode] = struct{}{}
	}
	rec.UpdatedAt = now

	s.byKey[key] = rec
	s.byID[rec.ID] = key
	return nil
}

// FindByStudent returns every result of one student ordered by course code.
func (s *Store) FindByStudent(ctx context.Context, rollNumber string) ([]core.ResultRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	courses := s.byRoll[rollNumber]
	out := make([]core.ResultRecord, 0, len(courses))
	for code := range courses {
		out = append(out, s.byKey[core.Key{RollNumber: rollNumber, CourseCode: code}])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CourseCode < out[j].CourseCode
	})
	return out, nil
}

// SetPublished sets the published flag of the record with the given ID.
func (s *Store) SetPublished(ctx context.Context, id string, published bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.byID[id]
	if !ok {
		return core.ErrNotFound
	}
	rec := s.byKey[key]
	rec.Published = published
	rec.UpdatedAt = s.now()
	s.byKey[key] = rec
	return nil
}

// ListResults returns every stored result ordered by roll number then course.
func (s *Store) ListResults(ctx context.Context) ([]core.ResultRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.ResultRecord, 0, len(s.byKey))
	for _, rec := range s.byKey {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RollNumber != out[j].RollNumber {
			return out[i].RollNumber < out[j].RollNumber
		}
		return out[i].CourseCode < out[j].CourseCode
	})
	return out, nil
}

// Len returns the number of stored results.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}
