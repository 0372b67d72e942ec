package core

import (
	"context"
	"sort"
	"sync"
)

// fakeStore is a map-backed Repository with per-key and per-ID failure hooks.
type fakeStore struct {
	mu      sync.Mutex
	records map[Key]ResultRecord

	findErr      error
	upsertErr    map[Key]error
	studentErr   map[string]error
	publishErr   map[string]error
	listErr      error
	upsertHook   func(ctx context.Context, rec ResultRecord) error
	findCalls    int
	upsertCalls  int
	publishCalls int
}

func newFakeStore(recs ...ResultRecord) *fakeStore {
	s := &fakeStore{
		records:    make(map[Key]ResultRecord),
		upsertErr:  make(map[Key]error),
		studentErr: make(map[string]error),
		publishErr: make(map[string]error),
	}
	for _, r := range recs {
		s.records[r.Key()] = r
	}
	return s
}

func (s *fakeStore) FindByKey(_ context.Context, key Key) (ResultRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	if s.findErr != nil {
		return ResultRecord{}, false, s.findErr
	}
	rec, ok := s.records[key]
	return rec, ok, nil
}

func (s *fakeStore) Upsert(ctx context.Context, rec ResultRecord) error {
	if s.upsertHook != nil {
		if err := s.upsertHook(ctx, rec); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls++
	if err := s.upsertErr[rec.Key()]; err != nil {
		return err
	}
	s.records[rec.Key()] = rec
	return nil
}

func (s *fakeStore) FindByStudent(_ context.Context, roll string) ([]ResultRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.studentErr[roll]; err != nil {
		return nil, err
	}
	var out []ResultRecord
	for k, r := range s.records {
		if k.RollNumber == roll {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseCode < out[j].CourseCode })
	return out, nil
}

func (s *fakeStore) SetPublished(_ context.Context, id string, published bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishCalls++
	if err := s.publishErr[id]; err != nil {
		return err
	}
	for k, r := range s.records {
		if r.ID == id {
			r.Published = published
			s.records[k] = r
			return nil
		}
	}
	return ErrNotFound
}

func (s *fakeStore) ListResults(_ context.Context) ([]ResultRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]ResultRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out, nil
}

func (s *fakeStore) get(roll, course string) (ResultRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[Key{RollNumber: roll, CourseCode: course}]
	return r, ok
}

func candidate(row int, roll, course string, marks int) Candidate {
	return Candidate{
		Row: row,
		Record: ResultRecord{
			RollNumber:  roll,
			CourseCode:  course,
			Marks:       marks,
			StudentName: "Asha Rao",
		},
	}
}
