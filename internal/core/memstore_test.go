package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// memStore is an in-memory Store that enforces the variant's uniqueness key
// atomically, like the SQL stores do.
type memStore struct {
	mu      sync.Mutex
	unique  Column
	records []Record
	nextID  int64
	clock   time.Time

	insertErr func(*Record) error // injected per-record failure
	queryErr  error
	inserts   int // insert attempts, including failed ones
}

func newMemStore(s *Schema) *memStore {
	return &memStore{
		unique: s.UniqueKey,
		clock:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) Insert(ctx context.Context, r *Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.inserts++
	if m.insertErr != nil {
		if err := m.insertErr(r); err != nil {
			return 0, err
		}
	}
	if m.conflicts(r, 0) {
		return 0, fmt.Errorf("insert support log: %w", ErrDuplicate)
	}

	m.nextID++
	m.clock = m.clock.Add(time.Minute)
	rec := *r
	rec.ID = m.nextID
	rec.CreatedAt = m.clock
	m.records = append(m.records, rec)
	return rec.ID, nil
}

func (m *memStore) conflicts(r *Record, exceptID int64) bool {
	if m.unique == "" {
		return false
	}
	key := r.Text(m.unique)
	if key == "" {
		return false
	}
	for i := range m.records {
		if m.records[i].ID != exceptID && m.records[i].Text(m.unique) == key {
			return true
		}
	}
	return false
}

func (m *memStore) QueryAll(ctx context.Context) ([]Record, error) {
	return m.Query(ctx, Filter{})
}

func (m *memStore) Query(ctx context.Context, f Filter) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.queryErr != nil {
		return nil, m.queryErr
	}

	preds := f.Predicates()
	var out []Record
	for _, r := range m.records {
		if matchesAll(&r, preds) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func matchesAll(r *Record, preds []Predicate) bool {
	for _, p := range preds {
		if !matches(r, p) {
			return false
		}
	}
	return true
}

func matches(r *Record, p Predicate) bool {
	for _, col := range p.Columns {
		switch v := p.Value.(type) {
		case bool:
			if r.Flag(col) == v {
				return true
			}
		case string:
			got := r.Text(col)
			if p.Op == OpContains && strings.Contains(strings.ToLower(got), strings.ToLower(v)) {
				return true
			}
			if p.Op == OpEquals && got == v {
				return true
			}
		}
	}
	return false
}

func (m *memStore) Update(ctx context.Context, id int64, r *Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.records {
		if m.records[i].ID != id {
			continue
		}
		if m.conflicts(r, id) {
			return 0, fmt.Errorf("update support log: %w", ErrDuplicate)
		}
		rec := *r
		rec.ID = id
		rec.CreatedAt = m.records[i].CreatedAt
		m.records[i] = rec
		return 1, nil
	}
	return 0, nil
}

func (m *memStore) Delete(ctx context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.records {
		if m.records[i].ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
