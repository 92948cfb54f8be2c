package memorystore

import (
	"context"
	"sync"
	"time"

	"github.com/goforj/favorites/favcore"
)

// Store keeps favorites in process memory. It backs tests and single-process
// apps that can live without durability.
type Store struct {
	mu     sync.RWMutex
	recs   map[int64]favcore.Record
	closed bool
	now    func() time.Time
}

var _ favcore.Store = (*Store)(nil)

// New builds an empty in-memory favcore.Store.
func New() *Store {
	return &Store{
		recs: make(map[int64]favcore.Record),
		now:  time.Now,
	}
}

func (s *Store) Driver() favcore.Driver { return favcore.DriverMemory }

func (s *Store) Ready(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return favcore.ErrStoreClosed
	}
	return nil
}

func (s *Store) Save(_ context.Context, rec favcore.Record) (favcore.Record, error) {
	if err := rec.Validate(); err != nil {
		return favcore.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return favcore.Record{}, favcore.ErrStoreClosed
	}
	rec = favcore.Stamp(rec, s.now())
	if existing, ok := s.recs[rec.ID]; ok {
		rec.CreatedAt = existing.CreatedAt
	}
	s.recs[rec.ID] = rec
	return rec, nil
}

func (s *Store) Remove(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return favcore.ErrStoreClosed
	}
	delete(s.recs, id)
	return nil
}

func (s *Store) Toggle(_ context.Context, rec favcore.Record) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, favcore.ErrStoreClosed
	}
	if _, ok := s.recs[rec.ID]; ok {
		delete(s.recs, rec.ID)
		return false, nil
	}
	rec = favcore.Stamp(rec, s.now())
	s.recs[rec.ID] = rec
	return true, nil
}

func (s *Store) IsFavorite(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, favcore.ErrStoreClosed
	}
	_, ok := s.recs[id]
	return ok, nil
}

func (s *Store) Get(_ context.Context, id int64) (favcore.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return favcore.Record{}, false, favcore.ErrStoreClosed
	}
	rec, ok := s.recs[id]
	return rec, ok, nil
}

func (s *Store) List(_ context.Context) ([]favcore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, favcore.ErrStoreClosed
	}
	recs := make([]favcore.Record, 0, len(s.recs))
	for _, rec := range s.recs {
		recs = append(recs, rec)
	}
	favcore.SortNewestFirst(recs)
	return recs, nil
}

func (s *Store) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, favcore.ErrStoreClosed
	}
	return int64(len(s.recs)), nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return favcore.ErrStoreClosed
	}
	s.recs = make(map[int64]favcore.Record)
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
