package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goforj/favorites/favcore"
)

var (
	createTempFile = os.CreateTemp
	renameFile     = os.Rename
)

type fileRecord struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// Config configures a directory-backed favorites store.
type Config struct {
	// Dir holds one JSON document per favorite. Defaults to a
	// favorites directory under the OS temp dir.
	Dir string
}

// Store persists favorites as flat files, one record per document.
// Writes go through a temp file plus rename so readers never observe a
// partial document. A process-local mutex makes Toggle atomic.
type Store struct {
	dir    string
	mu     sync.Mutex
	closed bool
}

var _ favcore.Store = (*Store)(nil)

// New builds a file-backed favcore.Store, creating the directory when missing.
func New(cfg Config) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), favcore.DefaultPrefix)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Driver() favcore.Driver { return favcore.DriverFile }

func (s *Store) Ready(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return favcore.ErrStoreClosed
	}
	if _, err := os.Stat(s.dir); err != nil {
		return s.wrap("ready", err)
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
	rec = favcore.Stamp(rec, time.Now())
	if existing, ok, err := s.read(rec.ID); err != nil {
		return favcore.Record{}, err
	} else if ok {
		rec.CreatedAt = existing.CreatedAt
	}
	if err := s.write(rec); err != nil {
		return favcore.Record{}, err
	}
	return rec, nil
}

func (s *Store) Remove(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return favcore.ErrStoreClosed
	}
	if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return s.wrap("remove", err)
	}
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
	if _, err := os.Stat(s.path(rec.ID)); err == nil {
		if err := os.Remove(s.path(rec.ID)); err != nil {
			return false, s.wrap("toggle", err)
		}
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, s.wrap("toggle", err)
	}
	rec = favcore.Stamp(rec, time.Now())
	if err := s.write(rec); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) IsFavorite(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, favcore.ErrStoreClosed
	}
	if _, err := os.Stat(s.path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, s.wrap("is_favorite", err)
	}
	return true, nil
}

func (s *Store) Get(_ context.Context, id int64) (favcore.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return favcore.Record{}, false, favcore.ErrStoreClosed
	}
	rec, ok, err := s.read(id)
	if err != nil {
		return favcore.Record{}, false, err
	}
	return rec, ok, nil
}

func (s *Store) List(_ context.Context) ([]favcore.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, favcore.ErrStoreClosed
	}
	ids, err := s.ids()
	if err != nil {
		return nil, err
	}
	recs := make([]favcore.Record, 0, len(ids))
	for _, id := range ids {
		rec, ok, err := s.read(id)
		if err != nil {
			return nil, err
		}
		if ok {
			recs = append(recs, rec)
		}
	}
	favcore.SortNewestFirst(recs)
	return recs, nil
}

func (s *Store) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, favcore.ErrStoreClosed
	}
	ids, err := s.ids()
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return favcore.ErrStoreClosed
	}
	ids, err := s.ids()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return s.wrap("clear", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) path(id int64) string {
	return filepath.Join(s.dir, strconv.FormatInt(id, 10)+".json")
}

func (s *Store) ids() ([]int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, s.wrap("list", err)
	}
	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSuffix(name, ".json"), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) read(id int64) (favcore.Record, bool, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return favcore.Record{}, false, nil
		}
		return favcore.Record{}, false, s.wrap("get", err)
	}
	var fr fileRecord
	if err := json.Unmarshal(data, &fr); err != nil {
		return favcore.Record{}, false, s.wrap("get", err)
	}
	return favcore.Record{
		ID:        fr.ID,
		Name:      fr.Name,
		ImageURL:  fr.ImageURL,
		CreatedAt: time.UnixMilli(fr.CreatedAt).UTC(),
	}, true, nil
}

func (s *Store) write(rec favcore.Record) error {
	data, err := json.Marshal(fileRecord{
		ID:        rec.ID,
		Name:      rec.Name,
		ImageURL:  rec.ImageURL,
		CreatedAt: rec.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return s.wrap("save", err)
	}
	tmp, err := createTempFile(s.dir, "fav-*")
	if err != nil {
		return s.wrap("save", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return s.wrap("save", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return s.wrap("save", err)
	}
	if err := renameFile(tmpPath, s.path(rec.ID)); err != nil {
		_ = os.Remove(tmpPath)
		return s.wrap("save", err)
	}
	return nil
}

func (s *Store) wrap(op string, err error) error {
	return fmt.Errorf("favorites/%s: %s: %w", favcore.DriverFile, op, err)
}
