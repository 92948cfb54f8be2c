package favcore

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrStoreClosed is returned by every operation after Close.
	ErrStoreClosed = errors.New("favorites: store is closed")
	// ErrInvalidRecord marks records rejected before reaching the backend.
	ErrInvalidRecord = errors.New("favorites: invalid record")
)

// Record is one favorited item.
type Record struct {
	ID        int64
	Name      string
	ImageURL  string
	CreatedAt time.Time
}

// Validate reports whether the record can be persisted.
func (r Record) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("%w: id must be positive", ErrInvalidRecord)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRecord)
	}
	return nil
}

// Stamp prepares a record for first insert. A zero CreatedAt becomes now;
// either way the timestamp is normalized to UTC at millisecond precision,
// the finest granularity every backend can round-trip.
func Stamp(rec Record, now time.Time) Record {
	t := rec.CreatedAt
	if t.IsZero() {
		t = now
	}
	rec.CreatedAt = t.UTC().Truncate(time.Millisecond)
	return rec
}

// SortNewestFirst orders records by CreatedAt descending, ID descending on
// ties, the listing order every backend must produce.
func SortNewestFirst(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].ID > recs[j].ID
		}
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
}
