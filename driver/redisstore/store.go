package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goforj/favorites/favcore"
)

// Client captures the subset of redis.Client used by the store. Every method
// is a single request/response command, so tests can swap in an in-memory
// stub without a server.
type Client interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	ZCard(ctx context.Context, key string) *redis.IntCmd
	ZRevRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// Config configures a Redis-backed favorites store.
type Config struct {
	favcore.BaseConfig
	Client Client
}

type wireRecord struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

type store struct {
	client Client
	prefix string
	closed atomic.Bool
}

// New builds a Redis-backed favcore.Store.
//
// Records live as JSON at <prefix>:rec:<id>. The insert timestamp is pinned
// at <prefix>:cre:<id> with SETNX, so re-saves keep the original create time
// without a read-modify-write transaction. A sorted set at
// <prefix>:by_created keyed by that timestamp keeps List cheap.
//
// Defaults:
// - Prefix: "favorites" when empty
// - Client: nil allowed (operations return errors until a client is provided)
//
// Example: explicit Redis driver config
//
//	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
//	store := redisstore.New(redisstore.Config{
//		BaseConfig: favcore.BaseConfig{Prefix: "app"},
//		Client:     rdb,
//	})
//	fmt.Println(store.Driver()) // redis
func New(cfg Config) favcore.Store {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = favcore.DefaultPrefix
	}
	return &store{
		client: cfg.Client,
		prefix: prefix,
	}
}

func (s *store) Driver() favcore.Driver {
	return favcore.DriverRedis
}

func (s *store) Ready(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return s.wrap("ready", err)
	}
	return nil
}

func (s *store) Save(ctx context.Context, rec favcore.Record) (favcore.Record, error) {
	if err := s.guard(); err != nil {
		return favcore.Record{}, err
	}
	if err := rec.Validate(); err != nil {
		return favcore.Record{}, err
	}
	cur := favcore.Stamp(rec, time.Now())
	// The first writer pins the create time; later saves read it back.
	if err := s.client.SetNX(ctx, s.createdKey(cur.ID), cur.CreatedAt.UnixMilli(), 0).Err(); err != nil {
		return favcore.Record{}, s.wrap("save", err)
	}
	ms, err := s.client.Get(ctx, s.createdKey(cur.ID)).Int64()
	if err != nil {
		return favcore.Record{}, s.wrap("save", err)
	}
	cur.CreatedAt = time.UnixMilli(ms).UTC()
	data, err := encodeRecord(cur)
	if err != nil {
		return favcore.Record{}, s.wrap("save", err)
	}
	if err := s.client.Set(ctx, s.recKey(cur.ID), data, 0).Err(); err != nil {
		return favcore.Record{}, s.wrap("save", err)
	}
	if err := s.client.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(ms),
		Member: strconv.FormatInt(cur.ID, 10),
	}).Err(); err != nil {
		return favcore.Record{}, s.wrap("save", err)
	}
	return cur, nil
}

func (s *store) Remove(ctx context.Context, id int64) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.recKey(id), s.createdKey(id)).Err(); err != nil {
		return s.wrap("remove", err)
	}
	if err := s.client.ZRem(ctx, s.indexKey(), strconv.FormatInt(id, 10)).Err(); err != nil {
		return s.wrap("remove", err)
	}
	return nil
}

func (s *store) Toggle(ctx context.Context, rec favcore.Record) (bool, error) {
	if err := s.guard(); err != nil {
		return false, err
	}
	if err := rec.Validate(); err != nil {
		return false, err
	}
	cur := favcore.Stamp(rec, time.Now())
	data, err := encodeRecord(cur)
	if err != nil {
		return false, s.wrap("toggle", err)
	}
	// SETNX arbitrates concurrent flips: exactly one caller lands the add.
	added, err := s.client.SetNX(ctx, s.recKey(cur.ID), data, 0).Result()
	if err != nil {
		return false, s.wrap("toggle", err)
	}
	if !added {
		if err := s.client.Del(ctx, s.recKey(cur.ID), s.createdKey(cur.ID)).Err(); err != nil {
			return false, s.wrap("toggle", err)
		}
		if err := s.client.ZRem(ctx, s.indexKey(), strconv.FormatInt(cur.ID, 10)).Err(); err != nil {
			return false, s.wrap("toggle", err)
		}
		return false, nil
	}
	if err := s.client.SetNX(ctx, s.createdKey(cur.ID), cur.CreatedAt.UnixMilli(), 0).Err(); err != nil {
		return false, s.wrap("toggle", err)
	}
	if err := s.client.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(cur.CreatedAt.UnixMilli()),
		Member: strconv.FormatInt(cur.ID, 10),
	}).Err(); err != nil {
		return false, s.wrap("toggle", err)
	}
	return true, nil
}

func (s *store) IsFavorite(ctx context.Context, id int64) (bool, error) {
	if err := s.guard(); err != nil {
		return false, err
	}
	n, err := s.client.Exists(ctx, s.recKey(id)).Result()
	if err != nil {
		return false, s.wrap("is_favorite", err)
	}
	return n > 0, nil
}

func (s *store) Get(ctx context.Context, id int64) (favcore.Record, bool, error) {
	if err := s.guard(); err != nil {
		return favcore.Record{}, false, err
	}
	data, err := s.client.Get(ctx, s.recKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return favcore.Record{}, false, nil
		}
		return favcore.Record{}, false, s.wrap("get", err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return favcore.Record{}, false, s.wrap("get", err)
	}
	return rec, true, nil
}

func (s *store) List(ctx context.Context) ([]favcore.Record, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, s.wrap("list", err)
	}
	recs := make([]favcore.Record, 0, len(ids))
	if len(ids) == 0 {
		return recs, nil
	}
	keys := make([]string, 0, len(ids))
	members := make([]string, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		keys = append(keys, s.recKey(id))
		members = append(members, raw)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, s.wrap("list", err)
	}
	var ghosts []interface{}
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// Index member whose record vanished; repair the index.
			ghosts = append(ghosts, members[i])
			continue
		}
		rec, err := decodeRecord([]byte(raw))
		if err != nil {
			return nil, s.wrap("list", err)
		}
		recs = append(recs, rec)
	}
	if len(ghosts) > 0 {
		if err := s.client.ZRem(ctx, s.indexKey(), ghosts...).Err(); err != nil {
			return nil, s.wrap("list", err)
		}
	}
	favcore.SortNewestFirst(recs)
	return recs, nil
}

func (s *store) Count(ctx context.Context) (int64, error) {
	if err := s.guard(); err != nil {
		return 0, err
	}
	n, err := s.client.ZCard(ctx, s.indexKey()).Result()
	if err != nil {
		return 0, s.wrap("count", err)
	}
	return n, nil
}

func (s *store) Clear(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}
	pattern := s.prefix + ":*"
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return s.wrap("clear", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return s.wrap("clear", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (s *store) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *store) guard() error {
	if s.closed.Load() {
		return favcore.ErrStoreClosed
	}
	if s.client == nil {
		return errors.New("redis favorites client unavailable")
	}
	return nil
}

func (s *store) recKey(id int64) string {
	return s.prefix + ":rec:" + strconv.FormatInt(id, 10)
}

func (s *store) createdKey(id int64) string {
	return s.prefix + ":cre:" + strconv.FormatInt(id, 10)
}

func (s *store) indexKey() string {
	return s.prefix + ":by_created"
}

func (s *store) wrap(op string, err error) error {
	return fmt.Errorf("favorites/%s: %s: %w", favcore.DriverRedis, op, err)
}

func encodeRecord(rec favcore.Record) ([]byte, error) {
	return json.Marshal(wireRecord{
		ID:        rec.ID,
		Name:      rec.Name,
		ImageURL:  rec.ImageURL,
		CreatedAt: rec.CreatedAt.UnixMilli(),
	})
}

func decodeRecord(data []byte) (favcore.Record, error) {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return favcore.Record{}, err
	}
	return favcore.Record{
		ID:        w.ID,
		Name:      w.Name,
		ImageURL:  w.ImageURL,
		CreatedAt: time.UnixMilli(w.CreatedAt).UTC(),
	}, nil
}
