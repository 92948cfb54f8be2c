package redisstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// stubClient is an in-memory Client used for unit tests.
type stubClient struct {
	store map[string]string
	zsets map[string]map[string]float64

	pingErr   error
	getErr    error
	setErr    error
	setNXErr  error
	mgetErr   error
	existsErr error
	delErr    error
	zaddErr   error
	zremErr   error
	zcardErr  error
	zrangeErr error
	scanErr   error
}

func newStubClient() *stubClient {
	return &stubClient{
		store: make(map[string]string),
		zsets: make(map[string]map[string]float64),
	}
}

func valueString(v interface{}) string {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

func (c *stubClient) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if c.pingErr != nil {
		cmd.SetErr(c.pingErr)
		return cmd
	}
	cmd.SetVal("PONG")
	return cmd
}

func (c *stubClient) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if c.getErr != nil {
		cmd.SetErr(c.getErr)
		return cmd
	}
	if val, ok := c.store[key]; ok {
		cmd.SetVal(val)
		return cmd
	}
	cmd.SetErr(redis.Nil)
	return cmd
}

func (c *stubClient) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if c.setErr != nil {
		cmd.SetErr(c.setErr)
		return cmd
	}
	c.store[key] = valueString(value)
	cmd.SetVal("OK")
	return cmd
}

func (c *stubClient) SetNX(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if c.setNXErr != nil {
		cmd.SetErr(c.setNXErr)
		return cmd
	}
	if _, exists := c.store[key]; exists {
		cmd.SetVal(false)
		return cmd
	}
	c.store[key] = valueString(value)
	cmd.SetVal(true)
	return cmd
}

func (c *stubClient) MGet(ctx context.Context, keys ...string) *redis.SliceCmd {
	cmd := redis.NewSliceCmd(ctx)
	if c.mgetErr != nil {
		cmd.SetErr(c.mgetErr)
		return cmd
	}
	vals := make([]interface{}, len(keys))
	for i, key := range keys {
		if val, ok := c.store[key]; ok {
			vals[i] = val
		}
	}
	cmd.SetVal(vals)
	return cmd
}

func (c *stubClient) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if c.existsErr != nil {
		cmd.SetErr(c.existsErr)
		return cmd
	}
	var n int64
	for _, key := range keys {
		if _, ok := c.store[key]; ok {
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func (c *stubClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if c.delErr != nil {
		cmd.SetErr(c.delErr)
		return cmd
	}
	var removed int64
	for _, key := range keys {
		if _, ok := c.store[key]; ok {
			delete(c.store, key)
			removed++
		}
		if _, ok := c.zsets[key]; ok {
			delete(c.zsets, key)
			removed++
		}
	}
	cmd.SetVal(removed)
	return cmd
}

func (c *stubClient) ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if c.zaddErr != nil {
		cmd.SetErr(c.zaddErr)
		return cmd
	}
	set, ok := c.zsets[key]
	if !ok {
		set = make(map[string]float64)
		c.zsets[key] = set
	}
	var added int64
	for _, member := range members {
		name := valueString(member.Member)
		if _, exists := set[name]; !exists {
			added++
		}
		set[name] = member.Score
	}
	cmd.SetVal(added)
	return cmd
}

func (c *stubClient) ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if c.zremErr != nil {
		cmd.SetErr(c.zremErr)
		return cmd
	}
	set := c.zsets[key]
	var removed int64
	for _, member := range members {
		name := valueString(member)
		if _, ok := set[name]; ok {
			delete(set, name)
			removed++
		}
	}
	cmd.SetVal(removed)
	return cmd
}

func (c *stubClient) ZCard(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if c.zcardErr != nil {
		cmd.SetErr(c.zcardErr)
		return cmd
	}
	cmd.SetVal(int64(len(c.zsets[key])))
	return cmd
}

func (c *stubClient) ZRevRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	cmd := redis.NewStringSliceCmd(ctx)
	if c.zrangeErr != nil {
		cmd.SetErr(c.zrangeErr)
		return cmd
	}
	set := c.zsets[key]
	members := make([]string, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool {
		if set[members[i]] == set[members[j]] {
			return members[i] > members[j]
		}
		return set[members[i]] > set[members[j]]
	})
	if start != 0 || stop != -1 {
		cmd.SetErr(fmt.Errorf("stub only supports full-range queries, got %d..%d", start, stop))
		return cmd
	}
	cmd.SetVal(members)
	return cmd
}

func (c *stubClient) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	cmd := redis.NewScanCmd(ctx, nil)
	if c.scanErr != nil {
		cmd.SetErr(c.scanErr)
		return cmd
	}
	prefix := strings.TrimSuffix(match, "*")
	var keys []string
	for key := range c.store {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	for key := range c.zsets {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	cmd.SetVal(keys, 0)
	return cmd
}
