package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache defaults.
const (
	DefaultCacheTTL    = 3600 * time.Second
	DefaultCachePrefix = "rbac:"
	DefaultCacheSize   = 10000
)

// PermissionSet is the resolved set of permission names held by a user.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from names.
func NewPermissionSet(names ...string) PermissionSet {
	set := make(PermissionSet, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Has reports whether name is in the set.
func (p PermissionSet) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// Names returns the members in sorted order.
func (p PermissionSet) Names() []string {
	names := make([]string, 0, len(p))
	for n := range p {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PermissionLoader reads a user's permission names from durable storage.
type PermissionLoader func(ctx context.Context, userID uint) ([]string, error)

// RoleMembers lists the users holding a role.
type RoleMembers func(ctx context.Context, roleID uint) ([]uint, error)

type cacheBackend interface {
	get(ctx context.Context, key string) ([]string, bool, error)
	set(ctx context.Context, key string, names []string) error
	del(ctx context.Context, keys ...string) error
	purge(ctx context.Context, prefix string) error
}

// redisBackend stores permission sets as JSON arrays.
type redisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

func (b *redisBackend) get(ctx context.Context, key string) ([]string, bool, error) {
	raw, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return names, true, nil
}

func (b *redisBackend) set(ctx context.Context, key string, names []string) error {
	raw, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, key, raw, b.ttl).Err()
}

func (b *redisBackend) del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return b.client.Del(ctx, keys...).Err()
}

func (b *redisBackend) purge(ctx context.Context, prefix string) error {
	iter := b.client.Scan(ctx, 0, prefix+"*", 200).Iterator()
	batch := make([]string, 0, 200)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := b.del(ctx, batch...); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return b.del(ctx, batch...)
}

// memoryBackend is an in-process expiring LRU used when Redis is absent.
type memoryBackend struct {
	lru *expirable.LRU[string, []string]
}

func newMemoryBackend(size int, ttl time.Duration) *memoryBackend {
	return &memoryBackend{lru: expirable.NewLRU[string, []string](size, nil, ttl)}
}

func (b *memoryBackend) get(_ context.Context, key string) ([]string, bool, error) {
	names, ok := b.lru.Get(key)
	return names, ok, nil
}

func (b *memoryBackend) set(_ context.Context, key string, names []string) error {
	b.lru.Add(key, names)
	return nil
}

func (b *memoryBackend) del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		b.lru.Remove(k)
	}
	return nil
}

func (b *memoryBackend) purge(context.Context, string) error {
	b.lru.Purge()
	return nil
}

// CacheOptions configures a PermissionCache.
type CacheOptions struct {
	Redis  *redis.Client // nil selects the in-memory LRU
	TTL    time.Duration
	Prefix string
	Size   int
	Logger *zap.SugaredLogger
}

// CacheStats counts lookups served from and missed by the cache.
type CacheStats struct {
	Backend string `json:"backend"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	TTL     string `json:"ttl"`
}

const genStripes = 64

// genStripe guards the invalidation counters of the users hashed to it.
// Writes of a freshly loaded set happen under the same lock.
type genStripe struct {
	mu   sync.Mutex
	gens map[uint]uint64
}

// genStamp identifies the cache state a load started from.
type genStamp struct {
	epoch uint64
	gen   uint64
}

func (g genStamp) String() string {
	return strconv.FormatUint(g.epoch, 10) + "." + strconv.FormatUint(g.gen, 10)
}

// PermissionCache memoizes user permission sets. After Invalidate returns,
// no lookup observes a set loaded before the invalidation.
type PermissionCache struct {
	backend cacheBackend
	kind    string
	prefix  string
	ttl     time.Duration
	load    PermissionLoader
	members RoleMembers
	log     *zap.SugaredLogger

	group singleflight.Group

	epoch   atomic.Uint64
	stripes [genStripes]genStripe

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewPermissionCache builds a cache reading through load.
func NewPermissionCache(opts CacheOptions, load PermissionLoader, members RoleMembers) *PermissionCache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultCacheTTL
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultCachePrefix
	}
	if opts.Size <= 0 {
		opts.Size = DefaultCacheSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}

	c := &PermissionCache{
		prefix:  opts.Prefix,
		ttl:     opts.TTL,
		load:    load,
		members: members,
		log:     opts.Logger,
	}
	for i := range c.stripes {
		c.stripes[i].gens = make(map[uint]uint64)
	}
	if opts.Redis != nil {
		c.backend = &redisBackend{client: opts.Redis, ttl: opts.TTL}
		c.kind = "redis"
	} else {
		c.backend = newMemoryBackend(opts.Size, opts.TTL)
		c.kind = "memory"
	}
	return c
}

func (c *PermissionCache) key(userID uint) string {
	return c.prefix + "user:" + strconv.FormatUint(uint64(userID), 10) + ":permissions"
}

func (c *PermissionCache) stripe(userID uint) *genStripe {
	return &c.stripes[userID%genStripes]
}

// stampLocked must be called with the user's stripe held.
func (c *PermissionCache) stampLocked(s *genStripe, userID uint) genStamp {
	return genStamp{epoch: c.epoch.Load(), gen: s.gens[userID]}
}

func (c *PermissionCache) generation(userID uint) genStamp {
	s := c.stripe(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.stampLocked(s, userID)
}

// Resolve returns the permission set of userID, loading it on a miss.
func (c *PermissionCache) Resolve(ctx context.Context, userID uint) (PermissionSet, error) {
	key := c.key(userID)

	names, ok, err := c.backend.get(ctx, key)
	if err != nil {
		c.log.Warnw("permission cache read failed", "key", key, "error", err)
	}
	if ok {
		c.hits.Add(1)
		return NewPermissionSet(names...), nil
	}
	c.misses.Add(1)

	gen := c.generation(userID)
	v, err, _ := c.group.Do(key+"@"+gen.String(), func() (any, error) {
		// Shared by every caller joining this flight.
		loadCtx := context.WithoutCancel(ctx)
		names, err := c.load(loadCtx, userID)
		if err != nil {
			return nil, err
		}

		s := c.stripe(userID)
		s.mu.Lock()
		defer s.mu.Unlock()
		if c.stampLocked(s, userID) == gen {
			if err := c.backend.set(loadCtx, key, names); err != nil {
				c.log.Warnw("permission cache write failed", "key", key, "error", err)
			}
		}
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return NewPermissionSet(v.([]string)...), nil
}

// Invalidate drops the cached set of userID.
func (c *PermissionCache) Invalidate(ctx context.Context, userID uint) error {
	key := c.key(userID)

	s := c.stripe(userID)
	s.mu.Lock()
	s.gens[userID]++
	s.mu.Unlock()

	if err := c.backend.del(ctx, key); err != nil {
		return fmt.Errorf("invalidate %s: %w", key, err)
	}
	return nil
}

// InvalidateRole drops the cached set of every user holding roleID.
func (c *PermissionCache) InvalidateRole(ctx context.Context, roleID uint) error {
	if c.members == nil {
		return c.InvalidateAll(ctx)
	}
	ids, err := c.members(ctx, roleID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := c.Invalidate(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// InvalidateAll drops every cached set under the cache prefix. The new
// epoch makes per-user counters redundant, so they are reset.
func (c *PermissionCache) InvalidateAll(ctx context.Context) error {
	for i := range c.stripes {
		c.stripes[i].mu.Lock()
	}
	c.epoch.Add(1)
	for i := range c.stripes {
		clear(c.stripes[i].gens)
		c.stripes[i].mu.Unlock()
	}

	if err := c.backend.purge(ctx, c.prefix+"user:"); err != nil {
		return fmt.Errorf("invalidate all: %w", err)
	}
	return nil
}

// Stats reports hit and miss counters.
func (c *PermissionCache) Stats() CacheStats {
	return CacheStats{
		Backend: c.kind,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		TTL:     c.ttl.String(),
	}
}
