package rbac

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bohemiyan/tenant-rbac/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is a mutable permission source for cache tests.
type fakeSource struct {
	mu    sync.Mutex
	perms map[uint][]string
	loads atomic.Int32
}

func (f *fakeSource) set(userID uint, names ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.perms[userID] = names
}

func (f *fakeSource) load(_ context.Context, userID uint) ([]string, error) {
	f.loads.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	names, ok := f.perms[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]string(nil), names...), nil
}

func cacheBackends(t *testing.T) map[string]CacheOptions {
	_, client := testutil.NewRedis(t)
	return map[string]CacheOptions{
		"memory": {},
		"redis":  {Redis: client},
	}
}

func TestPermissionCacheResolveAndInvalidate(t *testing.T) {
	for name, opts := range cacheBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			src := &fakeSource{perms: map[uint][]string{}}
			src.set(1, "read.company")
			c := NewPermissionCache(opts, src.load, nil)

			set, err := c.Resolve(ctx, 1)
			require.NoError(t, err)
			assert.True(t, set.Has("read.company"))

			_, err = c.Resolve(ctx, 1)
			require.NoError(t, err)
			assert.EqualValues(t, 1, src.loads.Load(), "second resolve is served from the cache")

			src.set(1, "read.company", "create.company")
			set, err = c.Resolve(ctx, 1)
			require.NoError(t, err)
			assert.False(t, set.Has("create.company"), "stale until invalidated")

			require.NoError(t, c.Invalidate(ctx, 1))
			set, err = c.Resolve(ctx, 1)
			require.NoError(t, err)
			assert.True(t, set.Has("create.company"))

			stats := c.Stats()
			assert.Equal(t, name, stats.Backend)
			assert.EqualValues(t, 2, stats.Hits)
			assert.EqualValues(t, 2, stats.Misses)
		})
	}
}

func TestPermissionCacheDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{perms: map[uint][]string{}}
	c := NewPermissionCache(CacheOptions{}, src.load, nil)

	_, err := c.Resolve(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)

	src.set(7, "read.employee")
	set, err := c.Resolve(ctx, 7)
	require.NoError(t, err)
	assert.True(t, set.Has("read.employee"))
}

func TestPermissionCacheRedisKeyAndTTL(t *testing.T) {
	mr, client := testutil.NewRedis(t)
	ctx := context.Background()
	src := &fakeSource{perms: map[uint][]string{42: {"read.employee"}}}
	c := NewPermissionCache(CacheOptions{Redis: client, Prefix: "test:"}, src.load, nil)

	_, err := c.Resolve(ctx, 42)
	require.NoError(t, err)

	key := "test:user:42:permissions"
	require.True(t, mr.Exists(key))
	assert.Equal(t, 3600*time.Second, mr.TTL(key))

	raw, err := mr.Get(key)
	require.NoError(t, err)
	assert.JSONEq(t, `["read.employee"]`, raw)

	mr.FastForward(3601 * time.Second)
	assert.False(t, mr.Exists(key))
}

func TestPermissionCacheInvalidateDuringLoad(t *testing.T) {
	for name, opts := range cacheBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			started := make(chan struct{})
			release := make(chan struct{})
			var calls atomic.Int32

			load := func(context.Context, uint) ([]string, error) {
				if calls.Add(1) == 1 {
					close(started)
					<-release
					return []string{"read.company"}, nil
				}
				return []string{"read.company", "update.company"}, nil
			}
			c := NewPermissionCache(opts, load, nil)

			done := make(chan PermissionSet)
			go func() {
				set, err := c.Resolve(ctx, 1)
				assert.NoError(t, err)
				done <- set
			}()

			<-started
			require.NoError(t, c.Invalidate(ctx, 1))
			close(release)
			<-done

			set, err := c.Resolve(ctx, 1)
			require.NoError(t, err)
			assert.True(t, set.Has("update.company"), "a load started before invalidation is never cached")
		})
	}
}

func TestPermissionCacheCollapsesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	var calls atomic.Int32
	load := func(context.Context, uint) ([]string, error) {
		calls.Add(1)
		<-release
		return []string{"read.company"}, nil
	}
	c := NewPermissionCache(CacheOptions{}, load, nil)

	var ready, wg sync.WaitGroup
	for range 8 {
		ready.Add(1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			ready.Done()
			_, err := c.Resolve(ctx, 3)
			assert.NoError(t, err)
		}()
	}
	ready.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load(), "concurrent misses share one load")
}

func TestPermissionCacheLoadSurvivesFirstCallerCancel(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context, _ uint) ([]string, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return []string{"read.company"}, nil
	}
	c := NewPermissionCache(CacheOptions{}, load, nil)

	first, cancel := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := c.Resolve(first, 5)
		firstDone <- err
	}()
	<-started

	secondDone := make(chan error, 1)
	go func() {
		set, err := c.Resolve(context.Background(), 5)
		if err == nil && !set.Has("read.company") {
			err = assert.AnError
		}
		secondDone <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	close(release)
	assert.NoError(t, <-firstDone)
	assert.NoError(t, <-secondDone, "one caller's cancellation does not fail the shared load")
}

func TestPermissionCacheInvalidateAllResetsCounters(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	load := func(context.Context, uint) ([]string, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			return []string{"stale.perm"}, nil
		}
		return []string{"fresh.perm"}, nil
	}
	c := NewPermissionCache(CacheOptions{}, load, nil)

	for id := uint(1); id <= 100; id++ {
		require.NoError(t, c.Invalidate(ctx, id))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := c.Resolve(ctx, 1)
		assert.NoError(t, err)
	}()
	<-started

	require.NoError(t, c.InvalidateAll(ctx))
	for i := range c.stripes {
		assert.Empty(t, c.stripes[i].gens)
	}

	close(release)
	<-done

	set, err := c.Resolve(ctx, 1)
	require.NoError(t, err)
	assert.True(t, set.Has("fresh.perm"), "a load from before the reset is not written back")
}

func TestPermissionCacheInvalidateRoleAndAll(t *testing.T) {
	for name, opts := range cacheBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			src := &fakeSource{perms: map[uint][]string{1: {"a.b"}, 2: {"a.b"}, 3: {"a.b"}}}
			members := func(_ context.Context, roleID uint) ([]uint, error) {
				if roleID == 10 {
					return []uint{1, 2}, nil
				}
				return nil, nil
			}
			c := NewPermissionCache(opts, src.load, members)

			for id := uint(1); id <= 3; id++ {
				_, err := c.Resolve(ctx, id)
				require.NoError(t, err)
			}
			for id := uint(1); id <= 3; id++ {
				src.set(id, "c.d")
			}

			require.NoError(t, c.InvalidateRole(ctx, 10))
			for id, want := range map[uint]string{1: "c.d", 2: "c.d", 3: "a.b"} {
				set, err := c.Resolve(ctx, id)
				require.NoError(t, err)
				assert.True(t, set.Has(want), "user %d", id)
			}

			require.NoError(t, c.InvalidateAll(ctx))
			set, err := c.Resolve(ctx, 3)
			require.NoError(t, err)
			assert.True(t, set.Has("c.d"))
		})
	}
}

func TestPermissionSetNames(t *testing.T) {
	set := NewPermissionSet("read.manager", "create.company", "read.company")
	assert.Equal(t, []string{"create.company", "read.company", "read.manager"}, set.Names())
	assert.False(t, set.Has("delete.company"))
}
