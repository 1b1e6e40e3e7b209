package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

type pool struct {
	Slug  string   `json:"slug"`
	Items []string `json:"items"`
}

func TestCacheHelper_SetGet(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	h := NewCacheHelper(client, "pool:")

	if err := h.Set(ctx, "bank:maths", pool{Slug: "maths", Items: []string{"q1"}}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !mr.Exists("pool:bank:maths") {
		t.Fatal("key should be stored with its prefix")
	}

	var got pool
	if err := h.Get(ctx, "bank:maths", &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Slug != "maths" || len(got.Items) != 1 {
		t.Errorf("Get() = %+v", got)
	}

	if err := h.Get(ctx, "bank:missing", &got); !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrCacheNotFound", err)
	}
}

func TestCacheHelper_NilClient(t *testing.T) {
	ctx := context.Background()
	h := NewCacheHelper(nil, "x:")

	if h.Available() {
		t.Error("helper without client should not be available")
	}
	if err := h.Set(ctx, "k", 1, time.Minute); err != nil {
		t.Errorf("Set() error = %v", err)
	}
	var v int
	if err := h.Get(ctx, "k", &v); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("Get() error = %v, want ErrCacheNotAvailable", err)
	}

	calls := 0
	err := h.CacheOrExecute(ctx, "k", &v, time.Minute, func() (interface{}, error) {
		calls++
		return 7, nil
	})
	if err != nil || v != 7 || calls != 1 {
		t.Errorf("CacheOrExecute() v=%d calls=%d err=%v", v, calls, err)
	}
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	h := NewCacheHelper(client, "leaderboard:")

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return []string{"alice", "bob"}, nil
	}

	for i := 0; i < 3; i++ {
		var got []string
		if err := h.CacheOrExecute(ctx, LeaderboardTopKey, &got, time.Minute, fetch); err != nil {
			t.Fatalf("CacheOrExecute() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %v", got)
		}
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}

	failing := func() (interface{}, error) { return nil, errors.New("db down") }
	var out []string
	if err := h.CacheOrExecute(ctx, "other", &out, time.Minute, failing); err == nil {
		t.Error("fetch errors should be returned")
	}
}

func TestCacheHelper_InvalidatePattern(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	cm := NewCacheManager(client)

	for _, key := range []string{"top", "page:1", "page:2"} {
		if err := cm.Leaderboard.Set(ctx, key, 1, time.Minute); err != nil {
			t.Fatal(err)
		}
	}
	if err := cm.Stats.Set(ctx, "u-1", 1, time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := cm.Pool.Set(ctx, PoolKey("maths"), 1, time.Minute); err != nil {
		t.Fatal(err)
	}

	InvalidateLeaderboard(ctx, cm, "u-1")

	for _, key := range []string{"leaderboard:top", "leaderboard:page:1", "leaderboard:page:2", "stats:u-1"} {
		if mr.Exists(key) {
			t.Errorf("%s should be invalidated", key)
		}
	}
	if !mr.Exists("pool:bank:maths") {
		t.Error("pool keys must survive a leaderboard invalidation")
	}

	InvalidatePool(ctx, cm, "maths")
	if mr.Exists("pool:bank:maths") {
		t.Error("pool key should be deleted")
	}
}

func TestCacheManager_HealthCheck(t *testing.T) {
	ctx := context.Background()
	if err := NewCacheManager(nil).HealthCheck(ctx); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("HealthCheck() error = %v", err)
	}

	mr, client := newTestClient(t)
	cm := NewCacheManager(client)
	if err := cm.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	mr.Close()
	if err := cm.HealthCheck(ctx); err == nil {
		t.Error("expected an error after redis went away")
	}
}
