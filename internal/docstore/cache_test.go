// AngelaMos | 2026
// cache_test.go

package docstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/hotdog/elotto/internal/core"
	"github.com/hotdog/elotto/internal/docstore"
)

const cacheTTL = time.Minute

// unreachableRedis points at a closed port so every command fails fast.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func newCachedStore(t *testing.T, backing docstore.Store) (*docstore.CachedStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return docstore.NewCachedStore(backing, rdb, docstore.CacheOptions{
		TTL:          cacheTTL,
		FetchTimeout: 5 * time.Second,
		Prefix:       "test:",
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}), mr
}

// gatedStore counts reads and, while armed, parks the next read after it
// has fetched its document until release is closed.
type gatedStore struct {
	docstore.Store
	reads   atomic.Int32
	armed   atomic.Bool
	read    chan struct{}
	release chan struct{}
}

func newGatedStore(t *testing.T) *gatedStore {
	return &gatedStore{
		Store:   newMemoryStore(t),
		read:    make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedStore) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	data, err := g.Store.Get(ctx, collection, id)
	g.reads.Add(1)

	if g.armed.CompareAndSwap(true, false) {
		close(g.read)
		<-g.release
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}
	return data, err
}

func mustPut(t *testing.T, s docstore.Store, id, doc string) {
	t.Helper()
	if err := s.Put(context.Background(), "users", id, json.RawMessage(doc)); err != nil {
		t.Fatalf("put %s: %v", id, err)
	}
}

func mustGet(t *testing.T, s docstore.Store, id string) string {
	t.Helper()
	got, err := s.Get(context.Background(), "users", id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return string(got)
}

func TestCachedStore_FailsOpenWhenRedisIsDown(t *testing.T) {
	backing := newMemoryStore(t)
	store := docstore.NewCachedStore(backing, unreachableRedis(t), docstore.CacheOptions{
		TTL:    time.Minute,
		Prefix: "test:",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	ctx := context.Background()

	mustPut(t, store, "d1", `{"name":"a"}`)

	if got := mustGet(t, store, "d1"); got != `{"name":"a"}` {
		t.Errorf("unexpected document %s", got)
	}

	if _, err := store.Get(ctx, "users", "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound from backing store, got %v", err)
	}

	if err := store.Delete(ctx, "users", "d1"); err != nil {
		t.Fatalf("delete through cache: %v", err)
	}
	if _, err := backing.Get(ctx, "users", "d1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected backing document deleted, got %v", err)
	}
}

func TestCachedStore_ServesHitsFromRedis(t *testing.T) {
	backing := newMemoryStore(t)
	store, mr := newCachedStore(t, backing)

	mustPut(t, store, "d1", `{"name":"old"}`)
	mustGet(t, store, "d1")

	if !mr.Exists("test:users:d1") {
		t.Fatal("document not cached after miss")
	}

	// Written behind the cache's back: a hit must not see it.
	mustPut(t, backing, "d1", `{"name":"new"}`)

	if got := mustGet(t, store, "d1"); got != `{"name":"old"}` {
		t.Errorf("Get() = %s, want cached copy", got)
	}
}

func TestCachedStore_EntriesExpire(t *testing.T) {
	backing := newMemoryStore(t)
	store, mr := newCachedStore(t, backing)

	mustPut(t, store, "d1", `{"name":"a"}`)
	mustGet(t, store, "d1")

	if ttl := mr.TTL("test:users:d1"); ttl != cacheTTL {
		t.Errorf("TTL = %v, want %v", ttl, cacheTTL)
	}

	mr.FastForward(cacheTTL + time.Second)

	if mr.Exists("test:users:d1") {
		t.Error("cached document outlived its TTL")
	}
}

func TestCachedStore_WritesInvalidate(t *testing.T) {
	tests := []struct {
		name  string
		write func(ctx context.Context, s docstore.Store) error
		want  string
	}{
		{
			name: "put",
			write: func(ctx context.Context, s docstore.Store) error {
				return s.Put(ctx, "users", "d1", json.RawMessage(`{"name":"new"}`))
			},
			want: `{"name":"new"}`,
		},
		{
			name: "apply",
			write: func(ctx context.Context, s docstore.Store) error {
				return s.Apply(ctx, []docstore.Write{
					{Collection: "users", ID: "d1", Data: json.RawMessage(`{"name":"merged"}`)},
				})
			},
			want: `{"name":"merged"}`,
		},
		{
			name: "delete",
			write: func(ctx context.Context, s docstore.Store) error {
				return s.Delete(ctx, "users", "d1")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mr := newCachedStore(t, newMemoryStore(t))
			ctx := context.Background()

			mustPut(t, store, "d1", `{"name":"old"}`)
			mustGet(t, store, "d1")

			if err := tt.write(ctx, store); err != nil {
				t.Fatalf("write: %v", err)
			}
			if mr.Exists("test:users:d1") {
				t.Fatal("cached copy survived the write")
			}

			got, err := store.Get(ctx, "users", "d1")
			if tt.want == "" {
				if !errors.Is(err, core.ErrNotFound) {
					t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
				}
				return
			}
			if err != nil || string(got) != tt.want {
				t.Errorf("Get() = %s, %v; want %s", got, err, tt.want)
			}
		})
	}
}

func TestCachedStore_WriteDuringMissIsNotShadowed(t *testing.T) {
	backing := newGatedStore(t)
	store, mr := newCachedStore(t, backing)
	ctx := context.Background()

	mustPut(t, backing, "d1", `{"name":"old"}`)
	backing.armed.Store(true)

	done := make(chan string, 1)
	go func() {
		got, _ := store.Get(ctx, "users", "d1")
		done <- string(got)
	}()

	<-backing.read
	mustPut(t, store, "d1", `{"name":"new"}`)
	close(backing.release)

	if got := <-done; got != `{"name":"old"}` {
		t.Fatalf("in-flight Get() = %s, want the document it read", got)
	}
	if mr.Exists("test:users:d1") {
		t.Error("miss cached a document older than the last write")
	}
	if got := mustGet(t, store, "d1"); got != `{"name":"new"}` {
		t.Errorf("Get() after write = %s, want new document", got)
	}
}

func TestCachedStore_ConcurrentMissesShareOneRead(t *testing.T) {
	backing := newGatedStore(t)
	store, _ := newCachedStore(t, backing)

	mustPut(t, backing, "d1", `{"name":"a"}`)
	backing.armed.Store(true)

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan string, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		got, _ := store.Get(context.Background(), "users", "d1")
		results <- string(got)
	}()
	<-backing.read

	for range callers - 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, _ := store.Get(context.Background(), "users", "d1")
			results <- string(got)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(backing.release)
	wg.Wait()
	close(results)

	for got := range results {
		if got != `{"name":"a"}` {
			t.Errorf("Get() = %s", got)
		}
	}
	if n := backing.reads.Load(); n != 1 {
		t.Errorf("backing reads = %d, want 1", n)
	}
}

func TestCachedStore_CancelledCallerDoesNotFailOthers(t *testing.T) {
	backing := newGatedStore(t)
	store, mr := newCachedStore(t, backing)

	mustPut(t, backing, "d1", `{"name":"a"}`)
	backing.armed.Store(true)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := store.Get(leaderCtx, "users", "d1")
		leaderErr <- err
	}()
	<-backing.read

	follower := make(chan error, 1)
	go func() {
		got, err := store.Get(context.Background(), "users", "d1")
		if err == nil && string(got) != `{"name":"a"}` {
			err = errors.New("unexpected document " + string(got))
		}
		follower <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller error = %v, want context.Canceled", err)
	}

	close(backing.release)
	if err := <-follower; err != nil {
		t.Fatalf("waiting caller error = %v, want nil", err)
	}
	if !mr.Exists("test:users:d1") {
		t.Error("shared read was not cached")
	}
}
