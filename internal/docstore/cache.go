// AngelaMos | 2026
// cache.go

package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const versionSuffix = "#v"

// CachedStore is a read-through Redis cache in front of another Store.
// Redis failures never fail a request; the cache is skipped instead.
//
// Every write bumps a per-document version before dropping the cached
// copy. A miss records the version before reading the backing store and
// only fills the cache if that version is still current, so a write that
// lands during the miss can never be shadowed by the older document.
type CachedStore struct {
	next         Store
	rdb          redis.UniversalClient
	ttl          time.Duration
	fetchTimeout time.Duration
	prefix       string
	group        singleflight.Group
	logger       *slog.Logger
}

type CacheOptions struct {
	TTL time.Duration
	// FetchTimeout bounds a backing-store read shared by concurrent misses.
	FetchTimeout time.Duration
	Prefix       string
	Logger       *slog.Logger
}

func NewCachedStore(next Store, rdb redis.UniversalClient, opts CacheOptions) *CachedStore {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &CachedStore{
		next:         next,
		rdb:          rdb,
		ttl:          opts.TTL,
		fetchTimeout: opts.FetchTimeout,
		prefix:       opts.Prefix,
		logger:       opts.Logger,
	}
}

func (s *CachedStore) key(collection, id string) string {
	return s.prefix + collection + ":" + id
}

// versionTTL outlives both a cached document and any in-flight miss.
func (s *CachedStore) versionTTL() time.Duration {
	return s.ttl + s.fetchTimeout
}

func (s *CachedStore) Get(
	ctx context.Context,
	collection, id string,
) (json.RawMessage, error) {
	key := s.key(collection, id)

	cached, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		return json.RawMessage(cached), nil
	case !errors.Is(err, redis.Nil):
		s.logger.Warn("document cache read failed, bypassing",
			"error", err,
			"key", key,
		)
	}

	ch := s.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.fill(fetchCtx, collection, id, key)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		data, _ := res.Val.(json.RawMessage) //nolint:errcheck // fill only returns json.RawMessage
		return cloneBytes(data), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fill reads the backing store and caches the result unless a write bumped
// the version in between.
func (s *CachedStore) fill(
	ctx context.Context,
	collection, id, key string,
) (json.RawMessage, error) {
	vkey := key + versionSuffix

	seen, verErr := s.version(ctx, vkey)

	data, err := s.next.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}

	if verErr != nil {
		return data, nil
	}

	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vkey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != seen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, []byte(data), s.ttl)
			return nil
		})
		return err
	}, vkey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		s.logger.Debug("document changed during cache fill, not caching", "key", key)
	default:
		s.logger.Warn("document cache write failed",
			"error", err,
			"key", key,
		)
	}

	return data, nil
}

var errStaleFill = errors.New("document version changed")

func (s *CachedStore) version(ctx context.Context, vkey string) (int64, error) {
	v, err := s.rdb.Get(ctx, vkey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (s *CachedStore) Put(
	ctx context.Context,
	collection, id string,
	data json.RawMessage,
) error {
	if err := s.next.Put(ctx, collection, id, data); err != nil {
		return err
	}
	s.invalidate(ctx, s.key(collection, id))
	return nil
}

func (s *CachedStore) Delete(ctx context.Context, collection, id string) error {
	err := s.next.Delete(ctx, collection, id)
	s.invalidate(ctx, s.key(collection, id))
	return err
}

func (s *CachedStore) List(
	ctx context.Context,
	collection string,
	params ListParams,
) ([]Document, int, error) {
	return s.next.List(ctx, collection, params)
}

func (s *CachedStore) Apply(ctx context.Context, writes []Write) error {
	if err := s.next.Apply(ctx, writes); err != nil {
		return err
	}

	keys := make([]string, 0, len(writes))
	for _, w := range writes {
		keys = append(keys, s.key(w.Collection, w.ID))
	}
	s.invalidate(ctx, keys...)

	return nil
}

func (s *CachedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// invalidate bumps the version of each key and drops the cached copy in
// one transaction.
func (s *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			vkey := key + versionSuffix
			pipe.Incr(ctx, vkey)
			pipe.Expire(ctx, vkey, s.versionTTL())
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		s.logger.Warn("document cache invalidation failed",
			"error", err,
			"keys", keys,
		)
	}
}

var _ Store = (*CachedStore)(nil)
