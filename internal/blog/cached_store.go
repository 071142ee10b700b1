package blog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const (
	megabyte         = 1024 * 1024
	DefaultCacheSize = 32 * megabyte
	DefaultCacheTTL  = time.Hour
)

var _ Store = (*CachedStore)(nil)

// CachedStore is a read-through cache in front of another store.
// Writes go to the backing store first, then refresh the cache.
// Values always goes to the backing store.
type CachedStore struct {
	store         Store
	cache         *freecache.Cache
	expireSeconds int
}

func NewCachedStore(store Store, cacheSize int, ttl time.Duration) *CachedStore {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{
		store:         store,
		cache:         freecache.NewCache(cacheSize),
		expireSeconds: int(ttl.Seconds()),
	}
}

func (s *CachedStore) Put(ctx context.Context, id string, blog *Blog) error {
	if err := s.store.Put(ctx, id, blog); err != nil {
		// the backing store may or may not hold the new value now
		s.cache.Del([]byte(id))
		return err
	}
	s.setCached(id, blog)
	return nil
}

func (s *CachedStore) Get(ctx context.Context, id string) (*Blog, error) {
	if cached, err := s.cache.Get([]byte(id)); err == nil {
		b := &Blog{}
		if err := json.Unmarshal(cached, b); err == nil {
			return b, nil
		}
		log.Warnf("cached blog %s corrupted, dropping it", id)
		s.cache.Del([]byte(id))
	} else if !errors.Is(err, freecache.ErrNotFound) {
		log.Warnf("get cached blog %s: %s", id, err)
	}

	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.setCached(id, b)
	return b, nil
}

func (s *CachedStore) Values(ctx context.Context) ([]*Blog, error) {
	return s.store.Values(ctx)
}

func (s *CachedStore) Remove(ctx context.Context, id string) (*Blog, error) {
	s.cache.Del([]byte(id))
	return s.store.Remove(ctx, id)
}

func (s *CachedStore) HitCount() int64 {
	return s.cache.HitCount()
}

func (s *CachedStore) MissCount() int64 {
	return s.cache.MissCount()
}

func (s *CachedStore) EntryCount() int64 {
	return s.cache.EntryCount()
}

func (s *CachedStore) setCached(id string, blog *Blog) {
	blogJson, err := json.Marshal(blog)
	if err != nil {
		log.Errorf("marshal blog %s for cache: %s", id, err)
		return
	}
	if err := s.cache.Set([]byte(id), blogJson, s.expireSeconds); err != nil {
		log.Warnf("cache blog %s: %s", id, err)
	}
}
