package blog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const DefaultRedisHashKey = "blogstore:blogs"

var _ Store = (*RedisStore)(nil)

// RedisStore keeps all blogs in a single redis hash, field = blog id, value = JSON record.
type RedisStore struct {
	redisClient *redis.Client
	hashKey     string
}

func NewRedisStore(redisClient *redis.Client, hashKey string) *RedisStore {
	if hashKey == "" {
		hashKey = DefaultRedisHashKey
	}
	return &RedisStore{
		redisClient: redisClient,
		hashKey:     hashKey,
	}
}

func (s *RedisStore) Put(ctx context.Context, id string, blog *Blog) error {
	blogJson, err := json.Marshal(blog)
	if err != nil {
		return fmt.Errorf("marshal blog %s: %w", id, err)
	}
	if err := s.redisClient.HSet(ctx, s.hashKey, id, string(blogJson)).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Blog, error) {
	blogJson, err := s.redisClient.HGet(ctx, s.hashKey, id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrBlogNotFound
		}
		return nil, fmt.Errorf("redis hget %s: %w", id, err)
	}
	return unmarshalBlog(id, blogJson)
}

func (s *RedisStore) Values(ctx context.Context) ([]*Blog, error) {
	all, err := s.redisClient.HGetAll(ctx, s.hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}

	blogs := make([]*Blog, 0, len(all))
	for _, id := range slices.Sorted(maps.Keys(all)) {
		b, err := unmarshalBlog(id, all[id])
		if err != nil {
			return nil, err
		}
		blogs = append(blogs, b)
	}
	return blogs, nil
}

func (s *RedisStore) Remove(ctx context.Context, id string) (*Blog, error) {
	blog, err := s.Get(ctx, id)
	if errors.Is(err, ErrBlogNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	removed, err := s.redisClient.HDel(ctx, s.hashKey, id).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hdel %s: %w", id, err)
	}
	if removed == 0 {
		// removed concurrently by someone else in the meantime
		log.Tracef("blog %s already removed from redis", id)
	}
	return blog, nil
}

func unmarshalBlog(id, blogJson string) (*Blog, error) {
	b := &Blog{}
	if err := json.Unmarshal([]byte(blogJson), b); err != nil {
		return nil, fmt.Errorf("unmarshal blog %s: %w", id, err)
	}
	return b, nil
}
