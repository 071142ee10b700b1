package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

type LoginChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
}

func NewLoginChecker(ttl time.Duration, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		redisClient: redisClient,
	}
}

func (lc *LoginChecker) IsLogged(ctx context.Context, token string) (string, bool, error) {
	session, err := lc.redisClient.HGetAll(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		return "", false, err
	}

	// missing session key gives an empty map
	username := session[sessionFieldUsername]
	if username == "" {
		return "", false, nil
	}

	createdAtUnix, err := strconv.ParseInt(session[sessionFieldCreatedAt], 10, 64)
	if err != nil {
		return "", false, err
	}

	createdAt := time.Unix(createdAtUnix, 0)
	if time.Since(createdAt) > lc.ttl {
		return "", false, nil
	}

	return username, true, nil
}
