package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const tokenCacheTTL = time.Hour

// CachedTokenResolver is a read-through redis cache over the store-backed
// resolver. Cache trouble never fails the push path, it just falls through
// to the store.
type CachedTokenResolver struct {
	rdb   *redis.Client
	store TokenResolver
	log   *zap.Logger
}

func NewCachedTokenResolver(rdb *redis.Client, store TokenResolver, log *zap.Logger) *CachedTokenResolver {
	return &CachedTokenResolver{rdb: rdb, store: store, log: log}
}

func (r *CachedTokenResolver) TokenForUser(ctx context.Context, userID int64) (string, error) {
	key := tokenCacheKey(userID)

	token, err := r.rdb.Get(ctx, key).Result()
	if err == nil && token != "" {
		return token, nil
	}
	if err != nil && err != redis.Nil {
		r.log.Debug("token cache read failed", zap.Int64("user_id", userID), zap.Error(err))
	}

	token, err = r.store.TokenForUser(ctx, userID)
	if err != nil {
		return "", err
	}

	if err := r.rdb.Set(ctx, key, token, tokenCacheTTL).Err(); err != nil {
		r.log.Debug("token cache write failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	return token, nil
}

func tokenCacheKey(userID int64) string {
	return fmt.Sprintf("push-token:%d", userID)
}
