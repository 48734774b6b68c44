package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"academybook/internal/domain"
)

const contactCacheTTL = time.Hour

// CachedContactResolver is a read-through redis cache over the store-backed
// resolver, same contract as the device-token cache: cache trouble falls
// through to the store instead of failing the dispatch.
type CachedContactResolver struct {
	rdb   *redis.Client
	store ContactResolver
	log   *zap.Logger
}

func NewCachedContactResolver(rdb *redis.Client, store ContactResolver, log *zap.Logger) *CachedContactResolver {
	return &CachedContactResolver{rdb: rdb, store: store, log: log}
}

func (r *CachedContactResolver) ContactForUser(ctx context.Context, userID int64) (domain.Contact, error) {
	key := contactCacheKey(userID)

	raw, err := r.rdb.Get(ctx, key).Result()
	if err == nil {
		var c domain.Contact
		if jsonErr := json.Unmarshal([]byte(raw), &c); jsonErr == nil {
			return c, nil
		}
	}
	if err != nil && err != redis.Nil {
		r.log.Debug("contact cache read failed", zap.Int64("user_id", userID), zap.Error(err))
	}

	contact, err := r.store.ContactForUser(ctx, userID)
	if err != nil {
		return domain.Contact{}, err
	}

	if raw, err := json.Marshal(contact); err == nil {
		if err := r.rdb.Set(ctx, key, raw, contactCacheTTL).Err(); err != nil {
			r.log.Debug("contact cache write failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return contact, nil
}

func contactCacheKey(userID int64) string {
	return fmt.Sprintf("user-contact:%d", userID)
}
