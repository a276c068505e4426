package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"recovery-engine/internal/logger"
	"recovery-engine/pkg/models"
)

// RedisProfileCache stores payment profiles in Redis with a TTL. Cache
// failures are logged and treated as misses.
type RedisProfileCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRedisProfileCache connects a cache to the Redis instance at addr.
func NewRedisProfileCache(addr string, ttl time.Duration) *RedisProfileCache {
	return &RedisProfileCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
		log:    logger.WithComponent("profile-cache"),
	}
}

func (c *RedisProfileCache) Get(ctx context.Context, customerID string) (models.PaymentProfile, bool) {
	val, err := c.client.Get(ctx, profileKey(customerID)).Result()
	if err != nil {
		return models.PaymentProfile{}, false
	}

	var profile models.PaymentProfile
	if err := json.Unmarshal([]byte(val), &profile); err != nil {
		c.log.Warn().
			Err(err).
			Str("customer_id", customerID).
			Msg("Discarding unreadable cached profile")
		return models.PaymentProfile{}, false
	}
	return profile, true
}

func (c *RedisProfileCache) Set(ctx context.Context, customerID string, profile models.PaymentProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, profileKey(customerID), data, c.ttl).Err()
}

func profileKey(customerID string) string {
	return "payment-profile:" + customerID
}
