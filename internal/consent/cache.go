package consent

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/relaydesk/telephony/pkg/logging"
)

const cacheTTL = 5 * time.Minute

// Cache is a read-through Redis cache over the ledger's CurrentStatus. A nil
// Redis client disables caching and every lookup hits Postgres.
type Cache struct {
	ledger *Ledger
	redis  *redis.Client
	logger *logging.Logger
}

func NewCache(ledger *Ledger, redisClient *redis.Client, logger *logging.Logger) *Cache {
	if logger == nil {
		logger = logging.Default()
	}
	return &Cache{ledger: ledger, redis: redisClient, logger: logger}
}

// Record appends through to the ledger and invalidates the cached status.
func (c *Cache) Record(ctx context.Context, e164 string, channel string, status Status, source string) error {
	if c.ledger == nil {
		return fmt.Errorf("consent: cache: ledger not configured")
	}
	if err := c.ledger.Record(ctx, e164, channel, status, source); err != nil {
		return err
	}
	if c.redis != nil {
		if err := c.redis.Del(ctx, c.key(e164)).Err(); err != nil {
			// Stale for at most the TTL; the write of record already landed.
			c.logger.Warn("consent cache invalidation failed", "error", err, "e164", e164)
		}
	}
	return nil
}

// CurrentStatus consults the cache before the ledger.
func (c *Cache) CurrentStatus(ctx context.Context, e164 string) (Status, bool, error) {
	if c.redis != nil {
		value, err := c.redis.Get(ctx, c.key(e164)).Result()
		if err == nil {
			if value == "none" {
				return "", false, nil
			}
			return Status(value), true, nil
		}
		if err != redis.Nil {
			c.logger.Warn("consent cache read failed", "error", err, "e164", e164)
		}
	}

	status, known, err := c.ledger.CurrentStatus(ctx, e164)
	if err != nil {
		return "", false, err
	}
	if c.redis != nil {
		value := "none"
		if known {
			value = string(status)
		}
		if err := c.redis.Set(ctx, c.key(e164), value, cacheTTL).Err(); err != nil {
			c.logger.Warn("consent cache write failed", "error", err, "e164", e164)
		}
	}
	return status, known, nil
}

func (c *Cache) key(e164 string) string {
	return "consent:" + e164
}
