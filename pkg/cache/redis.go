package cache

import (
	"context"
	"fmt"
	"time"

	"parking-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient returns nil when no address is configured.
func NewRedisClient(cfg utils.RedisConfig) *redis.Client {
	if cfg.Address == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SweepLock keeps concurrent lifecycle sweeps from several instances from
// doing duplicate work. Correctness does not depend on it: every transition
// is a compare-and-swap in PostgreSQL.
type SweepLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	log    *zap.Logger
}

func NewSweepLock(client *redis.Client, ttl time.Duration, log *zap.Logger) *SweepLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SweepLock{
		client: client,
		key:    "parking-booking:lifecycle-sweep",
		ttl:    ttl,
		log:    log.With(zap.String("component", "sweep_lock")),
	}
}

// TryLock returns acquired=false when another holder owns the lock.
func (l *SweepLock) TryLock(ctx context.Context) (func(context.Context) error, bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		l.log.Error("Failed to acquire sweep lock", zap.Error(err))
		return nil, false, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	unlock := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			l.log.Warn("Failed to release sweep lock", zap.Error(err))
			return fmt.Errorf("release sweep lock: %w", err)
		}
		return nil
	}
	return unlock, true, nil
}
