package cache

import (
	"context"
	"time"
)

// SetNX-based distributed lock. Scheduler ticks (sweep, distribution,
// hunger decay) take one of these so only a single replica runs a tick.
const lockPrefix = "lock"

// TryLock acquires the named lock for ttl. With no Redis configured
// (single-replica dev setup) it always grants the lock.
func TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if client == nil {
		return true, nil
	}

	fullkey := Key(lockPrefix, key)

	result, err := Client().SetNX(ctx, fullkey, 1, ttl).Result()
	if err != nil {
		return false, err
	}

	return result, nil
}

func Unlock(ctx context.Context, key string) error {
	if client == nil {
		return nil
	}

	fullkey := Key(lockPrefix, key)

	return Client().Del(ctx, fullkey).Err()
}
