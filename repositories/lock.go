package repositories

import (
	"HospitalBooking/database"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	lockTTL        = 10 * time.Second
	lockMaxRetries = 3
	lockRetryDelay = 2 * time.Second
)

// withLock runs fn while holding the Redis lock for key.
func withLock(ctx context.Context, locker *database.Locker, log zerolog.Logger, key string, fn func() error) error {
	lockValue := uuid.New().String()

	var locked bool
	var err error
	for i := 0; i < lockMaxRetries; i++ {
		locked, err = locker.NewLock(ctx, key, lockValue, lockTTL)
		if err == nil && locked {
			break
		}
		if i < lockMaxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(lockRetryDelay):
			}
		}
	}
	if !locked {
		if err == nil {
			return fmt.Errorf("failed to acquire lock %s after retries: held by another request", key)
		}
		return fmt.Errorf("failed to acquire lock after retries: %w", err)
	}
	defer func() {
		if err := locker.ReleaseLock(ctx, key, lockValue); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to release lock")
		}
	}()

	return fn()
}
