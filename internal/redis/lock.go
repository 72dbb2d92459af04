package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("schedule lock not acquired")
)

// Locker guards the re-check-then-write critical section of booking and
// rescheduling. The lock granularity is one practitioner's calendar day, so
// bookings on different days never contend.
type Locker interface {
	WithScheduleLock(ctx context.Context, practitionerID uuid.UUID, date time.Time, fn func(ctx context.Context) error) error
}

type redisScheduleLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisScheduleLocker creates a locker keyed per practitioner and date.
func NewRedisScheduleLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisScheduleLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisScheduleLocker) WithScheduleLock(ctx context.Context, practitionerID uuid.UUID, date time.Time, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:schedule:%s:%s", practitionerID.String(), date.Format("2006-01-02"))
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire schedule lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisScheduleLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release schedule lock: %w", err)
	}
	return nil
}
