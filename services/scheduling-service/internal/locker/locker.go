package locker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotOwner is returned by Unlock when the key is held under another token.
var ErrNotOwner = errors.New("lock not owned by this client")

// DefaultTTL bounds how long a crashed holder can keep a slot locked.
const DefaultTTL = 10 * time.Second

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
if redis.call("EXISTS", KEYS[1]) == 1 then
	return -1
end
return 0
`)

// Locker hands out short-lived exclusive locks backed by Redis SET NX.
type Locker struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

func New(rdb redis.Cmdable, prefix string, ttl time.Duration, logger *slog.Logger) *Locker {
	if prefix == "" {
		prefix = "fitoclin:lock:"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Locker{rdb: rdb, prefix: prefix, ttl: ttl, logger: logger}
}

// TryLock attempts to take key without waiting. ok is false when somebody else holds it.
func (l *Locker) TryLock(ctx context.Context, key string) (token string, ok bool, err error) {
	token = uuid.NewString()
	ok, err = l.rdb.SetNX(ctx, l.prefix+key, token, l.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("lock %s: %w", key, err)
	}
	if !ok {
		l.logger.Debug("lock busy", "key", key)
		return "", false, nil
	}
	return token, true, nil
}

// Unlock releases key if it is still held under token. An expired lock is not an error.
func (l *Locker) Unlock(ctx context.Context, key, token string) error {
	res, err := releaseScript.Run(ctx, l.rdb, []string{l.prefix + key}, token).Int64()
	if err != nil {
		return fmt.Errorf("unlock %s: %w", key, err)
	}
	if res < 0 {
		return ErrNotOwner
	}
	if res == 0 {
		l.logger.Warn("lock expired before release", "key", key, "ttl", l.ttl.String())
	}
	return nil
}

// SlotKey names the lock guarding one doctor's slot.
func SlotKey(doctorID string, startsAt time.Time) string {
	return fmt.Sprintf("slot:%s:%d", doctorID, startsAt.Unix())
}
