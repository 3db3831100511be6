package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/e-center-api/utils/cache"
	"github.com/sahilchouksey/e-center-api/utils/response"
)

const attemptWindow = 15 * time.Minute

// BruteForceProtection locks out IPs with repeated failed logins. Without
// Redis every request is allowed.
type BruteForceProtection struct {
	redisCache *cache.RedisCache
}

// NewBruteForceProtection creates a new brute force protection instance
func NewBruteForceProtection(redisCache *cache.RedisCache) *BruteForceProtection {
	return &BruteForceProtection{
		redisCache: redisCache,
	}
}

func attemptKey(ip string) string { return "brute_force:attempts:" + ip }
func lockKey(ip string) string    { return "brute_force:lock:" + ip }

// lockDuration applies progressive lockouts by attempt count
func lockDuration(attempts int64) time.Duration {
	switch {
	case attempts >= 25:
		return 24 * time.Hour
	case attempts >= 10:
		return time.Hour
	case attempts >= 5:
		return 2 * time.Minute
	}
	return 0
}

// CheckAndRecordAttempt middleware rejects locked out IPs
func (b *BruteForceProtection) CheckAndRecordAttempt() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()

		locked, err := b.redisCache.Exists(c.UserContext(), lockKey(ip))
		if err != nil || !locked {
			// A cache outage must not block legitimate users
			return c.Next()
		}

		retryAfter := 60
		if ttl, err := b.redisCache.TTL(c.UserContext(), lockKey(ip)); err == nil && ttl > 0 {
			retryAfter = int(ttl.Seconds())
		}

		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		return response.TooManyRequests(c, fmt.Sprintf("Too many failed attempts. Try again in %d seconds", retryAfter))
	}
}

// RecordFailedAttempt counts a failed login of ip and locks it out once the
// count crosses a threshold
func (b *BruteForceProtection) RecordFailedAttempt(ctx context.Context, ip string) error {
	attempts, err := b.redisCache.Increment(ctx, attemptKey(ip))
	if err != nil {
		return nil
	}
	if attempts == 1 {
		_ = b.redisCache.Expire(ctx, attemptKey(ip), attemptWindow)
	}

	if d := lockDuration(attempts); d > 0 {
		return b.redisCache.Set(ctx, lockKey(ip), "locked", d)
	}
	return nil
}

// RecordSuccessfulAttempt clears failed attempts on successful login
func (b *BruteForceProtection) RecordSuccessfulAttempt(ctx context.Context, ip string) {
	_ = b.redisCache.Delete(ctx, attemptKey(ip), lockKey(ip))
}

// AttemptCount returns the current failed attempt count for ip
func (b *BruteForceProtection) AttemptCount(ctx context.Context, ip string) (int, error) {
	val, err := b.redisCache.Get(ctx, attemptKey(ip))
	if cache.IsMiss(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(val)
}
