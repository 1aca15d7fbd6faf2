package ratelimit

import (
	"context"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/offsession/internal/config"
)

const keyChargeEmail = "offsession:ratelimit:charge:"

// ChargeLimiter bounds charge attempts per email. A nil limiter allows
// everything.
type ChargeLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewChargeLimiter(cfg config.Config, client *redis.Client) *ChargeLimiter {
	if !cfg.RateLimit.Enabled || client == nil {
		return nil
	}
	return &ChargeLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.RateLimit.ChargeRate,
		burst:  cfg.RateLimit.ChargeBurst,
	}
}

// Allow reports whether another charge for email may proceed, and how long to
// wait otherwise.
func (l *ChargeLimiter) Allow(ctx context.Context, email string) (bool, time.Duration, error) {
	if l == nil || l.bucket == nil {
		return true, 0, nil
	}
	res, err := l.bucket.Allow(ctx, keyChargeEmail+strings.ToLower(strings.TrimSpace(email)), l.rate, l.burst)
	if err != nil {
		return false, 0, err
	}
	return res.Allowed, res.RetryAfter, nil
}

func parseFloat(v any) float64 {
	switch val := v.(type) {
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0
		}
		return f
	case int64:
		return float64(val)
	case float64:
		return val
	default:
		return 0
	}
}
