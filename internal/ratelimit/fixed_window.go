package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// ClaimLimiter bounds how many piece claims one caller may attempt per
// minute. It is Redis-backed so the bound holds across replicas.
type ClaimLimiter struct {
	perMinute int
	window    time.Duration

	redisClient *redis.Client
	redisPrefix string
}

// NewClaimLimiter creates a Redis-backed fixed-window claim limiter.
func NewClaimLimiter(addr, password string, perMinute int) (*ClaimLimiter, error) {
	if perMinute <= 0 {
		return nil, errors.New("claim limiter requires a positive per-minute limit")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("claim limiter redis addr is required")
	}
	return &ClaimLimiter{
		perMinute: perMinute,
		window:    time.Minute,
		redisClient: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		redisPrefix: "hatim:claims",
	}, nil
}

// Allow returns true when the caller is within quota.
// On Redis failures, it fails closed and returns false.
func (l *ClaimLimiter) Allow(caller string) bool {
	if l == nil {
		return false
	}
	caller = strings.TrimSpace(caller)
	if caller == "" {
		caller = "unknown"
	}
	windowMs := l.window.Milliseconds()
	windowSlot := time.Now().UTC().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s:%s:%d", l.redisPrefix, caller, windowSlot)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := fixedWindowScript.Run(ctx, l.redisClient, []string{redisKey}, windowMs).Int64()
	if err != nil {
		return false
	}
	return res <= int64(l.perMinute)
}
