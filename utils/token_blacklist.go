package utils

import (
	"context"
	"sync"
	"time"
)

const blacklistKeyPrefix = "lifeflow:jwt:blacklist:"

var (
	blacklist   = map[string]time.Time{}
	blacklistMu sync.Mutex
)

// BlacklistToken revokes a token until its natural expiry. Redis is used
// when configured, an in-process map otherwise.
func BlacklistToken(ctx context.Context, token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, blacklistKeyPrefix+token, "1", ttl).Err(); err == nil {
			return
		}
		Sugar.Warn("redis blacklist write failed, falling back to memory")
	}
	blacklistMu.Lock()
	defer blacklistMu.Unlock()
	now := time.Now()
	for t, exp := range blacklist {
		if now.After(exp) {
			delete(blacklist, t)
		}
	}
	blacklist[token] = expiresAt
}

// IsTokenBlacklisted checks if a token was revoked before natural expiration.
func IsTokenBlacklisted(ctx context.Context, token string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, blacklistKeyPrefix+token).Result()
		if err == nil && n > 0 {
			return true
		}
	}
	blacklistMu.Lock()
	defer blacklistMu.Unlock()
	exp, ok := blacklist[token]
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		delete(blacklist, token)
		return false
	}
	return true
}
