package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/mrb4ll0/itc-trainee-api/utils/cache"
)

// BlacklistService handles JWT token revocation. Revoked JTIs live in Redis
// with a TTL matching the token's remaining lifetime, so entries expire on
// their own.
type BlacklistService struct {
	redisCache *cache.RedisCache
}

// NewBlacklistService creates a new blacklist service
func NewBlacklistService(redisCache *cache.RedisCache) *BlacklistService {
	return &BlacklistService{redisCache: redisCache}
}

func blacklistKey(jti string) string {
	return fmt.Sprintf("auth:blacklist:%s", jti)
}

// RevokeToken adds a token to the blacklist until it expires
func (s *BlacklistService) RevokeToken(ctx context.Context, jti string, expiresAt time.Time, reason string) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already expired; nothing to revoke
		return nil
	}
	return s.redisCache.Set(ctx, blacklistKey(jti), reason, ttl)
}

// IsTokenRevoked checks if a token is in the blacklist
func (s *BlacklistService) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return s.redisCache.Exists(ctx, blacklistKey(jti))
}
