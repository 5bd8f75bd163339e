package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultTokenStorePrefix = "spruce:credentials"

// TokenStore persists the refresh credential in Redis, using the key TTL as its expiration.
type TokenStore struct {
	client *red.Client
	prefix string
	logger *zap.Logger
	now    func() time.Time
}

// NewTokenStore constructs a Redis-backed refresh credential store.
func NewTokenStore(client *red.Client, keyPrefix string, logger *zap.Logger) *TokenStore {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultTokenStorePrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TokenStore{
		client: client,
		prefix: prefix,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *TokenStore) WithClock(clock func() time.Time) *TokenStore {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Read returns the stored refresh credential, or "" on a miss or any Redis failure.
func (s *TokenStore) Read(ctx context.Context) string {
	value, err := s.client.Get(ctx, s.key()).Result()
	if err != nil {
		if !errors.Is(err, red.Nil) {
			s.logger.Warn("refresh token read failed, treating as absent", zap.Error(err))
		}
		return ""
	}
	return strings.TrimSpace(value)
}

// Save stores the credential until expiresAt (epoch seconds); 0 keeps it without a TTL.
// A credential that is already expired is not stored and any previous one is removed.
func (s *TokenStore) Save(ctx context.Context, token string, expiresAt int64) {
	if err := s.save(ctx, token, expiresAt); err != nil {
		s.logger.Warn("refresh token save failed", zap.Error(err))
	}
}

func (s *TokenStore) save(ctx context.Context, token string, expiresAt int64) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return s.client.Del(ctx, s.key()).Err()
	}

	var ttl time.Duration
	if expiresAt > 0 {
		ttl = time.Unix(expiresAt, 0).Sub(s.now())
		if ttl <= 0 {
			return s.client.Del(ctx, s.key()).Err()
		}
	}

	if err := s.client.Set(ctx, s.key(), token, ttl).Err(); err != nil {
		return fmt.Errorf("redis set refresh token: %w", err)
	}
	return nil
}

// Clear removes the stored credential.
func (s *TokenStore) Clear(ctx context.Context) {
	if err := s.client.Del(ctx, s.key()).Err(); err != nil {
		s.logger.Warn("refresh token clear failed", zap.Error(err))
	}
}

func (s *TokenStore) key() string {
	return fmt.Sprintf("%s:refresh", s.prefix)
}
