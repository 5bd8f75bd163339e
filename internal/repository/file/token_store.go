package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

type credentials struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

// TokenStore persists the refresh credential as a JSON credentials file.
type TokenStore struct {
	path   string
	logger *zap.Logger
	now    func() time.Time
}

// NewTokenStore constructs a file-backed refresh credential store at path.
func NewTokenStore(path string, logger *zap.Logger) *TokenStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenStore{path: path, logger: logger, now: time.Now}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *TokenStore) WithClock(clock func() time.Time) *TokenStore {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Path returns the credentials file location.
func (s *TokenStore) Path() string {
	return s.path
}

// Read returns the stored refresh credential, or "" when the file is missing,
// unreadable, malformed or past its expiration.
func (s *TokenStore) Read(_ context.Context) string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("credentials file unreadable, treating as absent", zap.String("path", s.path), zap.Error(err))
		}
		return ""
	}

	var creds credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		s.logger.Warn("credentials file malformed, treating as absent", zap.String("path", s.path), zap.Error(err))
		return ""
	}

	if creds.ExpiresAt > 0 && !time.Unix(creds.ExpiresAt, 0).After(s.now()) {
		return ""
	}

	return strings.TrimSpace(creds.Token)
}

// Save writes the credential with its expiration (epoch seconds, 0 for none).
func (s *TokenStore) Save(_ context.Context, token string, expiresAt int64) {
	if err := s.write(credentials{Token: strings.TrimSpace(token), ExpiresAt: expiresAt}); err != nil {
		s.logger.Warn("credentials file write failed", zap.String("path", s.path), zap.Error(err))
	}
}

func (s *TokenStore) write(creds credentials) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}

// Clear removes the credentials file.
func (s *TokenStore) Clear(_ context.Context) {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("credentials file removal failed", zap.String("path", s.path), zap.Error(err))
	}
}
