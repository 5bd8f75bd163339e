package port

import "context"

// TokenStore persists the refresh credential in client storage.
// Storage failures are never surfaced: an unreadable credential is an absent one.
type TokenStore interface {
	// Read returns the stored refresh credential or "" when absent or expired.
	Read(ctx context.Context) string
	// Save persists the credential; expiresAt is epoch seconds, 0 meaning no explicit expiry.
	Save(ctx context.Context, token string, expiresAt int64)
	// Clear removes all stored credentials.
	Clear(ctx context.Context)
}
