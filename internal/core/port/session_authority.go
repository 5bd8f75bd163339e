package port

import (
	"context"

	"github.com/dan-divy/spruce-sub000/internal/core/domain"
)

// Credentials is the pair issued by the session authority on login.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SessionAuthority is the remote party that issues, exchanges and revokes credentials.
type SessionAuthority interface {
	Login(ctx context.Context, username, password string) (Credentials, error)
	Register(ctx context.Context, form domain.Registration) error
	Access(ctx context.Context, refreshToken string) (string, error)
	Revoked(ctx context.Context, refreshToken string) (bool, error)
	Logout(ctx context.Context, token string) error
}

// TokenDecoder decodes a credential into claims without verifying its signature.
type TokenDecoder interface {
	Decode(token string) (domain.Claims, error)
}

// ContentSource performs the data fetch of a view's setup.
type ContentSource interface {
	Load(ctx context.Context, route domain.Route, session domain.SessionContext) (domain.ViewData, error)
}
