package security

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dan-divy/spruce-sub000/internal/core/domain"
)

// AccessTokenClaims mirrors the claims the session authority places in credentials.
type AccessTokenClaims struct {
	SessionID string             `json:"sessionId,omitempty"`
	UserID    string             `json:"userId,omitempty"`
	Username  string             `json:"username,omitempty"`
	Admin     bool               `json:"admin,omitempty"`
	Community []domain.Community `json:"community,omitempty"`
	jwt.RegisteredClaims
}

// ClaimsDecoder decodes credentials without verifying signatures; the client
// only needs the claims, verification is the authority's concern.
type ClaimsDecoder struct {
	parser *jwt.Parser
}

// NewClaimsDecoder constructs a decoder for JWT credentials.
func NewClaimsDecoder() *ClaimsDecoder {
	return &ClaimsDecoder{parser: jwt.NewParser()}
}

// Decode extracts claims from token. Malformed input yields domain.ErrTokenDecode.
func (d *ClaimsDecoder) Decode(token string) (domain.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Claims{}, fmt.Errorf("%w: empty token", domain.ErrTokenDecode)
	}

	var claims AccessTokenClaims
	if _, _, err := d.parser.ParseUnverified(token, &claims); err != nil {
		return domain.Claims{}, fmt.Errorf("%w: %v", domain.ErrTokenDecode, err)
	}

	out := domain.Claims{
		SessionID: claims.SessionID,
		UserID:    claims.UserID,
		Username:  claims.Username,
		Admin:     claims.Admin,
		Community: claims.Community,
	}
	if out.UserID == "" {
		out.UserID = claims.Subject
	}
	if out.SessionID == "" {
		out.SessionID = claims.ID
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}

	return out, nil
}
