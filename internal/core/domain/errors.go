package domain

import "errors"

var (
	// ErrNoRefreshToken indicates no refresh credential is stored.
	ErrNoRefreshToken = errors.New("session: no refresh token")
	// ErrMissingAccessToken indicates the authority responded without an access credential.
	ErrMissingAccessToken = errors.New("session: access token missing from response")
	// ErrTokenDecode indicates a credential could not be decoded into claims.
	ErrTokenDecode = errors.New("session: token decode failed")
	// ErrChannelClosed indicates an emit was attempted on a channel that is not open.
	ErrChannelClosed = errors.New("realtime: channel is not open")
)
