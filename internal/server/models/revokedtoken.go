package models

import "time"

// RevokedToken marks a still-unexpired access token as unusable.
// TokenID is the token's jti claim.
type RevokedToken struct {
	TokenID   string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}
