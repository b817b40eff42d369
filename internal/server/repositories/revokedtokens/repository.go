// Package revokedtokens declares the storage contract for the access-token
// denylist consulted on every authenticated request.
package revokedtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
)

// Repository keeps the ids of revoked tokens until the tokens would have
// expired anyway.
type Repository interface {
	// Create records token as revoked and reports whether this call added it.
	// Revoking the same id twice is not an error; the second call returns false.
	Create(ctx context.Context, token *models.RevokedToken) (bool, error)

	// Exists reports whether tokenID has been revoked.
	Exists(ctx context.Context, tokenID string) (bool, error)

	// DeleteExpired drops entries whose expiry is before the given instant
	// and returns how many were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
