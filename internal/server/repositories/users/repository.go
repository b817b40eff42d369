// Package users declares the storage contract for user accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
)

// Repository defines persistence operations for users. Lookups of absent
// rows return common.ErrorNotFound.
type Repository interface {
	// Create inserts user and fills in its id and timestamps.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByIDs returns the users among ids that exist, in id order.
	GetByIDs(ctx context.Context, ids []int64) ([]models.User, error)

	// List returns one page of users ordered by id.
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Count(ctx context.Context) (int64, error)

	// Update writes every mutable column of user and refreshes UpdatedAt.
	Update(ctx context.Context, user *models.User) (*models.User, error)

	Delete(ctx context.Context, id int64) error
}
