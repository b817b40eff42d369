// Package orders declares the storage contract for orders.
package orders

import (
	"context"

	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
)

// Repository defines persistence operations for orders. Lookups of absent
// rows return common.ErrorNotFound.
type Repository interface {
	// Create inserts order and fills in its id and timestamps. A taken
	// order number surfaces as a unique violation on NumberConstraint.
	Create(ctx context.Context, order *models.Order) (*models.Order, error)

	GetByID(ctx context.Context, id int64) (*models.Order, error)

	// List returns one page of orders ordered by id.
	List(ctx context.Context, limit, offset int) ([]models.Order, error)
	Count(ctx context.Context) (int64, error)

	// ListByUserIDs returns every order owned by any of userIDs, ordered by id.
	ListByUserIDs(ctx context.Context, userIDs []int64) ([]models.Order, error)

	UpdateAmount(ctx context.Context, id int64, amount float64) (*models.Order, error)
	Delete(ctx context.Context, id int64) error

	// MaxSequence returns the largest numeric suffix among order numbers
	// starting with prefix, or 0 when there are none.
	MaxSequence(ctx context.Context, prefix string) (int64, error)
}
