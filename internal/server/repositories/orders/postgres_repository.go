package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/dbx"
	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
)

// NumberConstraint is the unique constraint guarding orders.order_number.
const NumberConstraint = "orders_order_number_key"

const selectColumns = `id, order_number, total_amount, user_id, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*models.Order, error) {
	o := &models.Order{}
	if err := s.Scan(&o.ID, &o.OrderNumber, &o.TotalAmount, &o.UserID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *PostgresRepository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {

	query :=
		`INSERT INTO orders (order_number, total_amount, user_id)
         VALUES ($1, $2, $3)
		 RETURNING id, total_amount, created_at, updated_at
		 `

	// total_amount is read back since the column rounds to cents
	err := r.db.QueryRowContext(ctx, query, order.OrderNumber, order.TotalAmount, order.UserID).
		Scan(&order.ID, &order.TotalAmount, &order.CreatedAt, &order.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return order, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	query := `SELECT ` + selectColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return order, nil
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]models.Order, error) {
	query := `SELECT ` + selectColumns + ` FROM orders ORDER BY id LIMIT $1 OFFSET $2`
	return r.query(ctx, query, limit, offset)
}

func (r *PostgresRepository) ListByUserIDs(ctx context.Context, userIDs []int64) ([]models.Order, error) {
	if len(userIDs) == 0 {
		return []models.Order{}, nil
	}

	query := `SELECT ` + selectColumns + ` FROM orders WHERE user_id IN (` + dbx.InList(1, len(userIDs)) + `) ORDER BY id`
	return r.query(ctx, query, dbx.Args(userIDs)...)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) UpdateAmount(ctx context.Context, id int64, amount float64) (*models.Order, error) {

	query :=
		`UPDATE orders
		 SET total_amount = $1, updated_at = NOW()
		 WHERE id = $2
		 RETURNING ` + selectColumns

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, amount, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return order, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

// MaxSequence only considers numbers of the form prefix + digits, so a
// malformed row cannot break the cast.
func (r *PostgresRepository) MaxSequence(ctx context.Context, prefix string) (int64, error) {

	query :=
		`SELECT COALESCE(MAX(CAST(SUBSTRING(order_number FROM char_length($1) + 1) AS BIGINT)), 0)
		 FROM orders
		 WHERE order_number ~ ('^' || $1 || '[0-9]+$')
		 `

	var max int64
	if err := r.db.QueryRowContext(ctx, query, prefix).Scan(&max); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return max, nil
}
