package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/dbx"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/server/config"
	"github.com/dmitrijs2005/shopkeeper/internal/server/events"
	"github.com/dmitrijs2005/shopkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/orders"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/repomanager"
)

type OrderService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	publisher   events.Publisher
	log         logging.Logger
	metrics     *metrics.Metrics
	retries     int
}

func NewOrderService(db *sql.DB, m repomanager.RepositoryManager, p events.Publisher, cfg *config.Config, log logging.Logger, mt *metrics.Metrics) *OrderService {
	retries := cfg.OrderNumberRetries
	if retries < 1 {
		retries = 1
	}
	if p == nil {
		p = events.NopPublisher{}
	}
	return &OrderService{
		db:          db,
		repomanager: m,
		publisher:   p,
		log:         log.With("module", "orders"),
		metrics:     mt,
		retries:     retries,
	}
}

// List returns one page of orders, each with its owner.
func (s *OrderService) List(ctx context.Context, page, perPage int) (*models.Page[models.Order], error) {
	repo := s.repomanager.Orders(s.db)

	total, err := repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting orders: %w", err)
	}

	items, err := repo.List(ctx, perPage, models.Offset(page, perPage))
	if err != nil {
		return nil, fmt.Errorf("error listing orders: %w", err)
	}

	if err := s.attachUsers(ctx, items); err != nil {
		return nil, err
	}

	return &models.Page[models.Order]{
		Items: items,
		Meta:  models.NewPageMeta(page, perPage, total, len(items)),
	}, nil
}

// Get returns the order with its owner, or common.ErrorNotFound.
func (s *OrderService) Get(ctx context.Context, id int64) (*models.Order, error) {
	order, err := s.repomanager.Orders(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	list := []models.Order{*order}
	if err := s.attachUsers(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// Create numbers and stores a new order owned by userID. Reading the next
// number and inserting happen in one transaction; when a concurrent creator
// takes the same number first the whole transaction is retried.
func (s *OrderService) Create(ctx context.Context, userID int64, totalAmount float64) (*models.Order, error) {
	for attempt := 1; attempt <= s.retries; attempt++ {
		order, err := s.create(ctx, userID, totalAmount)
		if err == nil {
			s.metrics.OrderCreated()
			s.log.Info(ctx, "order created", "order_id", order.ID, "order_number", order.OrderNumber, "user_id", userID)
			s.publish(ctx, events.OrderCreated, order)
			return order, nil
		}

		if !dbx.IsUniqueViolation(err, orders.NumberConstraint) {
			return nil, fmt.Errorf("error creating order: %w", err)
		}

		s.metrics.OrderNumberConflict()
		s.log.Warn(ctx, "order number taken, retrying", "attempt", attempt, "error", err)
	}

	return nil, common.ErrOrderNumberUnavailable
}

func (s *OrderService) create(ctx context.Context, userID int64, totalAmount float64) (*models.Order, error) {
	var created *models.Order
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Orders(tx)

		number, err := NextOrderNumber(ctx, repo)
		if err != nil {
			return err
		}

		created, err = repo.Create(ctx, &models.Order{
			OrderNumber: number,
			TotalAmount: totalAmount,
			UserID:      userID,
		})
		return err
	})
	return created, err
}

// Update changes the order's total, the only mutable field.
func (s *OrderService) Update(ctx context.Context, id int64, totalAmount float64) (*models.Order, error) {
	var updated *models.Order
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Orders(tx)
		if _, err := repo.GetByID(ctx, id); err != nil {
			return err
		}
		var err error
		updated, err = repo.UpdateAmount(ctx, id, totalAmount)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error updating order: %w", err)
	}

	s.log.Info(ctx, "order updated", "order_id", id)
	s.publish(ctx, events.OrderUpdated, updated)
	return updated, nil
}

func (s *OrderService) Delete(ctx context.Context, id int64) error {
	var deleted *models.Order
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Orders(tx)
		var err error
		if deleted, err = repo.GetByID(ctx, id); err != nil {
			return err
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("error deleting order: %w", err)
	}

	s.log.Info(ctx, "order deleted", "order_id", id)
	s.publish(ctx, events.OrderDeleted, deleted)
	return nil
}

// --- helpers below ---

// publish runs after commit; a broker failure is logged, not returned.
func (s *OrderService) publish(ctx context.Context, eventType string, o *models.Order) {
	ev := events.NewOrderEvent(eventType, o)
	if err := s.publisher.PublishJSON(ctx, ev.Type, ev); err != nil {
		s.log.Error(ctx, "publishing order event failed", "type", eventType, "order_id", o.ID, "error", err)
	}
}

func (s *OrderService) attachUsers(ctx context.Context, list []models.Order) error {
	if len(list) == 0 {
		return nil
	}

	seen := make(map[int64]struct{}, len(list))
	ids := make([]int64, 0, len(list))
	for _, o := range list {
		if _, ok := seen[o.UserID]; !ok {
			seen[o.UserID] = struct{}{}
			ids = append(ids, o.UserID)
		}
	}

	owners, err := s.repomanager.Users(s.db).GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("error loading users: %w", err)
	}

	byID := make(map[int64]*models.User, len(owners))
	for i := range owners {
		byID[owners[i].ID] = &owners[i]
	}
	for i := range list {
		list[i].User = byID[list[i].UserID]
	}
	return nil
}
