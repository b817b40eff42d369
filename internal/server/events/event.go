// Package events publishes domain events about orders to a message broker.
package events

import (
	"context"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
	"github.com/google/uuid"
)

// Event types double as routing keys on the events exchange.
const (
	OrderCreated = "order.created"
	OrderUpdated = "order.updated"
	OrderDeleted = "order.deleted"
)

// Event is the envelope every message is wrapped in.
type Event[T any] struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Version int       `json:"version"`
	Time    time.Time `json:"time"`
	Payload T         `json:"payload"`
}

type OrderPayload struct {
	OrderID     int64   `json:"order_id"`
	OrderNumber string  `json:"order_number"`
	TotalAmount float64 `json:"total_amount"`
	UserID      int64   `json:"user_id"`
}

func NewOrderEvent(eventType string, o *models.Order) Event[OrderPayload] {
	return Event[OrderPayload]{
		ID:      uuid.NewString(),
		Type:    eventType,
		Version: 1,
		Time:    time.Now().UTC(),
		Payload: OrderPayload{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			TotalAmount: o.TotalAmount,
			UserID:      o.UserID,
		},
	}
}

// Publisher delivers a JSON-encodable message under routingKey.
type Publisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
}

// NopPublisher drops every message. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishJSON(context.Context, string, any) error { return nil }
