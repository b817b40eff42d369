package models

import "time"

type Order struct {
	ID          int64     `json:"id"`
	OrderNumber string    `json:"order_number"`
	TotalAmount float64   `json:"total_amount"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// User is the owner, set when the order is loaded with it.
	User *User `json:"user,omitempty"`
}
