// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered account. PasswordHash is a bcrypt digest and never
// leaves the server.
type User struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	Age              int       `json:"age"`
	MembershipStatus bool      `json:"membership_status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// Orders is filled only when the user is loaded together with its orders.
	Orders []Order `json:"orders,omitzero"`
}
