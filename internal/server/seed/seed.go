// Package seed creates the initial superadmin account.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
	"github.com/dmitrijs2005/shopkeeper/internal/server/services"
)

const (
	adminName = "Superadmin"
	adminAge  = 20
)

type UserCreator interface {
	Create(ctx context.Context, in services.CreateUserInput) (*models.User, error)
}

// Admin creates the superadmin unless an account with that email exists.
func Admin(ctx context.Context, users UserCreator, email, password string, log logging.Logger) error {
	u, err := users.Create(ctx, services.CreateUserInput{
		Name:             adminName,
		Email:            email,
		Password:         password,
		Age:              adminAge,
		MembershipStatus: true,
	})

	var v *common.ValidationError
	switch {
	case err == nil:
		log.Info(ctx, "superadmin created", "user_id", u.ID, "email", email)
		return nil
	case errors.As(err, &v) && len(v.Fields["email"]) > 0:
		log.Debug(ctx, "superadmin already present", "email", email)
		return nil
	default:
		return fmt.Errorf("seed superadmin: %w", err)
	}
}
