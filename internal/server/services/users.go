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
	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

// MsgEmailTaken is reported on the email field when another account owns it.
const MsgEmailTaken = "The email has already been taken."

// CreateUserInput carries an already validated new account.
type CreateUserInput struct {
	Name             string
	Email            string
	Password         string
	Age              int
	MembershipStatus bool
}

// UpdateUserInput carries a partial update; nil fields are left unchanged.
type UpdateUserInput struct {
	Name             *string
	Email            *string
	Password         *string
	Age              *int
	MembershipStatus *bool
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	bcryptCost  int
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		log:         log.With("module", "users"),
		bcryptCost:  cfg.BcryptCost,
	}
}

// List returns one page of users, each with its orders.
func (s *UserService) List(ctx context.Context, page, perPage int) (*models.Page[models.User], error) {
	repo := s.repomanager.Users(s.db)

	total, err := repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting users: %w", err)
	}

	items, err := repo.List(ctx, perPage, models.Offset(page, perPage))
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}

	if err := s.attachOrders(ctx, items); err != nil {
		return nil, err
	}

	return &models.Page[models.User]{
		Items: items,
		Meta:  models.NewPageMeta(page, perPage, total, len(items)),
	}, nil
}

// Get returns the user with its orders, or common.ErrorNotFound.
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	list := []models.User{*user}
	if err := s.attachOrders(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	var created *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		if err := s.ensureEmailFree(ctx, repo, in.Email, 0); err != nil {
			return err
		}

		var createErr error
		created, createErr = repo.Create(ctx, &models.User{
			Name:             in.Name,
			Email:            in.Email,
			PasswordHash:     hash,
			Age:              in.Age,
			MembershipStatus: in.MembershipStatus,
		})
		return createErr
	})
	if err != nil {
		return nil, s.mapWriteError(err)
	}

	s.log.Info(ctx, "user created", "user_id", created.ID)
	return created, nil
}

// Update applies the non-nil fields of in to user id.
func (s *UserService) Update(ctx context.Context, id int64, in UpdateUserInput) (*models.User, error) {
	var hash string
	if in.Password != nil {
		var err error
		if hash, err = s.hash(*in.Password); err != nil {
			return nil, err
		}
	}

	var updated *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if in.Email != nil && *in.Email != user.Email {
			if err := s.ensureEmailFree(ctx, repo, *in.Email, user.ID); err != nil {
				return err
			}
			user.Email = *in.Email
		}
		if in.Name != nil {
			user.Name = *in.Name
		}
		if in.Age != nil {
			user.Age = *in.Age
		}
		if in.MembershipStatus != nil {
			user.MembershipStatus = *in.MembershipStatus
		}
		if in.Password != nil {
			user.PasswordHash = hash
		}

		var updateErr error
		updated, updateErr = repo.Update(ctx, user)
		return updateErr
	})
	if err != nil {
		return nil, s.mapWriteError(err)
	}

	s.log.Info(ctx, "user updated", "user_id", updated.ID)
	return updated, nil
}

// Delete removes the user; its orders go with it.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		if _, err := repo.GetByID(ctx, id); err != nil {
			return err
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("error deleting user: %w", err)
	}

	s.log.Info(ctx, "user deleted", "user_id", id)
	return nil
}

// --- helpers below ---

func (s *UserService) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	return string(b), nil
}

// ensureEmailFree fails with a validation error when email belongs to an
// account other than self.
func (s *UserService) ensureEmailFree(ctx context.Context, repo users.Repository, email string, self int64) error {
	other, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return err
	}
	if other.ID == self {
		return nil
	}
	return emailTaken()
}

func emailTaken() *common.ValidationError {
	v := common.NewValidationError()
	v.Add("email", MsgEmailTaken)
	return v
}

// mapWriteError turns a lost race on the email constraint into the same
// validation error the pre-check produces.
func (s *UserService) mapWriteError(err error) error {
	var v *common.ValidationError
	switch {
	case errors.As(err, &v), errors.Is(err, common.ErrorNotFound):
		return err
	case dbx.IsUniqueViolation(err, users.EmailConstraint):
		return emailTaken()
	default:
		return fmt.Errorf("error saving user: %w", err)
	}
}

func (s *UserService) attachOrders(ctx context.Context, list []models.User) error {
	if len(list) == 0 {
		return nil
	}

	ids := make([]int64, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}

	orders, err := s.repomanager.Orders(s.db).ListByUserIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("error loading orders: %w", err)
	}

	byUser := make(map[int64][]models.Order, len(list))
	for _, o := range orders {
		byUser[o.UserID] = append(byUser[o.UserID], o)
	}
	for i := range list {
		list[i].Orders = byUser[list[i].ID]
		if list[i].Orders == nil {
			list[i].Orders = []models.Order{}
		}
	}
	return nil
}
