// Package services contains server-side business logic. This file implements
// AuthService, which logs users in and issues, verifies, refreshes and
// revokes their access tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/dbx"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shopkeeper/internal/server/config"
	"github.com/dmitrijs2005/shopkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// TokenTypeBearer is reported alongside every issued token.
const TokenTypeBearer = "bearer"

// Token is what clients receive after login or refresh.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AuthService provides authentication-related operations:
// - Register / Login: create accounts and exchange credentials for a token
// - Authenticate: resolve a bearer token to an identity
// - Refresh / Revoke: rotate a token or put it on the denylist
type AuthService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	users                       *UserService
	log                         logging.Logger
	metrics                     *metrics.Metrics
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration

	// dummyHash is compared against when the email is unknown so that both
	// failure paths cost one bcrypt comparison.
	dummyHash []byte
}

// NewAuthService constructs an AuthService using repositories and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, users *UserService, cfg *config.Config, log logging.Logger, mt *metrics.Metrics) *AuthService {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("shopkeeper-dummy-password"), cost)

	return &AuthService{
		db:                          db,
		repomanager:                 m,
		users:                       users,
		log:                         log.With("module", "auth"),
		metrics:                     mt,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		dummyHash:                   dummy,
	}
}

// Register creates an account through the same rules as an admin create.
func (s *AuthService) Register(ctx context.Context, in CreateUserInput) (*models.User, error) {
	return s.users.Create(ctx, in)
}

// Login verifies email and password and issues a token. Unknown emails and
// wrong passwords are indistinguishable: both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Token, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			s.metrics.Login(false)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.metrics.Login(false)
		return nil, common.ErrInvalidCredentials
	}

	token, err := s.issue(user.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.Login(true)
	s.log.Info(ctx, "user logged in", "user_id", user.ID)
	return token, nil
}

// Authenticate verifies signature, expiry and the denylist, and that the
// account still exists. Every token problem is reported as
// ErrUnauthenticated; storage failures are returned as they are.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Identity, error) {
	id, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		s.log.Debug(ctx, "token rejected", "reason", err)
		return nil, common.ErrUnauthenticated
	}

	revoked, err := s.repomanager.RevokedTokens(s.db).Exists(ctx, id.TokenID)
	if err != nil {
		return nil, fmt.Errorf("error checking revoked tokens: %w", err)
	}
	if revoked {
		s.log.Debug(ctx, "token rejected", "reason", "revoked", "token_id", id.TokenID)
		return nil, common.ErrUnauthenticated
	}

	if _, err := s.repomanager.Users(s.db).GetByID(ctx, id.UserID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Debug(ctx, "token rejected", "reason", "user deleted", "user_id", id.UserID)
			return nil, common.ErrUnauthenticated
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	return id, nil
}

// Refresh exchanges a currently valid token for a new one and revokes the
// presented token.
func (s *AuthService) Refresh(ctx context.Context, token string) (*Token, error) {
	id, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.RefreshIdentity(ctx, id)
}

// RefreshIdentity is Refresh for a token the caller has already authenticated.
// Only the first refresh of a token succeeds; a concurrent or repeated one
// finds the id already revoked and gets ErrUnauthenticated.
func (s *AuthService) RefreshIdentity(ctx context.Context, id *auth.Identity) (*Token, error) {
	var token *Token
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		added, err := s.revoke(ctx, tx, id)
		if err != nil {
			return err
		}
		if !added {
			return common.ErrUnauthenticated
		}
		var issueErr error
		token, issueErr = s.issue(id.UserID)
		return issueErr
	}); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "token refreshed", "user_id", id.UserID, "revoked_token_id", id.TokenID)
	return token, nil
}

// Revoke puts token on the denylist. Revoking twice is fine, and a token that
// has already expired is left alone. A badly signed token is ErrUnauthenticated.
func (s *AuthService) Revoke(ctx context.Context, token string) error {
	id, err := auth.ParseTokenAllowExpired(token, s.jwtSecret)
	if err != nil {
		return common.ErrUnauthenticated
	}
	return s.RevokeIdentity(ctx, id)
}

// RevokeIdentity is Revoke for an already parsed token.
func (s *AuthService) RevokeIdentity(ctx context.Context, id *auth.Identity) error {
	if !id.ExpiresAt.After(time.Now()) {
		return nil
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := s.revoke(ctx, tx, id)
		return err
	}); err != nil {
		return err
	}

	s.log.Info(ctx, "token revoked", "user_id", id.UserID, "token_id", id.TokenID)
	return nil
}

// Me returns the account behind id. A user deleted after the token was
// issued no longer authenticates.
func (s *AuthService) Me(ctx context.Context, id *auth.Identity) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnauthenticated
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	return user, nil
}

// --- helpers below ---

func (s *AuthService) issue(userID int64) (*Token, error) {
	issued, err := auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("error signing token: %w", err)
	}
	return &Token{
		AccessToken: issued.Value,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   int64(s.accessTokenValidityDuration.Seconds()),
		ExpiresAt:   issued.ExpiresAt,
	}, nil
}

// revoke denylists id and reports whether it was not denylisted before.
func (s *AuthService) revoke(ctx context.Context, tx dbx.DBTX, id *auth.Identity) (bool, error) {
	repo := s.repomanager.RevokedTokens(tx)

	if n, err := repo.DeleteExpired(ctx, time.Now()); err != nil {
		return false, fmt.Errorf("error purging revoked tokens: %w", err)
	} else if n > 0 {
		s.log.Debug(ctx, "purged expired revoked tokens", "count", n)
	}

	added, err := repo.Create(ctx, &models.RevokedToken{
		TokenID:   id.TokenID,
		UserID:    id.UserID,
		ExpiresAt: id.ExpiresAt,
	})
	if err != nil {
		return false, fmt.Errorf("error revoking token: %w", err)
	}

	if added {
		s.metrics.TokenRevoked()
	}
	return added, nil
}
