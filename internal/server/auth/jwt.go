// Package auth signs and verifies the HS256 access tokens handed to API clients.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the standard registered claims plus the owning user's id.
// The jti (RegisteredClaims.ID) is what gets revoked on logout.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"user_id"`
}

// Identity is the caller a verified token resolves to.
type Identity struct {
	UserID    int64
	TokenID   string
	ExpiresAt time.Time
}

// IssuedToken is a freshly signed token and the metadata needed to report
// or revoke it.
type IssuedToken struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// now is a seam for tests.
var now = time.Now

func GenerateToken(userID int64, secretKey []byte, validityDuration time.Duration) (*IssuedToken, error) {
	issuedAt := now()
	expiresAt := issuedAt.Add(validityDuration)
	id := uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return nil, err
	}

	// NumericDate drops sub-second precision; report what the token carries.
	return &IssuedToken{Value: tokenString, ID: id, ExpiresAt: expiresAt.Truncate(time.Second)}, nil
}

// ParseToken verifies the signature (HS256 only) and expiry of tokenString.
// Expired tokens yield common.ErrTokenExpired, anything else that fails
// common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Identity, error) {
	return parse(tokenString, secretKey)
}

// ParseTokenAllowExpired verifies the signature only. Used where an expired
// token is acceptable input, e.g. logout.
func ParseTokenAllowExpired(tokenString string, secretKey []byte) (*Identity, error) {
	return parse(tokenString, secretKey, jwt.WithoutClaimsValidation())
}

func parse(tokenString string, secretKey []byte, opts ...jwt.ParserOption) (*Identity, error) {
	claims := &Claims{}

	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.ID == "" || claims.UserID == 0 || claims.ExpiresAt == nil {
		return nil, common.ErrInvalidToken
	}

	return &Identity{
		UserID:    claims.UserID,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
