// Package auth issues and verifies the service tokens the chat gateway
// presents on every API call. A token names the acting user, there are
// no sessions or passwords on this side.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/pointsbot/internal/apperrors"
)

const defaultTokenTTL = 10 * time.Minute

type ActorClaims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"uid"`
	Admin  bool  `json:"adm,omitempty"`
}

// Actor is the authenticated caller of a request
type Actor struct {
	UserID int64
	Admin  bool
}

type TokenManager struct {
	// Secret key shared with the chat gateway
	key string

	// JWT MAC (Message Authentication Code) algorithm
	alg jwt.SigningMethod

	ttl time.Duration
}

func NewTokenManager(key string) *TokenManager {
	return &TokenManager{
		key: key,
		alg: jwt.SigningMethodHS256,
		ttl: defaultTokenTTL,
	}
}

// Issue signs a short lived token for the user
func (m *TokenManager) Issue(userID int64, admin bool) (string, error) {
	now := time.Now().Truncate(time.Second)

	token := jwt.NewWithClaims(
		m.alg,
		ActorClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			},
			UserID: userID,
			Admin:  admin,
		},
	)

	signed, err := token.SignedString([]byte(m.key))
	if err != nil {
		return "", fmt.Errorf("error while signing token. Err: %w", err)
	}

	return signed, nil
}

// Parse validates the token and returns the actor it names
func (m *TokenManager) Parse(tokenString string) (Actor, error) {
	claims := &ActorClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(m.key), nil },
		jwt.WithValidMethods([]string{m.alg.Alg()}),
	)

	switch {
	case err == nil && token.Valid:
		return Actor{UserID: claims.UserID, Admin: claims.Admin}, nil
	default:
		return Actor{}, fmt.Errorf("%w: %v", apperrors.ErrTokenInvalid, err)
	}
}
