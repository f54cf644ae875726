package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/heliawallet/vault-server-go/internal/errors"
	"github.com/heliawallet/vault-server-go/internal/model"
)

// Claims is the payload carried inside an access token.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string     `json:"accountId"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
}

// TokenSigner issues and verifies HMAC-signed access tokens.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenSigner(secret string, ttl time.Duration) *TokenSigner {
	return &TokenSigner{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed access token for the account.
func (s *TokenSigner) Issue(account *model.Account) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		AccountID: account.ID,
		Email:     account.Email,
		Role:      account.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to sign token", err)
	}
	return signed, nil
}

// Verify parses and validates a signed token, returning its claims.
func (s *TokenSigner) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.TokenExpired()
		}
		return nil, apperrors.InvalidToken("Token is invalid")
	}
	if !token.Valid || claims.AccountID == "" {
		return nil, apperrors.InvalidToken("Token is invalid")
	}
	return claims, nil
}

// TTL reports how long issued tokens remain valid.
func (s *TokenSigner) TTL() time.Duration {
	return s.ttl
}
