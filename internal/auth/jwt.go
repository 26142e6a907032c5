package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Роли, известные витрине.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrNoSubject    = errors.New("token has no subject")
)

// AccessClaims — полезная нагрузка access-токена: субъект и роль.
type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// NewAccessToken выпускает подписанный HS256 access-токен.
func NewAccessToken(subject, role string, secret []byte, expiresAt time.Time) (string, error) {
	claims := AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ClaimsFromToken разбирает и валидирует access-токен.
func ClaimsFromToken(tokenStr string, secret []byte) (*AccessClaims, error) {
	var claims AccessClaims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrNoSubject
	}
	return &claims, nil
}
