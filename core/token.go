package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the validity window for issued tokens.
const DefaultTokenTTL = 7 * 24 * time.Hour

// Claims is the signed payload embedded in a bearer token: a redacted
// projection of the user plus the registered subject/expiry fields.
// The subject duplicates the username so identity-bearing systems can
// index tokens without decoding the custom payload.
type Claims struct {
	UserID         int64      `json:"_id"`
	Username       string     `json:"username"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Birthday       *time.Time `json:"birthday"`
	FavoriteMovies []int64    `json:"favoriteMovies"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 bearer tokens with a single
// process-wide secret. The secret is injected at construction and never
// read from ambient state; rotating it invalidates all outstanding tokens.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenCodec builds a codec for the given secret. A non-positive ttl
// falls back to DefaultTokenTTL.
func NewTokenCodec(secret string, ttl time.Duration) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenCodec{secret: []byte(secret), ttl: ttl}, nil
}

// Issue signs a token for user with subject = username and expiry = now + ttl.
func (c *TokenCodec) Issue(user User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:         user.ID,
		Username:       user.Username,
		Name:           user.Name,
		Email:          user.Email,
		Birthday:       user.Birthday,
		FavoriteMovies: user.FavoriteMovies,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify decodes and validates tokenString. It fails closed: any structural
// problem, unexpected algorithm, signature mismatch, or elapsed expiry
// yields a rejection and no claims.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrTokenMalformed
		}
	}
	if !token.Valid {
		return nil, ErrInvalidSignature
	}
	return claims, nil
}
