package core

import (
	"errors"
	"time"
)

// User represents an authenticated principal returned to handlers and
// embedded, minus any secret material, in issued token claims.
type User struct {
	ID             int64      `json:"_id"`
	Username       string     `json:"username"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Birthday       *time.Time `json:"birthday"`
	FavoriteMovies []int64    `json:"favoriteMovies"`
	Role           string     `json:"role"`
	CreatedAt      time.Time  `json:"created_at"`
}

var (
	// ErrUserNotFound is returned when no identity exists for the given
	// username or id.
	ErrUserNotFound = errors.New("user not found")
	// ErrBadPassword is returned when the password does not match the stored hash.
	ErrBadPassword = errors.New("bad password")
	// ErrTokenMalformed is returned for missing or misshapen Authorization
	// headers and for tokens that do not parse at all.
	ErrTokenMalformed = errors.New("malformed token")
	// ErrInvalidSignature is returned when the token signature does not
	// verify against the configured secret.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrTokenExpired is returned when the token is past its validity window.
	ErrTokenExpired = errors.New("token expired")
)

// IsAuthRejection reports whether err is a credential/token rejection as
// opposed to an underlying store failure. Handlers map rejections to 401
// and anything else to 500.
func IsAuthRejection(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrBadPassword) ||
		errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrTokenExpired)
}

// LoginResult carries the redacted user view and the issued bearer token.
type LoginResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
