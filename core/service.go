package core

import (
	"context"
	"fmt"
	"strings"
)

// CredentialAuthenticator verifies username/password pairs against the user
// repository. It holds no state beyond the repository handle and performs a
// single store read per call.
type CredentialAuthenticator struct {
	users UserRepository
}

func NewCredentialAuthenticator(users UserRepository) *CredentialAuthenticator {
	return &CredentialAuthenticator{users: users}
}

// Authenticate resolves username and checks password against the stored
// hash. Unknown users yield ErrUserNotFound, hash mismatches
// ErrBadPassword; store failures are wrapped and propagated so callers can
// distinguish "wrong password" from "backing store down".
func (a *CredentialAuthenticator) Authenticate(ctx context.Context, username, password string) (User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return User{}, ErrBadPassword
	}

	rec, err := a.users.FindByUsername(ctx, username)
	if err != nil {
		if IsAuthRejection(err) {
			return User{}, err
		}
		return User{}, fmt.Errorf("lookup user %q: %w", username, err)
	}

	if !VerifyPassword(password, rec.PasswordHash) {
		return User{}, ErrBadPassword
	}
	return rec.View(), nil
}

// TokenAuthenticator resolves a bearer token from an Authorization header
// value to a live identity. Verification is stateless per call: signature
// and expiry are re-checked on every request, then the subject is
// re-resolved against the store so deleted users stop authenticating even
// while their tokens are unexpired.
type TokenAuthenticator struct {
	users UserRepository
	codec *TokenCodec
}

func NewTokenAuthenticator(users UserRepository, codec *TokenCodec) *TokenAuthenticator {
	return &TokenAuthenticator{users: users, codec: codec}
}

const bearerPrefix = "Bearer "

// Authenticate extracts and verifies the bearer token in header and binds
// it to a stored identity. Identity resolution is by store-assigned id, not
// username: usernames are mutable, ids are not.
func (a *TokenAuthenticator) Authenticate(ctx context.Context, header string) (User, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return User{}, ErrTokenMalformed
	}
	raw := strings.TrimSpace(header[len(bearerPrefix):])
	if raw == "" {
		return User{}, ErrTokenMalformed
	}

	claims, err := a.codec.Verify(raw)
	if err != nil {
		return User{}, err
	}

	rec, err := a.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if IsAuthRejection(err) {
			return User{}, err
		}
		return User{}, fmt.Errorf("lookup user id %d: %w", claims.UserID, err)
	}
	return rec.View(), nil
}

// LoginService composes credential authentication with token issuance.
type LoginService struct {
	creds *CredentialAuthenticator
	codec *TokenCodec
}

func NewLoginService(creds *CredentialAuthenticator, codec *TokenCodec) *LoginService {
	return &LoginService{creds: creds, codec: codec}
}

// Login exchanges credentials for a bearer token plus a redacted user view.
// Rejections pass through untouched; issuing a token mutates nothing in the
// store.
func (s *LoginService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	user, err := s.creds.Authenticate(ctx, username, password)
	if err != nil {
		return LoginResult{}, err
	}

	token, err := s.codec.Issue(user)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	return LoginResult{User: user, Token: token}, nil
}
