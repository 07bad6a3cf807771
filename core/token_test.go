package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testUser() User {
	birthday := time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)
	return User{
		ID:             42,
		Username:       "alice",
		Name:           "Alice Example",
		Email:          "alice@example.com",
		Birthday:       &birthday,
		FavoriteMovies: []int64{1, 3},
		Role:           "user",
	}
}

func TestTokenCodecRoundTrip(t *testing.T) {
	codec, err := NewTokenCodec("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenCodec error: %v", err)
	}

	token, err := codec.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if len(strings.Split(token, ".")) != 3 {
		t.Fatalf("expected compact three-part token, got %q", token)
	}

	claims, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Subject != "alice" {
		t.Fatalf("subject must carry the username, got %q", claims.Subject)
	}
	if len(claims.FavoriteMovies) != 2 || claims.FavoriteMovies[0] != 1 {
		t.Fatalf("favorites not preserved: %v", claims.FavoriteMovies)
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		t.Fatalf("expiry and issued-at must be set")
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != time.Hour {
		t.Fatalf("validity window: want 1h, got %v", got)
	}
}

func TestTokenCodecExpiry(t *testing.T) {
	codec, err := NewTokenCodec("test-secret", time.Nanosecond)
	if err != nil {
		t.Fatalf("NewTokenCodec error: %v", err)
	}
	token, err := codec.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if _, err := codec.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired, got %v", err)
	}
}

func TestTokenCodecWrongSecret(t *testing.T) {
	issuer, _ := NewTokenCodec("secret-a", time.Hour)
	verifier, _ := NewTokenCodec("secret-b", time.Hour)

	token, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("want ErrInvalidSignature, got %v", err)
	}
}

func TestTokenCodecTampering(t *testing.T) {
	codec, _ := NewTokenCodec("test-secret", time.Hour)
	token, err := codec.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape %q", token)
	}

	flip := func(s string) string {
		b := []byte(s)
		if b[0] == 'A' {
			b[0] = 'B'
		} else {
			b[0] = 'A'
		}
		return string(b)
	}

	// Tampered signature.
	tampered := parts[0] + "." + parts[1] + "." + flip(parts[2])
	if _, err := codec.Verify(tampered); err == nil || !IsAuthRejection(err) {
		t.Fatalf("tampered signature must be rejected, got %v", err)
	}

	// Tampered claims.
	tampered = parts[0] + "." + flip(parts[1]) + "." + parts[2]
	if _, err := codec.Verify(tampered); err == nil || !IsAuthRejection(err) {
		t.Fatalf("tampered claims must be rejected, got %v", err)
	}

	// Structural garbage.
	if _, err := codec.Verify("garbage"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("want ErrTokenMalformed for garbage, got %v", err)
	}
}

func TestTokenCodecRejectsUnsignedAlgorithm(t *testing.T) {
	codec, _ := NewTokenCodec("test-secret", time.Hour)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID:   42,
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign unsigned token: %v", err)
	}

	if _, err := codec.Verify(token); err == nil || !IsAuthRejection(err) {
		t.Fatalf("alg=none token must be rejected, got %v", err)
	}
}

func TestNewTokenCodecValidation(t *testing.T) {
	if _, err := NewTokenCodec("", time.Hour); err == nil {
		t.Fatalf("empty secret must be rejected")
	}
	codec, err := NewTokenCodec("s", 0)
	if err != nil {
		t.Fatalf("NewTokenCodec error: %v", err)
	}
	if codec.ttl != DefaultTokenTTL {
		t.Fatalf("zero ttl must fall back to default, got %v", codec.ttl)
	}
}
