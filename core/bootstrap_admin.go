package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log"
	"os"
)

// BootstrapAdmin creates an initial admin user when none exists.
// It is idempotent: if an admin already exists, it does nothing.
func BootstrapAdmin(ctx context.Context, repo UserRepository, cfg Config) error {
	if !cfg.BootstrapAdminEnabled {
		return nil
	}

	has, err := repo.HasAdmin(ctx)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	password, err := generatePassword(32)
	if err != nil {
		return err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	if _, err := repo.Create(ctx, NewUser{
		Username:     "admin",
		PasswordHash: hash,
		Name:         "Administrator",
		Role:         "admin",
	}); err != nil {
		return err
	}

	// The generated password only ever lands in the secrets file; logs carry
	// the location, never the credential.
	if cfg.InitialAdminPasswordPath == "" {
		return errors.New("initial admin password path must be configured")
	}
	if err := os.WriteFile(cfg.InitialAdminPasswordPath, []byte(password+"\n"), 0o600); err != nil {
		return err
	}
	log.Printf("initial admin created; credentials written to %s", cfg.InitialAdminPasswordPath)

	return nil
}

func generatePassword(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("password length must be positive")
	}
	// base64 encoding: need 3/4 overhead; ensure enough bytes
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:length], nil
}
