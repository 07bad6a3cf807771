package core

import "golang.org/x/crypto/bcrypt"

// HashPassword produces a salted one-way hash of plaintext. bcrypt embeds a
// random salt, so two calls on the same input yield different records that
// both verify.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword recomputes the hash using the salt and cost embedded in
// record and compares in constant time. Malformed records report false
// rather than an error so format problems are indistinguishable from a
// wrong password.
func VerifyPassword(plaintext, record string) bool {
	return bcrypt.CompareHashAndPassword([]byte(record), []byte(plaintext)) == nil
}
