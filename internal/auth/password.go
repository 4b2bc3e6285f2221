package auth

import (
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const PasswordCost = 12

var ErrPasswordMismatch = errors.New("password mismatch")

// HashPassword returns the bcrypt hash of raw, base64 encoded for storage.
func HashPassword(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), PasswordCost)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(hash), nil
}

func CheckPassword(encoded, raw string) error {
	hash, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return ErrPasswordMismatch
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(raw)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}
