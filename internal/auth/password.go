package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashKey returns a bcrypt hash of the operator key using DefaultCost.
func HashKey(key string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckKey compares a bcrypt hashed key with its possible plaintext equivalent.
func CheckKey(hash string, key string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
	return err == nil
}

// isBcryptHash ключ в конфигурации уже захеширован
func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
