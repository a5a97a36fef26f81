package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword enforces the configured minimum length and hashes with the
// configured bcrypt cost.
func HashPassword(password string, cost, minLength int) (string, error) {
	if len(password) < minLength {
		return "", fmt.Errorf("password must be at least %d characters long", minLength)
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

func CheckPassword(hashedPassword string, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}
