package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is the work factor for password hashing. Cost 12 keeps a
// single verification in the tens of milliseconds on current hardware,
// slow enough to blunt offline guessing.
const bcryptCost = 12

// HashPassword hashes a plaintext password with bcrypt.
// The salt is generated internally and encoded into the returned hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks a plaintext password against a stored bcrypt hash.
// A malformed stored hash verifies as false; this function never returns
// an error to its caller, so credential checks cannot be distinguished
// from storage corruption by the client.
func VerifyPassword(password, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
}
