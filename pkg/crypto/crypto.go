// Package crypto holds the password-hashing helpers shared by the
// gateway's login path and the backend's user-management handlers.
package crypto

import "golang.org/x/crypto/bcrypt"

// bcryptCost is pinned above bcrypt.DefaultCost (10); stored credentials
// always use cost 12 or higher.
const bcryptCost = 12

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(hash), err
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
