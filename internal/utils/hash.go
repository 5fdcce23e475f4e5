package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash of the provided password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// AdminCredential is the back-office password, always held as a bcrypt hash.
type AdminCredential struct {
	hash []byte
}

// NewAdminCredential prefers a configured hash; a plain password is hashed once at startup.
func NewAdminCredential(plain, hash string) (*AdminCredential, error) {
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, err
		}
		return &AdminCredential{hash: []byte(hash)}, nil
	}
	if plain == "" {
		return nil, errors.New("admin password is not configured")
	}
	hashed, err := HashPassword(plain)
	if err != nil {
		return nil, err
	}
	return &AdminCredential{hash: []byte(hashed)}, nil
}

// Verify compares password against the stored hash.
func (c *AdminCredential) Verify(password string) bool {
	if c == nil || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(c.hash, []byte(password)) == nil
}
