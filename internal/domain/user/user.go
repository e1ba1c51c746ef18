// Package user provides credential lookup and session tokens. Kept
// deliberately thin: the engine only needs "who is acting" and a role string.
package user

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrInvalidCredentials is returned for unknown users and wrong passwords
// alike, so callers cannot probe for usernames.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Known roles.
const (
	RoleAdmin      = "admin"
	RolePharmacist = "pharmacist"
	RoleTechnician = "technician"
)

// User is a login account. PasswordHash is hex-encoded SHA-256.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// HashPassword returns the hex SHA-256 digest of a password.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// CheckPassword reports whether password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	return u.PasswordHash == HashPassword(password)
}
