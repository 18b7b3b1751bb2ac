package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a password with bcrypt
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// LegacyDigest returns the unsalted SHA-256 hex digest older databases store
func LegacyDigest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// IsLegacyHash reports whether a stored hash is an unsalted SHA-256 digest
func IsLegacyHash(stored string) bool {
	if len(stored) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(stored)
	return err == nil
}

// CheckPassword compares a password against either a bcrypt hash or a legacy digest
func CheckPassword(stored, password string) bool {
	if IsLegacyHash(stored) {
		digest := LegacyDigest(password)
		return subtle.ConstantTimeCompare([]byte(strings.ToLower(stored)), []byte(digest)) == 1
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}
