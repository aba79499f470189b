package service

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// CredentialVerifier wraps password hashing and verification. It is
// stateless; both operations are safe for concurrent use.
type CredentialVerifier struct {
	cost int
}

// NewCredentialVerifier creates a verifier with the default bcrypt cost.
func NewCredentialVerifier() *CredentialVerifier {
	return &CredentialVerifier{cost: bcrypt.DefaultCost}
}

// Hash derives a bcrypt hash from the plaintext password.
func (v *CredentialVerifier) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), v.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether password matches the stored hash. bcrypt comparison
// does not short-circuit on the first differing byte.
func (v *CredentialVerifier) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// VerifyCode compares a presented shared authorization code against the
// configured one in constant time. An empty configured code never matches.
func (v *CredentialVerifier) VerifyCode(presented, configured string) bool {
	if configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) == 1
}
