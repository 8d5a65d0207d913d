package password

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the default bcrypt cost
	DefaultCost = 12

	// MinLength is the minimum accepted password length
	MinLength = 8
)

// Password policy errors
var (
	ErrTooShort       = errors.New("password must be at least 8 characters")
	ErrMissingLower   = errors.New("password must contain a lowercase letter")
	ErrMissingUpper   = errors.New("password must contain an uppercase letter")
	ErrMissingDigit   = errors.New("password must contain a number")
	ErrMissingSpecial = errors.New("password must contain a special character")
)

var (
	lowerRe   = regexp.MustCompile(`[a-z]`)
	upperRe   = regexp.MustCompile(`[A-Z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// Hasher hashes and verifies passwords with a configurable bcrypt cost
type Hasher struct {
	cost int
}

// NewHasher creates a hasher. Costs outside bcrypt's range fall back to DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Cost returns the bcrypt cost used for new hashes
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash hashes a password using bcrypt
func (h *Hasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify compares a password with a bcrypt hash
func (h *Hasher) Verify(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// IsBcryptHash reports whether s looks like a bcrypt hash ($2a$, $2b$, $2y$)
func IsBcryptHash(s string) bool {
	if len(s) != 60 || s[0] != '$' || s[1] != '2' {
		return false
	}
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

// HashToken hashes a token using SHA256 (session tokens, reset codes)
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ValidatePassword checks if password meets the complexity policy
func ValidatePassword(password string) error {
	if len(password) < MinLength {
		return ErrTooShort
	}
	if !lowerRe.MatchString(password) {
		return ErrMissingLower
	}
	if !upperRe.MatchString(password) {
		return ErrMissingUpper
	}
	if !digitRe.MatchString(password) {
		return ErrMissingDigit
	}
	if !specialRe.MatchString(password) {
		return ErrMissingSpecial
	}
	return nil
}
