package domain

import (
	"crypto/subtle"
	"time"

	"tupad-admin/internal/pkg/password"
)

// LockState is the lockout state embedded in an admin account
type LockState struct {
	LoginAttempts int
	AccountLocked bool
	LockUntil     *time.Time
}

// Unlocked is the initial lock state of every account
func Unlocked() LockState {
	return LockState{}
}

// IsLockActive reports whether the account must refuse logins at now
func (s LockState) IsLockActive(now time.Time) bool {
	return s.AccountLocked && s.LockUntil != nil && s.LockUntil.After(now)
}

// IsLockExpired reports whether the account is flagged locked but may be released
func (s LockState) IsLockExpired(now time.Time) bool {
	return s.AccountLocked && !s.IsLockActive(now)
}

// PasswordKind tags how a stored password value must be compared
type PasswordKind int

const (
	// PasswordHashed is a bcrypt hash
	PasswordHashed PasswordKind = iota
	// PasswordLegacyPlaintext is an unmigrated plaintext value
	PasswordLegacyPlaintext
)

func (k PasswordKind) String() string {
	if k == PasswordLegacyPlaintext {
		return "legacy_plaintext"
	}
	return "hashed"
}

// StoredPassword is the credential column interpreted as a tagged variant
type StoredPassword struct {
	Kind  PasswordKind
	value string
}

// ParseStoredPassword classifies a stored password value
func ParseStoredPassword(stored string) StoredPassword {
	if password.IsBcryptHash(stored) {
		return StoredPassword{Kind: PasswordHashed, value: stored}
	}
	return StoredPassword{Kind: PasswordLegacyPlaintext, value: stored}
}

// IsLegacy reports whether the stored value still needs migration
func (p StoredPassword) IsLegacy() bool {
	return p.Kind == PasswordLegacyPlaintext
}

// Matches compares a submitted password against the stored value.
// Legacy values are compared in constant time; an empty legacy value never matches.
func (p StoredPassword) Matches(h *password.Hasher, submitted string) bool {
	switch p.Kind {
	case PasswordHashed:
		return h.Verify(submitted, p.value)
	case PasswordLegacyPlaintext:
		if p.value == "" {
			return false
		}
		return subtle.ConstantTimeCompare([]byte(p.value), []byte(submitted)) == 1
	default:
		return false
	}
}

// String never reveals the stored value
func (p StoredPassword) String() string {
	return "StoredPassword(" + p.Kind.String() + ")"
}
