package domain

import (
	"fmt"
	"time"
)

// AuthOutcome discriminates the result of a login attempt
type AuthOutcome int

const (
	OutcomeSuccess AuthOutcome = iota
	OutcomeInvalidCredentials
	OutcomeChallengeRequired
	OutcomeChallengeFailed
	OutcomeAccountLocked
	OutcomeUserNotFound
)

func (o AuthOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeInvalidCredentials:
		return "invalid_credentials"
	case OutcomeChallengeRequired:
		return "challenge_required"
	case OutcomeChallengeFailed:
		return "challenge_failed"
	case OutcomeAccountLocked:
		return "account_locked"
	case OutcomeUserNotFound:
		return "user_not_found"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Session is an issued session credential
type Session struct {
	Token     string
	AccountID uint
	ExpiresAt time.Time
}

// AuthResult is the outcome of Authenticate. Only the fields relevant to
// Outcome are set; infrastructure faults are returned as errors instead.
type AuthResult struct {
	Outcome AuthOutcome

	// OutcomeSuccess
	Session   *Session
	AccountID uint
	Role      Role

	// OutcomeInvalidCredentials
	RemainingAttempts int
	Warning           string

	// OutcomeAccountLocked
	LockedUntil *time.Time
}

// IsSuccess reports whether a session was issued
func (r *AuthResult) IsSuccess() bool {
	return r.Outcome == OutcomeSuccess
}

// RequiresCaptcha reports whether the caller must present a CAPTCHA next time
func (r *AuthResult) RequiresCaptcha(challengeThreshold, lockThreshold int) bool {
	switch r.Outcome {
	case OutcomeChallengeRequired, OutcomeChallengeFailed:
		return true
	case OutcomeInvalidCredentials:
		return lockThreshold-r.RemainingAttempts >= challengeThreshold
	default:
		return false
	}
}

// LockWarning builds the user-facing warning shown when remaining <= 1
func LockWarning(remaining int) string {
	noun := "attempts"
	if remaining == 1 {
		noun = "attempt"
	}
	return fmt.Sprintf("Warning: You have %d more %s before your account is locked.", remaining, noun)
}
