// Package metrics exposes Prometheus counters for the authentication flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tupad_admin"

// CAPTCHA verification results
const (
	CaptchaPassed   = "passed"
	CaptchaRejected = "rejected"
	CaptchaError    = "error"
)

var (
	// AuthAttemptsTotal counts login attempts by outcome.
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// AuthInfraErrorsTotal counts login attempts that ended in an infrastructure fault.
	AuthInfraErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_infrastructure_errors_total",
			Help:      "Login attempts aborted by an infrastructure fault, by component.",
		},
		[]string{"component"},
	)

	// CaptchaVerificationsTotal separates rejected tokens from verifier outages.
	CaptchaVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captcha_verifications_total",
			Help:      "CAPTCHA verifications by result (passed, rejected, error).",
		},
		[]string{"result"},
	)

	// AccountLocksTotal counts transitions into the locked state.
	AccountLocksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_locks_total",
			Help:      "Accounts locked after reaching the failed-attempt threshold.",
		},
	)

	// AccountUnlocksTotal counts lock removals by cause (expired, forced).
	AccountUnlocksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_unlocks_total",
			Help:      "Lock removals by cause.",
		},
		[]string{"cause"},
	)

	// LegacyPasswordLoginsTotal counts logins verified against unhashed stored passwords.
	LegacyPasswordLoginsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "legacy_password_checks_total",
			Help:      "Password checks against stored values that are not bcrypt hashes.",
		},
	)
)
