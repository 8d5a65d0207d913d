package domain

import "errors"

// Common domain errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
)

// Infrastructure faults. These are never authentication outcomes.
var (
	ErrCaptchaUnavailable = errors.New("captcha verification service unavailable")
	ErrLockStateConflict  = errors.New("lock state changed concurrently, retries exhausted")
)

// Account errors
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrUsernameTaken       = errors.New("username already exists")
	ErrEmailTaken          = errors.New("email already exists")
	ErrInvalidRole         = errors.New("invalid role")
	ErrCannotDeleteSelf    = errors.New("cannot delete your own account")
	ErrCannotChangeOwnRole = errors.New("cannot change your own role")
	ErrOldPasswordWrong    = errors.New("old password is incorrect")
	ErrPasswordPolicy      = errors.New("password does not meet requirements")
)

// Password reset errors
var (
	ErrResetNotRequested = errors.New("no password reset requested")
	ErrResetCodeExpired  = errors.New("reset code expired")
	ErrResetCodeInvalid  = errors.New("invalid reset code")
)
