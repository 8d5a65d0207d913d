package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"tupad-admin/internal/core/domain"
	"tupad-admin/internal/pkg/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodPassword = "Secret#123"

func setAttempts(f *fixture, id uint, n int) {
	f.accounts.byID[id].LoginAttempts = n
}

func TestAuthenticate_WrongPasswordBelowChallengeThreshold(t *testing.T) {
	for _, start := range []int{0, 1} {
		t.Run(fmt.Sprintf("attempts=%d", start), func(t *testing.T) {
			f := newFixture()
			a := f.addAccount(t, "encoder1", goodPassword, domain.RoleDataEncoder)
			setAttempts(f, a.ID, start)

			res := f.login(t, "encoder1", "wrong", "")
			assert.Equal(t, domain.OutcomeInvalidCredentials, res.Outcome)
			assert.Equal(t, start+1, f.accounts.stored(a.ID).LoginAttempts)
			assert.Zero(t, f.captcha.calls)
		})
	}
}

func TestAuthenticate_Scenario1_FreshAccount(t *testing.T) {
	f := newFixture()
	f.addAccount(t, "encoder1", goodPassword, domain.RoleDataEncoder)

	res := f.login(t, "encoder1", "wrong", "")
	assert.Equal(t, domain.OutcomeInvalidCredentials, res.Outcome)
	assert.Equal(t, 2, res.RemainingAttempts)
	assert.Empty(t, res.Warning)
	assert.False(t, f.auth.RequiresCaptcha(res))
}

func TestAuthenticate_Scenario2_SecondFailureWarns(t *testing.T) {
	f := newFixture()
	a := f.addAccount(t, "encoder1", goodPassword, domain.RoleDataEncoder)
	setAttempts(f, a.ID, 1)

	res := f.login(t, "encoder1", "wrong", "")
	assert.Equal(t, domain.OutcomeInvalidCredentials, res.Outcome)
	assert.Equal(t, 1, res.RemainingAttempts)
	assert.Equal(t, domain.LockWarning(1), res.Warning)
	assert.True(t, f.auth.RequiresCaptcha(res))
	assert.Equal(t, 2, f.accounts.stored(a.ID).LoginAttempts)
}

func TestAuthenticate_Scenario3_ChallengeThenLock(t *testing.T) {
	f := newFixture()
	a := f.addAccount(t, "encoder1", goodPassword, domain.RoleDataEncoder)
	setAttempts(f, a.ID, 2)

	res := f.login(t, "encoder1", "wrong", "")
	assert.Equal(t, domain.OutcomeChallengeRequired, res.Outcome)
	assert.Equal(t, 2, f.accounts.stored(a.ID).LoginAttempts, "challenge rejection consumes no attempt")

	res = f.login(t, "encoder1", "wrong", "captcha-token")
	assert.Equal(t, domain.OutcomeAccountLocked, res.Outcome)
	require.NotNil(t, res.LockedUntil)
	assert.Equal(t, f.now.Add(30*time.Minute), *res.LockedUntil)

	stored := f.accounts.stored(a.ID)
	assert.Equal(t, 3, stored.LoginAttempts)
	assert.True(t, stored.AccountLocked)
}

func TestAuthenticate_Scenario4_ExpiredLockWithCorrectPassword(t *testing.T) {
	f := newFixture()
	a := f.addAccount(t, "encoder1", goodPassword, domain.RoleDataEncoder)
	past := f.now.Add(-time.Minute)
	f.accounts.byID[a.ID].ApplyLockState(domain.LockState{LoginAttempts: 3, AccountLocked: true, LockUntil: &past})

	res := f.login(t, "encoder1", goodPassword, "")
	require.Equal(t, domain.OutcomeSuccess, res.Outcome)
	require.NotNil(t, res.Session)
	assert.NotEmpty(t, res.Session.Token)

	stored := f.accounts.stored(a.ID)
	assert.Equal(t, 0, stored.LoginAttempts)
	assert.False(t, stored.AccountLocked)
	assert.Nil(t, stored.LockUntil)
}

func TestAuthenticate_ExpiredLockWithWrongPasswordCountsFromZero(t *testing.T) {
	f := newFixture()
	a := f.addAccount(t, "encoder1", goodPassword, domain.RoleDataEncoder)
	past := f.now.Add(-time.Second)
	f.accounts.byID[a.ID].ApplyLockState(domain.LockState{LoginAttempts: 3, AccountLocked: true, LockUntil: &past})

	res := f.login(t, "encoder1", "wrong", "")
	assert.Equal(t, domain.OutcomeInvalidCredentials, res.Outcome)
	assert.Equal(t, 2, res.RemainingAttempts)
	assert.Equal(t, 1, f.accounts.stored(a.ID).LoginAttempts)
}

func TestAuthenticate_ThreeFailuresLockThenCorrectPasswordRefused(t *testing.T) {
	f := newFixture()
	a := f.addAccount(t, "encoder1", goodPassword, domain.RoleDataEncoder)

	assert.Equal(t, domain.OutcomeInvalidCredentials, f.login(t, "encoder1", "bad1", "").Outcome)
	assert.Equal(t, domain.OutcomeInvalidCredentials, f.login(t, "encoder1", "bad2", "").Outcome)
	assert.Equal(t, domain.OutcomeAccountLocked, f.login(t, "encoder1", "bad3", "token").Outcome)

	stored := f.accounts.stored(a.ID)
	assert.True(t, stored.AccountLocked)
	require.NotNil(t, stored.LockUntil)
	assert.WithinDuration(t, f.now.Add(30*time.Minute), *stored.LockUntil, time.Second)

	f.advance(29 * time.Minute)
	res := f.login(t, "encoder1", goodPassword, "token")
	assert.Equal(t, domain.OutcomeAccountLocked, res.Outcome)
	assert.Nil(t, res.Session)

	f.advance(2 * time.Minute)
	res = f.login(t, "encoder1", goodPassword, "")
	assert.Equal(t, domain.OutcomeSuccess, res.Outcome)
}

func TestAuthenticate_CorrectPasswordKeepsConcurrentLock(t *testing.T) {
	f := newFixture()
	a := f.addAccount(t, "encoder1", goodPassword, domain.RoleDataEncoder)
	until := f.now.Add(30 * time.Minute)
	auth := f.authOver(&lockAfterRead{fakeAccounts: f.accounts, until: until})

	res, err := auth.Authenticate(context.Background(), LoginInput{Username: "encoder1", Password: goodPassword})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAccountLocked, res.Outcome)
	assert.Nil(t, res.Session)
	require.NotNil(t, res.LockedUntil)
	assert.Equal(t, until, *res.LockedUntil)

	stored := f.accounts.stored(a.ID)
	assert.Equal(t, 3, stored.LoginAttempts)
	assert.True(t, stored.AccountLocked)
	assert.Zero(t, f.sessions.activeFor(a.ID))
}

func TestAuthenticate_SuccessResetsFromAnyCount(t *testing.T) {
	for _, start := range []int{0, 1, 2} {
		t.Run(fmt.Sprintf("attempts=%d", start), func(t *testing.T) {
			f := newFixture()
			a := f.addAccount(t, "encoder1", goodPassword, domain.RoleDataEncoder)
			setAttempts(f, a.ID, start)

			res := f.login(t, "encoder1", goodPassword, "token")
			require.Equal(t, domain.OutcomeSuccess, res.Outcome)
			assert.Equal(t, domain.RoleDataEncoder, res.Role)

			stored := f.accounts.stored(a.ID)
			assert.Equal(t, 0, stored.LoginAttempts)
			assert.False(t, stored.AccountLocked)
		})
	}
}

func TestAuthenticate_ChallengeFailedConsumesNoAttempt(t *testing.T) {
	f := newFixture()
	a := f.addAccount(t, "encoder1", goodPassword, domain.RoleDataEncoder)
	setAttempts(f, a.ID, 2)
	f.captcha.ok = false

	res := f.login(t, "encoder1", goodPassword, "forged")
	assert.Equal(t, domain.OutcomeChallengeFailed, res.Outcome)
	assert.True(t, f.auth.RequiresCaptcha(res))
	assert.Equal(t, 2, f.accounts.stored(a.ID).LoginAttempts)
}

func TestAuthenticate_CaptchaOutageIsAFault(t *testing.T) {
	f := newFixture()
	a := f.addAccount(t, "encoder1", goodPassword, domain.RoleDataEncoder)
	setAttempts(f, a.ID, 2)
	f.captcha.err = fmt.Errorf("%w: timeout", domain.ErrCaptchaUnavailable)

	res, err := f.auth.Authenticate(context.Background(), LoginInput{
		Username: "encoder1", Password: goodPassword, CaptchaToken: "token",
	})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrCaptchaUnavailable)
	assert.Equal(t, 2, f.accounts.stored(a.ID).LoginAttempts)
}

func TestAuthenticate_DatabaseFaultIsAFault(t *testing.T) {
	f := newFixture()
	f.addAccount(t, "encoder1", goodPassword, domain.RoleDataEncoder)
	boom := errors.New("db down")
	f.accounts.failNext = boom

	res, err := f.auth.Authenticate(context.Background(), LoginInput{Username: "encoder1", Password: goodPassword})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, boom)
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	f := newFixture()
	f.addAccount(t, "encoder1", goodPassword, domain.RoleDataEncoder)

	res := f.login(t, "Encoder1", goodPassword, "")
	assert.Equal(t, domain.OutcomeUserNotFound, res.Outcome, "usernames are case-sensitive")
}

func TestAuthenticate_LegacyPlaintextIsUpgraded(t *testing.T) {
	f := newFixture()
	a := f.addAccount(t, "legacy", goodPassword, domain.RoleDataEncoder)
	f.accounts.byID[a.ID].Password = "plain-Secret1!"

	res := f.login(t, "legacy", "plain-Secret1!", "")
	require.Equal(t, domain.OutcomeSuccess, res.Outcome)

	stored := f.accounts.stored(a.ID)
	assert.True(t, password.IsBcryptHash(stored.Password))
	assert.True(t, testHasher.Verify("plain-Secret1!", stored.Password))

	res = f.login(t, "legacy", "plain-Secret1!", "")
	assert.Equal(t, domain.OutcomeSuccess, res.Outcome)
}

func TestAuthenticate_LegacyPlaintextWrongPasswordCounts(t *testing.T) {
	f := newFixture()
	a := f.addAccount(t, "legacy", goodPassword, domain.RoleDataEncoder)
	f.accounts.byID[a.ID].Password = "plain-Secret1!"

	res := f.login(t, "legacy", "plain-Secret1", "")
	assert.Equal(t, domain.OutcomeInvalidCredentials, res.Outcome)
	assert.Equal(t, "plain-Secret1!", f.accounts.stored(a.ID).Password)
}

func TestSessions_ValidateLogoutAndLogoutAll(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.addAccount(t, "encoder1", goodPassword, domain.RoleSystemAdmin)

	first := f.login(t, "encoder1", goodPassword, "")
	second := f.login(t, "encoder1", goodPassword, "")
	require.True(t, first.IsSuccess())
	require.True(t, second.IsSuccess())
	assert.NotEqual(t, first.Session.Token, second.Session.Token)

	claims, account, err := f.auth.ValidateSession(ctx, first.Session.Token)
	require.NoError(t, err)
	assert.Equal(t, a.ID, claims.AccountID)
	assert.Equal(t, "system_admin", claims.Role)
	assert.Equal(t, a.ID, account.ID)

	require.NoError(t, f.auth.Logout(ctx, first.Session.Token))
	_, _, err = f.auth.ValidateSession(ctx, first.Session.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, _, err = f.auth.ValidateSession(ctx, second.Session.Token)
	require.NoError(t, err)

	require.NoError(t, f.auth.LogoutAll(ctx, a.ID))
	_, _, err = f.auth.ValidateSession(ctx, second.Session.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, _, err = f.auth.ValidateSession(ctx, "garbage")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestSessions_StoredOnlyAsHash(t *testing.T) {
	f := newFixture()
	f.addAccount(t, "encoder1", goodPassword, domain.RoleDataEncoder)

	res := f.login(t, "encoder1", goodPassword, "")
	require.True(t, res.IsSuccess())
	require.Len(t, f.sessions.records, 1)
	assert.Equal(t, password.HashToken(res.Session.Token), f.sessions.records[0].TokenHash)
	assert.Equal(t, "203.0.113.7", f.sessions.records[0].IPAddress)
}
