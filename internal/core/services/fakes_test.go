package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"tupad-admin/internal/adapters/persistence/models"
	"tupad-admin/internal/adapters/persistence/repositories"
	"tupad-admin/internal/config"
	"tupad-admin/internal/core/domain"
	"tupad-admin/internal/pkg/password"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeAccounts is an in-memory AccountRepository with the same CAS semantics
// as the GORM implementation
type fakeAccounts struct {
	mu     sync.Mutex
	byID   map[uint]*models.Account
	nextID uint

	casCalls   int
	lockWrites int
	failNext   error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: map[uint]*models.Account{}, nextID: 1}
}

func clone(a *models.Account) *models.Account {
	c := *a
	if a.LockUntil != nil {
		t := *a.LockUntil
		c.LockUntil = &t
	}
	return &c
}

func (f *fakeAccounts) take() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeAccounts) Create(_ context.Context, a *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = f.nextID
	f.nextID++
	a.CreatedAt = time.Now()
	f.byID[a.ID] = clone(a)
	return nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id uint) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.take(); err != nil {
		return nil, err
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return clone(a), nil
}

func (f *fakeAccounts) find(match func(*models.Account) bool) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.take(); err != nil {
		return nil, err
	}
	for _, a := range f.byID {
		if match(a) {
			return clone(a), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAccounts) GetByUsername(_ context.Context, username string) (*models.Account, error) {
	return f.find(func(a *models.Account) bool { return a.Username == username })
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	return f.find(func(a *models.Account) bool { return a.Email == email })
}

func (f *fakeAccounts) Update(_ context.Context, a *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[a.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Username, stored.Email, stored.Name, stored.Phone, stored.Role = a.Username, a.Email, a.Name, a.Phone, a.Role
	return nil
}

func (f *fakeAccounts) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

func (f *fakeAccounts) List(_ context.Context, offset, limit int, search string) ([]*models.Account, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*models.Account
	for id := uint(1); id < f.nextID; id++ {
		a, ok := f.byID[id]
		if !ok {
			continue
		}
		if search != "" && !strings.Contains(a.Username, search) && !strings.Contains(a.Email, search) {
			continue
		}
		all = append(all, clone(a))
	}
	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeAccounts) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := f.GetByUsername(ctx, username)
	return err == nil, ignoreNotFound(err)
}

func (f *fakeAccounts) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	return err == nil, ignoreNotFound(err)
}

func (f *fakeAccounts) CountByRole(_ context.Context, role domain.Role) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, a := range f.byID {
		if a.Role == string(role) {
			n++
		}
	}
	return n, nil
}

func (f *fakeAccounts) CompareAndSwapLockState(_ context.Context, id uint, expected, next domain.LockState) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.casCalls++
	if err := f.take(); err != nil {
		return false, err
	}
	a, ok := f.byID[id]
	if !ok || a.LoginAttempts != expected.LoginAttempts || a.AccountLocked != expected.AccountLocked ||
		!sameInstant(a.LockUntil, expected.LockUntil) {
		return false, nil
	}
	if next.AccountLocked && !a.AccountLocked {
		f.lockWrites++
	}
	a.ApplyLockState(next)
	return true, nil
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func (f *fakeAccounts) ResetLockState(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.take(); err != nil {
		return err
	}
	if a, ok := f.byID[id]; ok {
		a.ApplyLockState(domain.Unlocked())
	}
	return nil
}

func (f *fakeAccounts) UpdatePassword(_ context.Context, id uint, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.byID[id]; ok {
		a.Password = hash
		a.ResetPasswordOTP = nil
		a.ResetPasswordExpires = nil
	}
	return nil
}

func (f *fakeAccounts) SetResetOTP(_ context.Context, id uint, otpHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.byID[id]; ok {
		a.ResetPasswordOTP = &otpHash
		a.ResetPasswordExpires = &expiresAt
	}
	return nil
}

func (f *fakeAccounts) ClearResetOTP(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.byID[id]; ok {
		a.ResetPasswordOTP = nil
		a.ResetPasswordExpires = nil
	}
	return nil
}

func (f *fakeAccounts) ClearExpiredResetOTPs(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, a := range f.byID {
		if a.ResetPasswordExpires != nil && a.ResetPasswordExpires.Before(now) {
			a.ResetPasswordOTP = nil
			a.ResetPasswordExpires = nil
			n++
		}
	}
	return n, nil
}

// stored returns the persisted copy
func (f *fakeAccounts) stored(id uint) *models.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	return clone(f.byID[id])
}

func ignoreNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

type fakeSessions struct {
	mu      sync.Mutex
	records []*models.Session
}

func (f *fakeSessions) Create(_ context.Context, s *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = uint(len(f.records) + 1)
	f.records = append(f.records, s)
	return nil
}

func (f *fakeSessions) GetActiveByTokenHash(_ context.Context, hash string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.records {
		if s.TokenHash == hash && !s.IsRevoked() && !s.IsExpired() {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSessions) RevokeByTokenHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for _, s := range f.records {
		if s.TokenHash == hash && s.RevokedAt == nil {
			s.RevokedAt = &now
		}
	}
	return nil
}

func (f *fakeSessions) RevokeAllByAccountID(_ context.Context, accountID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for _, s := range f.records {
		if s.AccountID == accountID && s.RevokedAt == nil {
			s.RevokedAt = &now
		}
	}
	return nil
}

// activeFor counts the unrevoked, unexpired sessions of an account
func (f *fakeSessions) activeFor(accountID uint) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.records {
		if s.AccountID == accountID && !s.IsRevoked() && !s.IsExpired() {
			n++
		}
	}
	return n
}

func (f *fakeSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.records[:0]
	var n int64
	for _, s := range f.records {
		if s.RevokedAt != nil || s.ExpiresAt.Before(now) {
			n++
			continue
		}
		kept = append(kept, s)
	}
	f.records = kept
	return n, nil
}

// stubCaptcha returns a fixed answer and counts calls
type stubCaptcha struct {
	mu    sync.Mutex
	ok    bool
	err   error
	calls int
}

func (c *stubCaptcha) Verify(_ context.Context, _, _ string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.ok, c.err
}

type sentMail struct {
	to, name, code string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendResetCode(_ context.Context, to, name, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, name: name, code: code})
	return nil
}

// testHasher uses the lowest cost so tests stay fast
var testHasher = password.NewHasher(4)

func testConfig() *config.Config {
	return &config.Config{
		AppMode: "dev",
		JWT: config.JWTConfig{
			Secret:            "test-session-secret",
			ResetSecret:       "test-reset-secret",
			SessionDays:       30,
			ResetTokenMinutes: 15,
		},
		Security: config.SecurityConfig{
			BcryptCost:       4,
			CaptchaThreshold: 2,
			LockThreshold:    3,
			LockDuration:     30 * time.Minute,
			ResetOTPTTL:      5 * time.Minute,
		},
	}
}

// fixture wires services over the fakes with a controllable clock
type fixture struct {
	accounts *fakeAccounts
	sessions *fakeSessions
	captcha  *stubCaptcha
	lockout  *LockoutService
	auth     *AuthService
	now      time.Time
}

func newFixture() *fixture {
	f := &fixture{
		accounts: newFakeAccounts(),
		sessions: &fakeSessions{},
		captcha:  &stubCaptcha{ok: true},
		now:      time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	cfg := testConfig()
	f.lockout = NewLockoutService(f.accounts, PolicyFromConfig(cfg), zap.NewNop())
	f.lockout.now = func() time.Time { return f.now }
	f.auth = NewAuthService(f.accounts, f.sessions, f.lockout, f.captcha, testHasher, cfg, zap.NewNop())
	return f
}

// authOver wires an AuthService over a wrapped account store, sharing the
// fixture's clock, sessions and CAPTCHA stub
func (f *fixture) authOver(accounts repositories.AccountRepository) *AuthService {
	cfg := testConfig()
	lockout := NewLockoutService(accounts, PolicyFromConfig(cfg), zap.NewNop())
	lockout.now = func() time.Time { return f.now }
	return NewAuthService(accounts, f.sessions, lockout, f.captcha, testHasher, cfg, zap.NewNop())
}

// lockAfterRead commits a lock right after the login path loaded the account,
// as a concurrent failing request would
type lockAfterRead struct {
	*fakeAccounts
	until time.Time
}

func (r *lockAfterRead) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	a, err := r.fakeAccounts.GetByUsername(ctx, username)
	if err == nil {
		until := r.until
		r.mu.Lock()
		r.byID[a.ID].ApplyLockState(domain.LockState{LoginAttempts: 3, AccountLocked: true, LockUntil: &until})
		r.mu.Unlock()
	}
	return a, err
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) addAccount(t *testing.T, username, plain string, role domain.Role) *models.Account {
	t.Helper()
	hash, err := testHasher.Hash(plain)
	require.NoError(t, err)
	a := &models.Account{
		Username: username,
		Email:    username + "@tupad.test",
		Password: hash,
		Role:     string(role),
	}
	_ = f.accounts.Create(context.Background(), a)
	return a
}

func (f *fixture) login(t *testing.T, username, pw, captcha string) *domain.AuthResult {
	t.Helper()
	res, err := f.auth.Authenticate(context.Background(), LoginInput{
		Username:     username,
		Password:     pw,
		CaptchaToken: captcha,
		RemoteIP:     "203.0.113.7",
	})
	require.NoError(t, err)
	return res
}
