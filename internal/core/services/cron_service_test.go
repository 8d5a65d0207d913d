package services

import (
	"context"
	"testing"
	"time"

	"tupad-admin/internal/adapters/persistence/models"
	"tupad-admin/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingSweeper struct {
	calls int
}

func (s *countingSweeper) DeleteExpired(_ context.Context, _ time.Time) (int64, error) {
	s.calls++
	return 2, nil
}

func TestCronService_RunAll(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.addAccount(t, "encoder1", goodPassword, domain.RoleDataEncoder)

	require.NoError(t, f.sessions.Create(ctx, &models.Session{AccountID: a.ID, TokenHash: "old", ExpiresAt: time.Now().Add(-time.Hour)}))
	require.NoError(t, f.sessions.Create(ctx, &models.Session{AccountID: a.ID, TokenHash: "live", ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, f.accounts.SetResetOTP(ctx, a.ID, "hash", time.Now().Add(-time.Minute)))

	sweeper := &countingSweeper{}
	svc := NewCronService(f.sessions, f.accounts, sweeper, zap.NewNop())
	svc.RunAll()

	assert.Equal(t, 1, sweeper.calls)
	require.Len(t, f.sessions.records, 1)
	assert.Equal(t, "live", f.sessions.records[0].TokenHash)
	assert.Nil(t, f.accounts.stored(a.ID).ResetPasswordOTP)
}

func TestCronService_StartStop(t *testing.T) {
	f := newFixture()
	svc := NewCronService(f.sessions, f.accounts, &countingSweeper{}, zap.NewNop())
	require.NoError(t, svc.Start())
	assert.Len(t, svc.cron.Entries(), 3)
	svc.Stop()
}
