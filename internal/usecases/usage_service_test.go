package usecases

import (
	"context"
	"testing"
	"time"

	"viloai/internal/entities"
	"viloai/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageServiceStatus(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := NewUsageService(store)
	svc.now = func() time.Time { return time.Date(2026, 10, 31, 23, 30, 0, 0, time.UTC) }

	user := &entities.User{ID: 1, MonthlyLimit: 4}
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Record(ctx, user.ID))
	}

	ok, err := svc.CanAnalyze(ctx, user)
	require.NoError(t, err)
	assert.True(t, ok)

	status, err := svc.Status(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, &entities.UsageStatus{Month: "2026-10", MonthlyLimit: 4, Used: 3, MonthlyRemaining: 1, MonthlyPercent: 75}, status)

	require.NoError(t, svc.Record(ctx, user.ID))
	require.NoError(t, svc.Record(ctx, user.ID))
	ok, err = svc.CanAnalyze(ctx, user)
	require.NoError(t, err)
	assert.False(t, ok)

	status, err = svc.Status(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 0, status.MonthlyRemaining)
	assert.Equal(t, 100, status.MonthlyPercent)

	// The counter resets with the calendar month.
	svc.now = func() time.Time { return time.Date(2026, 11, 1, 0, 0, 1, 0, time.UTC) }
	ok, err = svc.CanAnalyze(ctx, user)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUsageServiceUnlimited(t *testing.T) {
	ctx := context.Background()
	svc := NewUsageService(repository.NewMemoryStore())
	user := &entities.User{ID: 1}

	for i := 0; i < 50; i++ {
		require.NoError(t, svc.Record(ctx, user.ID))
	}
	ok, err := svc.CanAnalyze(ctx, user)
	require.NoError(t, err)
	assert.True(t, ok)

	status, err := svc.Status(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, -1, status.MonthlyRemaining)
	assert.Equal(t, 50, status.Used)
}
