package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nulzo/gateway-analytics-api/internal/store"
	"github.com/nulzo/gateway-analytics-api/internal/store/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type flakyUsage struct {
	err   error
	calls int
}

func (f *flakyUsage) CountsByDate(context.Context, store.CountsQuery) ([]model.CountRow, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []model.CountRow{{Bucket: "2024-12-01", Group: "adobe", Count: 1}}, nil
}

func (f *flakyUsage) TopUsers(context.Context, store.LeaderboardQuery) ([]model.LeaderboardRow, error) {
	f.calls++
	return nil, f.err
}

type usageOnlyRepo struct {
	store.Repository
	usage store.UsageRepository
}

func (r usageOnlyRepo) Usage() store.UsageRepository { return r.usage }

func TestWithBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	usage := &flakyUsage{err: errors.New("connection refused")}
	repo := WithBreaker(usageOnlyRepo{usage: usage}, BreakerSettings{
		Name: "test-open", FailureThreshold: 2, Timeout: time.Minute,
	}, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := repo.Usage().CountsByDate(ctx, store.CountsQuery{})
		assert.EqualError(t, err, "connection refused")
	}

	_, err := repo.Usage().TopUsers(ctx, store.LeaderboardQuery{})
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.Equal(t, 2, usage.calls)
}

func TestWithBreaker_PassesThrough(t *testing.T) {
	usage := &flakyUsage{}
	repo := WithBreaker(usageOnlyRepo{usage: usage}, BreakerSettings{
		Name: "test-pass", FailureThreshold: 1, Timeout: time.Minute,
	}, zap.NewNop())

	rows, err := repo.Usage().CountsByDate(context.Background(), store.CountsQuery{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWithBreaker_IgnoresCancellation(t *testing.T) {
	usage := &flakyUsage{err: context.Canceled}
	repo := WithBreaker(usageOnlyRepo{usage: usage}, BreakerSettings{
		Name: "test-cancel", FailureThreshold: 1, Timeout: time.Minute,
	}, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := repo.Usage().CountsByDate(context.Background(), store.CountsQuery{})
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, 3, usage.calls)
}
