package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nulzo/gateway-analytics-api/internal/store"
	"github.com/nulzo/gateway-analytics-api/internal/store/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(repo store.Repository) Service {
	return NewService(zap.NewNop(), repo, Options{
		QueryTimeout:   time.Second,
		GroupByColumns: []string{"ref_app", "tier"},
	})
}

func TestSummary_Daily(t *testing.T) {
	repo := newFakeRepo()
	q := store.CountsQuery{GroupBy: "ref_app", Start: date(t, "2024-01-01"), End: date(t, "2024-01-02")}
	repo.usage.On("CountsByDate", mock.Anything, q).Return([]model.CountRow{
		{Bucket: "2024-01-01", Group: "adobe", Count: 3000},
		{Bucket: "2024-01-02", Group: "adobe", Count: 1000},
	}, nil)

	report, err := newTestService(repo).Summary(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, Daily, report.Data.Granularity)
	assert.Equal(t, int64(4000), report.Summary.TotalRequests)
	assert.Equal(t, int64(4000), report.Summary.AverageDailyRequests)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, report.Data.Range)
	assert.Equal(t, []int64{3000, 1000}, report.Data.Cumulative)
	assert.Equal(t, []Series{{Group: "adobe", Data: []int64{3000, 1000}}}, report.Data.Trend)
	repo.usage.AssertExpectations(t)
}

func TestSummary_Monthly(t *testing.T) {
	repo := newFakeRepo()
	userID := int64(42)
	q := store.CountsQuery{GroupBy: "tier", Start: date(t, "2024-01-01"), End: date(t, "2024-02-05"), UserID: &userID}
	repo.usage.On("CountsByDate", mock.Anything, q).Return([]model.CountRow{
		{Bucket: "2024-02-03", Group: "pro", Count: 10},
		{Bucket: "2024-01-10", Group: "free", Count: 20},
		{Bucket: "2024-01-11", Group: "free", Count: 5},
		{Bucket: "2024-02-04", Group: "pro", Count: 35},
	}, nil)

	report, err := newTestService(repo).Summary(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, Monthly, report.Data.Granularity)
	assert.Equal(t, []string{"2024-01", "2024-02"}, report.Data.Range)
	assert.Equal(t, []int64{25, 45}, report.Data.Cumulative)
	assert.Equal(t, []Series{
		{Group: "pro", Data: []int64{0, 45}},
		{Group: "free", Data: []int64{25, 0}},
	}, report.Data.Trend)
	assert.Equal(t, int64(70), report.Summary.TotalRequests)
	assert.Equal(t, int64(2), report.Summary.AverageDailyRequests) // 70 / 35 days
}

func TestSummary_Empty(t *testing.T) {
	repo := newFakeRepo()
	repo.usage.On("CountsByDate", mock.Anything, mock.Anything).Return([]model.CountRow{}, nil)

	report, err := newTestService(repo).Summary(context.Background(), store.CountsQuery{
		GroupBy: "ref_app", Start: date(t, "2024-01-01"), End: date(t, "2024-01-02"),
	})
	assert.ErrorIs(t, err, ErrEmptyResult)
	assert.Nil(t, report)
}

func TestSummary_SameDayRange(t *testing.T) {
	repo := newFakeRepo()

	_, err := newTestService(repo).Summary(context.Background(), store.CountsQuery{
		GroupBy: "ref_app", Start: date(t, "2024-12-03"), End: date(t, "2024-12-03"),
	})
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.ErrorContains(t, err, "at least one full day")
	assert.ErrorContains(t, err, "end_date must be after start_date")
	repo.usage.AssertNotCalled(t, "CountsByDate", mock.Anything, mock.Anything)
}

func TestSummary_CenturiesLongRange(t *testing.T) {
	repo := newFakeRepo()
	repo.usage.On("CountsByDate", mock.Anything, mock.Anything).Return([]model.CountRow{
		{Bucket: "2023-06-01", Group: "adobe", Count: 154863 * 3},
	}, nil)

	report, err := newTestService(repo).Summary(context.Background(), store.CountsQuery{
		GroupBy: "ref_app", Start: date(t, "1600-01-01"), End: date(t, "2024-01-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.Summary.AverageDailyRequests)
}

func TestSummary_RejectsBadInputBeforeQuerying(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	_, err := svc.Summary(context.Background(), store.CountsQuery{
		GroupBy: "value; DROP TABLE key_tbl", Start: date(t, "2024-01-01"), End: date(t, "2024-01-02"),
	})
	assert.ErrorIs(t, err, ErrInvalidGroupBy)

	_, err = svc.Summary(context.Background(), store.CountsQuery{
		GroupBy: "ref_app", Start: date(t, "2024-01-05"), End: date(t, "2024-01-02"),
	})
	assert.ErrorIs(t, err, ErrInvalidRange)

	repo.usage.AssertNotCalled(t, "CountsByDate", mock.Anything, mock.Anything)
}

func TestSummary_UpstreamFailure(t *testing.T) {
	repo := newFakeRepo()
	dbErr := errors.New("connection refused")
	repo.usage.On("CountsByDate", mock.Anything, mock.Anything).Return(nil, dbErr)

	_, err := newTestService(repo).Summary(context.Background(), store.CountsQuery{
		GroupBy: "ref_app", Start: date(t, "2024-01-01"), End: date(t, "2024-01-02"),
	})

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "fetch_counts", upstream.Op)
	assert.False(t, upstream.Timeout())
	assert.ErrorIs(t, err, dbErr)
}

func TestSummary_Timeout(t *testing.T) {
	repo := newFakeRepo()
	repo.usage.On("CountsByDate", mock.Anything, mock.Anything).
		Return(nil, context.DeadlineExceeded)

	_, err := newTestService(repo).Summary(context.Background(), store.CountsQuery{
		GroupBy: "ref_app", Start: date(t, "2024-01-01"), End: date(t, "2024-01-02"),
	})

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.True(t, upstream.Timeout())
}

func TestSummary_AppliesQueryTimeout(t *testing.T) {
	repo := newFakeRepo()
	repo.usage.On("CountsByDate", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), mock.Anything).Return([]model.CountRow{{Bucket: "2024-01-01", Group: "a", Count: 1}}, nil)

	_, err := newTestService(repo).Summary(context.Background(), store.CountsQuery{
		GroupBy: "ref_app", Start: date(t, "2024-01-01"), End: date(t, "2024-01-02"),
	})
	require.NoError(t, err)
	repo.usage.AssertExpectations(t)
}

func TestTopUsers(t *testing.T) {
	repo := newFakeRepo()
	filter := "chrome_extension"
	q := store.LeaderboardQuery{
		GroupBy: "ref_app", Start: date(t, "2024-12-01"), End: date(t, "2024-12-03"),
		Limit: 10, GroupFilter: &filter,
	}
	repo.usage.On("TopUsers", mock.Anything, q).Return([]model.LeaderboardRow{
		{Group: filter, UserID: 2, FirstName: "Lin", Usage: 9, TotalRecords: 2},
		{Group: filter, UserID: 1, FirstName: "Kai", Usage: 9, TotalRecords: 2},
	}, nil)

	board, err := newTestService(repo).TopUsers(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, int64(2), board.TotalUsers)
	require.Len(t, board.Users, 2)
	assert.Equal(t, int64(2), board.Users[0].UserID)
	assert.Equal(t, int64(1), board.Users[1].UserID)
}

func TestTopUsers_EmptyAndFailures(t *testing.T) {
	q := store.LeaderboardQuery{GroupBy: "tier", Start: date(t, "2024-12-01"), End: date(t, "2024-12-03"), Limit: 10}

	t.Run("empty", func(t *testing.T) {
		repo := newFakeRepo()
		repo.usage.On("TopUsers", mock.Anything, q).Return(nil, nil)
		_, err := newTestService(repo).TopUsers(context.Background(), q)
		assert.ErrorIs(t, err, ErrEmptyResult)
	})

	t.Run("upstream", func(t *testing.T) {
		repo := newFakeRepo()
		repo.usage.On("TopUsers", mock.Anything, q).Return(nil, errors.New("boom"))
		_, err := newTestService(repo).TopUsers(context.Background(), q)
		var upstream *UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, "fetch_leaderboard", upstream.Op)
	})

	t.Run("reversed range", func(t *testing.T) {
		repo := newFakeRepo()
		bad := q
		bad.Start, bad.End = q.End, q.Start
		_, err := newTestService(repo).TopUsers(context.Background(), bad)
		assert.ErrorIs(t, err, ErrInvalidRange)
		repo.usage.AssertNotCalled(t, "TopUsers", mock.Anything, mock.Anything)
	})
}
