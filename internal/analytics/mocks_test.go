package analytics

import (
	"context"
	"sync"

	"github.com/nulzo/gateway-analytics-api/internal/store"
	"github.com/nulzo/gateway-analytics-api/internal/store/model"
	"github.com/stretchr/testify/mock"
)

// MockUsage implements store.UsageRepository for testing
type MockUsage struct {
	mock.Mock
}

func (m *MockUsage) CountsByDate(ctx context.Context, q store.CountsQuery) ([]model.CountRow, error) {
	args := m.Called(ctx, q)
	rows, _ := args.Get(0).([]model.CountRow)
	return rows, args.Error(1)
}

func (m *MockUsage) TopUsers(ctx context.Context, q store.LeaderboardQuery) ([]model.LeaderboardRow, error) {
	args := m.Called(ctx, q)
	rows, _ := args.Get(0).([]model.LeaderboardRow)
	return rows, args.Error(1)
}

// fakeRepo is a store.Repository whose usage queries are mocked and whose
// recorded events are kept in memory.
type fakeRepo struct {
	usage *MockUsage

	mu     sync.Mutex
	events []*model.RequestEvent
	txs    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{usage: new(MockUsage)}
}

func (r *fakeRepo) Usage() store.UsageRepository { return r.usage }
func (r *fakeRepo) Users() store.UserRepository   { return nil }
func (r *fakeRepo) Keys() store.APIKeyRepository  { return nil }
func (r *fakeRepo) Events() store.EventRepository { return r }
func (r *fakeRepo) Ping(context.Context) error    { return nil }
func (r *fakeRepo) Close() error                  { return nil }

func (r *fakeRepo) WithTx(ctx context.Context, fn func(repo store.Repository) error) error {
	r.mu.Lock()
	r.txs++
	r.mu.Unlock()
	return fn(r)
}

func (r *fakeRepo) Record(_ context.Context, e *model.RequestEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *fakeRepo) recorded() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
