package store

import (
	"context"
	"errors"
	"time"

	"github.com/nulzo/gateway-analytics-api/internal/store/model"
)

// ErrUnavailable is returned while the data source is shedding load after
// repeated failures.
var ErrUnavailable = errors.New("data source unavailable")

// Repository is the main contract for the data layer.
type Repository interface {
	Usage() UsageRepository
	Users() UserRepository
	Keys() APIKeyRepository
	Events() EventRepository

	// transaction support
	WithTx(ctx context.Context, fn func(repo Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// CountsQuery selects request counts per (date, group) for an inclusive date range.
type CountsQuery struct {
	GroupBy string
	Start   time.Time
	End     time.Time
	// UserID restricts the counts to keys owned by one requester when set.
	UserID *int64
}

// LeaderboardQuery selects one page of per-user usage.
type LeaderboardQuery struct {
	GroupBy string
	Start   time.Time
	End     time.Time
	Limit   int
	Offset  int
	// GroupFilter keeps only rows whose group value matches when set.
	GroupFilter *string
}

type UsageRepository interface {
	// CountsByDate returns one row per (request date, group value) with at least one request.
	CountsByDate(ctx context.Context, q CountsQuery) ([]model.CountRow, error)
	// TopUsers returns a page ordered by usage descending, then user id ascending.
	TopUsers(ctx context.Context, q LeaderboardQuery) ([]model.LeaderboardRow, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
}

type APIKeyRepository interface {
	Create(ctx context.Context, key *model.APIKey) error
}

type EventRepository interface {
	// Record stores a request event.
	Record(ctx context.Context, event *model.RequestEvent) error
}
