package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nulzo/gateway-analytics-api/internal/platform/metrics"
	"github.com/nulzo/gateway-analytics-api/internal/store"
	"github.com/nulzo/gateway-analytics-api/internal/store/model"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerSettings configures the circuit breaker around usage queries.
type BreakerSettings struct {
	Name string
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold uint32
	// Timeout is how long the circuit stays open before a trial query is let through.
	Timeout time.Duration
}

// WithBreaker wraps the usage queries of repo in a circuit breaker. While the
// circuit is open, queries fail fast with store.ErrUnavailable.
func WithBreaker(repo store.Repository, s BreakerSettings, logger *zap.Logger) store.Repository {
	if s.Name == "" {
		s.Name = "analytics-db"
	}
	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.FailureThreshold
		},
		// a caller giving up is not a data source failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &breakerRepo{Repository: repo, cb: cb}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

type breakerRepo struct {
	store.Repository
	cb *gobreaker.CircuitBreaker[any]
}

func (r *breakerRepo) Usage() store.UsageRepository {
	return &breakerUsage{next: r.Repository.Usage(), cb: r.cb}
}

func (r *breakerRepo) WithTx(ctx context.Context, fn func(repo store.Repository) error) error {
	return r.Repository.WithTx(ctx, func(tx store.Repository) error {
		return fn(&breakerRepo{Repository: tx, cb: r.cb})
	})
}

type breakerUsage struct {
	next store.UsageRepository
	cb   *gobreaker.CircuitBreaker[any]
}

func (u *breakerUsage) CountsByDate(ctx context.Context, q store.CountsQuery) ([]model.CountRow, error) {
	res, err := u.cb.Execute(func() (any, error) {
		return u.next.CountsByDate(ctx, q)
	})
	if err != nil {
		return nil, breakerError(err)
	}
	rows, _ := res.([]model.CountRow)
	return rows, nil
}

func (u *breakerUsage) TopUsers(ctx context.Context, q store.LeaderboardQuery) ([]model.LeaderboardRow, error) {
	res, err := u.cb.Execute(func() (any, error) {
		return u.next.TopUsers(ctx, q)
	})
	if err != nil {
		return nil, breakerError(err)
	}
	rows, _ := res.([]model.LeaderboardRow)
	return rows, nil
}

func breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return err
}
