package analytics

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/nulzo/gateway-analytics-api/internal/platform/metrics"
	"github.com/nulzo/gateway-analytics-api/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/nulzo/gateway-analytics-api/internal/analytics")

const (
	opFetchCounts      = "fetch_counts"
	opFetchLeaderboard = "fetch_leaderboard"
)

// Service builds analytics reports from the usage store.
type Service interface {
	// Summary returns the densified request report for a date range.
	Summary(ctx context.Context, q store.CountsQuery) (*Report, error)
	// TopUsers returns one page of the per-user usage ranking.
	TopUsers(ctx context.Context, q store.LeaderboardQuery) (*Leaderboard, error)
}

// Options tunes a Service.
type Options struct {
	// QueryTimeout bounds every data source call. Zero disables the bound.
	QueryTimeout time.Duration
	// GroupByColumns is the allowlist of key columns reports may be grouped by.
	GroupByColumns []string
}

type service struct {
	logger *zap.Logger
	repo   store.Repository
	opts   Options
}

func NewService(logger *zap.Logger, repo store.Repository, opts Options) Service {
	return &service{
		logger: logger,
		repo:   repo,
		opts:   opts,
	}
}

func (s *service) Summary(ctx context.Context, q store.CountsQuery) (*Report, error) {
	ctx, span := tracer.Start(ctx, "analytics.summary",
		trace.WithAttributes(
			attribute.String("group_by", q.GroupBy),
			attribute.String("start_date", q.Start.Format(DayLayout)),
			attribute.String("end_date", q.End.Format(DayLayout)),
		))
	defer span.End()

	if err := s.checkGroupBy(q.GroupBy); err != nil {
		return nil, err
	}

	axis, err := Decide(q.Start, q.End)
	if err != nil {
		return nil, err
	}
	if axis.SpanDays == 0 {
		return nil, fmt.Errorf("%w: start_date and end_date are both %s; the range must cover at least one full day, so end_date must be after start_date",
			ErrInvalidRange, q.Start.Format(DayLayout))
	}
	span.SetAttributes(attribute.String("granularity", string(axis.Granularity)))

	qctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	rows, err := s.repo.Usage().CountsByDate(qctx, q)
	metrics.QueryDuration.WithLabelValues(opFetchCounts).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, s.upstream(span, opFetchCounts, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyResult
	}

	groups := GroupOrder(rows)
	rolled := Reaggregate(rows, axis.Granularity)
	dense := Densify(rolled, axis.Buckets)
	if filled := len(dense) - len(rolled); filled > 0 {
		metrics.FilledCells.WithLabelValues(string(axis.Granularity)).Add(float64(filled))
	}

	s.logger.Debug("Densified analytics rows",
		zap.String("granularity", string(axis.Granularity)),
		zap.Int("raw_rows", len(rows)),
		zap.Int("dense_rows", len(dense)),
		zap.Int("groups", len(groups)),
	)

	report, err := BuildReport(dense, groups, axis.SpanDays)
	if err != nil {
		return nil, err
	}
	report.Data.Granularity = axis.Granularity
	return report, nil
}

func (s *service) TopUsers(ctx context.Context, q store.LeaderboardQuery) (*Leaderboard, error) {
	ctx, span := tracer.Start(ctx, "analytics.top_users",
		trace.WithAttributes(
			attribute.String("group_by", q.GroupBy),
			attribute.Int("limit", q.Limit),
			attribute.Int("offset", q.Offset),
		))
	defer span.End()

	if err := s.checkGroupBy(q.GroupBy); err != nil {
		return nil, err
	}
	if calendarDate(q.End).Before(calendarDate(q.Start)) {
		return nil, fmt.Errorf("%w: end date %s is before start date %s",
			ErrInvalidRange, q.End.Format(DayLayout), q.Start.Format(DayLayout))
	}

	qctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	rows, err := s.repo.Usage().TopUsers(qctx, q)
	metrics.QueryDuration.WithLabelValues(opFetchLeaderboard).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, s.upstream(span, opFetchLeaderboard, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyResult
	}

	return BuildLeaderboard(rows)
}

func (s *service) checkGroupBy(column string) error {
	if !slices.Contains(s.opts.GroupByColumns, column) {
		return fmt.Errorf("%w: %q", ErrInvalidGroupBy, column)
	}
	return nil
}

func (s *service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.QueryTimeout)
}

func (s *service) upstream(span trace.Span, op string, err error) error {
	metrics.QueryErrors.WithLabelValues(op).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	s.logger.Warn("Analytics query failed", zap.String("op", op), zap.Error(err))
	return &UpstreamError{Op: op, Err: err}
}
