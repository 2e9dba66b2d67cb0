package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/gateway-analytics-api/internal/analytics"
	"github.com/nulzo/gateway-analytics-api/internal/server/validator"
	"github.com/nulzo/gateway-analytics-api/internal/store"
	"github.com/nulzo/gateway-analytics-api/pkg/api"
)

// Limits bounds leaderboard paging.
type Limits struct {
	DefaultLimit int
	MaxLimit     int
	// RetryAfter is advertised on 503 and 504 responses.
	RetryAfter time.Duration
}

type AnalyticsHandler struct {
	service analytics.Service
	limits  Limits
}

func NewAnalyticsHandler(service analytics.Service, limits Limits) *AnalyticsHandler {
	if limits.DefaultLimit <= 0 {
		limits.DefaultLimit = 10
	}
	if limits.MaxLimit < limits.DefaultLimit {
		limits.MaxLimit = limits.DefaultLimit
	}
	if limits.RetryAfter <= 0 {
		limits.RetryAfter = 5 * time.Second
	}
	return &AnalyticsHandler{
		service: service,
		limits:  limits,
	}
}

// GetAnalytics handles GET /v1/analytics.
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	var req api.AnalyticsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}

	report, err := h.service.Summary(c.Request.Context(), store.CountsQuery{
		GroupBy: req.GroupBy,
		Start:   req.StartDate,
		End:     req.EndDate,
		UserID:  req.UserID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, api.Success(report))
}

// GetTopUsers handles GET /v1/top-users.
func (h *AnalyticsHandler) GetTopUsers(c *gin.Context) {
	var req api.TopUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}

	limit := h.limits.DefaultLimit
	if req.Limit != nil {
		limit = min(*req.Limit, h.limits.MaxLimit)
	}
	offset := 0
	if req.Offset != nil {
		offset = *req.Offset
	}

	board, err := h.service.TopUsers(c.Request.Context(), store.LeaderboardQuery{
		GroupBy:     req.GroupBy,
		Start:       req.StartDate,
		End:         req.EndDate,
		Limit:       limit,
		Offset:      offset,
		GroupFilter: req.FilterBy,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, api.Success(board))
}

// fail writes the "no data" envelope for empty results and hands every other
// error to the error middleware.
func (h *AnalyticsHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, analytics.ErrEmptyResult) {
		c.JSON(http.StatusOK, api.NoData())
		return
	}
	_ = c.Error(h.problem(err))
}

func (h *AnalyticsHandler) problem(err error) *api.Problem {
	var upstream *analytics.UpstreamError

	switch {
	case errors.Is(err, analytics.ErrInvalidRange), errors.Is(err, analytics.ErrInvalidGroupBy):
		return api.BadRequestError(err.Error())
	case errors.Is(err, store.ErrUnavailable):
		return api.UnavailableError("The analytics database is temporarily unavailable.", h.limits.RetryAfter, err)
	case errors.As(err, &upstream) && upstream.Timeout():
		return api.GatewayTimeoutError("The analytics query timed out.", h.limits.RetryAfter, err)
	case errors.As(err, &upstream):
		return api.BadGatewayError("The analytics query failed.", err)
	default:
		return api.InternalError(err)
	}
}
