package api

import "time"

// AnalyticsRequest is bound from the query string of GET /v1/analytics.
type AnalyticsRequest struct {
	GroupBy   string    `form:"group_by" binding:"required"`
	StartDate time.Time `form:"start_date" time_format:"2006-01-02" time_utc:"1" binding:"required"`
	EndDate   time.Time `form:"end_date" time_format:"2006-01-02" time_utc:"1" binding:"required"`
	UserID    *int64    `form:"user_id" binding:"omitempty,gt=0"`
}

// TopUsersRequest is bound from the query string of GET /v1/top-users.
// Limit and Offset are pointers so that an absent value can be told apart
// from an explicit zero.
type TopUsersRequest struct {
	GroupBy   string    `form:"group_by" binding:"required"`
	StartDate time.Time `form:"start_date" time_format:"2006-01-02" time_utc:"1" binding:"required"`
	EndDate   time.Time `form:"end_date" time_format:"2006-01-02" time_utc:"1" binding:"required"`
	Limit     *int      `form:"limit" binding:"omitempty,gte=1"`
	Offset    *int      `form:"offset" binding:"omitempty,gte=0"`
	FilterBy  *string   `form:"filter_by" binding:"omitempty,min=1"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Version  string `json:"version,omitempty"`
}
