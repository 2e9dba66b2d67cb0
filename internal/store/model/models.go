package model

import (
	"time"
)

// User is a developer profile joined into the top-users leaderboard.
type User struct {
	UserID    int64     `db:"user_id" json:"user_id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// APIKey mirrors a gateway key row. Value is the key string stamped on every
// recorded request; RefApp and Tier are the dimensions reports group by.
type APIKey struct {
	Value     string    `db:"value" json:"value"`
	UserID    int64     `db:"user_id" json:"user_id"`
	RefApp    string    `db:"ref_app" json:"ref_app"`
	Tier      string    `db:"tier" json:"tier"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RequestEvent is a single request recorded by the gateway analytics pump.
type RequestEvent struct {
	ID          string `db:"id" json:"id"`
	APIKey      string `db:"api_key" json:"api_key"`
	RequestDate string `db:"request_date" json:"request_date"` // YYYY-MM-DD
	Path        string `db:"path" json:"path"`
	StatusCode  int    `db:"status_code" json:"status_code"`
}

// CountRow is the number of requests observed for one (bucket, group) pair.
// Bucket is either a date (YYYY-MM-DD) or a year-month (YYYY-MM).
type CountRow struct {
	Bucket string `db:"bucket" json:"bucket"`
	Group  string `db:"group_value" json:"group"`
	Count  int64  `db:"cntr" json:"count"`
}

// LeaderboardRow is one per-user usage row joined with the user's profile.
// TotalRecords is the same on every row of a page: the number of (group, user)
// pairs before LIMIT/OFFSET were applied.
type LeaderboardRow struct {
	Group        string `db:"group_value"`
	UserID       int64  `db:"user_id"`
	FirstName    string `db:"first_name"`
	LastName     string `db:"last_name"`
	Email        string `db:"email"`
	Usage        int64  `db:"cntr"`
	TotalRecords int64  `db:"total_records"`
}
