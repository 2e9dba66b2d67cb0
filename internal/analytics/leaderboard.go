package analytics

import "github.com/nulzo/gateway-analytics-api/internal/store/model"

type LeaderboardUser struct {
	Group     string `json:"group"`
	UserID    int64  `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Usage     int64  `json:"usage"`
}

// Leaderboard is one page of the top-users ranking.
type Leaderboard struct {
	TotalUsers int64             `json:"total_users"`
	Users      []LeaderboardUser `json:"users"`
}

// BuildLeaderboard reshapes a page of rows without reordering them; the data
// source already ranks by usage, then user id. The total comes from the first
// row's TotalRecords.
func BuildLeaderboard(rows []model.LeaderboardRow) (*Leaderboard, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyResult
	}

	users := make([]LeaderboardUser, len(rows))
	for i, r := range rows {
		users[i] = LeaderboardUser{
			Group:     r.Group,
			UserID:    r.UserID,
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Email:     r.Email,
			Usage:     r.Usage,
		}
	}

	return &Leaderboard{
		TotalUsers: rows[0].TotalRecords,
		Users:      users,
	}, nil
}
