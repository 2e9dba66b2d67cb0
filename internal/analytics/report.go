package analytics

import (
	"fmt"
	"slices"

	"github.com/nulzo/gateway-analytics-api/internal/store/model"
)

type Summary struct {
	TotalRequests        int64 `json:"total_requests"`
	AverageDailyRequests int64 `json:"average_daily_requests"`
}

// Series is the per-bucket request count of one group, aligned with Range.
type Series struct {
	Group string  `json:"group"`
	Data  []int64 `json:"data"`
}

type Trend struct {
	Granularity Granularity `json:"granularity,omitempty"`
	Range       []string    `json:"range"`
	Cumulative  []int64     `json:"cumulative"`
	Trend       []Series    `json:"trend"`
}

// Report is the analytics summary for one date range.
type Report struct {
	Summary Summary `json:"summary"`
	Data    Trend   `json:"analytics_data"`
}

// BuildReport reduces densified rows to totals and aligned trend lines.
//
// totalDays is the requested span in days and is the divisor of the daily
// average; it must be positive. groups fixes the order of the trend series;
// groups present in dense but missing from it are appended in ascending order.
func BuildReport(dense []model.CountRow, groups []string, totalDays int) (*Report, error) {
	if totalDays <= 0 {
		return nil, fmt.Errorf("%w: average needs a positive number of days, got %d", ErrInvalidRange, totalDays)
	}

	var total int64
	counts := make(map[cell]int64, len(dense))
	var buckets, extra []string
	known := make(map[string]bool, len(groups))
	for _, g := range groups {
		known[g] = true
	}

	for _, r := range dense {
		total += r.Count
		k := cell{bucket: r.Bucket, group: r.Group}
		if _, ok := counts[k]; !ok {
			buckets = append(buckets, r.Bucket)
		}
		counts[k] += r.Count
		if !known[r.Group] {
			known[r.Group] = true
			extra = append(extra, r.Group)
		}
	}

	slices.Sort(buckets)
	buckets = slices.Compact(buckets)
	slices.Sort(extra)
	order := append(slices.Clone(groups), extra...)

	cumulative := make([]int64, len(buckets))
	trend := make([]Series, 0, len(order))
	for _, g := range order {
		data := make([]int64, len(buckets))
		for i, b := range buckets {
			n := counts[cell{bucket: b, group: g}]
			data[i] = n
			cumulative[i] += n
		}
		trend = append(trend, Series{Group: g, Data: data})
	}

	return &Report{
		Summary: Summary{
			TotalRequests:        total,
			AverageDailyRequests: total / int64(totalDays),
		},
		Data: Trend{
			Range:      buckets,
			Cumulative: cumulative,
			Trend:      trend,
		},
	}, nil
}
