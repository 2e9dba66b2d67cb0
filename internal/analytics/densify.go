package analytics

import (
	"slices"

	"github.com/nulzo/gateway-analytics-api/internal/store/model"
)

type cell struct {
	bucket string
	group  string
}

// GroupOrder returns the distinct group values of rows in first-seen order.
func GroupOrder(rows []model.CountRow) []string {
	seen := make(map[string]struct{})
	var groups []string
	for _, r := range rows {
		if _, ok := seen[r.Group]; ok {
			continue
		}
		seen[r.Group] = struct{}{}
		groups = append(groups, r.Group)
	}
	return groups
}

// Densify returns exactly one row for every (bucket, group) pair, where the
// groups are those present in rows and the buckets are those of axis. Pairs
// missing from rows get a zero count. The result is sorted by bucket, then
// group. Rows whose bucket is not on the axis are dropped.
//
// An empty rows slice yields an empty result: there are no groups to fill.
func Densify(rows []model.CountRow, axis []string) []model.CountRow {
	if len(rows) == 0 {
		return nil
	}

	counts := make(map[cell]int64, len(rows))
	for _, r := range rows {
		counts[cell{bucket: r.Bucket, group: r.Group}] += r.Count
	}

	groups := GroupOrder(rows)
	slices.Sort(groups)
	buckets := slices.Clone(axis)
	slices.Sort(buckets)
	buckets = slices.Compact(buckets)

	dense := make([]model.CountRow, 0, len(buckets)*len(groups))
	for _, b := range buckets {
		for _, g := range groups {
			dense = append(dense, model.CountRow{
				Bucket: b,
				Group:  g,
				Count:  counts[cell{bucket: b, group: g}],
			})
		}
	}
	return dense
}
