package analytics

import (
	"fmt"
	"time"

	"github.com/nulzo/gateway-analytics-api/internal/store/model"
)

// Granularity is the width of one bucket on the report axis.
type Granularity string

const (
	Daily   Granularity = "daily"
	Monthly Granularity = "monthly"
)

const (
	DayLayout   = "2006-01-02"
	MonthLayout = "2006-01"

	// spans longer than this many days are reported per month
	monthlyThresholdDays = 30

	secondsPerDay = 24 * 60 * 60
)

// Axis is the ordered, gap-free sequence of buckets covering a date range.
type Axis struct {
	Granularity Granularity
	// SpanDays is end minus start in calendar days (0 for a single day).
	SpanDays int
	Buckets  []string
}

// Decide picks the granularity for [start, end] and lays out its bucket axis.
// Only the calendar date of each bound is considered.
func Decide(start, end time.Time) (Axis, error) {
	from := calendarDate(start)
	to := calendarDate(end)

	// time.Duration saturates near 292 years, so count days from Unix seconds
	span := int((to.Unix() - from.Unix()) / secondsPerDay)
	if span < 0 {
		return Axis{}, fmt.Errorf("%w: end date %s is before start date %s",
			ErrInvalidRange, to.Format(DayLayout), from.Format(DayLayout))
	}

	if span > monthlyThresholdDays {
		var buckets []string
		last := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
		for m := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC); !m.After(last); m = m.AddDate(0, 1, 0) {
			buckets = append(buckets, m.Format(MonthLayout))
		}
		return Axis{Granularity: Monthly, SpanDays: span, Buckets: buckets}, nil
	}

	buckets := make([]string, 0, span+1)
	for i := 0; i <= span; i++ {
		buckets = append(buckets, from.AddDate(0, 0, i).Format(DayLayout))
	}
	return Axis{Granularity: Daily, SpanDays: span, Buckets: buckets}, nil
}

// Reaggregate rolls daily rows up to the axis granularity. For Daily it returns
// a copy of rows. For Monthly each bucket is cut to its YYYY-MM prefix and rows
// sharing a (month, group) pair are summed; merged rows keep the position of
// their first contributor.
func Reaggregate(rows []model.CountRow, g Granularity) []model.CountRow {
	if g != Monthly {
		return append([]model.CountRow(nil), rows...)
	}

	out := make([]model.CountRow, 0, len(rows))
	index := make(map[cell]int, len(rows))
	for _, r := range rows {
		month := r.Bucket
		if len(month) > len(MonthLayout) {
			month = month[:len(MonthLayout)]
		}
		k := cell{bucket: month, group: r.Group}
		if i, ok := index[k]; ok {
			out[i].Count += r.Count
			continue
		}
		index[k] = len(out)
		out = append(out, model.CountRow{Bucket: month, Group: r.Group, Count: r.Count})
	}
	return out
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
