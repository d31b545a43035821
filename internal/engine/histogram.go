package engine

import (
	"sort"

	"github.com/coffersTech/topicview/internal/model"
)

type HistogramPoint struct {
	Time  int64 `json:"time"`
	Count int   `json:"count"`
}

// Histogram counts rows per time bucket of interval milliseconds. Buckets
// start at multiples of interval and come back in ascending order; empty
// buckets and rows without a valid timestamp are left out.
func Histogram(rows []*Row, interval int64) []HistogramPoint {
	if interval <= 0 || len(rows) == 0 {
		return []HistogramPoint{}
	}

	buckets := make(map[int64]int)
	for _, r := range rows {
		if r.Fixed.Timestamp == model.InvalidTimestamp {
			continue
		}
		buckets[bucketOf(r.Fixed.Timestamp, interval)]++
	}

	points := make([]HistogramPoint, 0, len(buckets))
	for t, c := range buckets {
		points = append(points, HistogramPoint{Time: t, Count: c})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Time < points[j].Time
	})
	return points
}

// bucketOf floors ts to a multiple of interval, negative timestamps included.
func bucketOf(ts, interval int64) int64 {
	b := (ts / interval) * interval
	if ts < 0 && b != ts {
		b -= interval
	}
	return b
}
