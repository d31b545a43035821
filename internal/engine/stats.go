package engine

import "github.com/coffersTech/topicview/internal/model"

// BatchStats summarizes the last applied batch. It is diagnostic only and is
// never used to decide what the user sees.
type BatchStats struct {
	BatchID           string           `json:"batch_id"`
	Rows              int              `json:"rows"`
	ParseFailures     int              `json:"parse_failures"`     // payloads kept as raw strings
	InvalidOffsets    int              `json:"invalid_offsets"`    // offsets stored as InvalidOffset
	InvalidTimestamps int              `json:"invalid_timestamps"` // left out of the timestamp range
	Overrides         int              `json:"overrides"`          // system fields replaced by payload keys
	Columns           int              `json:"columns"`            // dynamic columns discovered
	TopicCounts       map[string]int64 `json:"topic_counts"`       // topic -> rows
	MinTimestamp      int64            `json:"min_timestamp"`
	MaxTimestamp      int64            `json:"max_timestamp"`
}

// collectStats walks the rows of a batch once.
func collectStats(batchID string, rows []*Row, schema Schema) BatchStats {
	stats := BatchStats{
		BatchID:     batchID,
		Rows:        len(rows),
		Columns:     schema.Len(),
		TopicCounts: make(map[string]int64),
	}
	seen := false
	for _, row := range rows {
		if row.parseErr != nil {
			stats.ParseFailures++
		}
		if row.Fixed.Offset == InvalidOffset {
			stats.InvalidOffsets++
		}
		stats.Overrides += len(row.overrides)
		stats.TopicCounts[row.Fixed.Topic]++

		ts := row.Fixed.Timestamp
		if ts == model.InvalidTimestamp {
			stats.InvalidTimestamps++
			continue
		}
		if !seen || ts < stats.MinTimestamp {
			stats.MinTimestamp = ts
		}
		if !seen || ts > stats.MaxTimestamp {
			stats.MaxTimestamp = ts
		}
		seen = true
	}
	return stats
}
