package model

import "math"

// Sentinels stored when a delivered timestamp or partition is not a usable
// number. InvalidTimestamp is outside the displayable range and renders as
// an invalid date.
const (
	InvalidTimestamp int64 = math.MinInt64
	InvalidPartition int32 = -1
)

// SchemaType names the registered schema a record's payload was encoded with.
type SchemaType struct {
	Name string `json:"name"`
}

// RawRecord is one message as delivered by a fetch collaborator. It is never
// modified after decoding.
type RawRecord struct {
	TimestampMillis int64       `json:"timestamp"`
	Offset          string      `json:"offset"` // as delivered, parsed by the projector
	Payload         string      `json:"payload"`
	Key             string      `json:"key"`
	Topic           string      `json:"topic"`
	Partition       int32       `json:"partition"`
	SchemaType      *SchemaType `json:"schemaType,omitempty"`
}

// FetchResult is what a fetch collaborator hands over once per search or
// browse action. A non-empty Error means no message of this batch is usable.
type FetchResult struct {
	Error      string      `json:"error,omitempty"`
	HasTimeout bool        `json:"hasTimeout,omitempty"`
	Messages   []RawRecord `json:"messages"`
}

// BrowseContext scopes a view to one topic (and optionally one partition).
// An empty Topic means cross-topic browsing.
type BrowseContext struct {
	Topic     string `json:"topic,omitempty"`
	Partition string `json:"partition,omitempty"`
}

// CrossTopic reports whether the context spans every topic.
func (b BrowseContext) CrossTopic() bool {
	return b.Topic == ""
}
