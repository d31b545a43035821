// Package source holds the fetch collaborators that hand message batches to
// the view controller.
package source

import (
	"context"
	"time"

	"github.com/coffersTech/topicview/internal/model"
)

// DefaultLimit caps a fetch when the query does not say otherwise.
const DefaultLimit = 100

// Query describes one browse or search action.
type Query struct {
	Topic     string
	Partition string
	Limit     int
	Timeout   time.Duration
}

// Browse returns the view context the query belongs to.
func (q Query) Browse() model.BrowseContext {
	return model.BrowseContext{Topic: q.Topic, Partition: q.Partition}
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

// Fetcher produces one batch per query. Failures are reported through the
// result's Error field, never by panicking or by a partial batch.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) model.FetchResult
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, q Query) model.FetchResult

func (f FetcherFunc) Fetch(ctx context.Context, q Query) model.FetchResult { return f(ctx, q) }

func failed(err error) model.FetchResult {
	return model.FetchResult{Error: err.Error()}
}
