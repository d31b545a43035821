package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/coffersTech/topicview/internal/model"
)

// Fanout scatters a cross-topic query over one fetcher per topic and gathers
// the results. Messages are merged newest first. Any topic that timed out
// marks the whole batch as timed out and any failed topic fails the batch.
type Fanout struct {
	topics map[string]Fetcher
	logger *slog.Logger
}

// NewFanout builds a fanout over topics (topic name -> fetcher).
func NewFanout(topics map[string]Fetcher, logger *slog.Logger) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{topics: topics, logger: logger}
}

// Fetch queries every topic when q.Topic is empty and only the named topic
// otherwise.
func (f *Fanout) Fetch(ctx context.Context, q Query) model.FetchResult {
	if q.Topic != "" {
		fetcher, ok := f.topics[q.Topic]
		if !ok {
			return failed(fmt.Errorf("unknown topic %q", q.Topic))
		}
		return fetcher.Fetch(ctx, q)
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		all      []model.RawRecord
		errs     []error
		timedOut bool
	)

	for topic, fetcher := range f.topics {
		wg.Add(1)
		go func(topic string, fetcher Fetcher) {
			defer wg.Done()
			sub := q
			sub.Topic = topic
			res := fetcher.Fetch(ctx, sub)

			mu.Lock()
			defer mu.Unlock()
			if res.Error != "" {
				f.logger.Warn("topic fetch failed", "topic", topic, "error", res.Error)
				errs = append(errs, fmt.Errorf("%s: %s", topic, res.Error))
				return
			}
			timedOut = timedOut || res.HasTimeout
			all = append(all, res.Messages...)
		}(topic, fetcher)
	}
	wg.Wait()

	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
		return failed(errors.Join(errs...))
	}

	return model.FetchResult{HasTimeout: timedOut, Messages: newestFirst(all, q.limit())}
}

// newestFirst orders records by descending timestamp (ties by topic, then
// partition) and keeps the first limit.
func newestFirst(all []model.RawRecord, limit int) []model.RawRecord {
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].TimestampMillis != all[j].TimestampMillis {
			return all[i].TimestampMillis > all[j].TimestampMillis
		}
		if all[i].Topic != all[j].Topic {
			return all[i].Topic < all[j].Topic
		}
		return all[i].Partition < all[j].Partition
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}
