package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/coffersTech/topicview/internal/model"
)

// FileFetcher serves batches from a JSON or JSON-lines dump of records. The
// file is read on every fetch so it can be appended to between fetches.
type FileFetcher struct {
	path   string
	logger *slog.Logger
}

// NewFileFetcher returns a fetcher reading path.
func NewFileFetcher(path string, logger *slog.Logger) *FileFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileFetcher{path: path, logger: logger}
}

// Fetch returns the last q.Limit records of the file that belong to the
// query's topic and partition, in file order.
func (f *FileFetcher) Fetch(ctx context.Context, q Query) model.FetchResult {
	if err := ctx.Err(); err != nil {
		return failed(err)
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return failed(fmt.Errorf("reading %s: %w", f.path, err))
	}
	res, err := DecodeFetchResult(data)
	if err != nil {
		return failed(fmt.Errorf("decoding %s: %w", f.path, err))
	}
	if res.Error != "" {
		return res
	}

	matched := res.Messages[:0]
	for _, rec := range res.Messages {
		if matches(q, rec) {
			matched = append(matched, rec)
		}
	}
	if limit := q.limit(); len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	res.Messages = matched

	f.logger.Debug("file fetch", "path", f.path, "topic", q.Topic, "messages", len(matched))
	return res
}

func matches(q Query, rec model.RawRecord) bool {
	if q.Topic != "" && rec.Topic != q.Topic {
		return false
	}
	if q.Partition != "" && strconv.Itoa(int(rec.Partition)) != q.Partition {
		return false
	}
	return true
}
