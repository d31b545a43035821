package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/coffersTech/topicview/internal/model"
)

// allTopics matches every topic except internal ones such as
// __consumer_offsets.
const allTopics = "^[^_].*"

// KafkaFetcher reads the newest records of a topic (or of every topic)
// straight from the brokers. Every fetch uses its own short-lived client
// without a consumer group, so browsing never commits offsets.
type KafkaFetcher struct {
	brokers []string
	logger  *slog.Logger
	opts    []kgo.Opt
}

// NewKafkaFetcher creates a fetcher for the given seed brokers. Extra kgo
// options (TLS, SASL) are applied to every client.
func NewKafkaFetcher(brokers []string, logger *slog.Logger, opts ...kgo.Opt) (*KafkaFetcher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka fetcher needs at least one broker")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaFetcher{brokers: brokers, logger: logger, opts: opts}, nil
}

// consumeOpts positions the client limit records before the end of each
// partition the query covers.
func consumeOpts(q Query) ([]kgo.Opt, error) {
	start := kgo.NewOffset().AtEnd().Relative(-int64(q.limit()))

	if q.Topic == "" {
		return []kgo.Opt{
			kgo.ConsumeRegex(),
			kgo.ConsumeTopics(allTopics),
			kgo.ConsumeResetOffset(start),
		}, nil
	}
	if q.Partition == "" {
		return []kgo.Opt{
			kgo.ConsumeTopics(q.Topic),
			kgo.ConsumeResetOffset(start),
		}, nil
	}
	p, err := strconv.ParseInt(q.Partition, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("partition %q: %w", q.Partition, err)
	}
	return []kgo.Opt{
		kgo.ConsumePartitions(map[string]map[int32]kgo.Offset{
			q.Topic: {int32(p): start},
		}),
	}, nil
}

// Fetch polls until q.Limit records arrived or q.Timeout passed. Running
// into the deadline first sets HasTimeout.
func (f *KafkaFetcher) Fetch(ctx context.Context, q Query) model.FetchResult {
	consume, err := consumeOpts(q)
	if err != nil {
		return failed(err)
	}
	timeout := q.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := append([]kgo.Opt{kgo.SeedBrokers(f.brokers...)}, f.opts...)
	client, err := kgo.NewClient(append(opts, consume...)...)
	if err != nil {
		return failed(fmt.Errorf("creating kafka client: %w", err))
	}
	defer client.Close()

	limit := q.limit()
	res := model.FetchResult{Messages: make([]model.RawRecord, 0, limit)}
	for len(res.Messages) < limit {
		fetches := client.PollFetches(ctx)
		if ctx.Err() != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				res.HasTimeout = true
			}
			// Records polled together with the deadline are still usable.
			fetches.EachRecord(func(r *kgo.Record) {
				res.Messages = append(res.Messages, recordFromKafka(r))
			})
			break
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			e := errs[0]
			return failed(fmt.Errorf("fetching %s/%d: %w", e.Topic, e.Partition, e.Err))
		}
		fetches.EachRecord(func(r *kgo.Record) {
			res.Messages = append(res.Messages, recordFromKafka(r))
		})
	}

	res.Messages = newestFirst(res.Messages, limit)
	f.logger.Debug("kafka fetch", "topic", q.Topic, "partition", q.Partition,
		"messages", len(res.Messages), "timeout", res.HasTimeout)
	return res
}

func recordFromKafka(r *kgo.Record) model.RawRecord {
	rec := model.RawRecord{
		TimestampMillis: r.Timestamp.UnixMilli(),
		Offset:          strconv.FormatInt(r.Offset, 10),
		Payload:         string(r.Value),
		Key:             string(r.Key),
		Topic:           r.Topic,
		Partition:       r.Partition,
	}
	for _, h := range r.Headers {
		if h.Key == HeaderType && len(h.Value) > 0 {
			rec.SchemaType = &model.SchemaType{Name: string(h.Value)}
		}
	}
	return rec
}
