package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/coffersTech/topicview/internal/model"
)

// Message headers carrying record metadata. The message body is the payload.
const (
	HeaderKey       = "Topicview-Key"
	HeaderOffset    = "Topicview-Offset"
	HeaderTimestamp = "Topicview-Timestamp"
	HeaderType      = "Topicview-Type"
)

// DefaultFetchTimeout bounds a NATS fetch when the query does not.
const DefaultFetchTimeout = 5 * time.Second

// NATSFetcher collects records published on <prefix>.<topic>.<partition>
// subjects while a fetch is open.
type NATSFetcher struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

// NewNATSFetcher connects to NATS with automatic reconnection support.
// Extra nats.Option values (e.g. disconnect/reconnect handlers) can be appended.
func NewNATSFetcher(url, prefix string, logger *slog.Logger, opts ...nats.Option) (*NATSFetcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSFetcher{conn: nc, prefix: prefix, logger: logger}, nil
}

// Close closes the connection.
func (f *NATSFetcher) Close() error {
	f.conn.Close()
	return nil
}

// Subject returns the subject a query listens on. An empty topic or partition
// becomes a wildcard.
func (f *NATSFetcher) Subject(q Query) string {
	return subjectFor(f.prefix, q.Topic, q.Partition)
}

func subjectFor(prefix, topic, partition string) string {
	if topic == "" {
		return prefix + ".>"
	}
	if partition == "" {
		partition = "*"
	}
	return prefix + "." + topic + "." + partition
}

// Fetch subscribes for up to q.Timeout and returns what arrived. Reaching the
// deadline before q.Limit records sets HasTimeout.
func (f *NATSFetcher) Fetch(ctx context.Context, q Query) model.FetchResult {
	timeout := q.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	subject := f.Subject(q)
	sub, err := f.conn.SubscribeSync(subject)
	if err != nil {
		return failed(fmt.Errorf("subscribing to %s: %w", subject, err))
	}
	defer sub.Unsubscribe()

	limit := q.limit()
	res := model.FetchResult{Messages: make([]model.RawRecord, 0, limit)}
	for len(res.Messages) < limit {
		msg, err := sub.NextMsgWithContext(ctx)
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				res.HasTimeout = true
				break
			}
			return failed(fmt.Errorf("reading %s: %w", subject, err))
		}
		rec, err := f.recordFromMsg(msg)
		if err != nil {
			f.logger.Warn("skipping message", "subject", msg.Subject, "error", err)
			continue
		}
		res.Messages = append(res.Messages, rec)
	}

	f.logger.Debug("nats fetch", "subject", subject, "messages", len(res.Messages), "timeout", res.HasTimeout)
	return res
}

func (f *NATSFetcher) recordFromMsg(msg *nats.Msg) (model.RawRecord, error) {
	rest := strings.TrimPrefix(msg.Subject, f.prefix+".")
	topic, partition, ok := strings.Cut(rest, ".")
	if !ok || topic == "" {
		return model.RawRecord{}, fmt.Errorf("subject %q has no topic and partition", msg.Subject)
	}
	part, err := strconv.ParseInt(partition, 10, 32)
	if err != nil {
		return model.RawRecord{}, fmt.Errorf("partition %q: %w", partition, err)
	}

	rec := model.RawRecord{
		Payload:   string(msg.Data),
		Topic:     topic,
		Partition: int32(part),
		Key:       msg.Header.Get(HeaderKey),
		Offset:    msg.Header.Get(HeaderOffset),
	}
	if ts := msg.Header.Get(HeaderTimestamp); ts != "" {
		rec.TimestampMillis, err = strconv.ParseInt(ts, 10, 64)
		if err != nil {
			f.logger.Warn("message timestamp is not numeric", "subject", msg.Subject, "timestamp", ts)
			rec.TimestampMillis = model.InvalidTimestamp
		}
	} else {
		rec.TimestampMillis = time.Now().UnixMilli()
	}
	if name := msg.Header.Get(HeaderType); name != "" {
		rec.SchemaType = &model.SchemaType{Name: name}
	}
	return rec, nil
}

// Publish sends rec on its topic and partition subject.
func (f *NATSFetcher) Publish(rec model.RawRecord) error {
	if rec.Topic == "" {
		return errors.New("publishing a record without topic")
	}
	msg := nats.NewMsg(subjectFor(f.prefix, rec.Topic, strconv.Itoa(int(rec.Partition))))
	msg.Data = []byte(rec.Payload)
	msg.Header.Set(HeaderKey, rec.Key)
	msg.Header.Set(HeaderOffset, rec.Offset)
	msg.Header.Set(HeaderTimestamp, strconv.FormatInt(rec.TimestampMillis, 10))
	if rec.SchemaType != nil {
		msg.Header.Set(HeaderType, rec.SchemaType.Name)
	}
	if err := f.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publishing to %s: %w", msg.Subject, err)
	}
	return nil
}

// Flush waits until published records reached the server.
func (f *NATSFetcher) Flush() error {
	return f.conn.Flush()
}
