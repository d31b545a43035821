package source

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/coffersTech/topicview/internal/model"
)

func TestRecordFromKafka(t *testing.T) {
	ts := time.UnixMilli(1700000000123)
	rec := recordFromKafka(&kgo.Record{
		Key:       []byte("k1"),
		Value:     []byte(`{"a":1}`),
		Topic:     "orders",
		Partition: 3,
		Offset:    42,
		Timestamp: ts,
		Headers: []kgo.RecordHeader{
			{Key: "trace", Value: []byte("x")},
			{Key: HeaderType, Value: []byte("avro")},
		},
	})

	assert.Equal(t, int64(1700000000123), rec.TimestampMillis)
	assert.Equal(t, "42", rec.Offset)
	assert.Equal(t, `{"a":1}`, rec.Payload)
	assert.Equal(t, "k1", rec.Key)
	assert.Equal(t, "orders", rec.Topic)
	assert.Equal(t, int32(3), rec.Partition)
	require.NotNil(t, rec.SchemaType)
	assert.Equal(t, "avro", rec.SchemaType.Name)

	rec = recordFromKafka(&kgo.Record{Topic: "orders"})
	assert.Nil(t, rec.SchemaType)
	assert.Equal(t, "", rec.Key)
}

func TestConsumeOpts(t *testing.T) {
	opts, err := consumeOpts(Query{})
	require.NoError(t, err)
	assert.Len(t, opts, 3)

	opts, err = consumeOpts(Query{Topic: "orders"})
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	opts, err = consumeOpts(Query{Topic: "orders", Partition: "2"})
	require.NoError(t, err)
	assert.Len(t, opts, 1)

	_, err = consumeOpts(Query{Topic: "orders", Partition: "two"})
	assert.Error(t, err)
}

func TestKafkaFetcherErrors(t *testing.T) {
	_, err := NewKafkaFetcher(nil, nil)
	assert.Error(t, err)

	f, err := NewKafkaFetcher([]string{"127.0.0.1:1"}, nil)
	require.NoError(t, err)
	res := f.Fetch(context.Background(), Query{Topic: "orders", Partition: "x"})
	assert.Contains(t, res.Error, "partition")
}

func TestNewestFirst(t *testing.T) {
	recs := newestFirst(nil, 3)
	assert.Empty(t, recs)

	recs = newestFirst([]model.RawRecord{
		{Topic: "b", TimestampMillis: 1},
		{Topic: "b", TimestampMillis: 3},
		{Topic: "a", TimestampMillis: 3},
	}, 2)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].Topic)
	assert.Equal(t, "b", recs[1].Topic)
	assert.Equal(t, int64(3), recs[1].TimestampMillis)
}
