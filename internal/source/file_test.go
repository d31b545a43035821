package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRecords(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const fileRecords = `{"timestamp":1,"offset":"1","topic":"orders","partition":0,"value":"{\"a\":1}"}
{"timestamp":2,"offset":"2","topic":"orders","partition":1,"value":"{\"a\":2}"}
{"timestamp":3,"offset":"3","topic":"users","partition":0,"value":"{\"b\":1}"}
{"timestamp":4,"offset":"4","topic":"orders","partition":0,"value":"{\"a\":3}"}
`

func TestFileFetcherFilters(t *testing.T) {
	f := NewFileFetcher(writeRecords(t, fileRecords), nil)

	res := f.Fetch(context.Background(), Query{Topic: "orders"})
	require.Empty(t, res.Error)
	assert.Len(t, res.Messages, 3)

	res = f.Fetch(context.Background(), Query{Topic: "orders", Partition: "0"})
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "1", res.Messages[0].Offset)
	assert.Equal(t, "4", res.Messages[1].Offset)

	res = f.Fetch(context.Background(), Query{})
	assert.Len(t, res.Messages, 4)
}

func TestFileFetcherLimitKeepsNewest(t *testing.T) {
	f := NewFileFetcher(writeRecords(t, fileRecords), nil)

	res := f.Fetch(context.Background(), Query{Limit: 2})
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "3", res.Messages[0].Offset)
	assert.Equal(t, "4", res.Messages[1].Offset)
}

func TestFileFetcherErrors(t *testing.T) {
	res := NewFileFetcher(filepath.Join(t.TempDir(), "missing.json"), nil).Fetch(context.Background(), Query{})
	assert.Contains(t, res.Error, "missing.json")

	res = NewFileFetcher(writeRecords(t, "[{"), nil).Fetch(context.Background(), Query{})
	assert.NotEmpty(t, res.Error)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res = NewFileFetcher(writeRecords(t, fileRecords), nil).Fetch(ctx, Query{})
	assert.NotEmpty(t, res.Error)
}
