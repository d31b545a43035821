package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffersTech/topicview/internal/config"
	"github.com/coffersTech/topicview/internal/presets"
	"github.com/coffersTech/topicview/internal/source"
	"github.com/coffersTech/topicview/internal/storage"
	"github.com/coffersTech/topicview/internal/ui"
)

const cliRecords = `{"timestamp":1000,"offset":"1","key":"k1","topic":"orders","partition":0,"value":"{\"user\":{\"name\":\"alice\"},\"amount\":5}"}
{"timestamp":2000,"offset":"2","key":"k2","topic":"orders","partition":0,"value":"{\"amount\":20,\"sku\":\"x\"}"}
{"timestamp":3000,"offset":"3","key":"k3","topic":"users","partition":0,"value":"{\"email\":\"a@b.c\"}"}
`

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(cliRecords), 0o644))
	t.Setenv("TOPICVIEW_SOURCE_FILE", path)
	t.Setenv("TOPICVIEW_EXPORT_DIR", filepath.Join(t.TempDir(), "exports"))
	t.Setenv("TOPICVIEW_TIME_ZONE", "UTC")

	c, err := config.Load("")
	require.NoError(t, err)
	return c
}

func headersOf(v *loadedView) []string {
	var out []string
	for _, c := range v.grid.VisibleColumns() {
		out = append(out, c.HeaderName)
	}
	return out
}

func TestParseFilters(t *testing.T) {
	m, err := parseFilters([]string{"amount=>=10", "sku=x"})
	require.NoError(t, err)
	assert.Equal(t, ">=10", m["amount"])
	assert.Equal(t, "x", m["sku"])

	_, err = parseFilters([]string{"=x"})
	assert.Error(t, err)
	_, err = parseFilters([]string{"nofield"})
	assert.Error(t, err)
}

func TestBuildFetcher(t *testing.T) {
	c := testConfig(t)

	f, closeFn, err := buildFetcher(c, quietLogger)
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &source.FileFetcher{}, f)

	c.Topics = []string{"orders", "users"}
	f, _, err = buildFetcher(c, quietLogger)
	require.NoError(t, err)
	assert.IsType(t, &source.Fanout{}, f)

	c.Topics = nil
	c.KafkaBrokers = []string{"127.0.0.1:9092"}
	f, _, err = buildFetcher(c, quietLogger)
	require.NoError(t, err)
	assert.IsType(t, &source.KafkaFetcher{}, f)

	c.KafkaBrokers = nil
	c.SourceFile = ""
	f, _, err = buildFetcher(c, quietLogger)
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestLoadViewSingleTopic(t *testing.T) {
	c := testConfig(t)

	v, err := loadView(context.Background(), c, quietLogger, fetchFlags{topic: "orders"})
	require.NoError(t, err)

	assert.Equal(t, "Messages for topic: orders", v.controller.Title())
	assert.Equal(t, []string{"Timestamp", "Offset", "Type", "user.name", "amount", "sku", "Key", "Value"}, headersOf(v))
	assert.Len(t, v.grid.RowsAfterFilter(), 2)
}

func TestLoadViewFilterHidesEmptyColumns(t *testing.T) {
	c := testConfig(t)

	v, err := loadView(context.Background(), c, quietLogger, fetchFlags{
		topic:   "orders",
		filters: []string{"amount=>=10"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Timestamp", "Offset", "Type", "amount", "sku", "Key", "Value"}, headersOf(v))
	rows := v.grid.RowsAfterFilter()
	require.Len(t, rows, 1)
	assert.Equal(t, "k2", rows[0].Fixed.Key)
}

func TestLoadViewSearch(t *testing.T) {
	c := testConfig(t)

	v, err := loadView(context.Background(), c, quietLogger, fetchFlags{search: "email"})
	require.NoError(t, err)

	assert.Equal(t, "Cross-Topic search", v.controller.Title())
	rows := v.grid.RowsAfterFilter()
	require.Len(t, rows, 1)
	assert.Equal(t, "users", rows[0].Fixed.Topic)
}

func TestLoadViewErrors(t *testing.T) {
	c := testConfig(t)

	_, err := loadView(context.Background(), c, quietLogger, fetchFlags{filters: []string{"missing=x"}})
	assert.Error(t, err)

	c.Topics = []string{"orders"}
	_, err = loadView(context.Background(), c, quietLogger, fetchFlags{topic: "users"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown topic")

	c.SourceFile = ""
	_, err = loadView(context.Background(), c, quietLogger, fetchFlags{})
	assert.ErrorIs(t, err, errNoSource)
}

func TestPrintViewJSON(t *testing.T) {
	c := testConfig(t)
	v, err := loadView(context.Background(), c, quietLogger, fetchFlags{topic: "orders"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printViewJSON(&buf, v))

	var out struct {
		Title   string     `json:"title"`
		BatchID string     `json:"batchId"`
		Rows    [][]string `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "Messages for topic: orders", out.Title)
	assert.NotEmpty(t, out.BatchID)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, "01/01/1970 00:00:01.000", out.Rows[0][0])
	assert.Equal(t, "alice", out.Rows[0][3])
}

func TestPrintViewTable(t *testing.T) {
	ui.ForceNoColor()
	c := testConfig(t)
	v, err := loadView(context.Background(), c, quietLogger, fetchFlags{topic: "orders"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printViewTable(&buf, v, -1))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Messages for topic: orders", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Timestamp"))
	assert.Equal(t, "2 of 2 rows, 3 payload columns", lines[4])
}

func TestExportThenInspect(t *testing.T) {
	c := testConfig(t)
	ctx := context.Background()
	v, err := loadView(ctx, c, quietLogger, fetchFlags{})
	require.NoError(t, err)

	exporter, err := buildExporter(ctx, c, quietLogger)
	require.NoError(t, err)
	location, err := exporter.Export(ctx, v.controller)
	require.NoError(t, err)
	assert.Equal(t, c.ExportDir, filepath.Dir(location))

	reader, err := storage.NewExportReader()
	require.NoError(t, err)
	exp, err := reader.ReadFile(location)
	require.NoError(t, err)
	assert.Len(t, exp.Rows, 3)

	s := summaryOf(exp)
	assert.Equal(t, "zstd", s.Codec)
	assert.Equal(t, int64(1000), s.MinTimestamp)
	assert.Equal(t, int64(3000), s.MaxTimestamp)
}

func TestApplyPreset(t *testing.T) {
	p := presets.Preset{
		Topic:   "orders",
		Filters: map[string]string{"sku": "x", "amount": ">=10"},
		Search:  "alice",
	}
	changed := func(name string) bool { return name == "search" }

	f := applyPreset(fetchFlags{topic: "users", search: "bob", filters: []string{"amount=<5"}}, p, changed)
	assert.Equal(t, "orders", f.topic)
	assert.Equal(t, "bob", f.search)
	assert.Equal(t, []string{"amount=>=10", "sku=x", "amount=<5"}, f.filters)

	m, err := parseFilters(f.filters)
	require.NoError(t, err)
	assert.Equal(t, "<5", m["amount"])
}

func TestPresetRoundTrip(t *testing.T) {
	c := testConfig(t)
	f := fetchFlags{topic: "orders", filters: []string{"amount=>=10"}}
	v, err := loadView(context.Background(), c, quietLogger, f)
	require.NoError(t, err)

	store := presets.NewStore(filepath.Join(t.TempDir(), "presets.json"))
	require.NoError(t, store.Put(presetOf("big", f, v)))

	saved, ok := store.Get("big")
	require.True(t, ok)
	again, err := loadView(context.Background(), c, quietLogger, applyPreset(fetchFlags{}, saved, func(string) bool { return false }))
	require.NoError(t, err)
	assert.Equal(t, headersOf(v), headersOf(again))
	assert.Len(t, again.grid.RowsAfterFilter(), 1)
}
