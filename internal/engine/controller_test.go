package engine

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffersTech/topicview/internal/model"
)

// fakeGrid records what the controller asks of it. Rows pass the filter when
// keep returns true.
type fakeGrid struct {
	mu      sync.Mutex
	cols    []ColumnDefinition
	rows    []*Row
	filter  FilterModel
	keep    func(*Row) bool
	search  func(*Row) bool
	visible map[ColumnKey]bool
	calls   int
}

func newFakeGrid() *fakeGrid {
	return &fakeGrid{visible: make(map[ColumnKey]bool)}
}

func (g *fakeGrid) FilterModel() FilterModel { return g.filter }

func (g *fakeGrid) Columns() []ColumnDefinition {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cols
}

func (g *fakeGrid) SetColumnVisible(key ColumnKey, visible bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.visible[key] = visible
	g.calls++
}

func (g *fakeGrid) ForEachRowAfterFilter(fn func(*Row)) {
	g.mu.Lock()
	rows, search := g.rows, g.search
	g.mu.Unlock()
	for _, r := range rows {
		if g.keep != nil && !g.keep(r) {
			continue
		}
		if search != nil && !search(r) {
			continue
		}
		fn(r)
	}
}

func (g *fakeGrid) SetData(cols []ColumnDefinition, rows []*Row) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cols = cols
	g.rows = rows
}

func (g *fakeGrid) SetExternalFilter(match func(*Row) bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.search = match
}

func testController(browse model.BrowseContext) (*Controller, *bytes.Buffer) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	return NewController(browse, WithLogger(logger), WithLocation(time.UTC)), &logs
}

func batch(payloads ...string) model.FetchResult {
	res := model.FetchResult{}
	for i, p := range payloads {
		rec := record(p)
		rec.TimestampMillis = int64(1000 + i)
		res.Messages = append(res.Messages, rec)
	}
	return res
}

func TestControllerAppliesBatch(t *testing.T) {
	c, logs := testController(model.BrowseContext{Topic: "orders"})
	grid := newFakeGrid()
	c.OnGridReady(grid)

	c.OnFetchStarted()
	c.OnBatchFetched(batch(`{"a":{"b":1}}`, `not json`, `{"c":true}`))

	assert.Len(t, c.Rows(), 3)
	assert.Len(t, c.RawProjections(), 3)
	assert.Equal(t, []string{"a.b", "c"}, c.Schema().Paths())
	assert.NotEmpty(t, c.BatchID())
	assert.Empty(t, c.Error())
	assert.Empty(t, c.Warning())

	stats := c.Stats()
	assert.Equal(t, 3, stats.Rows)
	assert.Equal(t, 1, stats.ParseFailures)
	assert.Equal(t, 2, stats.Columns)
	assert.Equal(t, int64(3), stats.TopicCounts["orders"])
	assert.Equal(t, int64(1000), stats.MinTimestamp)
	assert.Equal(t, int64(1002), stats.MaxTimestamp)

	// the grid received the new layout and rows
	assert.Equal(t, []string{"Timestamp", "Offset", "Type", "a.b", "c", "Key", "Value"}, headers(grid.cols))
	assert.Len(t, grid.rows, 3)
	assert.Contains(t, logs.String(), "batch applied")
}

func TestControllerBatchReplacesPrevious(t *testing.T) {
	c, _ := testController(model.BrowseContext{Topic: "orders"})
	c.OnBatchFetched(batch(`{"a":1}`))
	first := c.BatchID()
	c.OnBatchFetched(batch(`{"b":1}`))

	assert.NotEqual(t, first, c.BatchID())
	assert.Equal(t, []string{"b"}, c.Schema().Paths())
	assert.Len(t, c.Rows(), 1)
}

func TestControllerErrorLeavesStateUntouched(t *testing.T) {
	c, logs := testController(model.BrowseContext{Topic: "orders"})
	c.OnBatchFetched(batch(`{"a":1}`))
	id := c.BatchID()

	c.OnFetchStarted()
	c.OnBatchFetched(model.FetchResult{Error: "broker unavailable", Messages: batch(`{"z":1}`).Messages})

	assert.Equal(t, "broker unavailable", c.Error())
	assert.Equal(t, id, c.BatchID())
	assert.Equal(t, []string{"a"}, c.Schema().Paths())
	assert.Contains(t, logs.String(), "fetch failed")

	c.OnFetchStarted()
	assert.Empty(t, c.Error())
}

func TestControllerTimeoutWarning(t *testing.T) {
	c, _ := testController(model.BrowseContext{Topic: "orders"})
	res := batch(`{"a":1}`)
	res.HasTimeout = true
	c.OnBatchFetched(res)
	assert.Equal(t, "Some messages may (or may not) be missing as the topic timed out", c.Warning())

	c.SetBrowseContext(model.BrowseContext{})
	c.OnBatchFetched(res)
	assert.Equal(t, "Some messages may (or may not) be missing as one or more topics timed out", c.Warning())

	c.OnBatchFetched(batch(`{"a":1}`))
	assert.Empty(t, c.Warning())
}

func TestControllerFilterRecomputesVisibility(t *testing.T) {
	c, _ := testController(model.BrowseContext{Topic: "orders"})
	grid := newFakeGrid()
	c.OnGridReady(grid)
	c.OnBatchFetched(batch(`{"x":1,"y":1}`, `{"x":2,"y":0}`))

	grid.filter = FilterModel{"x": "2"}
	grid.keep = func(r *Row) bool {
		v, _ := r.Get("x")
		return v.Text() == "2"
	}
	c.OnFilterChanged()

	assert.True(t, grid.visible[ColumnKey{Field: "x"}])
	assert.False(t, grid.visible[ColumnKey{Field: "y"}])
	for key := range grid.visible {
		assert.False(t, key.System, "system column %q touched", key.Field)
	}
}

func TestControllerEmptyFilterKeepsVisibility(t *testing.T) {
	c, _ := testController(model.BrowseContext{Topic: "orders"})
	grid := newFakeGrid()
	c.OnGridReady(grid)
	c.OnBatchFetched(batch(`{"x":1}`))

	c.OnFilterChanged()

	assert.Zero(t, grid.calls)
}

func TestControllerFilterWithoutGrid(t *testing.T) {
	c, _ := testController(model.BrowseContext{Topic: "orders"})
	c.OnBatchFetched(batch(`{"x":1}`))
	assert.NotPanics(t, c.OnFilterChanged)
}

func TestControllerSearch(t *testing.T) {
	c, _ := testController(model.BrowseContext{Topic: "orders"})
	grid := newFakeGrid()
	c.OnGridReady(grid)
	c.OnBatchFetched(batch(`{"name":"alpha"}`, `{"name":"beta"}`, `plain alphabet`))

	assert.Len(t, c.SearchRows(), 3)

	c.OnSearchChanged("alpha")
	assert.Equal(t, "alpha", c.Search())
	require.Len(t, c.SearchRows(), 2)
	require.NotNil(t, grid.search)

	var passed int
	grid.ForEachRowAfterFilter(func(*Row) { passed++ })
	assert.Equal(t, 2, passed)

	// keys are searched as well and matching is case sensitive
	c.OnSearchChanged("k1")
	assert.Len(t, c.SearchRows(), 3)
	c.OnSearchChanged("ALPHA")
	assert.Empty(t, c.SearchRows())
}

func TestControllerSearchRawPayload(t *testing.T) {
	c, _ := testController(model.BrowseContext{Topic: "orders"})
	c.OnBatchFetched(batch(`{"value":"x","msg":"needle"}`, `{"a": 1}`, `{"b":2}`))

	// a payload "value" key overrides the cell, not what search sees
	c.OnSearchChanged("needle")
	require.Len(t, c.SearchRows(), 1)
	assert.Equal(t, `{"value":"x","msg":"needle"}`, c.SearchRows()[0].Fixed.Value)

	// whitespace in the payload is kept
	c.OnSearchChanged(`"a": 1`)
	require.Len(t, c.SearchRows(), 1)
	assert.Equal(t, `{"a": 1}`, c.SearchRows()[0].Fixed.Value)

	c.OnSearchChanged(`"a":1`)
	assert.Empty(t, c.SearchRows())
}

func TestControllerInvalidTimestamp(t *testing.T) {
	c, _ := testController(model.BrowseContext{Topic: "orders"})
	res := batch(`{"a":1}`, `{"a":2}`)
	res.Messages[0].TimestampMillis = model.InvalidTimestamp
	c.OnBatchFetched(res)

	require.Len(t, c.Rows(), 2)
	stats := c.Stats()
	assert.Equal(t, 1, stats.InvalidTimestamps)
	assert.Equal(t, int64(1001), stats.MinTimestamp)
	assert.Equal(t, int64(1001), stats.MaxTimestamp)

	ts := c.ColumnDefs()[0]
	require.Equal(t, FieldTimestamp, ts.Field)
	assert.Equal(t, InvalidDate, ts.Cell(c.Rows()[0]))
}

func TestControllerTitle(t *testing.T) {
	c, _ := testController(model.BrowseContext{Topic: "orders"})
	assert.Equal(t, "Messages for topic: orders", c.Title())

	c.SetBrowseContext(model.BrowseContext{})
	assert.Equal(t, "Cross-Topic search", c.Title())
}

func TestControllerBrowseContextChangesLayout(t *testing.T) {
	c, _ := testController(model.BrowseContext{Topic: "orders"})
	grid := newFakeGrid()
	c.OnGridReady(grid)
	c.OnBatchFetched(batch(`{"a":1}`))

	c.SetBrowseContext(model.BrowseContext{})

	assert.Equal(t, []string{"Timestamp", "Offset", "Type", "Topic", "Partition", "a", "Key", "Value"}, headers(grid.cols))
	assert.Len(t, grid.rows, 1)
}

func TestControllerConcurrentEvents(t *testing.T) {
	c, _ := testController(model.BrowseContext{})
	grid := newFakeGrid()
	c.OnGridReady(grid)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.OnBatchFetched(batch(`{"a":1}`, `{"b":2}`))
			_ = c.ColumnDefs()
			_ = c.SearchRows()
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"a", "b"}, c.Schema().Paths())
	assert.Len(t, c.Rows(), 2)
}
