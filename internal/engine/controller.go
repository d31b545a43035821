package engine

import (
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/coffersTech/topicview/internal/model"
)

const (
	warnTopicTimeout      = "Some messages may (or may not) be missing as the topic timed out"
	warnCrossTopicTimeout = "Some messages may (or may not) be missing as one or more topics timed out"
)

// view is one applied batch. It is published as a whole and never modified
// afterwards, so readers cannot observe rows from one batch paired with the
// schema of another.
type view struct {
	batchID string
	rows    []*Row
	raw     []RawProjection
	schema  Schema
	stats   BatchStats
}

var emptyView = &view{}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the logger used for batch diagnostics.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLocation sets the zone timestamps are displayed in.
func WithLocation(loc *time.Location) ControllerOption {
	return func(c *Controller) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// Controller reacts to fetch, filter and search events for one message view
// and derives what the rendering surface shows.
type Controller struct {
	// mu serializes events. A batch is projected to completion before the
	// next event is looked at; the last batch applied wins.
	mu sync.Mutex

	logger    *slog.Logger
	projector *Projector
	loc       *time.Location

	current atomic.Pointer[view]

	stateMu sync.RWMutex
	browse  model.BrowseContext
	search  string
	errMsg  string
	warning string
	grid    Grid
}

// NewController creates a controller for the given browse context.
func NewController(browse model.BrowseContext, opts ...ControllerOption) *Controller {
	c := &Controller{
		logger: slog.Default(),
		loc:    time.Local,
		browse: browse,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.projector = NewProjector(c.logger)
	c.current.Store(emptyView)
	return c
}

// OnGridReady attaches the rendering surface.
func (c *Controller) OnGridReady(g Grid) {
	c.stateMu.Lock()
	c.grid = g
	search := c.search
	c.stateMu.Unlock()

	c.pushData(g)
	if sink, ok := g.(SearchSink); ok {
		sink.SetExternalFilter(searchMatcher(search))
	}
}

// OnFetchStarted clears the error and warning of the previous fetch.
func (c *Controller) OnFetchStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stateMu.Lock()
	c.errMsg = ""
	c.warning = ""
	c.stateMu.Unlock()
}

// OnBatchFetched applies a fetch result. A result carrying an error is
// surfaced as is and leaves the current rows and schema untouched. Otherwise
// every record is projected, the schema is folded over the decoded payloads
// and the new view replaces the old one in a single step.
func (c *Controller) OnBatchFetched(res model.FetchResult) {
	c.mu.Lock()
	if res.Error != "" {
		c.stateMu.Lock()
		c.errMsg = res.Error
		c.stateMu.Unlock()
		c.mu.Unlock()
		c.logger.Error("fetch failed", "error", res.Error)
		return
	}

	v := c.project(res.Messages)
	c.current.Store(v)

	c.stateMu.Lock()
	c.warning = ""
	if res.HasTimeout {
		if c.browse.CrossTopic() {
			c.warning = warnCrossTopicTimeout
		} else {
			c.warning = warnTopicTimeout
		}
	}
	grid := c.grid
	c.stateMu.Unlock()
	c.mu.Unlock()

	c.logger.Info("batch applied",
		"batch_id", v.batchID,
		"rows", v.stats.Rows,
		"columns", v.stats.Columns,
		"parse_failures", v.stats.ParseFailures,
		"timeout", res.HasTimeout,
	)
	c.pushData(grid)
}

func (c *Controller) project(records []model.RawRecord) *view {
	v := &view{
		batchID: uuid.NewString(),
		rows:    make([]*Row, 0, len(records)),
		raw:     make([]RawProjection, 0, len(records)),
	}
	for _, rec := range records {
		row, decoded := c.projector.Project(rec)
		v.rows = append(v.rows, row)
		v.raw = append(v.raw, row.Raw)
		if row.parseErr == nil {
			v.schema = Aggregate(v.schema, decoded)
		}
	}
	v.stats = collectStats(v.batchID, v.rows, v.schema)
	return v
}

// OnFilterChanged recomputes dynamic column visibility from the rows that
// pass the surface's filters. With no active filter the current visibility
// is kept as it is.
func (c *Controller) OnFilterChanged() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stateMu.RLock()
	grid := c.grid
	c.stateMu.RUnlock()
	if grid == nil {
		return
	}
	if grid.FilterModel().Empty() {
		return
	}

	var visible []*Row
	grid.ForEachRowAfterFilter(func(r *Row) {
		visible = append(visible, r)
	})
	columns := grid.Columns()
	state := RecomputeVisibility(visible, columns)
	for _, col := range columns {
		if col.System {
			continue
		}
		grid.SetColumnVisible(col.Key(), state[col.Field])
	}
}

// OnSearchChanged records the search text.
func (c *Controller) OnSearchChanged(text string) {
	c.stateMu.Lock()
	c.search = text
	grid := c.grid
	c.stateMu.Unlock()

	if sink, ok := grid.(SearchSink); ok {
		sink.SetExternalFilter(searchMatcher(text))
	}
}

// SetBrowseContext switches the topic context. Rows stay until the next
// batch; the column layout follows the new context immediately.
func (c *Controller) SetBrowseContext(browse model.BrowseContext) {
	c.mu.Lock()
	c.stateMu.Lock()
	c.browse = browse
	grid := c.grid
	c.stateMu.Unlock()
	c.mu.Unlock()

	c.pushData(grid)
}

// pushData hands the current layout and rows to the surface. Filters that
// survive the new layout hide columns again right away.
func (c *Controller) pushData(g Grid) {
	sink, ok := g.(RowSink)
	if !ok {
		return
	}
	sink.SetData(c.ColumnDefs(), c.Rows())
	c.OnFilterChanged()
}

// BrowseContext returns the current topic context.
func (c *Controller) BrowseContext() model.BrowseContext {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.browse
}

// Title is the heading for the current context.
func (c *Controller) Title() string {
	browse := c.BrowseContext()
	if browse.CrossTopic() {
		return "Cross-Topic search"
	}
	return "Messages for topic: " + browse.Topic
}

// Error returns the last fetch error, if any.
func (c *Controller) Error() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.errMsg
}

// Warning returns the partial-result warning of the last batch, if any.
func (c *Controller) Warning() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.warning
}

// Search returns the current search text.
func (c *Controller) Search() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.search
}

// ColumnDefs derives the column layout from the current context and the
// schema of the applied batch.
func (c *Controller) ColumnDefs() []ColumnDefinition {
	return ColumnDefs(c.BrowseContext(), c.current.Load().schema, c.loc)
}

// Schema returns the schema of the applied batch.
func (c *Controller) Schema() Schema {
	return c.current.Load().schema
}

// Rows returns the rows of the applied batch.
func (c *Controller) Rows() []*Row {
	return append([]*Row(nil), c.current.Load().rows...)
}

// RawProjections returns one raw projection per row, in row order.
func (c *Controller) RawProjections() []RawProjection {
	return append([]RawProjection(nil), c.current.Load().raw...)
}

// BatchID identifies the applied batch. It is empty before the first batch.
func (c *Controller) BatchID() string {
	return c.current.Load().batchID
}

// Stats returns the statistics of the applied batch.
func (c *Controller) Stats() BatchStats {
	return c.current.Load().stats
}

// MatchesSearch reports whether row matches the current search text.
func (c *Controller) MatchesSearch(row *Row) bool {
	return searchMatcher(c.Search())(row)
}

// SearchRows returns the rows of the applied batch that match the current
// search text.
func (c *Controller) SearchRows() []*Row {
	match := searchMatcher(c.Search())
	rows := c.current.Load().rows
	out := make([]*Row, 0, len(rows))
	for _, r := range rows {
		if match(r) {
			out = append(out, r)
		}
	}
	return out
}

// searchMatcher matches rows whose raw payload or key contains text. The
// payload is matched as delivered, never its re-encoded or overridden value.
// The match is a case-sensitive substring test; an empty text matches
// everything.
func searchMatcher(text string) func(*Row) bool {
	return func(r *Row) bool {
		if text == "" {
			return true
		}
		return strings.Contains(r.Fixed.Value, text) || strings.Contains(r.Fixed.Key, text)
	}
}
