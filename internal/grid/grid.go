// Package grid is an in-memory rendering surface for the message view. It
// keeps columns, their visibility, per-column filters and the rows pushed by
// the controller, and reports filter changes to its listeners.
package grid

import (
	"fmt"
	"sync"

	"github.com/coffersTech/topicview/internal/engine"
	"github.com/coffersTech/topicview/internal/pkg/nanoql"
)

// Grid implements engine.Grid, engine.RowSink and engine.SearchSink.
type Grid struct {
	mu       sync.RWMutex
	cols     []engine.ColumnDefinition
	rows     []*engine.Row
	hidden   map[engine.ColumnKey]bool
	filters  engine.FilterModel
	compiled map[string]nanoql.Node
	external func(*engine.Row) bool

	listenersMu sync.Mutex
	listeners   []func()
}

var (
	_ engine.Grid       = (*Grid)(nil)
	_ engine.RowSink    = (*Grid)(nil)
	_ engine.SearchSink = (*Grid)(nil)
)

// New returns an empty grid.
func New() *Grid {
	return &Grid{
		hidden:   make(map[engine.ColumnKey]bool),
		filters:  make(engine.FilterModel),
		compiled: make(map[string]nanoql.Node),
	}
}

// OnFilterChanged registers fn to run after every filter change. Listeners run
// on the caller's goroutine with no grid lock held.
func (g *Grid) OnFilterChanged(fn func()) {
	g.listenersMu.Lock()
	g.listeners = append(g.listeners, fn)
	g.listenersMu.Unlock()
}

func (g *Grid) notify() {
	g.listenersMu.Lock()
	listeners := append([]func(){}, g.listeners...)
	g.listenersMu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// SetData replaces columns and rows. Every column becomes visible again and
// filters on fields that no longer have a column are dropped. The controller
// recomputes visibility for the filters that remain.
func (g *Grid) SetData(cols []engine.ColumnDefinition, rows []*engine.Row) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.cols = append([]engine.ColumnDefinition(nil), cols...)
	g.rows = rows
	g.hidden = make(map[engine.ColumnKey]bool)

	fields := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		fields[c.Field] = struct{}{}
	}
	for field := range g.filters {
		if _, ok := fields[field]; !ok {
			delete(g.filters, field)
			delete(g.compiled, field)
		}
	}
}

// Columns returns every column, hidden ones included.
func (g *Grid) Columns() []engine.ColumnDefinition {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]engine.ColumnDefinition(nil), g.cols...)
}

// VisibleColumns returns the columns currently shown, in layout order.
func (g *Grid) VisibleColumns() []engine.ColumnDefinition {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]engine.ColumnDefinition, 0, len(g.cols))
	for _, c := range g.cols {
		if !g.hidden[c.Key()] {
			out = append(out, c)
		}
	}
	return out
}

// SetColumnVisible shows or hides one column.
func (g *Grid) SetColumnVisible(key engine.ColumnKey, visible bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if visible {
		delete(g.hidden, key)
	} else {
		g.hidden[key] = true
	}
}

// ColumnVisible reports whether the column is shown.
func (g *Grid) ColumnVisible(key engine.ColumnKey) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return !g.hidden[key]
}

// FilterModel returns a copy of the active filters.
func (g *Grid) FilterModel() engine.FilterModel {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m := make(engine.FilterModel, len(g.filters))
	for k, v := range g.filters {
		m[k] = v
	}
	return m
}

// SetFilter sets the filter expression of one column. An empty expression
// removes it. Listeners are notified once the filter is in place.
func (g *Grid) SetFilter(field, expr string) error {
	if err := g.setFilter(field, expr); err != nil {
		return err
	}
	g.notify()
	return nil
}

func (g *Grid) setFilter(field, expr string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if expr == "" {
		delete(g.filters, field)
		delete(g.compiled, field)
		return nil
	}
	col, ok := g.column(field)
	if !ok {
		return fmt.Errorf("filter on unknown column %q", field)
	}
	node, err := compile(col, expr)
	if err != nil {
		return fmt.Errorf("filter on %q: %w", field, err)
	}
	g.filters[field] = expr
	g.compiled[field] = node
	return nil
}

// SetFilterModel replaces every filter at once. Nothing changes when any
// expression fails to parse.
func (g *Grid) SetFilterModel(m engine.FilterModel) error {
	if err := g.setFilterModel(m); err != nil {
		return err
	}
	g.notify()
	return nil
}

func (g *Grid) setFilterModel(m engine.FilterModel) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	filters := make(engine.FilterModel, len(m))
	compiled := make(map[string]nanoql.Node, len(m))
	for field, expr := range m {
		if expr == "" {
			continue
		}
		col, ok := g.column(field)
		if !ok {
			return fmt.Errorf("filter on unknown column %q", field)
		}
		node, err := compile(col, expr)
		if err != nil {
			return fmt.Errorf("filter on %q: %w", field, err)
		}
		filters[field] = expr
		compiled[field] = node
	}
	g.filters = filters
	g.compiled = compiled
	return nil
}

// column finds a column by field. System and payload columns with the same
// field read the same effective value, so the first match is enough.
func (g *Grid) column(field string) (engine.ColumnDefinition, bool) {
	for _, c := range g.cols {
		if c.Field == field {
			return c, true
		}
	}
	return engine.ColumnDefinition{}, false
}

// SetExternalFilter installs an extra row predicate, typically the search box.
func (g *Grid) SetExternalFilter(match func(*engine.Row) bool) {
	g.mu.Lock()
	g.external = match
	g.mu.Unlock()
}

// ForEachRowAfterFilter calls fn for every row that passes the column filters
// and the external filter, in row order.
func (g *Grid) ForEachRowAfterFilter(fn func(*engine.Row)) {
	g.mu.RLock()
	rows := g.rows
	external := g.external
	nodes := make([]nanoql.Node, 0, len(g.compiled))
	for _, n := range g.compiled {
		nodes = append(nodes, n)
	}
	g.mu.RUnlock()

	for _, r := range rows {
		if external != nil && !external(r) {
			continue
		}
		if !matchAll(nodes, r) {
			continue
		}
		fn(r)
	}
}

// RowsAfterFilter collects the rows ForEachRowAfterFilter would visit.
func (g *Grid) RowsAfterFilter() []*engine.Row {
	var out []*engine.Row
	g.ForEachRowAfterFilter(func(r *engine.Row) {
		out = append(out, r)
	})
	return out
}

func matchAll(nodes []nanoql.Node, r *engine.Row) bool {
	for _, n := range nodes {
		if !nanoql.Match(n, r) {
			return false
		}
	}
	return true
}

// Render returns the visible columns and, for every row that passes the
// filters, the display text of each visible cell.
func (g *Grid) Render() ([]engine.ColumnDefinition, [][]string) {
	cols := g.VisibleColumns()
	var cells [][]string
	g.ForEachRowAfterFilter(func(r *engine.Row) {
		line := make([]string, len(cols))
		for i, c := range cols {
			line[i] = c.Cell(r)
		}
		cells = append(cells, line)
	})
	return cols, cells
}
