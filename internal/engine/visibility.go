package engine

import (
	"strings"

	"github.com/coffersTech/topicview/internal/pkg/payload"
)

// VisibilityState maps dynamic column paths to whether the column is shown.
// It is rebuilt from scratch on every recompute.
type VisibilityState map[string]bool

// FilterModel is the rendering surface's active column filters, keyed by
// column field. An empty model means nothing is filtered.
type FilterModel map[string]string

// Empty reports whether no filter is active.
func (m FilterModel) Empty() bool {
	return len(m) == 0
}

// Grid is the part of the rendering surface the controller drives.
type Grid interface {
	// Columns enumerates the columns currently defined on the surface.
	Columns() []ColumnDefinition
	// SetColumnVisible shows or hides one column.
	SetColumnVisible(key ColumnKey, visible bool)
	// FilterModel returns the active filters.
	FilterModel() FilterModel
	// ForEachRowAfterFilter calls fn for every row that passes the active
	// filters.
	ForEachRowAfterFilter(fn func(*Row))
}

// RowSink is implemented by surfaces that want new batches pushed to them.
type RowSink interface {
	SetData(columns []ColumnDefinition, rows []*Row)
}

// SearchSink is implemented by surfaces that apply the search text as an
// extra row filter.
type SearchSink interface {
	SetExternalFilter(match func(*Row) bool)
}

// NonEmptyFields returns the top-level field names that hold a truthy value
// in at least one of rows.
func NonEmptyFields(rows []*Row) map[string]struct{} {
	nonEmpty := make(map[string]struct{})
	for _, row := range rows {
		row.fields.Range(func(name string, v payload.Value) bool {
			if v.Truthy() {
				nonEmpty[name] = struct{}{}
			}
			return true
		})
	}
	return nonEmpty
}

// RecomputeVisibility decides, for every dynamic column, whether any visible
// row has something to show in it. Nested columns are decided by their
// top-level ancestor so sibling leaves appear and disappear together. System
// columns are left out of the result and therefore never hidden.
func RecomputeVisibility(visibleRows []*Row, columns []ColumnDefinition) VisibilityState {
	nonEmpty := NonEmptyFields(visibleRows)
	state := make(VisibilityState, len(columns))
	for _, col := range columns {
		if col.System {
			continue
		}
		_, ok := nonEmpty[topLevelSegment(col.Field)]
		state[col.Field] = ok
	}
	return state
}

// topLevelSegment returns the part of path before its first dot. A leading
// dot (an empty top-level key) leaves the path as is.
func topLevelSegment(path string) string {
	if i := strings.IndexByte(path, '.'); i >= 1 {
		return path[:i]
	}
	return path
}
