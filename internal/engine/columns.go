package engine

import (
	"time"

	"github.com/coffersTech/topicview/internal/model"
	"github.com/coffersTech/topicview/internal/pkg/payload"
)

// Column filter kinds understood by the rendering surface.
const (
	FilterText   = ""
	FilterNumber = "number"
)

// FormatterTimestamp names the epoch-millis display formatter.
const FormatterTimestamp = "timestamp"

// ValueFormatter renders a cell value for display.
type ValueFormatter func(v payload.Value) string

// ColumnKey identifies a column. A payload path may equal a system field
// name, so the field alone is not unique.
type ColumnKey struct {
	Field  string
	System bool
}

// ColumnDefinition describes one column for the rendering surface.
type ColumnDefinition struct {
	HeaderName    string `json:"headerName"`
	Field         string `json:"field"`
	Filter        string `json:"filter,omitempty"`
	FormatterName string `json:"valueFormatter,omitempty"`
	System        bool   `json:"system"`

	Formatter ValueFormatter `json:"-"`
}

// Key returns the column's identity.
func (c ColumnDefinition) Key() ColumnKey {
	return ColumnKey{Field: c.Field, System: c.System}
}

// Cell renders the column's value for row. Missing and null values render
// empty.
func (c ColumnDefinition) Cell(row *Row) string {
	v, ok := row.Get(c.Field)
	if !ok || v.Kind() == payload.KindNull {
		return ""
	}
	if c.Formatter != nil {
		return c.Formatter(v)
	}
	return v.Text()
}

// ColumnDefs lays out the columns for a view: Timestamp, Offset, Type, then
// Topic and Partition when browsing across topics, then one column per schema
// path, then Key and Value.
func ColumnDefs(browse model.BrowseContext, schema Schema, loc *time.Location) []ColumnDefinition {
	cols := make([]ColumnDefinition, 0, schema.Len()+7)
	cols = append(cols,
		ColumnDefinition{
			HeaderName:    "Timestamp",
			Field:         FieldTimestamp,
			FormatterName: FormatterTimestamp,
			System:        true,
			Formatter: func(v payload.Value) string {
				return FormatTimestampValue(v, loc)
			},
		},
		ColumnDefinition{HeaderName: "Offset", Field: FieldOffset, Filter: FilterNumber, System: true},
		ColumnDefinition{HeaderName: "Type", Field: FieldType, System: true},
	)
	if browse.CrossTopic() {
		cols = append(cols,
			ColumnDefinition{HeaderName: "Topic", Field: FieldTopic, System: true},
			ColumnDefinition{HeaderName: "Partition", Field: FieldPartition, System: true},
		)
	}
	for _, path := range schema.paths {
		cols = append(cols, ColumnDefinition{HeaderName: path, Field: path})
	}
	cols = append(cols,
		ColumnDefinition{HeaderName: "Key", Field: FieldKey, System: true},
		ColumnDefinition{HeaderName: "Value", Field: FieldValue, System: true},
	)
	return cols
}
