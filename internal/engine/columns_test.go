package engine

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/coffersTech/topicview/internal/model"
	"github.com/coffersTech/topicview/internal/pkg/payload"
)

func headers(cols []ColumnDefinition) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.HeaderName
	}
	return out
}

func TestColumnDefsSingleTopic(t *testing.T) {
	schema := AggregateBatch([]payload.Value{mustParse(t, `{"a":{"b":1},"c":2}`)})
	cols := ColumnDefs(model.BrowseContext{Topic: "orders"}, schema, time.UTC)

	assert.Equal(t, []string{"Timestamp", "Offset", "Type", "a.b", "c", "Key", "Value"}, headers(cols))
	assert.Equal(t, FilterNumber, cols[1].Filter)
	assert.Equal(t, FormatterTimestamp, cols[0].FormatterName)
	assert.False(t, cols[3].System)
	assert.True(t, cols[6].System)
}

func TestColumnDefsCrossTopic(t *testing.T) {
	cols := ColumnDefs(model.BrowseContext{}, Schema{}, time.UTC)
	assert.Equal(t, []string{"Timestamp", "Offset", "Type", "Topic", "Partition", "Key", "Value"}, headers(cols))
}

func TestColumnDefsPayloadPathNamedLikeSystemField(t *testing.T) {
	schema := AggregateBatch([]payload.Value{mustParse(t, `{"key":"x"}`)})
	cols := ColumnDefs(model.BrowseContext{Topic: "t"}, schema, time.UTC)

	dynamic := cols[3]
	system := cols[4]
	assert.Equal(t, "key", dynamic.Field)
	assert.Equal(t, "key", system.Field)
	assert.NotEqual(t, dynamic.Key(), system.Key())
}

func TestColumnCell(t *testing.T) {
	row, _ := testProjector(&bytes.Buffer{}).Project(record(`{"n":null,"o":{"p":[1]}}`))
	cols := ColumnDefs(model.BrowseContext{Topic: "orders"}, Schema{}, time.UTC)

	assert.Equal(t, "01/01/1970 00:00:01.000", cols[0].Cell(row))
	assert.Equal(t, "42", cols[1].Cell(row))

	assert.Equal(t, "", ColumnDefinition{Field: "n"}.Cell(row))
	assert.Equal(t, "", ColumnDefinition{Field: "missing"}.Cell(row))
	assert.Equal(t, "[1]", ColumnDefinition{Field: "o.p"}.Cell(row))
}
