package engine

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/coffersTech/topicview/internal/model"
)

func projectAll(t *testing.T, payloads ...string) ([]*Row, Schema) {
	t.Helper()
	p := testProjector(&bytes.Buffer{})
	var rows []*Row
	var s Schema
	for _, text := range payloads {
		row, decoded := p.Project(record(text))
		rows = append(rows, row)
		s = Aggregate(s, decoded)
	}
	return rows, s
}

func TestRecomputeVisibility(t *testing.T) {
	rows, schema := projectAll(t, `{"x":1,"y":0}`, `{"x":2}`)
	cols := ColumnDefs(model.BrowseContext{Topic: "orders"}, schema, time.UTC)

	state := RecomputeVisibility(rows, cols)

	assert.Equal(t, VisibilityState{"x": true, "y": false}, state)
}

func TestRecomputeVisibilityNestedFollowsTopLevel(t *testing.T) {
	rows, schema := projectAll(t, `{"a":{"b":0,"c":""},"d":{"e":null}}`)
	cols := ColumnDefs(model.BrowseContext{Topic: "orders"}, schema, time.UTC)

	state := RecomputeVisibility(rows, cols)

	// a is an object and therefore truthy even though its leaves are empty
	assert.True(t, state["a.b"])
	assert.True(t, state["a.c"])
	assert.True(t, state["d.e"])
}

func TestRecomputeVisibilityNoRowsHidesDynamic(t *testing.T) {
	_, schema := projectAll(t, `{"x":1}`)
	cols := ColumnDefs(model.BrowseContext{}, schema, time.UTC)

	state := RecomputeVisibility(nil, cols)

	assert.Equal(t, VisibilityState{"x": false}, state)
	for _, c := range cols {
		if c.System {
			_, present := state[c.Field]
			assert.False(t, present, c.Field)
		}
	}
}

func TestNonEmptyFields(t *testing.T) {
	rows, _ := projectAll(t, `{"a":[],"b":false,"c":"s"}`)
	got := NonEmptyFields(rows)

	assert.Contains(t, got, "a")
	assert.NotContains(t, got, "b")
	assert.Contains(t, got, "c")
	assert.Contains(t, got, "key")
}

func TestTopLevelSegment(t *testing.T) {
	assert.Equal(t, "a", topLevelSegment("a.b.c"))
	assert.Equal(t, "a", topLevelSegment("a"))
	assert.Equal(t, ".a", topLevelSegment(".a"))
}

func TestFilterModelEmpty(t *testing.T) {
	assert.True(t, FilterModel(nil).Empty())
	assert.False(t, FilterModel{"x": "1"}.Empty())
}
