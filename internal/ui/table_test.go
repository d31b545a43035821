package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffersTech/topicview/internal/engine"
)

func TestTableRender(t *testing.T) {
	ForceNoColor()

	cols := []engine.ColumnDefinition{
		{HeaderName: "Offset", Field: "offset", System: true},
		{HeaderName: "user.name", Field: "user.name"},
		{HeaderName: "Value", Field: "value", System: true},
	}
	cells := [][]string{
		{"1", "zoë", `{"user":{"name":"zoë"}}`},
		{"12", "line\nbreak", "x"},
	}

	var buf bytes.Buffer
	require.NoError(t, Table{}.Render(&buf, cols, cells))

	want := "" +
		"Offset  user.name   Value\n" +
		"1       zoë         {\"user\":{\"name\":\"zoë\"}}\n" +
		"12      line break  x\n"
	assert.Equal(t, want, buf.String())
}

func TestTableTruncates(t *testing.T) {
	ForceNoColor()

	cols := []engine.ColumnDefinition{{HeaderName: "Value", Field: "value"}}
	var buf bytes.Buffer
	require.NoError(t, Table{MaxCellWidth: 5}.Render(&buf, cols, [][]string{{"abcdefgh"}}))
	assert.Equal(t, "Value\nabcd…\n", buf.String())
}

func TestTableShortRows(t *testing.T) {
	ForceNoColor()

	cols := []engine.ColumnDefinition{{HeaderName: "A"}, {HeaderName: "B"}}
	var buf bytes.Buffer
	require.NoError(t, Table{}.Render(&buf, cols, [][]string{{"x"}}))
	assert.Equal(t, "A  B\nx  \n", buf.String())
}

func TestColorWrapping(t *testing.T) {
	ConfigureColor(true)
	defer ForceNoColor()

	assert.Equal(t, "\x1b[38;5;74mhi\x1b[0m", RenderAccent("hi"))
	assert.Equal(t, "", RenderError(""))

	ForceNoColor()
	assert.Equal(t, "hi", RenderWarning("hi"))
}

func TestShouldUseColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	t.Setenv("CLICOLOR_FORCE", "1")
	assert.False(t, ShouldUseColor())

	t.Setenv("NO_COLOR", "")
	assert.True(t, ShouldUseColor())

	t.Setenv("CLICOLOR_FORCE", "")
	t.Setenv("CLICOLOR", "0")
	assert.False(t, ShouldUseColor())
}
