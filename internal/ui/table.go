package ui

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/coffersTech/topicview/internal/engine"
)

// DefaultCellWidth caps a column when the caller does not.
const DefaultCellWidth = 40

const ellipsis = "…"

// Table renders grid output as aligned text columns.
type Table struct {
	// MaxCellWidth truncates longer cells. Zero means DefaultCellWidth,
	// negative means no limit.
	MaxCellWidth int
}

// Render writes the header line and one line per row. System column
// headers are muted, payload column headers use the accent color.
func (t Table) Render(w io.Writer, cols []engine.ColumnDefinition, cells [][]string) error {
	limit := t.MaxCellWidth
	if limit == 0 {
		limit = DefaultCellWidth
	}

	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = clip(c.HeaderName, limit)
	}
	lines := make([][]string, len(cells))
	for r, row := range cells {
		lines[r] = make([]string, len(cols))
		for i := range cols {
			if i < len(row) {
				lines[r][i] = clip(row[i], limit)
			}
		}
	}

	widths := make([]int, len(cols))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, line := range lines {
		for i, cell := range line {
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	bw := bufio.NewWriter(w)
	for i, h := range headers {
		cell := pad(h, widths[i], i == len(headers)-1)
		if cols[i].System {
			cell = RenderMuted(cell)
		} else {
			cell = RenderAccent(cell)
		}
		writeCell(bw, i, cell)
	}
	bw.WriteString("\n")
	for _, line := range lines {
		for i, cell := range line {
			writeCell(bw, i, pad(cell, widths[i], i == len(line)-1))
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

func writeCell(w *bufio.Writer, i int, cell string) {
	if i > 0 {
		w.WriteString("  ")
	}
	w.WriteString(cell)
}

// clip flattens whitespace and truncates s to limit runes.
func clip(s string, limit int) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return ' '
		}
		return r
	}, s)
	if limit < 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	if limit <= 1 {
		return ellipsis
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + ellipsis
}

func pad(s string, width int, last bool) string {
	if last {
		return s
	}
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
