package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Textln writes a formatted line.
func (f *Formatter) Textln(format string, args ...any) {
	fmt.Fprintf(f.writer, format+"\n", args...)
}

// Table is a column-aligned text table.
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	widths  []int
}

// NewTable creates a table with the given headers.
func NewTable(w io.Writer, headers ...string) *Table {
	t := &Table{writer: w, headers: headers, widths: make([]int, len(headers))}
	t.measure(headers)
	return t
}

func (t *Table) measure(cols []string) {
	for i, c := range cols {
		if i < len(t.widths) {
			t.widths[i] = max(t.widths[i], runewidth.StringWidth(c))
		}
	}
}

// AddRow appends a row. Extra columns are dropped.
func (t *Table) AddRow(cols ...string) {
	t.measure(cols)
	t.rows = append(t.rows, cols)
}

// Render writes the table.
func (t *Table) Render() {
	t.line(t.headers)
	seps := make([]string, len(t.widths))
	for i, w := range t.widths {
		seps[i] = strings.Repeat("-", w)
	}
	t.line(seps)
	for _, row := range t.rows {
		t.line(row)
	}
}

func (t *Table) line(cols []string) {
	var sb strings.Builder
	for i, w := range t.widths {
		c := ""
		if i < len(cols) {
			c = cols[i]
		}
		sb.WriteString("  ")
		if i == len(t.widths)-1 {
			sb.WriteString(c)
		} else {
			sb.WriteString(runewidth.FillRight(c, w))
		}
	}
	fmt.Fprintln(t.writer, sb.String())
}

// Truncate shortens s to maxWidth cells, ending in "...".
func Truncate(s string, maxWidth int) string {
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// CountStr returns "N thing" or "N things".
func CountStr(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}
