// Package render formats benchmark results and diff reports for the
// terminal.
package render

import (
	"fmt"
	"io"
	"strings"
)

const sepWidth = 3

// Table writes box-drawn rows with fixed column widths. Cell padding is
// computed on the visible width, so ANSI color codes never skew alignment.
// The first column is left-aligned, the rest right-aligned.
type Table struct {
	w      io.Writer
	names  []string
	widths []int
}

// NewTable creates a table over w. names and widths must have equal length.
func NewTable(w io.Writer, names []string, widths []int) *Table {
	return &Table{w: w, names: names, widths: widths}
}

// Header writes the top border and the heading row.
func (t *Table) Header() {
	t.rule("┌", "┬", "┐")

	cells := make([]string, len(t.names))
	for i, name := range t.names {
		cells[i] = center(name, t.widths[i])
	}
	t.cells(cells)

	t.Separator()
}

// Row writes one data row. Missing cells render empty.
func (t *Table) Row(values []string) {
	cells := make([]string, len(t.widths))
	for i := range t.widths {
		var v string
		if i < len(values) {
			v = values[i]
		}

		if i == 0 {
			cells[i] = padRight(v, t.widths[i])
		} else {
			cells[i] = padLeft(v, t.widths[i])
		}
	}

	t.cells(cells)
}

// Separator writes a horizontal rule between rows.
func (t *Table) Separator() {
	t.rule("├", "┼", "┤")
}

// Footer writes the bottom border.
func (t *Table) Footer() {
	t.rule("└", "┴", "┘")
}

func (t *Table) rule(left, mid, right string) {
	var sb strings.Builder

	sb.WriteString(left)
	for i, w := range t.widths {
		sb.WriteString(strings.Repeat("─", w+sepWidth-1))
		if i < len(t.widths)-1 {
			sb.WriteString(mid)
		}
	}
	sb.WriteString(right)

	fmt.Fprintln(t.w, sb.String())
}

func (t *Table) cells(cells []string) {
	var sb strings.Builder

	sb.WriteString("│ ")
	for i, cell := range cells {
		if i > 0 {
			sb.WriteString(" │ ")
		}
		sb.WriteString(cell)
	}
	sb.WriteString(" │")

	fmt.Fprintln(t.w, sb.String())
}

// visibleLen is the display width of s with ANSI escape sequences
// stripped.
func visibleLen(s string) int {
	n := 0
	inEscape := false

	for _, r := range s {
		switch {
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			n++
		}
	}

	return n
}

func padLeft(s string, width int) string {
	if pad := width - visibleLen(s); pad > 0 {
		return strings.Repeat(" ", pad) + s
	}

	return s
}

func padRight(s string, width int) string {
	if pad := width - visibleLen(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}

	return s
}

func center(s string, width int) string {
	pad := width - visibleLen(s)
	if pad <= 0 {
		return s
	}

	left := pad / 2

	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}
