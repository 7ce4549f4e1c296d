package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// CursorStyle is the caret shape: a block in Normal mode, a bar in Insert.
type CursorStyle int

const (
	CursorBlock CursorStyle = iota
	CursorBar
)

// Surface is what Render draws on. Print writes at the current position and
// advances it; the last MoveTo is where the caret is shown.
type Surface interface {
	Clear()
	MoveTo(col, row int)
	Print(text string)
	SetStyle(style lipgloss.Style)
	SetCursorStyle(style CursorStyle)
	Size() (cols, rows int)
}

var (
	blockCaretStyle = lipgloss.NewStyle().Reverse(true)
	barCaretStyle   = lipgloss.NewStyle().Underline(true)
)

type cell struct {
	text  string
	style int
	// cont marks the second cell of a double-width cluster.
	cont bool
}

// Grid is an in-memory Surface that bubbletea's View renders as a string.
type Grid struct {
	cols, rows int
	cells      [][]cell

	styles []lipgloss.Style
	style  int

	x, y        int
	cursorStyle CursorStyle
}

func NewGrid(cols, rows int) *Grid {
	g := &Grid{}
	g.Resize(cols, rows)
	return g
}

// Resize changes the grid dimensions and clears it.
func (g *Grid) Resize(cols, rows int) {
	g.cols, g.rows = max(cols, 0), max(rows, 0)
	g.cells = make([][]cell, g.rows)
	for i := range g.cells {
		g.cells[i] = make([]cell, g.cols)
	}
	g.Clear()
}

// Clear blanks every cell and resets the pen and the caret.
func (g *Grid) Clear() {
	for _, row := range g.cells {
		for i := range row {
			row[i] = cell{}
		}
	}
	// Style 0 is always the unstyled pen.
	g.styles = append(g.styles[:0], lipgloss.NewStyle())
	g.style = 0
	g.x, g.y = 0, 0
}

func (g *Grid) MoveTo(col, row int) {
	g.x, g.y = col, row
}

func (g *Grid) SetStyle(style lipgloss.Style) {
	g.styles = append(g.styles, style)
	g.style = len(g.styles) - 1
}

func (g *Grid) SetCursorStyle(style CursorStyle) {
	g.cursorStyle = style
}

func (g *Grid) Size() (int, int) {
	return g.cols, g.rows
}

// Print writes text cluster by cluster, clipping at the right edge. It never
// wraps.
func (g *Grid) Print(text string) {
	if g.y < 0 || g.y >= g.rows {
		return
	}
	row := g.cells[g.y]

	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		cluster := gr.Str()
		w := runewidth.StringWidth(cluster)
		if w == 0 {
			continue
		}
		if g.x < 0 || g.x+w > g.cols {
			g.x += w
			continue
		}
		row[g.x] = cell{text: cluster, style: g.style}
		for i := 1; i < w; i++ {
			row[g.x+i] = cell{style: g.style, cont: true}
		}
		g.x += w
	}
}

// Cursor reports where the caret is drawn.
func (g *Grid) Cursor() (col, row int, style CursorStyle) {
	return g.x, g.y, g.cursorStyle
}

// Text returns the plain characters of row without styling or trailing blanks.
func (g *Grid) Text(row int) string {
	if row < 0 || row >= g.rows {
		return ""
	}
	var b strings.Builder
	for _, c := range g.cells[row] {
		switch {
		case c.cont:
		case c.text == "":
			b.WriteByte(' ')
		default:
			b.WriteString(c.text)
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// String renders the grid, one line per row, with the caret drawn in place.
func (g *Grid) String() string {
	lines := make([]string, g.rows)
	for y := range g.cells {
		lines[y] = g.renderRow(y)
	}
	return strings.Join(lines, "\n")
}

func (g *Grid) renderRow(y int) string {
	var b strings.Builder
	row := g.cells[y]

	var run strings.Builder
	runStyle := 0
	flush := func() {
		if run.Len() == 0 {
			return
		}
		if runStyle == 0 {
			b.WriteString(run.String())
		} else {
			b.WriteString(g.styles[runStyle].Render(run.String()))
		}
		run.Reset()
	}

	for x := 0; x < len(row); x++ {
		c := row[x]
		if c.cont {
			continue
		}
		text := c.text
		if text == "" {
			text = " "
		}

		if y == g.y && x == g.x {
			flush()
			caret := blockCaretStyle
			if g.cursorStyle == CursorBar {
				caret = barCaretStyle
			}
			b.WriteString(caret.Render(text))
			continue
		}

		if c.style != runStyle {
			flush()
			runStyle = c.style
		}
		run.WriteString(text)
	}
	flush()
	return b.String()
}
