package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// Cursor columns count grapheme clusters, never bytes or runes.

func graphemeCount(s string) int {
	return uniseg.GraphemeClusterCount(s)
}

func graphemes(s string) []string {
	var out []string
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		out = append(out, gr.Str())
	}
	return out
}

// byteOffset returns the byte index where the n-th grapheme of s starts, or
// len(s) when n is past the end.
func byteOffset(s string, n int) int {
	if n <= 0 {
		return 0
	}
	gr := uniseg.NewGraphemes(s)
	for i := 0; gr.Next(); i++ {
		if i == n {
			from, _ := gr.Positions()
			return from
		}
	}
	return len(s)
}

// cellWidth is the number of terminal cells the first n graphemes occupy.
func cellWidth(s string, n int) int {
	return runewidth.StringWidth(s[:byteOffset(s, n)])
}

// insertAt inserts text before grapheme col and returns the new string and
// the column just past the inserted text.
func insertAt(s string, col int, text string) (string, int) {
	off := byteOffset(s, col)
	out := s[:off] + text + s[off:]
	return out, graphemeCount(out[:off+len(text)])
}

// deleteBefore removes the grapheme before col.
func deleteBefore(s string, col int) (string, int) {
	if col <= 0 {
		return s, 0
	}
	from := byteOffset(s, col-1)
	to := byteOffset(s, col)
	return s[:from] + s[to:], col - 1
}

func isBlank(g string) bool {
	return strings.TrimSpace(g) == ""
}

// nextWordStart returns the column of the next whitespace-delimited word on
// the line, or the end of the line when there is none.
func nextWordStart(line string, col int) int {
	gs := graphemes(line)
	i := col
	for i < len(gs) && !isBlank(gs[i]) {
		i++
	}
	for i < len(gs) && isBlank(gs[i]) {
		i++
	}
	return min(i, len(gs))
}

// prevWordStart returns the column where the word before col begins, or 0.
func prevWordStart(line string, col int) int {
	gs := graphemes(line)
	i := min(col, len(gs))
	for i > 0 && isBlank(gs[i-1]) {
		i--
	}
	for i > 0 && !isBlank(gs[i-1]) {
		i--
	}
	return i
}

// singleLine flattens pasted or typed text so the compose buffer stays one line.
func singleLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ", "\t", " ").Replace(s)
}
