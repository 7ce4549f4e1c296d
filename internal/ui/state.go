package ui

import (
	"strings"

	"github.com/eznix86/tchat/internal/irc"
)

// Mode is the editing mode. The pending modes wait for the second key of a
// two-key operator (yy, dd) and fall back to Normal after exactly one key.
type Mode int

const (
	ModeNormal Mode = iota
	ModeInsert
	ModeYankPending
	ModeDeletePending
)

func (m Mode) String() string {
	switch m {
	case ModeInsert:
		return "INSERT"
	case ModeYankPending:
		return "y"
	case ModeDeletePending:
		return "d"
	default:
		return "NORMAL"
	}
}

// CursorPos addresses a screen cell. Row 0 is the top row; Column counts
// grapheme clusters of the addressed line.
type CursorPos struct {
	Row    int
	Column int
}

// ChatEntry is a received or locally sent chat message.
type ChatEntry struct {
	Tags    irc.Tags
	Prefix  irc.Prefix
	Channel string
	Text    string
}

// Author resolves the name shown for the entry.
func (e ChatEntry) Author() string {
	switch {
	case e.Tags.Get("display-name") != "":
		return e.Tags.Get("display-name")
	case e.Prefix.User != "":
		return e.Prefix.User
	case e.Prefix.Nick != "":
		return e.Prefix.Nick
	default:
		return e.Channel
	}
}

// Body is the message text without its line terminator.
func (e ChatEntry) Body() string {
	return strings.TrimRight(e.Text, "\r\n")
}

// Line is the rendered "author: text" line the cursor moves over.
func (e ChatEntry) Line() string {
	return e.Author() + ": " + e.Body()
}

// Scrollback is the ordered log of chat entries. With a positive limit the
// oldest entries are dropped once the limit is exceeded.
type Scrollback struct {
	entries []ChatEntry
	limit   int
}

func NewScrollback(limit int) Scrollback {
	return Scrollback{limit: limit}
}

func (s *Scrollback) Append(e ChatEntry) {
	s.entries = append(s.entries, e)
	if s.limit > 0 && len(s.entries) > s.limit {
		s.entries = append(s.entries[:0:0], s.entries[len(s.entries)-s.limit:]...)
	}
}

func (s Scrollback) Len() int {
	return len(s.entries)
}

// Tail returns the n most recent entries, oldest first.
func (s Scrollback) Tail(n int) []ChatEntry {
	n = max(0, min(n, len(s.entries)))
	return s.entries[len(s.entries)-n:]
}

// State is everything the screen shows. Only the Model mutates it.
type State struct {
	Mode       Mode
	Cursor     CursorPos
	Compose    string
	Scrollback Scrollback

	Cols, Rows int

	// SelfTags are the tags of the last GLOBALUSERSTATE, used to attribute
	// messages sent from this client.
	SelfTags     irc.Tags
	Disconnected bool
}

func (s *State) lastRow() int {
	return max(s.Rows-1, 0)
}

// firstMessageRow is the top row of the scrollback region.
func (s *State) firstMessageRow() int {
	return max(s.Rows-min(s.Scrollback.Len(), s.Rows)-1, 0)
}

// visible returns the entries shown between firstMessageRow and the compose row.
func (s *State) visible() []ChatEntry {
	return s.Scrollback.Tail(s.lastRow() - s.firstMessageRow())
}

func (s *State) onCompose() bool {
	return s.Cursor.Row >= s.lastRow()
}

// entryAt returns the scrollback entry drawn on row.
func (s *State) entryAt(row int) (ChatEntry, bool) {
	first := s.firstMessageRow()
	vis := s.visible()
	if row < first || row-first >= len(vis) {
		return ChatEntry{}, false
	}
	return vis[row-first], true
}

// lineAt returns the text of the given row: the compose buffer on the last
// row, a rendered entry above it, "" for blank rows.
func (s *State) lineAt(row int) string {
	if row >= s.lastRow() {
		return s.Compose
	}
	e, ok := s.entryAt(row)
	if !ok {
		return ""
	}
	return e.Line()
}

func (s *State) currentLine() string {
	return s.lineAt(s.Cursor.Row)
}

func (s *State) currentLineLen() int {
	return graphemeCount(s.currentLine())
}

// clampCursor restores firstMessageRow <= row <= lastRow and
// 0 <= column <= line length.
func (s *State) clampCursor() {
	s.Cursor.Row = min(max(s.Cursor.Row, s.firstMessageRow()), s.lastRow())
	s.Cursor.Column = min(max(s.Cursor.Column, 0), s.currentLineLen())
}
