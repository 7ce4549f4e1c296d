package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/eznix86/tchat/internal/irc"
)

// pollInterval bounds how long inbound chat waits before it is drained.
const pollInterval = 16 * time.Millisecond

// Session is the connection the Model sends on and drains events from.
type Session interface {
	Nick() string
	Channel() string
	Send(text string) error
	PollEvent() (*irc.Message, error)
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the chat screen: it owns the State and is its only writer.
type Model struct {
	session   Session
	clipboard Clipboard
	keys      KeyMap
	log       *zap.Logger

	state State
	grid  *Grid
}

type Option func(*Model)

func WithLogger(log *zap.Logger) Option {
	return func(m *Model) { m.log = log }
}

// WithScrollbackLimit caps the scrollback; 0 keeps every entry.
func WithScrollbackLimit(n int) Option {
	return func(m *Model) { m.state.Scrollback = NewScrollback(n) }
}

func WithKeyMap(km KeyMap) Option {
	return func(m *Model) { m.keys = km }
}

func NewModel(session Session, clip Clipboard, opts ...Option) Model {
	m := Model{
		session:   session,
		clipboard: clip,
		keys:      DefaultKeyMap(),
		log:       zap.NewNop(),
		state: State{
			Mode:       ModeNormal,
			Scrollback: NewScrollback(0),
			Cols:       80,
			Rows:       24,
			SelfTags:   irc.Tags{},
		},
		grid: NewGrid(80, 24),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.state.Cursor.Row = m.state.lastRow()
	m.state.clampCursor()
	return m
}

// State returns a copy of the current screen state.
func (m Model) State() State {
	return m.state
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.state.Cols, m.state.Rows = msg.Width, msg.Height
		m.state.clampCursor()
		return m, nil

	case tickMsg:
		if m.state.Disconnected {
			return m, nil
		}
		m.drainEvents()
		if m.state.Disconnected {
			return m, nil
		}
		return m, tickCmd()

	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		m.state.clampCursor()
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	if cols, rows := m.grid.Size(); cols != m.state.Cols || rows != m.state.Rows {
		m.grid.Resize(m.state.Cols, m.state.Rows)
	}
	Render(&m.state, m.grid)
	return m.grid.String()
}

// drainEvents applies every event the reader has queued so far.
func (m *Model) drainEvents() {
	for {
		ev, err := m.session.PollEvent()
		if err != nil {
			m.log.Info("connection closed", zap.Error(err))
			m.state.Disconnected = true
			break
		}
		if ev == nil {
			break
		}
		m.handleEvent(ev)
	}
	m.state.clampCursor()
}

func (m *Model) handleEvent(ev *irc.Message) {
	switch cmd := ev.Command.(type) {
	case irc.ChatMessage:
		m.state.Scrollback.Append(ChatEntry{
			Tags:    ev.Tags,
			Prefix:  ev.Prefix,
			Channel: cmd.Channel,
			Text:    cmd.Text,
		})
	case irc.GlobalUserState:
		m.state.SelfTags = ev.Tags
	default:
		m.log.Debug("ignored event", zap.Any("command", cmd))
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Quit) {
		return tea.Quit
	}

	s := &m.state
	switch s.Mode {
	case ModeYankPending:
		s.Mode = ModeNormal
		if key.Matches(msg, m.keys.Yank) {
			m.yankLine()
		}
		return nil
	case ModeDeletePending:
		s.Mode = ModeNormal
		if key.Matches(msg, m.keys.Delete) {
			m.cutCompose()
		}
		return nil
	}

	if key.Matches(msg, m.keys.Normal) {
		s.Mode = ModeNormal
		return nil
	}

	if s.Mode == ModeInsert {
		m.handleInsertKey(msg)
	} else {
		m.handleNormalKey(msg)
	}
	return nil
}

func (m *Model) handleNormalKey(msg tea.KeyMsg) {
	s := &m.state
	switch {
	case key.Matches(msg, m.keys.Left):
		s.Cursor.Column--
	case key.Matches(msg, m.keys.Right):
		// At the end of a scrollback line, l steps onto the next entry.
		if !s.onCompose() && s.Cursor.Column >= s.currentLineLen() && s.Cursor.Row < s.lastRow()-1 {
			s.Cursor.Row++
			s.Cursor.Column = 0
			return
		}
		s.Cursor.Column++
	case key.Matches(msg, m.keys.Down):
		s.Cursor.Row++
	case key.Matches(msg, m.keys.Up):
		s.Cursor.Row--
	case key.Matches(msg, m.keys.WordForward):
		s.Cursor.Column = nextWordStart(s.currentLine(), s.Cursor.Column)
	case key.Matches(msg, m.keys.WordBackward):
		s.Cursor.Column = prevWordStart(s.currentLine(), s.Cursor.Column)
	case key.Matches(msg, m.keys.LineStart):
		s.Cursor.Column = 0
	case key.Matches(msg, m.keys.LineEnd):
		s.Cursor.Column = s.currentLineLen()
	case key.Matches(msg, m.keys.Insert):
		s.Mode = ModeInsert
		s.Cursor.Row = s.lastRow()
		s.Cursor.Column = graphemeCount(s.Compose)
	case key.Matches(msg, m.keys.Yank):
		s.Mode = ModeYankPending
	case key.Matches(msg, m.keys.Delete):
		s.Mode = ModeDeletePending
	case key.Matches(msg, m.keys.Paste):
		m.paste()
	}
	// Rows changed under the cursor: reclamp before the column is used again.
	s.clampCursor()
}

func (m *Model) handleInsertKey(msg tea.KeyMsg) {
	s := &m.state
	switch {
	case key.Matches(msg, m.keys.Send):
		m.send(false)
	case key.Matches(msg, m.keys.SendRetain):
		m.send(true)
	case key.Matches(msg, m.keys.Backspace):
		s.Compose, s.Cursor.Column = deleteBefore(s.Compose, s.Cursor.Column)
	case key.Matches(msg, m.keys.CursorLeft):
		s.Cursor.Column--
	case key.Matches(msg, m.keys.CursorRight):
		s.Cursor.Column++
	case key.Matches(msg, m.keys.CursorHome):
		s.Cursor.Column = 0
	case key.Matches(msg, m.keys.CursorEnd):
		s.Cursor.Column = graphemeCount(s.Compose)
	case msg.Type == tea.KeySpace:
		m.insert(" ")
	case msg.Type == tea.KeyRunes && !msg.Alt:
		m.insert(string(msg.Runes))
	}
}

// insert puts text into the compose buffer at the cursor, moving the cursor
// to the compose row first.
func (m *Model) insert(text string) {
	s := &m.state
	text = singleLine(text)
	if text == "" {
		return
	}
	if !s.onCompose() {
		s.Cursor.Row = s.lastRow()
	}
	col := min(max(s.Cursor.Column, 0), graphemeCount(s.Compose))
	s.Compose, s.Cursor.Column = insertAt(s.Compose, col, text)
}

func (m *Model) send(retain bool) {
	s := &m.state
	if s.Compose == "" {
		return
	}
	if err := m.session.Send(s.Compose); err != nil {
		m.log.Warn("send failed", zap.Error(err))
		return
	}

	nick := m.session.Nick()
	s.Scrollback.Append(ChatEntry{
		Tags:    s.SelfTags.Clone(),
		Prefix:  irc.Prefix{Nick: nick, User: nick, Host: nick},
		Channel: m.session.Channel(),
		Text:    s.Compose,
	})
	if !retain {
		s.Compose = ""
		s.Cursor.Column = 0
	}
}

func (m *Model) yankLine() {
	line := m.state.currentLine()
	if err := m.clipboard.WriteAll(line); err != nil {
		m.log.Warn("copy failed", zap.Error(err))
	}
}

func (m *Model) cutCompose() {
	s := &m.state
	if !s.onCompose() {
		return
	}
	// Keep the buffer when it cannot be copied, so nothing is lost.
	if err := m.clipboard.WriteAll(s.Compose); err != nil {
		m.log.Warn("cut failed", zap.Error(err))
		return
	}
	s.Compose = ""
	s.Cursor.Column = 0
}

func (m *Model) paste() {
	text, err := m.clipboard.ReadAll()
	if err != nil {
		m.log.Warn("paste failed", zap.Error(err))
		return
	}
	// From a scrollback row the paste appends, like i.
	s := &m.state
	if !s.onCompose() {
		s.Cursor.Row = s.lastRow()
		s.Cursor.Column = graphemeCount(s.Compose)
	}
	m.insert(text)
}
