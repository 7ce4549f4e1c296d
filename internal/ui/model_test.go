package ui

import (
	"errors"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/eznix86/tchat/internal/irc"
)

type fakeSession struct {
	sent    []string
	events  []*irc.Message
	closed  bool
	sendErr error
}

func (f *fakeSession) Nick() string    { return "me" }
func (f *fakeSession) Channel() string { return "chan" }

func (f *fakeSession) Send(text string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeSession) PollEvent() (*irc.Message, error) {
	if len(f.events) > 0 {
		ev := f.events[0]
		f.events = f.events[1:]
		return ev, nil
	}
	if f.closed {
		return nil, irc.ErrConnectionClosed
	}
	return nil, nil
}

type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) ReadAll() (string, error) {
	return f.text, f.err
}

func (f *fakeClipboard) WriteAll(text string) error {
	if f.err != nil {
		return f.err
	}
	f.text = text
	return nil
}

func chatEvent(nick, text string) *irc.Message {
	return &irc.Message{
		Tags:    irc.Tags{},
		Prefix:  irc.Prefix{Nick: nick, User: nick, Host: nick + ".tmi.twitch.tv"},
		Command: irc.ChatMessage{Channel: "chan", Text: text + "\r\n"},
	}
}

type harness struct {
	t       *testing.T
	m       Model
	session *fakeSession
	clip    *fakeClipboard
}

func newHarness(t *testing.T, cols, rows int) *harness {
	h := &harness{t: t, session: &fakeSession{}, clip: &fakeClipboard{}}
	h.m = NewModel(h.session, h.clip, WithLogger(zaptest.NewLogger(t)))
	h.update(tea.WindowSizeMsg{Width: cols, Height: rows})
	return h
}

func (h *harness) update(msg tea.Msg) tea.Cmd {
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	return cmd
}

func (h *harness) tick() tea.Cmd {
	return h.update(tickMsg(time.Now()))
}

func (h *harness) receive(lines ...string) {
	for i, l := range lines {
		h.session.events = append(h.session.events, chatEvent(fmt.Sprintf("user%d", i), l))
	}
	h.tick()
}

// keys feeds each key name: single characters become rune keys.
func (h *harness) keys(names ...string) {
	for _, n := range names {
		h.update(keyMsg(n))
	}
}

func (h *harness) typeText(s string) {
	for _, r := range s {
		h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func keyMsg(name string) tea.KeyMsg {
	switch name {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "alt+enter":
		return tea.KeyMsg{Type: tea.KeyEnter, Alt: true}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "home":
		return tea.KeyMsg{Type: tea.KeyHome}
	case "end":
		return tea.KeyMsg{Type: tea.KeyEnd}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+q":
		return tea.KeyMsg{Type: tea.KeyCtrlQ}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(name)}
}

func (h *harness) state() State {
	return h.m.State()
}

func (h *harness) requireCursorInBounds() {
	h.t.Helper()
	s := h.state()
	require.GreaterOrEqual(h.t, s.Cursor.Row, s.firstMessageRow())
	require.LessOrEqual(h.t, s.Cursor.Row, s.lastRow())
	require.GreaterOrEqual(h.t, s.Cursor.Column, 0)
	require.LessOrEqual(h.t, s.Cursor.Column, s.currentLineLen())
}

func TestNewModelStartsOnComposeRow(t *testing.T) {
	h := newHarness(t, 40, 10)
	s := h.state()
	assert.Equal(t, ModeNormal, s.Mode)
	assert.Equal(t, 9, s.Cursor.Row)
	assert.Equal(t, 0, s.Cursor.Column)
}

func TestCursorStaysInBounds(t *testing.T) {
	h := newHarness(t, 40, 6)
	h.receive("hello world", "a b c", "short")
	h.keys("i")
	h.typeText("compose text")
	h.keys("esc")

	seq := []string{"k", "k", "k", "k", "$", "j", "l", "l", "w", "w", "w", "b", "^", "h", "k", "$", "j", "j", "j", "$", "l"}
	for _, k := range seq {
		h.keys(k)
		h.requireCursorInBounds()
	}

	h.update(tea.WindowSizeMsg{Width: 10, Height: 2})
	h.requireCursorInBounds()
	h.update(tea.WindowSizeMsg{Width: 40, Height: 20})
	h.requireCursorInBounds()
}

func TestMotions(t *testing.T) {
	h := newHarness(t, 40, 5)
	h.keys("i")
	h.typeText("one two three")
	h.keys("esc", "^")
	assert.Equal(t, 0, h.state().Cursor.Column)

	h.keys("w")
	assert.Equal(t, 4, h.state().Cursor.Column)
	h.keys("w")
	assert.Equal(t, 8, h.state().Cursor.Column)
	h.keys("w")
	assert.Equal(t, 13, h.state().Cursor.Column)
	h.keys("b")
	assert.Equal(t, 8, h.state().Cursor.Column)
	h.keys("h")
	assert.Equal(t, 7, h.state().Cursor.Column)
	h.keys("$")
	assert.Equal(t, 13, h.state().Cursor.Column)
	h.keys("l")
	assert.Equal(t, 13, h.state().Cursor.Column)
}

func TestVerticalMotionReclampsColumn(t *testing.T) {
	h := newHarness(t, 40, 5)
	h.receive("a much longer line of text", "hi")
	h.keys("i")
	h.typeText("x")
	h.keys("esc", "k", "k", "$")

	s := h.state()
	require.Equal(t, 2, s.Cursor.Row)
	assert.Equal(t, graphemeCount("user0: a much longer line of text"), s.Cursor.Column)

	h.keys("j")
	s = h.state()
	assert.Equal(t, 3, s.Cursor.Row)
	assert.Equal(t, graphemeCount("user1: hi"), s.Cursor.Column)

	h.keys("j")
	s = h.state()
	assert.Equal(t, 4, s.Cursor.Row)
	assert.Equal(t, 1, s.Cursor.Column)

	h.keys("j")
	assert.Equal(t, 4, h.state().Cursor.Row)
}

func TestRightAdvancesAcrossEntries(t *testing.T) {
	h := newHarness(t, 40, 5)
	h.receive("a", "b")
	h.keys("k", "k", "$")
	require.Equal(t, 2, h.state().Cursor.Row)

	h.keys("l")
	s := h.state()
	assert.Equal(t, 3, s.Cursor.Row)
	assert.Equal(t, 0, s.Cursor.Column)

	// The last entry does not advance onto the compose row.
	h.keys("$", "l")
	s = h.state()
	assert.Equal(t, 3, s.Cursor.Row)
	assert.Equal(t, graphemeCount("user1: b"), s.Cursor.Column)
}

func TestInsertForcesComposeRow(t *testing.T) {
	h := newHarness(t, 40, 5)
	h.receive("hello")
	h.keys("i")
	h.typeText("abc")
	h.keys("esc", "k", "^", "i")

	s := h.state()
	assert.Equal(t, ModeInsert, s.Mode)
	assert.Equal(t, 4, s.Cursor.Row)
	assert.Equal(t, 3, s.Cursor.Column)
}

func TestInsertEditing(t *testing.T) {
	h := newHarness(t, 40, 5)
	h.keys("i")
	h.typeText("hllo")
	h.keys("home", "right")
	h.typeText("e")
	assert.Equal(t, "hello", h.state().Compose)
	assert.Equal(t, 2, h.state().Cursor.Column)

	h.keys("end", " ")
	h.typeText("you")
	assert.Equal(t, "hello you", h.state().Compose)

	h.keys("backspace", "backspace", "backspace", "backspace")
	assert.Equal(t, "hello", h.state().Compose)

	h.keys("home", "backspace", "left")
	assert.Equal(t, "hello", h.state().Compose)
	assert.Equal(t, 0, h.state().Cursor.Column)
}

func TestInsertGraphemes(t *testing.T) {
	h := newHarness(t, 40, 5)
	h.keys("i")
	h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e\u0301")})
	h.typeText("x")
	s := h.state()
	assert.Equal(t, "e\u0301x", s.Compose)
	assert.Equal(t, 2, s.Cursor.Column)

	h.keys("left", "backspace")
	assert.Equal(t, "x", h.state().Compose)
}

func TestPastedNewlinesAreFlattened(t *testing.T) {
	h := newHarness(t, 40, 5)
	h.keys("i")
	h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a\nb"), Paste: true})
	assert.Equal(t, "a b", h.state().Compose)
}

func TestSend(t *testing.T) {
	h := newHarness(t, 40, 5)
	h.keys("i")
	h.typeText("hello")
	h.keys("enter")

	s := h.state()
	assert.Equal(t, []string{"hello"}, h.session.sent)
	assert.Equal(t, "", s.Compose)
	assert.Equal(t, 0, s.Cursor.Column)
	require.Equal(t, 1, s.Scrollback.Len())

	e := s.Scrollback.Tail(1)[0]
	assert.Equal(t, "me", e.Author())
	assert.Equal(t, "chan", e.Channel)
	assert.Equal(t, "me: hello", e.Line())
}

func TestSendEmptyIsNoop(t *testing.T) {
	h := newHarness(t, 40, 5)
	h.keys("i", "enter")
	assert.Empty(t, h.session.sent)
	assert.Equal(t, 0, h.state().Scrollback.Len())
}

func TestSendUsesSelfTags(t *testing.T) {
	h := newHarness(t, 40, 5)
	h.session.events = append(h.session.events, &irc.Message{
		Tags:    irc.Tags{"display-name": "Me", "color": "#FF0000"},
		Command: irc.GlobalUserState{},
	})
	h.tick()

	h.keys("i")
	h.typeText("hi")
	h.keys("enter")
	e := h.state().Scrollback.Tail(1)[0]
	assert.Equal(t, "Me", e.Author())
	assert.Equal(t, "#FF0000", e.Tags.Get("color"))
}

func TestSendRetain(t *testing.T) {
	for _, name := range []string{"alt+enter", "ctrl+j"} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, 40, 5)
			h.keys("i")
			h.typeText("again")
			if name == "ctrl+j" {
				h.update(tea.KeyMsg{Type: tea.KeyCtrlJ})
			} else {
				h.keys(name)
			}

			s := h.state()
			assert.Equal(t, []string{"again"}, h.session.sent)
			assert.Equal(t, "again", s.Compose)
			assert.Equal(t, 5, s.Cursor.Column)
			assert.Equal(t, 1, s.Scrollback.Len())
		})
	}
}

func TestSendFailureKeepsBuffer(t *testing.T) {
	h := newHarness(t, 40, 5)
	h.session.sendErr = irc.ErrSessionClosed
	h.keys("i")
	h.typeText("lost")
	h.keys("enter")

	s := h.state()
	assert.Equal(t, "lost", s.Compose)
	assert.Equal(t, 0, s.Scrollback.Len())
	assert.Equal(t, ModeInsert, s.Mode)
}

func TestDeleteCompose(t *testing.T) {
	h := newHarness(t, 40, 5)
	h.keys("i")
	h.typeText("abc")
	h.keys("esc", "d", "d")

	s := h.state()
	assert.Equal(t, "", s.Compose)
	assert.Equal(t, 0, s.Cursor.Column)
	assert.Equal(t, ModeNormal, s.Mode)
	assert.Equal(t, "abc", h.clip.text)
}

func TestDeleteOnScrollbackIsNoop(t *testing.T) {
	h := newHarness(t, 40, 5)
	h.receive("msg")
	h.keys("i")
	h.typeText("keep")
	h.keys("esc", "k", "d", "d")

	assert.Equal(t, "keep", h.state().Compose)
	assert.Equal(t, "", h.clip.text)
}

func TestDeleteClipboardFailureKeepsBuffer(t *testing.T) {
	h := newHarness(t, 40, 5)
	h.clip.err = errors.New("no clipboard")
	h.keys("i")
	h.typeText("abc")
	h.keys("esc", "d", "d")
	assert.Equal(t, "abc", h.state().Compose)
	assert.Equal(t, ModeNormal, h.state().Mode)
}

func TestYankLine(t *testing.T) {
	h := newHarness(t, 40, 5)
	h.receive("hello there")
	h.keys("k", "y", "y")
	assert.Equal(t, "user0: hello there", h.clip.text)
	assert.Equal(t, ModeNormal, h.state().Mode)

	h.keys("i")
	h.typeText("draft")
	h.keys("esc", "y", "y")
	assert.Equal(t, "draft", h.clip.text)
	assert.Equal(t, "draft", h.state().Compose)
}

func TestPendingOperatorAborts(t *testing.T) {
	tests := []struct {
		name string
		keys []string
	}{
		{name: "y then d", keys: []string{"y", "d"}},
		{name: "y then motion", keys: []string{"y", "h"}},
		{name: "d then y", keys: []string{"d", "y"}},
		{name: "d then esc", keys: []string{"d", "esc"}},
		{name: "d then i", keys: []string{"d", "i"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 40, 5)
			h.keys("i")
			h.typeText("abc")
			h.keys("esc")
			h.keys(tt.keys...)

			s := h.state()
			assert.Equal(t, ModeNormal, s.Mode)
			assert.Equal(t, "abc", s.Compose)
			assert.Equal(t, 3, s.Cursor.Column)
			assert.Equal(t, "", h.clip.text)
		})
	}
}

func TestPasteAtCursor(t *testing.T) {
	h := newHarness(t, 40, 5)
	h.keys("i")
	h.typeText("ad")
	h.keys("esc", "h")
	h.clip.text = "bc\n"

	h.keys("P")
	s := h.state()
	assert.Equal(t, "abc d", s.Compose)
	assert.Equal(t, 4, s.Cursor.Row)
	assert.Equal(t, 4, s.Cursor.Column)
}

func TestPasteFromScrollbackAppends(t *testing.T) {
	h := newHarness(t, 40, 5)
	h.receive("msg")
	h.keys("i")
	h.typeText("hello world")
	h.keys("esc", "k", "^", "w")
	require.Equal(t, 3, h.state().Cursor.Row)
	h.clip.text = "XX"

	h.keys("P")
	s := h.state()
	assert.Equal(t, "hello worldXX", s.Compose)
	assert.Equal(t, 4, s.Cursor.Row)
	assert.Equal(t, 13, s.Cursor.Column)
}

func TestPasteClipboardFailure(t *testing.T) {
	h := newHarness(t, 40, 5)
	h.clip.err = errors.New("no clipboard")
	h.keys("P")
	assert.Equal(t, "", h.state().Compose)
}

func TestEscFromAnyMode(t *testing.T) {
	h := newHarness(t, 40, 5)
	h.keys("i", "esc")
	assert.Equal(t, ModeNormal, h.state().Mode)
	h.keys("y")
	assert.Equal(t, ModeYankPending, h.state().Mode)
	h.keys("esc")
	assert.Equal(t, ModeNormal, h.state().Mode)
}

func TestQuit(t *testing.T) {
	for _, name := range []string{"ctrl+c", "ctrl+q"} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, 40, 5)
			h.keys("i")
			cmd := h.update(keyMsg(name))
			require.NotNil(t, cmd)
			assert.Equal(t, tea.Quit(), cmd())
		})
	}
}

func TestTickDrainsEvents(t *testing.T) {
	h := newHarness(t, 40, 5)
	h.session.events = []*irc.Message{
		chatEvent("a", "one"),
		{Command: irc.Unrecognized{Raw: "JOIN #chan\r\n"}},
		chatEvent("b", "two"),
	}
	cmd := h.tick()
	assert.NotNil(t, cmd)

	s := h.state()
	require.Equal(t, 2, s.Scrollback.Len())
	assert.Equal(t, "a: one", s.Scrollback.Tail(2)[0].Line())
	assert.Equal(t, "b: two", s.Scrollback.Tail(2)[1].Line())
}

func TestTickStopsAfterDisconnect(t *testing.T) {
	h := newHarness(t, 40, 5)
	h.session.events = []*irc.Message{chatEvent("a", "last")}
	h.session.closed = true

	cmd := h.tick()
	assert.Nil(t, cmd)
	s := h.state()
	assert.True(t, s.Disconnected)
	assert.Equal(t, 1, s.Scrollback.Len())
	assert.Nil(t, h.tick())
}

func TestModelScrollbackLimit(t *testing.T) {
	s := &fakeSession{}
	m := NewModel(s, &fakeClipboard{}, WithScrollbackLimit(2))
	for i := 0; i < 5; i++ {
		s.events = append(s.events, chatEvent("u", fmt.Sprint(i)))
	}
	next, _ := m.Update(tickMsg(time.Now()))
	st := next.(Model).State()
	require.Equal(t, 2, st.Scrollback.Len())
	assert.Equal(t, "u: 3", st.Scrollback.Tail(2)[0].Line())
}

func TestView(t *testing.T) {
	h := newHarness(t, 20, 3)
	h.receive("hi")
	out := h.m.View()
	assert.Contains(t, out, "user0")
	assert.Contains(t, out, "hi")
}
