package ui

import "github.com/charmbracelet/bubbles/key"

// Key bindings reference:
//
// Global:
//   ctrl+c, ctrl+q  Quit
//   esc             Back to Normal mode
//
// Normal mode (on the compose row or any scrollback row):
//   h/l        Left/right one character
//   j/k        Down/up one row
//   w/b        Next/previous word
//   ^/$        Start/end of line
//   i          Insert at the end of the compose buffer
//   yy         Copy the line under the cursor
//   dd         Cut the compose buffer (compose row only)
//   P          Paste into the compose buffer
//
// Insert mode:
//   enter                Send and clear
//   alt+enter, ctrl+j    Send and keep the buffer
//   backspace            Delete before the cursor
//   left/right/home/end  Move within the buffer

// KeyMap holds the bindings the Model dispatches on.
type KeyMap struct {
	Quit   key.Binding
	Normal key.Binding

	Left         key.Binding
	Right        key.Binding
	Down         key.Binding
	Up           key.Binding
	WordForward  key.Binding
	WordBackward key.Binding
	LineStart    key.Binding
	LineEnd      key.Binding
	Insert       key.Binding
	Yank         key.Binding
	Delete       key.Binding
	Paste        key.Binding

	Send        key.Binding
	SendRetain  key.Binding
	Backspace   key.Binding
	CursorLeft  key.Binding
	CursorRight key.Binding
	CursorHome  key.Binding
	CursorEnd   key.Binding
}

// DefaultKeyMap returns the vim-like bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:   key.NewBinding(key.WithKeys("ctrl+c", "ctrl+q"), key.WithHelp("ctrl+c", "quit")),
		Normal: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "normal mode")),

		Left:         key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "left")),
		Right:        key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "right")),
		Down:         key.NewBinding(key.WithKeys("j"), key.WithHelp("j", "down")),
		Up:           key.NewBinding(key.WithKeys("k"), key.WithHelp("k", "up")),
		WordForward:  key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "next word")),
		WordBackward: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "previous word")),
		LineStart:    key.NewBinding(key.WithKeys("^"), key.WithHelp("^", "line start")),
		LineEnd:      key.NewBinding(key.WithKeys("$"), key.WithHelp("$", "line end")),
		Insert:       key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "insert")),
		Yank:         key.NewBinding(key.WithKeys("y"), key.WithHelp("yy", "copy line")),
		Delete:       key.NewBinding(key.WithKeys("d"), key.WithHelp("dd", "cut message")),
		Paste:        key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "paste")),

		Send:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		SendRetain:  key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"), key.WithHelp("alt+enter", "send and keep")),
		Backspace:   key.NewBinding(key.WithKeys("backspace"), key.WithHelp("backspace", "delete")),
		CursorLeft:  key.NewBinding(key.WithKeys("left")),
		CursorRight: key.NewBinding(key.WithKeys("right")),
		CursorHome:  key.NewBinding(key.WithKeys("home")),
		CursorEnd:   key.NewBinding(key.WithKeys("end")),
	}
}
