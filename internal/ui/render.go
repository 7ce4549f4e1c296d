package ui

// Render draws s onto surf: the visible tail of the scrollback starting at
// firstMessageRow, the compose buffer on the last row, then the caret at the
// cursor. It only touches surf.
//
// Lines are clipped at the right edge. The cursor row is scrolled left when
// needed so the caret stays on screen.
func Render(s *State, surf Surface) {
	surf.Clear()

	cols, _ := surf.Size()
	caretX := cellWidth(s.currentLine(), s.Cursor.Column)
	shift := 0
	if cols > 0 && caretX >= cols {
		shift = caretX - cols + 1
	}
	startX := func(row int) int {
		if row == s.Cursor.Row {
			return -shift
		}
		return 0
	}

	first := s.firstMessageRow()
	for i, e := range s.visible() {
		row := first + i
		surf.MoveTo(startX(row), row)
		surf.SetStyle(authorStyle(e))
		surf.Print(e.Author())
		surf.SetStyle(msgBody)
		surf.Print(": " + e.Body())
	}

	last := s.lastRow()
	surf.MoveTo(startX(last), last)
	if s.Disconnected {
		surf.SetStyle(disconnectedStyle)
	} else {
		surf.SetStyle(composeStyle)
	}
	surf.Print(s.Compose)

	if s.Mode == ModeInsert {
		surf.SetCursorStyle(CursorBar)
	} else {
		surf.SetCursorStyle(CursorBlock)
	}
	surf.MoveTo(caretX-shift, s.Cursor.Row)
}
