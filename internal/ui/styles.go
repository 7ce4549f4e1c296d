package ui

import (
	"hash/fnv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	muted = lipgloss.Color("#9CA3AF")

	// Authors without a color tag get one of these, picked by name.
	authorPalette = []lipgloss.Color{
		lipgloss.Color("#EAB308"), // yellow
		lipgloss.Color("#A78BFA"), // purple
		lipgloss.Color("#34D399"), // green
		lipgloss.Color("#60A5FA"), // blue
		lipgloss.Color("#F472B6"), // pink
		lipgloss.Color("#F59E0B"), // amber
	}

	msgUser = lipgloss.NewStyle().Bold(true)
	msgBody = lipgloss.NewStyle()

	composeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#D1D5DB"))
	// The compose row dims once the connection is gone and sends are rejected.
	disconnectedStyle = lipgloss.NewStyle().Foreground(muted)
)

// authorStyle colors an author by the message's color tag when it has one.
func authorStyle(e ChatEntry) lipgloss.Style {
	if c := e.Tags.Get("color"); strings.HasPrefix(c, "#") && len(c) == 7 {
		return msgUser.Foreground(lipgloss.Color(c))
	}
	return msgUser.Foreground(paletteColor(e.Author()))
}

func paletteColor(name string) lipgloss.Color {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(name)))
	return authorPalette[h.Sum32()%uint32(len(authorPalette))]
}
