package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// chrome renders header and command bar segments on the theme's surface.
// Every cell, spaces included, carries the surface background, so segments
// joined after rendering leave no unstyled gaps between them.
type chrome struct {
	bg     lipgloss.Color
	styles Styles
	space  string
}

func newChrome(t Theme) chrome {
	bg := lipgloss.Color(t.Surface)
	return chrome{
		bg:     bg,
		styles: t.Styles().WithBackground(t.Surface),
		space:  lipgloss.NewStyle().Background(bg).Render(" "),
	}
}

// text renders s word by word so inner spaces keep the background.
func (c chrome) text(s string, style lipgloss.Style) string {
	if s == "" {
		return ""
	}
	style = style.Background(c.bg)
	if !strings.Contains(s, " ") {
		return style.Render(s)
	}
	words := strings.Split(s, " ")
	for i, w := range words {
		if w != "" {
			words[i] = style.Render(w)
		}
	}
	return strings.Join(words, c.space)
}

// pair renders a label and its value separated by one space, e.g. "Due: 4".
func (c chrome) pair(label string, labelStyle lipgloss.Style, value string, valueStyle lipgloss.Style) string {
	return c.text(label, labelStyle) + c.space + c.text(value, valueStyle)
}

// binding renders a command bar entry as key:desc.
func (c chrome) binding(key, desc string, descStyle lipgloss.Style) string {
	return c.text(key, c.styles.AccentText) + c.text(":", lipgloss.NewStyle()) + c.text(desc, descStyle)
}

// join separates segments with n background-filled spaces.
func (c chrome) join(parts []string, n int) string {
	return strings.Join(parts, strings.Repeat(c.space, n))
}
