package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/repeater/internal/repeater"
)

// chromeHeight is the number of rows used by the header, command bar and footer.
const chromeHeight = 3

func (m Model) renderMain() string {
	var b strings.Builder

	// Header line 1: logo + status
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	// Header line 2: command bar
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	b.WriteString(m.renderContent(m.width, max(1, m.height-chromeHeight)))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent(width, height int) string {
	var content string
	switch m.currentView {
	case ViewReview:
		content = m.renderReview(width, height)
	case ViewDecks:
		content = m.renderDecks(width, height)
	case ViewCards:
		content = m.renderCards(width, height)
	case ViewProfile:
		content = m.renderProfile(width, height)
	}
	return lipgloss.NewStyle().Width(width).Height(height).MaxHeight(height).Render(content)
}

// renderHeader renders the status bar with all information.
func (m Model) renderHeader() string {
	bg := newChrome(m.theme)
	styles := bg.styles
	compact := m.width < LayoutCompactWidth

	parts := []string{bg.text("repeater", styles.Logo)}

	for _, v := range viewOrder {
		label := fmt.Sprintf("%d %s", int(v)+1, v)
		if v == m.currentView {
			parts = append(parts, bg.text(label, styles.AccentText.Bold(true)))
			continue
		}
		parts = append(parts, bg.text(label, styles.FaintText))
	}

	if due := m.review.nav.Len(); due > 0 {
		parts = append(parts, bg.pair("Due:", styles.MutedText, fmt.Sprintf("%d", due), styles.WarningText))
	}

	switch {
	case m.snapshot.Unauthorized || !m.signedIn:
		parts = append(parts, bg.text("SIGNED OUT", styles.DangerText.Bold(true)))
	case m.snapshot.HasUser && !compact:
		parts = append(parts, bg.text(truncate(m.snapshot.User.Email, 32), styles.MutedText))
	}

	if m.snapshot.IsOffline() {
		parts = append(parts, bg.pair(
			classifyConnectionError(m.snapshot.LastError), styles.DangerText.Bold(true),
			"Retrying...", styles.WarningText))
	} else if m.snapshot.LastError != nil && !compact {
		errText := truncate(describeError(m.snapshot.LastError), 40)
		parts = append(parts, bg.pair("!", styles.WarningText.Bold(true), errText, styles.WarningText))
	}

	if ts := m.formatTimestamp(); ts != "" && !compact {
		parts = append(parts, bg.text(ts, styles.MutedText))
	}

	return styles.Header.Width(m.width).Render(bg.join(parts, 2))
}

// renderCommandBar lists the keys of the current view.
func (m Model) renderCommandBar() string {
	bg := newChrome(m.theme)
	styles := bg.styles

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewReview:
		for _, b := range m.dispatcher.Table().ForScope(m.currentView.scope()) {
			commands = append(commands, cmd{b.Key.Help().Key, b.Description()})
		}
	case ViewDecks:
		archived := "Archived"
		if m.decks.archived {
			archived = "Active"
		}
		commands = []cmd{
			{"enter", "Open"},
			{"n", "New"},
			{"e", "Edit"},
			{"p", "Pause"},
			{"a", "Archive"},
			{"A", archived},
			{"E", "Export"},
			{"x", "Delete"},
		}
	case ViewCards:
		commands = []cmd{
			{"enter", "Inspect"},
			{"n", "New"},
			{"e", "Edit"},
			{"x", "Delete"},
			{"esc", "Decks"},
		}
	case ViewProfile:
		commands = []cmd{
			{"R", "Reload"},
		}
	}
	commands = append(commands, cmd{"?", "More"})

	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments, bg.binding(c.key, c.desc, styles.MutedText))
	}

	text := "Rich"
	if m.prefs.PlainText {
		text = "Plain"
	}
	segments = append(segments,
		bg.binding("M", text, styles.FaintText),
		bg.binding("T", m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(bg.join(segments, 2))
}

// renderFooter shows the flash message, or the short help.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	if m.flash.text != "" {
		style := styles.SuccessText
		if m.flash.isErr {
			style = styles.DangerText
		}
		return styles.Footer.Width(m.width).Render(style.Render(truncate(m.flash.text, max(10, m.width-2))))
	}
	return styles.Footer.Width(m.width).Render(m.help.View(m.keys))
}

// formatTimestamp formats the last update time with relative indicator.
func (m Model) formatTimestamp() string {
	last := m.snapshot.LastUpdated
	if last.IsZero() {
		return ""
	}

	since := m.now().Sub(last)
	text := last.Format("15:04:05")
	switch {
	case since < time.Minute:
		text += " (now)"
	case since < time.Hour:
		text += fmt.Sprintf(" (%dm ago)", int(since.Minutes()))
	case since < 24*time.Hour:
		text += fmt.Sprintf(" (%dh ago)", int(since.Hours()))
	}
	return text
}

// classifyConnectionError returns a short description of the connection error.
func classifyConnectionError(err error) string {
	if err == nil {
		return "OFFLINE"
	}
	var apiErr *repeater.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 500 {
		return "SERVER ERROR"
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	default:
		return "UNREACHABLE"
	}
}
