package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/repeater/internal/shortcuts"
)

var helpGroupTitles = []string{"Navigation", "Movement", "Editing", "General"}

var scopeTitles = map[shortcuts.Scope]string{
	shortcuts.ScopeReview:  "Review",
	shortcuts.ScopeCards:   "Card inspector",
	shortcuts.ScopeDecks:   "Decks",
	shortcuts.ScopeProfile: "Profile",
}

// helpSections collects the global keys followed by every shortcut scope.
func (m Model) helpSections() []helpSection {
	var sections []helpSection
	for i, group := range m.keys.FullHelp() {
		title := "Keys"
		if i < len(helpGroupTitles) {
			title = helpGroupTitles[i]
		}
		sections = append(sections, helpSection{title: title, items: bindingItems(group)})
	}
	table := m.dispatcher.Table()
	for _, scope := range table.Scopes() {
		bindings := table.ForScope(scope)
		keys := make([]key.Binding, len(bindings))
		for i, b := range bindings {
			keys[i] = b.Key
		}
		title := scopeTitles[scope]
		if title == "" {
			title = string(scope)
		}
		sections = append(sections, helpSection{title: title, items: bindingItems(keys)})
	}
	return sections
}

func bindingItems(bindings []key.Binding) []helpItem {
	items := make([]helpItem, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		items = append(items, helpItem{key: h.Key, desc: h.Desc})
	}
	return items
}

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	sections := m.helpSections()

	var b strings.Builder

	title := styles.Text.Bold(true).Render("Keyboard Shortcuts")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")

	// Two columns once the terminal is wide enough.
	columns := 1
	if m.width >= LayoutSplitWidth {
		columns = 2
	}
	perColumn := (len(sections) + columns - 1) / columns
	rendered := make([]string, 0, columns)
	for c := 0; c < columns; c++ {
		start := c * perColumn
		end := min(len(sections), start+perColumn)
		if start >= end {
			break
		}
		rendered = append(rendered, m.renderHelpColumn(sections[start:end]))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("Press any key to close"))

	modalWidth := 40 * columns
	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(modalWidth)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}

func (m Model) renderHelpColumn(sections []helpSection) string {
	styles := m.theme.Styles()
	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Warning)).
		Width(12)

	var b strings.Builder
	for i, section := range sections {
		b.WriteString(styles.AccentText.Bold(true).Render(section.title))
		b.WriteString("\n")
		for _, item := range section.items {
			b.WriteString(keyStyle.Render(item.key))
			b.WriteString(styles.Text.Render(item.desc))
			b.WriteString("\n")
		}
		if i < len(sections)-1 {
			b.WriteString("\n")
		}
	}
	return lipgloss.NewStyle().Width(38).Render(b.String())
}

type helpSection struct {
	title string
	items []helpItem
}

type helpItem struct {
	key  string
	desc string
}
