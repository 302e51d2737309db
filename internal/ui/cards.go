package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/repeater/internal/mutation"
	"github.com/five82/repeater/internal/queries"
	"github.com/five82/repeater/internal/query"
	"github.com/five82/repeater/internal/repeater"
)

// syncCardReviews points the history panel at the highlighted card and
// warms the history of its neighbours.
func (m *Model) syncCardReviews() tea.Cmd {
	if m.cards.nav == nil {
		m.unwatch(slotReviews)
		return nil
	}
	card, ok := m.cards.nav.Current()
	if !ok {
		m.unwatch(slotReviews)
		return nil
	}
	if items, ok := m.cards.nav.Items(); ok {
		i := m.cards.nav.Index()
		for _, n := range []int{i - 1, i + 1} {
			if n >= 0 && n < len(items) {
				m.cache.Prefetch(queries.Reviews(m.api, items[n].ID))
			}
		}
	}
	k, fetch := queries.Reviews(m.api, card.ID)
	return m.watch(slotReviews, k, fetch)
}

func (m *Model) moveCard(step func() bool) tea.Cmd {
	if m.cards.nav == nil || !step() {
		return nil
	}
	if m.inspector != nil {
		m.inspector.scrollTop()
	}
	return m.syncCardReviews()
}

// handleCardsKey processes cards view keys that are not semantic shortcuts.
func (m Model) handleCardsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Escape) {
		return m.switchView(ViewDecks)
	}
	if m.cards.nav == nil {
		return m, nil
	}
	if key.Matches(msg, m.keys.New) {
		m.inspector = newCardInspector(m.cards.deckID, m.deckChoices(), m.width, m.height)
		return m, m.inspector.focus()
	}

	nav := m.cards.nav
	switch {
	case key.Matches(msg, m.keys.Up):
		return m, m.moveCard(nav.Prev)
	case key.Matches(msg, m.keys.Down):
		return m, m.moveCard(nav.Next)
	case key.Matches(msg, m.keys.Top):
		nav.SetIndex(0)
		nav.Clamp()
		return m, m.syncCardReviews()
	case key.Matches(msg, m.keys.Bottom):
		nav.SetIndex(nav.Len())
		nav.Clamp()
		return m, m.syncCardReviews()
	}

	card, ok := nav.Current()
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Open):
		m.inspector = newInspector(m.width, m.height)
		return m, nil
	case key.Matches(msg, m.keys.Edit):
		m.inspector = newInspector(m.width, m.height)
		return m, m.inspector.edit(card, m.deckChoices())
	case key.Matches(msg, m.keys.Delete):
		m.modal = m.confirmDeleteCard(card)
		return m, nil
	}
	return m, nil
}

func (m Model) confirmDeleteCard(card repeater.Card) Modal {
	return newConfirm(
		"Delete card",
		fmt.Sprintf("Delete %q? Its review history is lost.", truncate(card.Front(), 40)),
		m.runMutation(mutation.DeleteCard{CardID: card.ID}, originCards),
	)
}

// deckChoices lists the decks a card may be moved to.
func (m Model) deckChoices() []repeater.Deck {
	entry, ok := m.entry(slotDecks)
	if !ok || entry.Data == nil {
		return nil
	}
	decks, _ := query.Value[[]repeater.Deck](entry)
	return decks
}

func (m Model) renderCards(width, height int) string {
	styles := m.theme.Styles()
	if m.cards.nav == nil {
		hint := styles.MutedText.Render("No deck selected. Pick one in Decks (2) and press enter.")
		return m.centered(hint, width, height)
	}

	entry, _ := m.entry(slotCards)
	if msg, ok := m.entryPlaceholder(entry, "cards"); ok {
		return m.centered(msg, width, height)
	}
	cards, _ := m.cards.nav.Items()
	if len(cards) == 0 {
		return m.centered(styles.MutedText.Render("This deck has no cards. Press n to add one."), width, height)
	}

	listWidth := width
	sideWidth := 0
	if width >= LayoutSplitWidth {
		listWidth = width * 3 / 5
		sideWidth = width - listWidth
	}
	list := m.renderCardList(cards, listWidth, height)
	if sideWidth == 0 {
		return list
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, list, m.renderHistory(sideWidth, height))
}

func (m Model) renderCardList(cards []repeater.Card, width, height int) string {
	styles := m.theme.Styles()
	inner := max(10, width-4)
	rows := max(1, height-2)
	now := m.now()

	dueWidth := 12
	textWidth := max(5, inner-dueWidth-1)
	start := scrollStart(m.cards.nav.Index(), len(cards), rows)

	var lines []string
	for i := start; i < len(cards) && len(lines) < rows; i++ {
		c := cards[i]
		due := relativeDay(c.ParsedNextReview(), now)
		line := padRight(truncate(firstLine(c.Front()), textWidth), textWidth) + " " + padRight(due, dueWidth)
		switch {
		case i == m.cards.nav.Index():
			lines = append(lines, styles.Selected.Render(line))
		case c.Overdue:
			lines = append(lines, styles.WarningText.Render(line))
		default:
			lines = append(lines, styles.Text.Render(line))
		}
	}
	return styles.FocusPanel.Width(width - 2).Height(rows).Render(strings.Join(lines, "\n"))
}

// renderHistory shows the review history of the highlighted card.
func (m Model) renderHistory(width, height int) string {
	styles := m.theme.Styles()
	rows := max(1, height-2)
	panel := styles.Panel.Width(width - 2).Height(rows)

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render("History"))
	b.WriteString("\n\n")

	entry, ok := m.entry(slotReviews)
	if !ok {
		return panel.Render(b.String())
	}
	if msg, ok := m.entryPlaceholder(entry, "history"); ok {
		b.WriteString(msg)
		return panel.Render(b.String())
	}
	reviews, _ := query.Value[[]repeater.Review](entry)
	if len(reviews) == 0 {
		b.WriteString(styles.MutedText.Render("Never reviewed"))
		return panel.Render(b.String())
	}
	b.WriteString(renderReviewLines(reviews, styles, m.now(), rows-2))
	return panel.Render(b.String())
}

func renderReviewLines(reviews []repeater.Review, styles Styles, now time.Time, limit int) string {
	var lines []string
	for _, r := range reviews {
		if len(lines) >= limit {
			break
		}
		when := r.ParsedReviewedAt()
		label := when.Format("2006-01-02")
		if now.Year() == when.Year() {
			label = when.Format("Jan 02")
		}
		line := styles.MutedText.Render(padRight(label, 11)) +
			styles.FeedbackStyle(r.Feedback).Render(padRight(string(r.Feedback), 8)) +
			styles.FaintText.Render(fmt.Sprintf("next in %s", plural(r.Interval, "day")))
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
