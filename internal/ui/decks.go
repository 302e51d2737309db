package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/repeater/internal/cursor"
	"github.com/five82/repeater/internal/mutation"
	"github.com/five82/repeater/internal/queries"
	"github.com/five82/repeater/internal/query"
	"github.com/five82/repeater/internal/repeater"
	"github.com/five82/repeater/internal/stats"
)

// watchDecks subscribes to the active or archived deck list.
func (m *Model) watchDecks() tea.Cmd {
	k, fetch := queries.Decks(m.api)
	if m.decks.archived {
		k, fetch = queries.ArchivedDecks(m.api)
	}
	if !m.decks.nav.Key().Equal(k) {
		m.decks.nav.Retarget(k)
	}
	return m.watch(slotDecks, k, fetch)
}

// syncDeckStats follows the highlighted deck with the statistics panel and
// warms its card list for a quick open.
func (m *Model) syncDeckStats() tea.Cmd {
	deck, ok := m.decks.nav.Current()
	if !ok {
		m.unwatch(slotDeckStats)
		return nil
	}
	m.cache.Prefetch(queries.DeckCards(m.api, deck.ID))
	k, fetch := queries.DeckStats(m.api, deck.ID)
	return m.watch(slotDeckStats, k, fetch)
}

// syncDeckName refreshes the cards view title from the deck list.
func (m *Model) syncDeckName() {
	entry, ok := m.entry(slotDecks)
	if !ok || !entry.Ready() {
		return
	}
	decks, _ := query.Value[[]repeater.Deck](entry)
	for _, d := range decks {
		if d.ID == m.cards.deckID {
			m.cards.deckName = d.Name
			return
		}
	}
}

func (m *Model) moveDeck(step func() bool) tea.Cmd {
	if !step() {
		return nil
	}
	return m.syncDeckStats()
}

// openDeck switches to the cards view for deck.
func (m Model) openDeck(deck repeater.Deck) (tea.Model, tea.Cmd) {
	if m.cards.deckID != deck.ID {
		m.cards.deckID = deck.ID
		m.cards.nav = cursor.New[repeater.Card](m.cache, queries.DeckCardsKey(deck.ID))
	}
	m.cards.deckName = deck.Name
	m.prefs.LastDeck = deck.ID
	save := m.savePrefs()
	model, cmd := m.switchView(ViewCards)
	return model, tea.Batch(cmd, save)
}

// handleDecksKey processes view keys that are not semantic shortcuts.
func (m Model) handleDecksKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Archived):
		m.decks.archived = !m.decks.archived
		cmd := m.watchDecks()
		return m, tea.Batch(cmd, m.syncDeckStats())
	case key.Matches(msg, m.keys.New):
		return m.openDeckForm(nil)
	}

	deck, ok := m.decks.nav.Current()
	switch {
	case key.Matches(msg, m.keys.Up):
		return m, m.moveDeck(m.decks.nav.Prev)
	case key.Matches(msg, m.keys.Down):
		return m, m.moveDeck(m.decks.nav.Next)
	case key.Matches(msg, m.keys.Top):
		m.decks.nav.SetIndex(0)
		m.decks.nav.Clamp()
		return m, m.syncDeckStats()
	case key.Matches(msg, m.keys.Bottom):
		m.decks.nav.SetIndex(m.decks.nav.Len())
		m.decks.nav.Clamp()
		return m, m.syncDeckStats()
	}
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Open):
		return m.openDeck(deck)
	case key.Matches(msg, m.keys.Edit):
		return m.openDeckForm(&deck)
	case key.Matches(msg, m.keys.Pause):
		return m, m.runMutation(mutation.SetDeckPaused(deck.ID, !deck.IsPaused), originDecks)
	case key.Matches(msg, m.keys.Archive):
		return m, m.runMutation(mutation.SetDeckArchived(deck.ID, !deck.IsArchived), originDecks)
	case key.Matches(msg, m.keys.Export):
		return m, tea.Batch(
			m.setFlash("Exporting "+deck.Name+"...", false),
			exportDeck(m.ctx, m.api, deck.ID, m.exportDir),
		)
	case key.Matches(msg, m.keys.Delete):
		m.modal = newConfirm(
			"Delete deck",
			fmt.Sprintf("Delete %q and all of its cards? This cannot be undone.", deck.Name),
			m.runMutation(mutation.DeleteDeck{DeckID: deck.ID}, originDecks),
		)
		return m, nil
	}
	return m, nil
}

func (m Model) openDeckForm(deck *repeater.Deck) (tea.Model, tea.Cmd) {
	form := newDeckForm(deck)
	m.modal = form
	k, fetch := queries.Categories(m.api)
	cmd := m.watch(slotCats, k, fetch)
	if entry, ok := m.entry(slotCats); ok && entry.Ready() {
		cats, _ := query.Value[[]repeater.Category](entry)
		form.setCategories(cats)
	}
	return m, tea.Batch(cmd, form.Init())
}

func (m Model) renderDecks(width, height int) string {
	styles := m.theme.Styles()
	title := "Decks"
	if m.decks.archived {
		title = "Archived decks"
	}

	entry, _ := m.entry(slotDecks)
	if msg, ok := m.entryPlaceholder(entry, strings.ToLower(title)); ok {
		return m.centered(msg, width, height)
	}

	decks, _ := m.decks.nav.Items()
	if len(decks) == 0 {
		hint := "No decks yet. Press n to create one."
		if m.decks.archived {
			hint = "No archived decks. Press A to go back."
		}
		return m.centered(styles.MutedText.Render(hint), width, height)
	}

	listWidth := width
	statsWidth := 0
	if width >= LayoutSplitWidth {
		listWidth = width * 3 / 5
		statsWidth = width - listWidth
	}

	list := m.renderDeckList(decks, listWidth, height)
	if statsWidth == 0 {
		return list
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, list, m.renderDeckStats(statsWidth, height))
}

func (m Model) renderDeckList(decks []repeater.Deck, width, height int) string {
	styles := m.theme.Styles()
	inner := max(10, width-4)
	rows := max(1, height-2)

	start := scrollStart(m.decks.nav.Index(), len(decks), rows)
	var lines []string
	for i := start; i < len(decks) && len(lines) < rows; i++ {
		d := decks[i]
		badge := ""
		switch {
		case d.IsArchived:
			badge = " [archived]"
		case d.IsPaused:
			badge = " [paused]"
		}
		line := padRight(truncate(d.Name, inner-len(badge)-1)+badge, inner)
		if i == m.decks.nav.Index() {
			lines = append(lines, styles.Selected.Render(line))
			continue
		}
		if d.IsPaused || d.IsArchived {
			lines = append(lines, styles.MutedText.Render(line))
			continue
		}
		lines = append(lines, styles.Text.Render(line))
	}
	return styles.FocusPanel.Width(width - 2).Height(rows).Render(strings.Join(lines, "\n"))
}

func (m Model) renderDeckStats(width, height int) string {
	styles := m.theme.Styles()
	panel := styles.Panel.Width(width - 2).Height(max(1, height-2))

	deck, ok := m.decks.nav.Current()
	if !ok {
		return panel.Render("")
	}

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(truncate(deck.Name, width-4)))
	b.WriteString("\n")
	if desc := strings.TrimSpace(deck.Description); desc != "" {
		b.WriteString(styles.MutedText.Width(width - 4).Render(desc))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	entry, _ := m.entry(slotDeckStats)
	if msg, ok := m.entryPlaceholder(entry, "statistics"); ok {
		b.WriteString(msg)
		return panel.Render(b.String())
	}
	st, _ := query.Value[*repeater.Statistics](entry)
	if st == nil {
		return panel.Render(b.String())
	}
	rows := [][2]string{
		{"Reviews", fmt.Sprintf("%d", st.TotalReviews)},
		{"Success", stats.Percent(st.SuccessRate)},
		{"Retention", stats.Percent(st.RetentionRate)},
		{"Streak", stats.Streak(st.Streak)},
	}
	for _, r := range rows {
		b.WriteString(styles.MutedText.Render(padRight(r[0], 11)))
		b.WriteString(styles.Text.Render(r[1]))
		b.WriteString("\n")
	}
	return panel.Render(b.String())
}

// scrollStart returns the first visible row so that selected stays on screen.
func scrollStart(selected, total, rows int) int {
	if rows <= 0 || total <= rows || selected < rows {
		return 0
	}
	start := selected - rows + 1
	return min(start, total-rows)
}
