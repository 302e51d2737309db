package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/repeater/internal/query"
	"github.com/five82/repeater/internal/repeater"
	"github.com/five82/repeater/internal/stats"
)

// handleProfileKey has no view-specific keys; statistics reload with R.
func (m Model) handleProfileKey(tea.KeyMsg) (tea.Model, tea.Cmd) {
	return m, nil
}

func (m Model) renderProfile(width, height int) string {
	styles := m.theme.Styles()

	entry, _ := m.entry(slotStats)
	if msg, ok := m.entryPlaceholder(entry, "statistics"); ok {
		return m.centered(msg, width, height)
	}
	st, _ := query.Value[*repeater.Statistics](entry)
	if st == nil {
		return m.centered(styles.MutedText.Render("No statistics yet"), width, height)
	}
	inner := max(20, width-6)

	var b strings.Builder
	if m.snapshot.HasUser {
		b.WriteString(styles.AccentText.Bold(true).Render(m.snapshot.User.Email))
		b.WriteString("\n\n")
	}

	summary := []struct{ label, value string }{
		{"Streak", stats.Streak(st.Streak)},
		{"Reviews", fmt.Sprintf("%d", st.TotalReviews)},
		{"Success", stats.Percent(st.SuccessRate)},
		{"Retention", stats.Percent(st.RetentionRate)},
	}
	parts := make([]string, len(summary))
	for i, s := range summary {
		parts[i] = styles.MutedText.Render(s.label+" ") + styles.Text.Bold(true).Render(s.value)
	}
	b.WriteString(strings.Join(parts, "    "))
	b.WriteString("\n\n")

	hm := stats.BuildHeatmap(st.DailyReviews, m.now())
	b.WriteString(renderHeatmap(hm, styles, inner))
	b.WriteString("\n\n")

	if decks := stats.SortDecks(st.DeckStatistics); len(decks) > 0 {
		b.WriteString(renderDeckTable(decks, styles, inner))
	}

	panel := styles.Panel.Width(width - 2).Height(max(1, height-2)).MaxHeight(height)
	return panel.Render(b.String())
}

// renderHeatmap draws one column per week, oldest on the left. Weeks that
// do not fit in width are dropped from the left.
func renderHeatmap(hm stats.Heatmap, styles Styles, width int) string {
	const cellWidth = 2
	if len(hm.Weeks) == 0 {
		return ""
	}
	first := max(0, len(hm.Weeks)-max(1, width/cellWidth))
	weeks := hm.Weeks[first:]

	months := []rune(strings.Repeat(" ", len(weeks)*cellWidth))
	next := 0
	for _, label := range hm.Months {
		col := (label.Week - first) * cellWidth
		if col < next || col < 0 || col+len(label.Name) > len(months) {
			continue
		}
		copy(months[col:], []rune(label.Name))
		next = col + len(label.Name) + 1
	}

	var b strings.Builder
	b.WriteString(styles.MutedText.Render(strings.TrimRight(string(months), " ")))
	b.WriteString("\n")
	for row := 0; row < 7; row++ {
		cells := make([]string, len(weeks))
		for i, week := range weeks {
			switch {
			case row >= len(week):
				cells[i] = " "
			case week[row].Level == 0:
				cells[i] = styles.HeatStyle(0).Render(heatEmpty)
			default:
				cells[i] = styles.HeatStyle(week[row].Level).Render(heatCell)
			}
		}
		b.WriteString(strings.Join(cells, " "))
		b.WriteString("\n")
	}

	legend := make([]string, stats.MaxLevel+1)
	for level := range legend {
		glyph := heatCell
		if level == 0 {
			glyph = heatEmpty
		}
		legend[level] = styles.HeatStyle(level).Render(glyph)
	}
	b.WriteString(styles.FaintText.Render(plural(hm.Total, "review") + " in the last year   Less "))
	b.WriteString(strings.Join(legend, " "))
	b.WriteString(styles.FaintText.Render(" More"))
	return b.String()
}

func renderDeckTable(decks []repeater.DeckStatistics, styles Styles, width int) string {
	const (
		reviewsWidth   = 9
		retentionWidth = 11
		lastWidth      = 12
	)
	nameWidth := max(10, width-reviewsWidth-retentionWidth-lastWidth)

	var b strings.Builder
	header := padRight("Deck", nameWidth) + padRight("Reviews", reviewsWidth) +
		padRight("Retention", retentionWidth) + padRight("Last", lastWidth)
	b.WriteString(styles.AccentText.Render(header))
	b.WriteString("\n")
	for _, d := range decks {
		last := "never"
		if d.LastStudied != "" {
			last = truncate(d.LastStudied, 10)
		}
		line := padRight(truncate(d.DeckName, nameWidth-1), nameWidth) +
			padRight(fmt.Sprintf("%d", d.TotalReviews), reviewsWidth) +
			padRight(stats.Percent(d.RetentionRate), retentionWidth) +
			padRight(last, lastWidth)
		b.WriteString(styles.Text.Render(line))
		if d.DifficultyRanking != "" {
			b.WriteString(styles.FaintText.Render(d.DifficultyRanking))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
