package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/repeater/internal/mutation"
	"github.com/five82/repeater/internal/query"
	"github.com/five82/repeater/internal/repeater"
	"github.com/five82/repeater/internal/shortcuts"
)

// syncReviewCard resets the revealed sides when the card under the cursor
// changes.
func (m *Model) syncReviewCard() {
	card, ok := m.review.nav.Current()
	id := ""
	if ok {
		id = card.ID
	}
	if id != m.review.cardID {
		m.review.cardID = id
		m.review.revealed = 1
	}
}

// reviewAction handles the review scope: reveal the next side or submit
// feedback for the current card.
func (m Model) reviewAction(action shortcuts.Action) (tea.Model, tea.Cmd) {
	card, ok := m.review.nav.Current()
	if !ok {
		return m, nil
	}
	sides := len(card.Sides())

	var feedback repeater.Feedback
	switch action {
	case shortcuts.ActionRevealNext:
		if m.review.revealed < sides {
			m.review.revealed++
		}
		return m, nil
	case shortcuts.ActionCardOK, shortcuts.ActionCardForgot:
		if m.review.revealed < sides {
			return m, m.setFlash("Reveal every side before answering (space)", false)
		}
		feedback = repeater.FeedbackOK
		if action == shortcuts.ActionCardForgot {
			feedback = repeater.FeedbackForgot
		}
	case shortcuts.ActionCardSkip:
		feedback = repeater.FeedbackSkipped
	default:
		return m, nil
	}

	if m.review.submitting {
		return m, nil
	}
	m.review.submitting = true
	return m, m.runMutation(mutation.SubmitReview{CardID: card.ID, Feedback: feedback}, originReview)
}

// afterReview keeps the cursor on its index: once the queue refetches
// without the answered card, the same index names the next due card. A
// skipped card may stay due, so the cursor steps past it.
func (m Model) afterReview(res mutation.Result) (tea.Model, tea.Cmd) {
	m.review.submitting = false
	if res.Err != nil {
		return m, m.setFlash(describeError(res.Err), true)
	}
	if op, ok := res.Op.(mutation.SubmitReview); ok && op.Feedback == repeater.FeedbackSkipped {
		m.review.nav.Next()
	}
	m.review.cardID = ""
	m.syncReviewCard()
	return m, m.setFlash(successMessage(res.Op), false)
}

func (m Model) renderReview(width, height int) string {
	styles := m.theme.Styles()

	entry, _ := m.entry(slotDue)
	if msg, ok := m.entryPlaceholder(entry, "due cards"); ok {
		return m.centered(msg, width, height)
	}

	total := m.review.nav.Len()
	card, ok := m.review.nav.Current()
	if total == 0 || !ok {
		title := styles.SuccessText.Render("All caught up")
		body := styles.MutedText.Render("No cards are due. New ones appear here as they come due.")
		return m.centered(title+"\n\n"+body, width, height)
	}

	sides := card.Sides()
	revealed := min(max(m.review.revealed, 1), len(sides))

	var b strings.Builder
	position := fmt.Sprintf("Card %d of %d", m.review.nav.Index()+1, total)
	b.WriteString(styles.AccentText.Bold(true).Render(position))
	if card.DeckName != "" {
		b.WriteString(styles.MutedText.Render("  ·  " + card.DeckName))
	}
	if card.Overdue {
		b.WriteString(styles.WarningText.Render("  overdue"))
	}
	b.WriteString("\n\n")

	innerWidth := max(20, width-6)
	for i := 0; i < revealed; i++ {
		if i > 0 {
			b.WriteString(styles.FaintText.Render(strings.Repeat("─", innerWidth)))
			b.WriteString("\n")
		}
		b.WriteString(m.md.render(sides[i], innerWidth, m.theme.Glamour))
		b.WriteString("\n")
	}
	if revealed < len(sides) {
		hidden := len(sides) - revealed
		b.WriteString("\n")
		b.WriteString(styles.FaintText.Render(fmt.Sprintf("%s hidden · space to reveal", plural(hidden, "side"))))
	} else {
		b.WriteString("\n")
		b.WriteString(m.renderFeedbackHint(styles))
	}
	if m.review.submitting {
		b.WriteString("\n")
		b.WriteString(styles.InfoText.Render("Saving..."))
	}

	panel := styles.FocusPanel.Width(width - 2).Height(max(1, height-2))
	return panel.Render(b.String())
}

func (m Model) renderFeedbackHint(styles Styles) string {
	parts := make([]string, 0, 3)
	for _, b := range m.dispatcher.Table().ForScope(shortcuts.ScopeReview) {
		var style lipgloss.Style
		switch b.Action {
		case shortcuts.ActionCardOK:
			style = styles.FeedbackStyle(repeater.FeedbackOK)
		case shortcuts.ActionCardForgot:
			style = styles.FeedbackStyle(repeater.FeedbackForgot)
		case shortcuts.ActionCardSkip:
			style = styles.FeedbackStyle(repeater.FeedbackSkipped)
		default:
			continue
		}
		parts = append(parts, style.Render(b.Key.Help().Key+" "+b.Description()))
	}
	return strings.Join(parts, "   ")
}

// entryPlaceholder returns the text to show instead of a list that has no
// data yet, or whose last fetch failed.
func (m Model) entryPlaceholder(entry query.Entry, what string) (string, bool) {
	styles := m.theme.Styles()
	switch {
	case entry.Status == query.StatusPending:
		return styles.MutedText.Render("Loading " + what + "..."), true
	case entry.Status == query.StatusError && entry.Data == nil:
		msg := styles.DangerText.Render("Could not load "+what) + "\n\n" +
			styles.MutedText.Render(describeError(entry.Err)) + "\n\n" +
			styles.FaintText.Render("R to retry")
		return msg, true
	}
	return "", false
}

func (m Model) centered(content string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
