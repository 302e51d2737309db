package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/repeater/internal/mutation"
	"github.com/five82/repeater/internal/query"
	"github.com/five82/repeater/internal/repeater"
	"github.com/five82/repeater/internal/shortcuts"
)

// inspector shows one card full screen. In view mode it follows the cards
// cursor; in edit mode it holds a draft of the card it was opened on.
type inspector struct {
	editing  bool
	creating bool
	saving   bool

	original repeater.Card
	editor   textarea.Model
	decks    []repeater.Deck
	deckID   string

	fieldErrs map[string]string
	errText   string

	offset int
	width  int
	height int
}

func newInspector(width, height int) *inspector {
	in := &inspector{editor: newEditor()}
	in.resize(width, height)
	return in
}

// newCardInspector opens an empty draft in deckID.
func newCardInspector(deckID string, decks []repeater.Deck, width, height int) *inspector {
	in := newInspector(width, height)
	in.editing = true
	in.creating = true
	in.deckID = deckID
	in.decks = decks
	return in
}

func newEditor() textarea.Model {
	ta := textarea.New()
	ta.Placeholder = "Front\n---\nBack"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	return ta
}

func (in *inspector) resize(width, height int) {
	in.width = width
	in.height = height
	in.editor.SetWidth(max(20, width-6))
	in.editor.SetHeight(max(3, height-12))
}

func (in *inspector) focus() tea.Cmd {
	return in.editor.Focus()
}

// edit switches to edit mode with a draft of card.
func (in *inspector) edit(card repeater.Card, decks []repeater.Deck) tea.Cmd {
	in.editing = true
	in.creating = false
	in.saving = false
	in.original = card
	in.deckID = card.DeckID
	in.decks = decks
	in.fieldErrs = nil
	in.errText = ""
	in.editor.SetValue(card.Content)
	return in.focus()
}

func (in *inspector) cancel() {
	in.editing = false
	in.saving = false
	in.fieldErrs = nil
	in.errText = ""
	in.editor.Blur()
	in.editor.Reset()
}

func (in *inspector) update(msg tea.Msg, _ keyMap) tea.Cmd {
	var cmd tea.Cmd
	in.editor, cmd = in.editor.Update(msg)
	return cmd
}

func (in *inspector) scroll(delta int) {
	in.offset = max(0, in.offset+delta)
}

func (in *inspector) scrollTop() {
	in.offset = 0
}

// cycleDeck moves the draft to the next deck.
func (in *inspector) cycleDeck() {
	if len(in.decks) == 0 {
		return
	}
	i := slices.IndexFunc(in.decks, func(d repeater.Deck) bool { return d.ID == in.deckID })
	in.deckID = in.decks[(i+1)%len(in.decks)].ID
}

func (in *inspector) deckName() string {
	for _, d := range in.decks {
		if d.ID == in.deckID {
			return d.Name
		}
	}
	return in.deckID
}

// operation builds the write for the draft. An edit that changes nothing
// reports false.
func (in *inspector) operation() (mutation.Operation, bool) {
	content := in.editor.Value()
	if in.creating {
		return mutation.CreateCard{DeckID: in.deckID, Content: strings.TrimSpace(content)}, true
	}
	op := mutation.DiffCard(in.original, content, in.deckID)
	if op.Patch.Empty() {
		return nil, false
	}
	return op, true
}

func (in *inspector) fail(err error) {
	in.saving = false
	in.fieldErrs = mutation.FieldErrors(err)
	in.errText = ""
	if len(in.fieldErrs) == 0 {
		in.errText = describeError(err)
	}
}

// saved closes a new-card draft and returns an edited card to view mode.
func (in *inspector) saved(mutation.Result) *inspector {
	if in.creating {
		return nil
	}
	in.cancel()
	return in
}

func (m Model) handleInspectorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	in := m.inspector
	if in.editing {
		switch {
		case key.Matches(msg, m.keys.Escape):
			if in.creating {
				m.inspector = nil
				return m, nil
			}
			in.cancel()
			return m, nil
		case key.Matches(msg, m.keys.Focus):
			in.cycleDeck()
			return m, nil
		case key.Matches(msg, m.keys.Save):
			return m.submitDraft()
		}
		return m, in.update(msg, m.keys)
	}

	if cmd, ok := m.dispatcher.Dispatch(shortcuts.ScopeCards, msg); ok {
		return m, cmd
	}
	card, ok := m.cards.nav.Current()
	switch {
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Quit):
		m.inspector = nil
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.Up):
		in.scroll(-1)
	case key.Matches(msg, m.keys.Down):
		in.scroll(1)
	case key.Matches(msg, m.keys.Top):
		in.scrollTop()
	case key.Matches(msg, m.keys.Edit) && ok:
		return m, in.edit(card, m.deckChoices())
	case key.Matches(msg, m.keys.Delete) && ok:
		m.modal = m.confirmDeleteCard(card)
	}
	return m, nil
}

// submitDraft validates the draft locally and sends it.
func (m Model) submitDraft() (tea.Model, tea.Cmd) {
	in := m.inspector
	if in.saving {
		return m, nil
	}
	op, changed := in.operation()
	if !changed {
		in.cancel()
		return m, m.setFlash("No changes", false)
	}
	if err := op.Validate(); err != nil {
		in.fail(err)
		return m, nil
	}
	in.saving = true
	in.fieldErrs = nil
	in.errText = ""
	return m, m.runMutation(op, originInspector)
}

func (m Model) renderInspector() string {
	in := m.inspector
	styles := m.theme.Styles()
	width, height := m.width, m.height
	inner := max(20, width-6)

	var b strings.Builder
	if in.editing {
		title := "Edit card"
		if in.creating {
			title = "New card"
		}
		b.WriteString(styles.AccentText.Bold(true).Render(title))
		b.WriteString("\n\n")
		b.WriteString(in.editor.View())
		b.WriteString("\n")
		if msg := in.fieldErrs["content"]; msg != "" {
			b.WriteString(styles.DangerText.Render(msg))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(styles.MutedText.Render("Deck  "))
		b.WriteString(styles.Text.Render(in.deckName()))
		if len(in.decks) > 1 {
			b.WriteString(styles.FaintText.Render("  (tab to move)"))
		}
		b.WriteString("\n")
		if msg := in.fieldErrs["deck_id"]; msg != "" {
			b.WriteString(styles.DangerText.Render(msg))
			b.WriteString("\n")
		}
		if in.errText != "" {
			b.WriteString(styles.DangerText.Render(in.errText))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if in.saving {
			b.WriteString(styles.InfoText.Render("Saving..."))
		} else {
			b.WriteString(styles.FaintText.Render("ctrl+s save · esc cancel · separate sides with ---"))
		}
		return styles.FocusPanel.Width(width - 2).Height(max(1, height-2)).Render(b.String())
	}

	card, ok := m.cards.nav.Current()
	if !ok {
		return m.centered(styles.MutedText.Render("No card"), width, height)
	}
	header := fmt.Sprintf("Card %d of %d", m.cards.nav.Index()+1, m.cards.nav.Len())
	b.WriteString(styles.AccentText.Bold(true).Render(header))
	if m.cards.deckName != "" {
		b.WriteString(styles.MutedText.Render("  ·  " + m.cards.deckName))
	}
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("Next review " + relativeDay(card.ParsedNextReview(), m.now())))
	b.WriteString("\n\n")
	for i, side := range card.Sides() {
		if i > 0 {
			b.WriteString(styles.FaintText.Render(strings.Repeat("─", inner)))
			b.WriteString("\n")
		}
		b.WriteString(m.md.render(side, inner, m.theme.Glamour))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.AccentText.Render("History"))
	b.WriteString("\n")
	if entry, ok := m.entry(slotReviews); ok {
		if msg, pending := m.entryPlaceholder(entry, "history"); pending {
			b.WriteString(msg)
		} else if reviews, _ := query.Value[[]repeater.Review](entry); len(reviews) > 0 {
			b.WriteString(renderReviewLines(reviews, styles, m.now(), len(reviews)))
		} else {
			b.WriteString(styles.MutedText.Render("Never reviewed"))
		}
	}

	rows := max(1, height-3)
	lines := strings.Split(b.String(), "\n")
	in.offset = min(in.offset, max(0, len(lines)-rows))
	lines = lines[in.offset:min(len(lines), in.offset+rows)]

	hint := styles.FaintText.Render("←/→ card · e edit · x delete · esc close")
	body := styles.FocusPanel.Width(width - 2).Height(rows).Render(strings.Join(lines, "\n"))
	return body + "\n" + hint
}
