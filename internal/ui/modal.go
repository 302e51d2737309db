package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/repeater/internal/mutation"
	"github.com/five82/repeater/internal/repeater"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

func (m Model) renderModal() string {
	return m.modal.View(m.theme, m.width, m.height)
}

func modalBox(theme Theme, width, height int, body string) string {
	styles := theme.Styles()
	boxWidth := min(max(40, width/2), max(20, width-4))
	box := styles.FocusPanel.Width(boxWidth).Padding(1, 2).Render(body)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

// confirmModal asks a yes/no question before running onConfirm.
type confirmModal struct {
	title     string
	body      string
	onConfirm tea.Cmd
}

func newConfirm(title, body string, onConfirm tea.Cmd) *confirmModal {
	return &confirmModal{title: title, body: body, onConfirm: onConfirm}
}

func (c *confirmModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch {
	case key.Matches(k, keys.Confirm):
		return nil, c.onConfirm, true
	case key.Matches(k, keys.Escape), k.String() == "n":
		return nil, nil, true
	}
	return c, nil, false
}

func (c *confirmModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	body := styles.DangerText.Bold(true).Render(c.title) + "\n\n" +
		styles.Text.Render(c.body) + "\n\n" +
		styles.FaintText.Render("y confirm · n/esc cancel")
	return modalBox(theme, width, height, body)
}

const (
	fieldName = iota
	fieldDescription
	fieldCategory
	fieldCount
)

// deckForm creates a deck, or edits one when original is set.
type deckForm struct {
	original *repeater.Deck

	name        textinput.Model
	description textinput.Model
	categories  []repeater.Category
	categoryID  string
	focused     int

	saving    bool
	fieldErrs map[string]string
	errText   string
}

func newDeckForm(original *repeater.Deck) *deckForm {
	name := textinput.New()
	name.Placeholder = "Deck name"
	name.CharLimit = 120
	desc := textinput.New()
	desc.Placeholder = "Optional description"
	desc.CharLimit = 500

	f := &deckForm{original: original, name: name, description: desc}
	if original != nil {
		f.name.SetValue(original.Name)
		f.description.SetValue(original.Description)
		f.categoryID = original.CategoryID
	}
	return f
}

func (f *deckForm) Init() tea.Cmd {
	return f.setFocus(fieldName)
}

func (f *deckForm) setCategories(cats []repeater.Category) {
	f.categories = cats
}

func (f *deckForm) setFocus(field int) tea.Cmd {
	f.focused = (field + fieldCount) % fieldCount
	f.name.Blur()
	f.description.Blur()
	switch f.focused {
	case fieldName:
		return f.name.Focus()
	case fieldDescription:
		return f.description.Focus()
	}
	return nil
}

// cycleCategory steps through "none" followed by every category.
func (f *deckForm) cycleCategory(step int) {
	ids := make([]string, 0, len(f.categories)+1)
	ids = append(ids, "")
	for _, c := range f.categories {
		ids = append(ids, c.ID)
	}
	cur := 0
	for i, id := range ids {
		if id == f.categoryID {
			cur = i
		}
	}
	f.categoryID = ids[(cur+step+len(ids))%len(ids)]
}

func (f *deckForm) categoryName() string {
	if f.categoryID == "" {
		return "None"
	}
	for _, c := range f.categories {
		if c.ID == f.categoryID {
			if len(c.Path) > 0 {
				return strings.Join(c.Path, " / ")
			}
			return c.Name
		}
	}
	return "..."
}

func (f *deckForm) fail(err error) {
	f.saving = false
	f.fieldErrs = mutation.FieldErrors(err)
	f.errText = ""
	if len(f.fieldErrs) == 0 {
		f.errText = describeError(err)
	}
}

// operation builds the write for the form. An edit that changes nothing
// reports false.
func (f *deckForm) operation() (mutation.Operation, bool) {
	if f.original == nil {
		return mutation.CreateDeck{
			Name:        strings.TrimSpace(f.name.Value()),
			Description: strings.TrimSpace(f.description.Value()),
			CategoryID:  f.categoryID,
		}, true
	}
	op := mutation.DiffDeck(*f.original, f.name.Value(), f.description.Value())
	if f.categoryID != f.original.CategoryID {
		id := f.categoryID
		op.Patch.CategoryID = &id
	}
	if op.Patch.Empty() {
		return nil, false
	}
	return op, true
}

func (f *deckForm) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return f, f.updateInput(msg), false
	}

	switch {
	case key.Matches(k, keys.Escape):
		return nil, nil, true
	case key.Matches(k, keys.Focus):
		return f, f.setFocus(f.focused + 1), false
	case key.Matches(k, keys.ShiftTab):
		return f, f.setFocus(f.focused - 1), false
	case key.Matches(k, keys.Save), k.String() == "enter" && f.focused == fieldCategory:
		return f.submit()
	case k.String() == "enter":
		return f, f.setFocus(f.focused + 1), false
	}

	if f.focused == fieldCategory {
		switch k.String() {
		case "left", "h":
			f.cycleCategory(-1)
		case "right", "l", " ":
			f.cycleCategory(1)
		}
		return f, nil, false
	}
	return f, f.updateInput(msg), false
}

func (f *deckForm) updateInput(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch f.focused {
	case fieldName:
		f.name, cmd = f.name.Update(msg)
	case fieldDescription:
		f.description, cmd = f.description.Update(msg)
	}
	return cmd
}

func (f *deckForm) submit() (Modal, tea.Cmd, bool) {
	if f.saving {
		return f, nil, false
	}
	op, changed := f.operation()
	if !changed {
		return nil, nil, true
	}
	if err := op.Validate(); err != nil {
		f.fail(err)
		return f, nil, false
	}
	f.saving = true
	f.fieldErrs = nil
	f.errText = ""
	return f, func() tea.Msg { return submitMsg{op: op, origin: originDeckForm} }, false
}

func (f *deckForm) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	title := "New deck"
	if f.original != nil {
		title = "Edit deck"
	}

	label := func(field int, text string) string {
		if f.focused == field {
			return styles.AccentText.Render("› " + text)
		}
		return styles.MutedText.Render("  " + text)
	}

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(title))
	b.WriteString("\n\n")
	b.WriteString(label(fieldName, "Name"))
	b.WriteString("\n  ")
	b.WriteString(f.name.View())
	b.WriteString("\n")
	if msg := f.fieldErrs["name"]; msg != "" {
		b.WriteString("  " + styles.DangerText.Render(msg) + "\n")
	}
	b.WriteString(label(fieldDescription, "Description"))
	b.WriteString("\n  ")
	b.WriteString(f.description.View())
	b.WriteString("\n")
	b.WriteString(label(fieldCategory, "Category"))
	b.WriteString("\n  ")
	b.WriteString(styles.Text.Render("‹ " + f.categoryName() + " ›"))
	b.WriteString("\n\n")
	if f.errText != "" {
		b.WriteString(styles.DangerText.Render(f.errText) + "\n\n")
	}
	if f.saving {
		b.WriteString(styles.InfoText.Render("Saving..."))
	} else {
		b.WriteString(styles.FaintText.Render("tab next field · ctrl+s save · esc cancel"))
	}
	return modalBox(theme, width, height, b.String())
}
