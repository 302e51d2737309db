package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the bindings that work in every view. View-specific
// actions that have a semantic name live in the shortcuts table instead.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	ToggleText key.Binding
	Retry      key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding

	// View switching
	ViewReview  key.Binding
	ViewDecks   key.Binding
	ViewCards   key.Binding
	ViewProfile key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding
	Open   key.Binding

	// Editing
	New      key.Binding
	Edit     key.Binding
	Delete   key.Binding
	Pause    key.Binding
	Archive  key.Binding
	Archived key.Binding
	Export   key.Binding
	Save     key.Binding
	Focus    key.Binding
	Confirm  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		ToggleText: key.NewBinding(
			key.WithKeys("M"),
			key.WithHelp("M", "Toggle markdown"),
		),
		Retry: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Reload view"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Cycle views"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Cycle views (reverse)"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back / close"),
		),

		ViewReview: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Review"),
		),
		ViewDecks: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "Decks"),
		),
		ViewCards: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "Cards"),
		),
		ViewProfile: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "Profile"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Open"),
		),

		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "New"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "Edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Delete"),
		),
		Pause: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Pause/resume deck"),
		),
		Archive: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Archive/restore deck"),
		),
		Archived: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "Show archived decks"),
		),
		Export: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "Export deck"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "Save"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next field"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y", "Confirm"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ViewReview, k.ViewDecks, k.ViewCards, k.ViewProfile, k.Escape},
		{k.Up, k.Down, k.Top, k.Bottom, k.Open},
		{k.New, k.Edit, k.Delete, k.Pause, k.Archive, k.Archived, k.Export},
		{k.CycleTheme, k.ToggleText, k.Retry, k.Help, k.Quit},
	}
}
