package shortcuts

import (
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestDefaultTable_NoKeyBoundTwiceWithinScope(t *testing.T) {
	table := DefaultTable()
	for _, scope := range table.Scopes() {
		seen := map[string]Action{}
		for _, b := range table.ForScope(scope) {
			for _, k := range b.Key.Keys() {
				if other, ok := seen[k]; ok {
					t.Fatalf("scope %s: key %q bound to %s and %s", scope, k, other, b.Action)
				}
				seen[k] = b.Action
			}
		}
	}
}

func TestDefaultTable_Bindings(t *testing.T) {
	tests := []struct {
		scope  Scope
		action Action
		key    string
	}{
		{ScopeReview, ActionCardForgot, "j"},
		{ScopeReview, ActionCardOK, "l"},
		{ScopeReview, ActionRevealNext, " "},
		{ScopeReview, ActionCardSkip, "s"},
		{ScopeCards, ActionCardPrev, "left"},
		{ScopeCards, ActionCardNext, "right"},
		{ScopeDecks, ActionDeckPrev, "left"},
		{ScopeDecks, ActionDeckNext, "right"},
	}
	table := DefaultTable()
	for _, tt := range tests {
		b, err := table.Lookup(tt.action, tt.scope)
		if err != nil {
			t.Fatalf("Lookup(%s, %s) returned error: %v", tt.action, tt.scope, err)
		}
		if keys := b.Key.Keys(); len(keys) != 1 || keys[0] != tt.key {
			t.Fatalf("%s/%s keys = %q, want %q", tt.scope, tt.action, keys, tt.key)
		}
		if b.Description() == "" {
			t.Fatalf("%s/%s has no description", tt.scope, tt.action)
		}
	}
	if got := len(table.ForScope(ScopeProfile)); got != 0 {
		t.Fatalf("profile bindings = %d, want 0", got)
	}
}

func TestNewTable_RejectsCollisions(t *testing.T) {
	_, err := NewTable(
		Binding{Scope: ScopeDecks, Action: ActionDeckPrev, Key: key.NewBinding(key.WithKeys("left"))},
		Binding{Scope: ScopeDecks, Action: ActionCardPrev, Key: key.NewBinding(key.WithKeys("left"))},
	)
	if err == nil || !strings.Contains(err.Error(), `key "left" in scope decks`) {
		t.Fatalf("err = %v, want key collision", err)
	}

	// The same key in different scopes is fine.
	if _, err := NewTable(
		Binding{Scope: ScopeDecks, Action: ActionDeckPrev, Key: key.NewBinding(key.WithKeys("left"))},
		Binding{Scope: ScopeCards, Action: ActionCardPrev, Key: key.NewBinding(key.WithKeys("left"))},
	); err != nil {
		t.Fatalf("cross-scope reuse rejected: %v", err)
	}

	if _, err := NewTable(Binding{Scope: ScopeDecks, Action: ActionDeckPrev}); err == nil {
		t.Fatalf("binding without keys should be rejected")
	}
}

func TestLookup_UnknownIsDescriptive(t *testing.T) {
	_, err := DefaultTable().Lookup(ActionCardOK, ScopeDecks)
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("err = %v, want ErrUnknownAction", err)
	}
	if want := "unknown action card-ok or scope decks"; err.Error() != want {
		t.Fatalf("err = %q, want %q", err.Error(), want)
	}
}
