// Package shortcuts maps key presses to named actions per view scope.
//
// The binding table is static. Views register handlers for the actions of
// their scope when they mount and unregister on unmount. Registering an
// action the table does not know fails immediately, so a typo in a view is
// caught at startup instead of producing a dead key.
package shortcuts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// Scope names the view whose bindings are active.
type Scope string

const (
	ScopeReview  Scope = "review"
	ScopeCards   Scope = "cards"
	ScopeDecks   Scope = "decks"
	ScopeProfile Scope = "profile"
)

// Action is a semantic command independent of the physical key.
type Action string

const (
	ActionCardForgot Action = "card-forgot"
	ActionCardOK     Action = "card-ok"
	ActionCardSkip   Action = "card-skip"
	ActionRevealNext Action = "reveal-next"
	ActionCardPrev   Action = "card-prev"
	ActionCardNext   Action = "card-next"
	ActionDeckPrev   Action = "deck-prev"
	ActionDeckNext   Action = "deck-next"
)

// ErrUnknownAction is returned for an (action, scope) pair missing from the table.
var ErrUnknownAction = errors.New("unknown action")

// Binding ties an action in a scope to its keys.
type Binding struct {
	Scope  Scope
	Action Action
	Key    key.Binding
}

// Description is the help text for the binding.
func (b Binding) Description() string {
	return b.Key.Help().Desc
}

// Table is the static set of bindings, grouped by scope.
type Table struct {
	scopes   []Scope
	bindings map[Scope][]Binding
}

// NewTable validates bindings: within a scope each action appears once and
// each physical key maps to at most one action.
func NewTable(bindings ...Binding) (*Table, error) {
	t := &Table{bindings: make(map[Scope][]Binding)}
	keysSeen := make(map[Scope]map[string]Action)
	for _, b := range bindings {
		if b.Scope == "" || b.Action == "" {
			return nil, fmt.Errorf("binding %q in scope %q: scope and action required", b.Action, b.Scope)
		}
		if len(b.Key.Keys()) == 0 {
			return nil, fmt.Errorf("binding %s/%s has no keys", b.Scope, b.Action)
		}
		if _, ok := t.find(b.Scope, b.Action); ok {
			return nil, fmt.Errorf("duplicate action %s in scope %s", b.Action, b.Scope)
		}
		if keysSeen[b.Scope] == nil {
			keysSeen[b.Scope] = make(map[string]Action)
			t.scopes = append(t.scopes, b.Scope)
		}
		for _, k := range b.Key.Keys() {
			if other, taken := keysSeen[b.Scope][k]; taken {
				return nil, fmt.Errorf("key %q in scope %s bound to both %s and %s", k, b.Scope, other, b.Action)
			}
			keysSeen[b.Scope][k] = b.Action
		}
		t.bindings[b.Scope] = append(t.bindings[b.Scope], b)
	}
	return t, nil
}

// DefaultTable returns the application's bindings.
func DefaultTable() *Table {
	t, err := NewTable(
		Binding{Scope: ScopeReview, Action: ActionCardForgot, Key: key.NewBinding(
			key.WithKeys("j"),
			key.WithHelp("j", "Forgot"),
		)},
		Binding{Scope: ScopeReview, Action: ActionCardOK, Key: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Remembered"),
		)},
		Binding{Scope: ScopeReview, Action: ActionRevealNext, Key: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "Reveal next side"),
		)},
		Binding{Scope: ScopeReview, Action: ActionCardSkip, Key: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Skip"),
		)},
		Binding{Scope: ScopeCards, Action: ActionCardPrev, Key: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "Previous card"),
		)},
		Binding{Scope: ScopeCards, Action: ActionCardNext, Key: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "Next card"),
		)},
		Binding{Scope: ScopeDecks, Action: ActionDeckPrev, Key: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "Previous deck"),
		)},
		Binding{Scope: ScopeDecks, Action: ActionDeckNext, Key: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "Next deck"),
		)},
	)
	if err != nil {
		panic(fmt.Sprintf("shortcuts: invalid default table: %v", err))
	}
	return t
}

// Scopes returns the scopes that have bindings, in declaration order.
func (t *Table) Scopes() []Scope {
	return append([]Scope(nil), t.scopes...)
}

// ForScope returns the bindings of a scope in declaration order.
func (t *Table) ForScope(scope Scope) []Binding {
	return append([]Binding(nil), t.bindings[scope]...)
}

// Lookup returns the binding for action in scope.
func (t *Table) Lookup(action Action, scope Scope) (Binding, error) {
	if b, ok := t.find(scope, action); ok {
		return b, nil
	}
	return Binding{}, fmt.Errorf("%w %s or scope %s", ErrUnknownAction, action, scope)
}

func (t *Table) find(scope Scope, action Action) (Binding, bool) {
	for _, b := range t.bindings[scope] {
		if b.Action == action {
			return b, true
		}
	}
	return Binding{}, false
}

func joinActions(actions []Action) string {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}
