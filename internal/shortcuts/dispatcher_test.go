package shortcuts

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestRegister_UnknownActionFailsAndRegistersNothing(t *testing.T) {
	d := NewDispatcher(DefaultTable())
	called := false

	err := d.Register(ScopeReview, Action("card-flip"), func() tea.Cmd {
		called = true
		return nil
	})
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("err = %v, want ErrUnknownAction", err)
	}
	if !strings.Contains(err.Error(), "card-flip") || !strings.Contains(err.Error(), "review") {
		t.Fatalf("err = %q should name the action and scope", err)
	}
	if d.Registered(ScopeReview, Action("card-flip")) {
		t.Fatalf("unknown action was registered")
	}

	// Known action in the wrong scope is also rejected.
	if err := d.Register(ScopeDecks, ActionCardOK, func() tea.Cmd { return nil }); err == nil {
		t.Fatalf("card-ok should not register in decks scope")
	}

	for _, r := range "jlsx" {
		if _, handled := d.Dispatch(ScopeReview, runeKey(r)); handled {
			t.Fatalf("key %q dispatched with no registrations", r)
		}
	}
	if called {
		t.Fatalf("handler ran")
	}
}

func TestRegisterAll_IsAllOrNothing(t *testing.T) {
	d := NewDispatcher(DefaultTable())
	noop := func() tea.Cmd { return nil }

	err := d.RegisterAll(ScopeReview, map[Action]Handler{
		ActionCardOK:     noop,
		Action("zeta"):   noop,
		Action("alpha"):  noop,
		ActionCardForgot: noop,
	})
	if err == nil || !strings.Contains(err.Error(), "alpha, zeta") {
		t.Fatalf("err = %v, want both unknown actions listed", err)
	}
	if d.Registered(ScopeReview, ActionCardOK) || d.Registered(ScopeReview, ActionCardForgot) {
		t.Fatalf("valid actions registered despite failure")
	}

	if err := d.RegisterAll(ScopeReview, map[Action]Handler{ActionCardOK: noop, ActionCardForgot: noop}); err != nil {
		t.Fatalf("RegisterAll returned error: %v", err)
	}
	if got := len(d.HelpBindings(ScopeReview)); got != 2 {
		t.Fatalf("HelpBindings = %d, want 2", got)
	}
}

type okMsg struct{}

func TestDispatch_ScopeFiltered(t *testing.T) {
	d := NewDispatcher(DefaultTable())
	var fired []Action
	handler := func(a Action) Handler {
		return func() tea.Cmd {
			fired = append(fired, a)
			return func() tea.Msg { return okMsg{} }
		}
	}

	mustRegister := func(scope Scope, action Action) {
		t.Helper()
		if err := d.Register(scope, action, handler(action)); err != nil {
			t.Fatalf("Register(%s, %s) returned error: %v", scope, action, err)
		}
	}
	mustRegister(ScopeReview, ActionCardOK)
	mustRegister(ScopeReview, ActionRevealNext)
	mustRegister(ScopeDecks, ActionDeckNext)
	mustRegister(ScopeCards, ActionCardNext)

	cmd, handled := d.Dispatch(ScopeReview, runeKey('l'))
	if !handled || cmd == nil {
		t.Fatalf("l in review not handled")
	}
	if _, ok := cmd().(okMsg); !ok {
		t.Fatalf("handler command returned wrong message")
	}
	if _, handled := d.Dispatch(ScopeReview, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}); !handled {
		t.Fatalf("space in review not handled")
	}

	right := tea.KeyMsg{Type: tea.KeyRight}
	d.Dispatch(ScopeDecks, right)
	d.Dispatch(ScopeCards, right)
	if _, handled := d.Dispatch(ScopeReview, right); handled {
		t.Fatalf("right arrow should be ignored in review scope")
	}

	want := []Action{ActionCardOK, ActionRevealNext, ActionDeckNext, ActionCardNext}
	if len(fired) != len(want) {
		t.Fatalf("fired = %v, want %v", fired, want)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Fatalf("fired = %v, want %v", fired, want)
		}
	}

	d.UnregisterAll(ScopeReview)
	if _, handled := d.Dispatch(ScopeReview, runeKey('l')); handled {
		t.Fatalf("l handled after UnregisterAll")
	}
	if _, handled := d.Dispatch(ScopeDecks, right); !handled {
		t.Fatalf("decks handler removed by review UnregisterAll")
	}
	d.Unregister(ScopeDecks, ActionDeckNext)
	if _, handled := d.Dispatch(ScopeDecks, right); handled {
		t.Fatalf("right handled after Unregister")
	}
}
