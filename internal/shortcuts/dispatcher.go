package shortcuts

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/puzpuzpuz/xsync/v3"
)

// Handler runs an action and may return a command for the program loop.
type Handler func() tea.Cmd

type handlerKey struct {
	scope  Scope
	action Action
}

// Dispatcher routes key messages to the handlers registered for a scope.
type Dispatcher struct {
	table    *Table
	handlers *xsync.MapOf[handlerKey, Handler]
}

// NewDispatcher creates a dispatcher over table.
func NewDispatcher(table *Table) *Dispatcher {
	return &Dispatcher{
		table:    table,
		handlers: xsync.NewMapOf[handlerKey, Handler](),
	}
}

// Table returns the binding table the dispatcher validates against.
func (d *Dispatcher) Table() *Table {
	return d.table
}

// Register installs handler for action in scope. An action missing from
// the table for that scope is an error and nothing is registered.
func (d *Dispatcher) Register(scope Scope, action Action, handler Handler) error {
	if _, err := d.table.Lookup(action, scope); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("nil handler for %s in scope %s", action, scope)
	}
	d.handlers.Store(handlerKey{scope: scope, action: action}, handler)
	return nil
}

// RegisterAll installs every handler or none of them. The error names all
// unknown actions.
func (d *Dispatcher) RegisterAll(scope Scope, handlers map[Action]Handler) error {
	var unknown []Action
	for action, handler := range handlers {
		if _, err := d.table.Lookup(action, scope); err != nil || handler == nil {
			unknown = append(unknown, action)
		}
	}
	if len(unknown) > 0 {
		sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
		return fmt.Errorf("%w(s) in scope %s: %s", ErrUnknownAction, scope, joinActions(unknown))
	}
	for action, handler := range handlers {
		d.handlers.Store(handlerKey{scope: scope, action: action}, handler)
	}
	return nil
}

// Unregister removes the handler for action in scope.
func (d *Dispatcher) Unregister(scope Scope, action Action) {
	d.handlers.Delete(handlerKey{scope: scope, action: action})
}

// UnregisterAll removes every handler of scope.
func (d *Dispatcher) UnregisterAll(scope Scope) {
	for _, b := range d.table.ForScope(scope) {
		d.Unregister(scope, b.Action)
	}
}

// Registered reports whether action has a handler in scope.
func (d *Dispatcher) Registered(scope Scope, action Action) bool {
	_, ok := d.handlers.Load(handlerKey{scope: scope, action: action})
	return ok
}

// Dispatch runs the handler bound to msg in scope. Keys without a binding
// or without a registered handler are ignored and reported as unhandled.
func (d *Dispatcher) Dispatch(scope Scope, msg tea.KeyMsg) (tea.Cmd, bool) {
	for _, b := range d.table.bindings[scope] {
		if !key.Matches(msg, b.Key) {
			continue
		}
		handler, ok := d.handlers.Load(handlerKey{scope: scope, action: b.Action})
		if !ok {
			return nil, false
		}
		return handler(), true
	}
	return nil, false
}

// HelpBindings returns the keys of scope that currently have handlers.
func (d *Dispatcher) HelpBindings(scope Scope) []key.Binding {
	var out []key.Binding
	for _, b := range d.table.bindings[scope] {
		if d.Registered(scope, b.Action) {
			out = append(out, b.Key)
		}
	}
	return out
}
