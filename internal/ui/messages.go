package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/repeater/internal/mutation"
	"github.com/five82/repeater/internal/query"
	"github.com/five82/repeater/internal/repeater"
	"github.com/five82/repeater/internal/shortcuts"
)

type tickMsg time.Time

// cacheMsg reports that the entry behind a subscription slot changed.
type cacheMsg struct {
	slot string
	sub  *query.Subscription
}

// actionMsg carries a dispatched shortcut back into Update.
type actionMsg struct {
	scope  shortcuts.Scope
	action shortcuts.Action
}

// submitMsg asks the model to run a write on behalf of a modal.
type submitMsg struct {
	op     mutation.Operation
	origin string
}

type mutationMsg struct {
	result mutation.Result
	origin string
}

type exportMsg struct {
	path string
	err  error
}

type flashExpiredMsg struct {
	id int
}

type prefsSavedMsg struct {
	err error
}

const flashDuration = 4 * time.Second

// flash is the transient status line shown in the footer.
type flash struct {
	id    int
	text  string
	isErr bool
}

func tickCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// emitAction is the shortcut handler registered for every action of a
// mounted view.
func emitAction(scope shortcuts.Scope, action shortcuts.Action) shortcuts.Handler {
	return func() tea.Cmd {
		return func() tea.Msg {
			return actionMsg{scope: scope, action: action}
		}
	}
}

// waitForUpdate blocks until sub signals a change. It yields nothing once
// the subscription is closed.
func waitForUpdate(slot string, sub *query.Subscription) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-sub.Updates(); !ok {
			return nil
		}
		return cacheMsg{slot: slot, sub: sub}
	}
}

// watch points slot at key, replacing any subscription to another key.
func (m *Model) watch(slot string, key query.Key, fetch query.FetchFunc) tea.Cmd {
	if cur, ok := m.subs[slot]; ok {
		if cur.Key().Equal(key) {
			return nil
		}
		cur.Close()
	}
	sub := m.cache.Subscribe(key, fetch)
	m.subs[slot] = sub
	return waitForUpdate(slot, sub)
}

func (m *Model) unwatch(slot string) {
	if sub, ok := m.subs[slot]; ok {
		sub.Close()
		delete(m.subs, slot)
	}
}

// entry returns the current snapshot of a slot.
func (m Model) entry(slot string) (query.Entry, bool) {
	sub, ok := m.subs[slot]
	if !ok {
		return query.Entry{}, false
	}
	return sub.Snapshot(), true
}

func (m *Model) setFlash(text string, isErr bool) tea.Cmd {
	m.flash.id++
	m.flash.text = text
	m.flash.isErr = isErr
	id := m.flash.id
	return tea.Tick(flashDuration, func(time.Time) tea.Msg {
		return flashExpiredMsg{id: id}
	})
}

// exportDeck downloads a deck and writes it under dir.
func exportDeck(ctx context.Context, api repeater.API, deckID, dir string) tea.Cmd {
	return func() tea.Msg {
		export, err := api.ExportDeck(ctx, deckID)
		if err != nil {
			return exportMsg{err: err}
		}
		path, err := repeater.SaveExport(dir, export)
		return exportMsg{path: path, err: err}
	}
}
