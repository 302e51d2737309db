// Package ui provides the terminal interface for Repeater.
//
// # Architecture Overview
//
// The interface is a Bubble Tea program. Model is a value type; state that
// must survive copies (cursors, the inspector, the flash line) lives behind
// pointers so helpers can mutate it from either receiver.
//
// Data comes from the query cache. Each view subscribes to the keys it
// shows through named slots (see watch); a slot holds one subscription and
// is replaced when the highlighted item changes. Every subscription is
// turned into a tea.Cmd that blocks on its update channel, so cache changes
// arrive as cacheMsg values on the Bubble Tea loop.
//
// Writes go through the mutation coordinator off the UI loop and come back
// as mutationMsg, tagged with the widget that started them.
//
// # Views
//
//   - Review: due cards one at a time, sides revealed in order
//   - Decks: deck list with statistics for the highlighted deck
//   - Cards: cards of the open deck with their review history
//   - Profile: totals, a year of daily reviews, and per-deck statistics
//
// The card inspector and the deck form overlay the main views.
//
// # Key Bindings
//
// Global keys live in keyMap. View actions that other front ends share
// (review feedback, stepping through decks and cards) come from the
// shortcuts table and are registered with the dispatcher while their view
// is mounted.
//
//   - 1-4 or Tab: switch views
//   - space: reveal the next side
//   - l / j / s: remembered / forgot / skip
//   - enter: open, e: edit, n: new, x: delete
//   - T: cycle theme, M: toggle plain text, R: reload
//   - ?: help, q or Ctrl+C: quit
package ui
