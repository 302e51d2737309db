package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/repeater/internal/mutation"
	"github.com/five82/repeater/internal/prefs"
	"github.com/five82/repeater/internal/query"
	"github.com/five82/repeater/internal/repeater"
	"github.com/five82/repeater/internal/shortcuts"
	"github.com/five82/repeater/internal/state"
)

// Options configure the UI runtime.
type Options struct {
	Context   context.Context
	API       repeater.API
	Cache     *query.Cache
	Mutations *mutation.Coordinator
	Shortcuts *shortcuts.Dispatcher
	Health    *state.Store
	Logger    *zap.Logger

	Prefs     prefs.Prefs
	PrefsPath string
	ExportDir string
	// SignedIn reports whether a session was restored at startup.
	SignedIn bool
	// PollTick is how often the header re-reads API health.
	PollTick time.Duration
	// Now is the clock used for due dates and the heatmap.
	Now func() time.Time
}

const defaultUIInterval = time.Second

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	if opts.Cache == nil || opts.API == nil || opts.Mutations == nil || opts.Shortcuts == nil {
		return fmt.Errorf("ui requires an api client, cache, mutation coordinator and shortcut dispatcher")
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	model := New(opts)
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
