package ui

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/repeater/internal/cursor"
	"github.com/five82/repeater/internal/mutation"
	"github.com/five82/repeater/internal/prefs"
	"github.com/five82/repeater/internal/queries"
	"github.com/five82/repeater/internal/query"
	"github.com/five82/repeater/internal/repeater"
	"github.com/five82/repeater/internal/shortcuts"
	"github.com/five82/repeater/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewReview View = iota
	ViewDecks
	ViewCards
	ViewProfile
)

var viewOrder = []View{ViewReview, ViewDecks, ViewCards, ViewProfile}

func (v View) String() string {
	switch v {
	case ViewReview:
		return "Review"
	case ViewDecks:
		return "Decks"
	case ViewCards:
		return "Cards"
	case ViewProfile:
		return "Profile"
	default:
		return "?"
	}
}

// scope returns the shortcut scope whose bindings are active in the view.
func (v View) scope() shortcuts.Scope {
	switch v {
	case ViewReview:
		return shortcuts.ScopeReview
	case ViewDecks:
		return shortcuts.ScopeDecks
	case ViewCards:
		return shortcuts.ScopeCards
	default:
		return shortcuts.ScopeProfile
	}
}

// Subscription slots. Each slot holds at most one live subscription.
const (
	slotDue       = "due"
	slotUser      = "user"
	slotDecks     = "decks"
	slotDeckStats = "deck-stats"
	slotCards     = "cards"
	slotReviews   = "reviews"
	slotStats     = "stats"
	slotCats      = "categories"
)

// Origins tag mutation results with the widget that started them.
const (
	originReview    = "review"
	originInspector = "inspector"
	originDeckForm  = "deck-form"
	originDecks     = "decks"
	originCards     = "cards"
)

type deckState struct {
	nav      *cursor.Navigator[repeater.Deck]
	archived bool
}

type cardState struct {
	deckID   string
	deckName string
	nav      *cursor.Navigator[repeater.Card]
}

type reviewState struct {
	nav        *cursor.Navigator[repeater.Card]
	cardID     string
	revealed   int
	submitting bool
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx        context.Context
	api        repeater.API
	cache      *query.Cache
	mutations  *mutation.Coordinator
	dispatcher *shortcuts.Dispatcher
	store      *state.Store
	logger     *zap.Logger
	prefsPath  string
	prefs      prefs.Prefs
	exportDir  string
	signedIn   bool
	pollTick   time.Duration
	now        func() time.Time

	// UI state
	keys        keyMap
	help        help.Model
	theme       Theme
	md          *markdown
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool

	// Data state
	subs     map[string]*query.Subscription
	snapshot state.Snapshot

	decks  *deckState
	cards  *cardState
	review *reviewState

	inspector *inspector
	modal     Modal
	flash     *flash
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = defaultUIInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	store := opts.Health
	if store == nil {
		store = &state.Store{}
	}
	userPrefs := opts.Prefs
	if userPrefs.Theme == "" {
		userPrefs = prefs.Default()
	}

	m := Model{
		ctx:        ctx,
		api:        opts.API,
		cache:      opts.Cache,
		mutations:  opts.Mutations,
		dispatcher: opts.Shortcuts,
		store:      store,
		logger:     logger.Named("ui"),
		prefsPath:  opts.PrefsPath,
		prefs:      userPrefs,
		exportDir:  opts.ExportDir,
		signedIn:   opts.SignedIn,
		pollTick:   pollTick,
		now:        now,

		keys:        DefaultKeyMap(),
		help:        help.New(),
		theme:       GetTheme(userPrefs.Theme),
		md:          &markdown{plain: userPrefs.PlainText},
		currentView: ViewReview,

		subs:   make(map[string]*query.Subscription),
		decks:  &deckState{nav: cursor.New[repeater.Deck](opts.Cache, queries.DecksKey())},
		cards:  &cardState{deckID: userPrefs.LastDeck},
		review: &reviewState{nav: cursor.New[repeater.Card](opts.Cache, queries.DueCardsKey()), revealed: 1},
		flash:  &flash{},
	}
	if m.cards.deckID != "" {
		m.cards.nav = cursor.New[repeater.Card](opts.Cache, queries.DeckCardsKey(m.cards.deckID))
	}
	return m
}

// Close releases every subscription the model holds.
func (m Model) Close() {
	for slot, sub := range m.subs {
		sub.Close()
		delete(m.subs, slot)
	}
	for _, scope := range m.dispatcher.Table().Scopes() {
		m.dispatcher.UnregisterAll(scope)
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	dueKey, dueFetch := queries.DueCards(m.api)
	userKey, userFetch := queries.User(m.api)
	return tea.Batch(
		tickCmd(m.pollTick),
		m.watch(slotDue, dueKey, dueFetch),
		m.watch(slotUser, userKey, userFetch),
		m.mount(m.currentView),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		if m.inspector != nil {
			m.inspector.resize(m.width, m.height)
		}
		return m, nil

	case tickMsg:
		m.snapshot = m.store.Snapshot()
		return m, tickCmd(m.pollTick)

	case cacheMsg:
		if m.subs[msg.slot] != msg.sub {
			return m, nil
		}
		cmds := []tea.Cmd{waitForUpdate(msg.slot, msg.sub)}
		cmds = append(cmds, m.onCacheUpdate(msg.slot))
		m.snapshot = m.store.Snapshot()
		return m, tea.Batch(cmds...)

	case actionMsg:
		if msg.scope != m.activeScope() {
			return m, nil
		}
		return m.handleAction(msg.action)

	case submitMsg:
		return m, m.runMutation(msg.op, msg.origin)

	case mutationMsg:
		return m.handleMutation(msg)

	case exportMsg:
		if msg.err != nil {
			return m, m.setFlash("Export failed: "+msg.err.Error(), true)
		}
		return m, m.setFlash("Exported to "+truncateMiddle(msg.path, 60), false)

	case flashExpiredMsg:
		if m.flash.id == msg.id {
			m.flash.text = ""
		}
		return m, nil

	case prefsSavedMsg:
		if msg.err != nil {
			m.logger.Warn("save prefs failed", zap.Error(msg.err))
		}
		return m, nil
	}

	if m.inspector != nil && m.inspector.editing {
		cmd := m.inspector.update(msg, m.keys)
		return m, cmd
	}
	if m.modal != nil {
		var cmd tea.Cmd
		var closed bool
		m.modal, cmd, closed = m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.renderModal()
	}
	if m.inspector != nil {
		return m.renderInspector()
	}
	return m.renderMain()
}

// activeScope is the scope that receives semantic shortcuts. The card
// inspector shares the cards scope so arrows step through the deck.
func (m Model) activeScope() shortcuts.Scope {
	if m.inspector != nil {
		if m.inspector.editing {
			return ""
		}
		return shortcuts.ScopeCards
	}
	return m.currentView.scope()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) && msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		var cmd tea.Cmd
		var closed bool
		m.modal, cmd, closed = m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		}
		return m, cmd
	}

	if m.inspector != nil {
		return m.handleInspectorKey(msg)
	}

	if cmd, ok := m.dispatcher.Dispatch(m.activeScope(), msg); ok {
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		return m, m.savePrefs()

	case key.Matches(msg, m.keys.ToggleText):
		m.prefs.PlainText = !m.prefs.PlainText
		m.md.plain = m.prefs.PlainText
		return m, m.savePrefs()

	case key.Matches(msg, m.keys.Retry):
		m.refetchView()
		return m, m.setFlash("Reloading "+strings.ToLower(m.currentView.String()), false)

	case key.Matches(msg, m.keys.Tab):
		return m.switchView(m.cycleView(1))

	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView(m.cycleView(-1))

	case key.Matches(msg, m.keys.ViewReview):
		return m.switchView(ViewReview)
	case key.Matches(msg, m.keys.ViewDecks):
		return m.switchView(ViewDecks)
	case key.Matches(msg, m.keys.ViewCards):
		return m.switchView(ViewCards)
	case key.Matches(msg, m.keys.ViewProfile):
		return m.switchView(ViewProfile)
	}

	switch m.currentView {
	case ViewDecks:
		return m.handleDecksKey(msg)
	case ViewCards:
		return m.handleCardsKey(msg)
	case ViewProfile:
		return m.handleProfileKey(msg)
	}
	return m, nil
}

func (m Model) cycleView(step int) View {
	for i, v := range viewOrder {
		if v == m.currentView {
			return viewOrder[(i+step+len(viewOrder))%len(viewOrder)]
		}
	}
	return ViewReview
}

// switchView mounts next before releasing the current view, so data both
// views show stays subscribed across the switch.
func (m Model) switchView(next View) (tea.Model, tea.Cmd) {
	if next == m.currentView {
		return m, nil
	}
	prev := m.currentView
	m.currentView = next
	cmd := m.mount(next)
	m.unmount(prev, next)
	return m, cmd
}

// mount registers the view's shortcut handlers and subscribes to its data.
func (m *Model) mount(v View) tea.Cmd {
	scope := v.scope()
	handlers := map[shortcuts.Action]shortcuts.Handler{}
	for _, b := range m.dispatcher.Table().ForScope(scope) {
		handlers[b.Action] = emitAction(scope, b.Action)
	}
	if err := m.dispatcher.RegisterAll(scope, handlers); err != nil {
		m.logger.Error("register shortcuts", zap.String("scope", string(scope)), zap.Error(err))
	}

	switch v {
	case ViewReview:
		m.review.nav.Clamp()
		m.syncReviewCard()
		return nil
	case ViewDecks:
		return tea.Batch(m.watchDecks(), m.syncDeckStats())
	case ViewCards:
		if m.cards.deckID == "" {
			m.unwatch(slotDecks)
			return nil
		}
		cardsKey, cardsFetch := queries.DeckCards(m.api, m.cards.deckID)
		decksKey, decksFetch := queries.Decks(m.api)
		return tea.Batch(
			m.watch(slotCards, cardsKey, cardsFetch),
			m.watch(slotDecks, decksKey, decksFetch),
			m.syncCardReviews(),
		)
	case ViewProfile:
		k, fetch := queries.Stats(m.api)
		return m.watch(slotStats, k, fetch)
	}
	return nil
}

// slots lists the subscriptions a view owns. The due queue and the user
// are watched for the lifetime of the model.
func (v View) slots() []string {
	switch v {
	case ViewDecks:
		return []string{slotDecks, slotDeckStats}
	case ViewCards:
		return []string{slotCards, slotDecks, slotReviews}
	case ViewProfile:
		return []string{slotStats}
	}
	return nil
}

// unmount drops the handlers of v and the subscriptions next does not share.
func (m *Model) unmount(v, next View) {
	m.dispatcher.UnregisterAll(v.scope())
	keep := next.slots()
	for _, slot := range v.slots() {
		if !slices.Contains(keep, slot) {
			m.unwatch(slot)
		}
	}
}

// refetchView reloads everything the current view shows.
func (m *Model) refetchView() {
	for slot, sub := range m.subs {
		if slot == slotUser {
			continue
		}
		sub.Refetch()
	}
}

// onCacheUpdate reacts to a changed entry: cursors are clamped and the
// dependent subscriptions follow the highlighted item.
func (m *Model) onCacheUpdate(slot string) tea.Cmd {
	switch slot {
	case slotDue:
		m.review.nav.Clamp()
		m.syncReviewCard()
	case slotUser:
		if entry, ok := m.entry(slotUser); ok && entry.Ready() {
			if user, ok := query.Value[*repeater.User](entry); ok && user != nil {
				m.store.SetUser(user)
				m.signedIn = true
			}
		} else if ok && errors.Is(entry.Err, repeater.ErrUnauthorized) {
			m.store.SetUser(nil)
			m.signedIn = false
		}
	case slotDecks:
		if m.currentView == ViewDecks {
			m.decks.nav.Clamp()
			return m.syncDeckStats()
		}
		m.syncDeckName()
	case slotCards:
		if m.cards.nav != nil {
			m.cards.nav.Clamp()
		}
		if m.inspector != nil && !m.inspector.editing {
			if m.cards.nav == nil || m.cards.nav.Len() == 0 {
				m.inspector = nil
			}
		}
		return m.syncCardReviews()
	case slotCats:
		if form, ok := m.modal.(*deckForm); ok {
			if entry, ok := m.entry(slotCats); ok && entry.Ready() {
				cats, _ := query.Value[[]repeater.Category](entry)
				form.setCategories(cats)
			}
		}
	}
	return nil
}

// handleAction runs a semantic shortcut for the active scope.
func (m Model) handleAction(action shortcuts.Action) (tea.Model, tea.Cmd) {
	switch action {
	case shortcuts.ActionRevealNext, shortcuts.ActionCardOK, shortcuts.ActionCardForgot, shortcuts.ActionCardSkip:
		return m.reviewAction(action)
	case shortcuts.ActionDeckPrev:
		return m, m.moveDeck(m.decks.nav.Prev)
	case shortcuts.ActionDeckNext:
		return m, m.moveDeck(m.decks.nav.Next)
	case shortcuts.ActionCardPrev:
		return m, m.moveCard(func() bool { return m.cards.nav.Prev() })
	case shortcuts.ActionCardNext:
		return m, m.moveCard(func() bool { return m.cards.nav.Next() })
	}
	return m, nil
}

// runMutation sends op through the coordinator off the UI loop.
func (m Model) runMutation(op mutation.Operation, origin string) tea.Cmd {
	ctx := m.ctx
	coord := m.mutations
	return func() tea.Msg {
		return mutationMsg{result: coord.Run(ctx, op), origin: origin}
	}
}

// handleMutation routes a finished write back to the widget that started it.
func (m Model) handleMutation(msg mutationMsg) (tea.Model, tea.Cmd) {
	res := msg.result
	if res.Err != nil {
		m.logger.Warn("mutation failed", zap.String("op", res.Op.Op()), zap.String("origin", msg.origin), zap.Error(res.Err))
	}

	switch msg.origin {
	case originReview:
		return m.afterReview(res)
	case originInspector:
		if m.inspector != nil {
			if res.Err != nil {
				m.inspector.fail(res.Err)
				return m, nil
			}
			m.inspector = m.inspector.saved(res)
		}
	case originDeckForm:
		if form, ok := m.modal.(*deckForm); ok {
			if res.Err != nil {
				form.fail(res.Err)
				return m, nil
			}
			m.modal = nil
		}
	}

	if res.Err != nil {
		return m, m.setFlash(describeError(res.Err), true)
	}
	return m, m.setFlash(successMessage(res.Op), false)
}

func (m Model) savePrefs() tea.Cmd {
	path := m.prefsPath
	p := m.prefs
	return func() tea.Msg {
		return prefsSavedMsg{err: prefs.Save(path, p)}
	}
}

// successMessage is the flash shown after a write succeeds.
func successMessage(op mutation.Operation) string {
	switch o := op.(type) {
	case mutation.SubmitReview:
		return "Review recorded: " + string(o.Feedback)
	case mutation.CreateCard:
		return "Card created"
	case mutation.UpdateCard:
		return "Card saved"
	case mutation.DeleteCard:
		return "Card deleted"
	case mutation.CreateDeck:
		return "Deck created"
	case mutation.UpdateDeck:
		switch {
		case o.Patch.IsPaused != nil && *o.Patch.IsPaused:
			return "Deck paused"
		case o.Patch.IsPaused != nil:
			return "Deck resumed"
		case o.Patch.IsArchived != nil && *o.Patch.IsArchived:
			return "Deck archived"
		case o.Patch.IsArchived != nil:
			return "Deck restored"
		}
		return "Deck saved"
	case mutation.DeleteDeck:
		return "Deck deleted"
	}
	return "Saved"
}

// describeError phrases an error for the footer. Server details are shown
// verbatim.
func describeError(err error) string {
	var apiErr *repeater.APIError
	switch {
	case errors.Is(err, repeater.ErrUnauthorized):
		return "Session expired: run `repeater login`"
	case errors.Is(err, mutation.ErrInFlight):
		return "Already saving, please wait"
	case errors.As(err, &apiErr) && apiErr.Detail != "":
		return apiErr.Detail
	case errors.Is(err, context.DeadlineExceeded):
		return "Request timed out"
	}
	return err.Error()
}
