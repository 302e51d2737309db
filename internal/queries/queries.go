// Package queries names every remote collection the client reads and binds
// each key to the API call that loads it.
//
// Keys are hierarchical so invalidating a prefix reaches every filtered
// variant: CardsKey() covers DueCardsKey() and DeckCardsKey(id).
package queries

import (
	"context"

	"github.com/five82/repeater/internal/query"
	"github.com/five82/repeater/internal/repeater"
)

const (
	entityDecks      = "decks"
	entityCards      = "cards"
	entityReviews    = "reviews"
	entityStats      = "stats"
	entityCategories = "categories"
	entityUser       = "me"
)

func DecksKey() query.Key         { return query.NewKey(entityDecks) }
func ArchivedDecksKey() query.Key { return query.NewKey(entityDecks, "archived") }
func DeckKey(deckID string) query.Key {
	return query.NewKey(entityDecks, "id="+deckID)
}

func CardsKey() query.Key    { return query.NewKey(entityCards) }
func DueCardsKey() query.Key { return query.NewKey(entityCards, "due") }
func DeckCardsKey(deckID string) query.Key {
	return query.NewKey(entityCards, "deck="+deckID)
}

// ReviewsKey is the review history of one card.
func ReviewsKey(cardID string) query.Key { return query.NewKey(entityReviews, cardID) }

func StatsKey() query.Key                  { return query.NewKey(entityStats) }
func DeckStatsKey(deckID string) query.Key { return query.NewKey(entityStats, deckID) }

func CategoriesKey() query.Key { return query.NewKey(entityCategories) }
func UserKey() query.Key       { return query.NewKey(entityUser) }

// Decks loads active decks.
func Decks(api repeater.Reader) (query.Key, query.FetchFunc) {
	return DecksKey(), query.Fetcher(func(ctx context.Context) ([]repeater.Deck, error) {
		return api.ListDecks(ctx, repeater.DeckFilter{})
	})
}

// ArchivedDecks loads archived decks.
func ArchivedDecks(api repeater.Reader) (query.Key, query.FetchFunc) {
	return ArchivedDecksKey(), query.Fetcher(func(ctx context.Context) ([]repeater.Deck, error) {
		return api.ListDecks(ctx, repeater.DeckFilter{Archived: true})
	})
}

// Deck loads a single deck.
func Deck(api repeater.Reader, deckID string) (query.Key, query.FetchFunc) {
	return DeckKey(deckID), query.Fetcher(func(ctx context.Context) (*repeater.Deck, error) {
		return api.GetDeck(ctx, deckID)
	})
}

// DueCards loads the review queue across all active decks.
func DueCards(api repeater.Reader) (query.Key, query.FetchFunc) {
	return DueCardsKey(), query.Fetcher(func(ctx context.Context) ([]repeater.Card, error) {
		return api.ListCards(ctx, repeater.CardFilter{
			OnlyDue:         true,
			ExcludeArchived: true,
			ExcludePaused:   true,
		})
	})
}

// DeckCards loads every card of a deck.
func DeckCards(api repeater.Reader, deckID string) (query.Key, query.FetchFunc) {
	return DeckCardsKey(deckID), query.Fetcher(func(ctx context.Context) ([]repeater.Card, error) {
		return api.ListCards(ctx, repeater.CardFilter{DeckID: deckID})
	})
}

// Reviews loads a card's review history.
func Reviews(api repeater.Reader, cardID string) (query.Key, query.FetchFunc) {
	return ReviewsKey(cardID), query.Fetcher(func(ctx context.Context) ([]repeater.Review, error) {
		return api.ReviewHistory(ctx, cardID)
	})
}

// Stats loads statistics across all decks.
func Stats(api repeater.Reader) (query.Key, query.FetchFunc) {
	return StatsKey(), query.Fetcher(func(ctx context.Context) (*repeater.Statistics, error) {
		return api.UserStatistics(ctx)
	})
}

// DeckStats loads statistics for one deck.
func DeckStats(api repeater.Reader, deckID string) (query.Key, query.FetchFunc) {
	return DeckStatsKey(deckID), query.Fetcher(func(ctx context.Context) (*repeater.Statistics, error) {
		return api.DeckStatistics(ctx, deckID)
	})
}

// Categories loads the user's categories.
func Categories(api repeater.Reader) (query.Key, query.FetchFunc) {
	return CategoriesKey(), query.Fetcher(func(ctx context.Context) ([]repeater.Category, error) {
		return api.ListCategories(ctx)
	})
}

// User loads the signed-in user.
func User(api repeater.Reader) (query.Key, query.FetchFunc) {
	return UserKey(), query.Fetcher(func(ctx context.Context) (*repeater.User, error) {
		return api.Me(ctx)
	})
}
