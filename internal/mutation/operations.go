package mutation

import (
	"errors"
	"strings"

	"github.com/five82/repeater/internal/queries"
	"github.com/five82/repeater/internal/query"
	"github.com/five82/repeater/internal/repeater"
)

// Validation messages shown inline in the inspectors.
const (
	msgCardContents = "Card must have contents"
	msgCardDeck     = "Card must have a parent deck"
	msgDeckName     = "Deck must have a name"
)

// Operation is one write against the API. The set of variants is closed.
type Operation interface {
	// Op identifies the operation in logs and errors.
	Op() string
	// InFlightKey names the logical operation; two operations with the same
	// key may not run concurrently.
	InFlightKey() string
	// Validate rejects payloads that must not reach the network.
	Validate() error
	// AffectedKeys are invalidated after the write succeeds.
	AffectedKeys() []query.Key

	operation()
}

// CreateCard adds a card to a deck.
type CreateCard struct {
	DeckID  string
	Content string
}

// UpdateCard applies a partial update. Only non-nil Patch fields are sent.
type UpdateCard struct {
	CardID string
	Patch  repeater.CardUpdate
}

// DeleteCard removes a card.
type DeleteCard struct {
	CardID string
}

// CreateDeck adds a deck.
type CreateDeck struct {
	Name        string
	Description string
	CategoryID  string
}

// UpdateDeck applies a partial update. Only non-nil Patch fields are sent.
type UpdateDeck struct {
	DeckID string
	Patch  repeater.DeckUpdate
}

// DeleteDeck removes a deck and its cards.
type DeleteDeck struct {
	DeckID string
}

// SubmitReview records the outcome of reviewing a card.
type SubmitReview struct {
	CardID   string
	Feedback repeater.Feedback
}

func (CreateCard) operation()   {}
func (UpdateCard) operation()   {}
func (DeleteCard) operation()   {}
func (CreateDeck) operation()   {}
func (UpdateDeck) operation()   {}
func (DeleteDeck) operation()   {}
func (SubmitReview) operation() {}

func (CreateCard) Op() string   { return "create card" }
func (UpdateCard) Op() string   { return "update card" }
func (DeleteCard) Op() string   { return "delete card" }
func (CreateDeck) Op() string   { return "create deck" }
func (UpdateDeck) Op() string   { return "update deck" }
func (DeleteDeck) Op() string   { return "delete deck" }
func (SubmitReview) Op() string { return "submit review" }

// Creating the same content twice is rejected while the first is pending.
func (o CreateCard) InFlightKey() string {
	return "card:create:" + o.DeckID + ":" + strings.TrimSpace(o.Content)
}
func (o UpdateCard) InFlightKey() string   { return "card:update:" + o.CardID }
func (o DeleteCard) InFlightKey() string   { return "card:delete:" + o.CardID }
func (o CreateDeck) InFlightKey() string   { return "deck:create:" + strings.TrimSpace(o.Name) }
func (o UpdateDeck) InFlightKey() string   { return "deck:update:" + o.DeckID }
func (o DeleteDeck) InFlightKey() string   { return "deck:delete:" + o.DeckID }
func (o SubmitReview) InFlightKey() string { return "review:" + o.CardID }

func (o CreateCard) Validate() error {
	var errs []error
	if blank(o.Content) {
		errs = append(errs, &ValidationError{Field: "content", Message: msgCardContents})
	}
	if blank(o.DeckID) {
		errs = append(errs, &ValidationError{Field: "deck_id", Message: msgCardDeck})
	}
	return errors.Join(errs...)
}

func (o UpdateCard) Validate() error {
	if blank(o.CardID) {
		return requiredID("card")
	}
	if o.Patch.Empty() {
		return ErrNothingToUpdate
	}
	var errs []error
	if o.Patch.Content != nil && blank(*o.Patch.Content) {
		errs = append(errs, &ValidationError{Field: "content", Message: msgCardContents})
	}
	if o.Patch.DeckID != nil && blank(*o.Patch.DeckID) {
		errs = append(errs, &ValidationError{Field: "deck_id", Message: msgCardDeck})
	}
	return errors.Join(errs...)
}

func (o DeleteCard) Validate() error {
	if blank(o.CardID) {
		return requiredID("card")
	}
	return nil
}

func (o CreateDeck) Validate() error {
	if blank(o.Name) {
		return &ValidationError{Field: "name", Message: msgDeckName}
	}
	return nil
}

func (o UpdateDeck) Validate() error {
	if blank(o.DeckID) {
		return requiredID("deck")
	}
	if o.Patch.Empty() {
		return ErrNothingToUpdate
	}
	if o.Patch.Name != nil && blank(*o.Patch.Name) {
		return &ValidationError{Field: "name", Message: msgDeckName}
	}
	return nil
}

func (o DeleteDeck) Validate() error {
	if blank(o.DeckID) {
		return requiredID("deck")
	}
	return nil
}

func (o SubmitReview) Validate() error {
	var errs []error
	if blank(o.CardID) {
		errs = append(errs, requiredID("card"))
	}
	if !o.Feedback.Valid() {
		errs = append(errs, &ValidationError{Field: "feedback", Message: "Feedback must be ok, forgot or skipped"})
	}
	return errors.Join(errs...)
}

func (o CreateCard) AffectedKeys() []query.Key {
	return []query.Key{queries.CardsKey(), queries.DeckStatsKey(o.DeckID)}
}

func (UpdateCard) AffectedKeys() []query.Key {
	return []query.Key{queries.CardsKey()}
}

func (DeleteCard) AffectedKeys() []query.Key {
	return []query.Key{queries.CardsKey()}
}

func (CreateDeck) AffectedKeys() []query.Key {
	return []query.Key{queries.DecksKey()}
}

// UpdateDeck invalidates the decks prefix, which covers the deck's own key.
func (UpdateDeck) AffectedKeys() []query.Key {
	return []query.Key{queries.DecksKey()}
}

func (DeleteDeck) AffectedKeys() []query.Key {
	return []query.Key{queries.DecksKey(), queries.CardsKey(), queries.StatsKey()}
}

func (o SubmitReview) AffectedKeys() []query.Key {
	return []query.Key{queries.CardsKey(), queries.ReviewsKey(o.CardID), queries.StatsKey()}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func requiredID(entity string) error {
	return &ValidationError{Field: "id", Message: entity + " id required"}
}
