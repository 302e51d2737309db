package mutation

import (
	"strings"

	"github.com/five82/repeater/internal/repeater"
)

// DiffCard builds an UpdateCard carrying only the fields that differ from
// original. Surrounding whitespace in content is ignored.
func DiffCard(original repeater.Card, content, deckID string) UpdateCard {
	op := UpdateCard{CardID: original.ID}
	if trimmed := strings.TrimSpace(content); trimmed != strings.TrimSpace(original.Content) {
		op.Patch.Content = &trimmed
	}
	if deckID != original.DeckID {
		op.Patch.DeckID = &deckID
	}
	return op
}

// DiffDeck builds an UpdateDeck carrying only the fields that differ from original.
func DiffDeck(original repeater.Deck, name, description string) UpdateDeck {
	op := UpdateDeck{DeckID: original.ID}
	if trimmed := strings.TrimSpace(name); trimmed != original.Name {
		op.Patch.Name = &trimmed
	}
	if trimmed := strings.TrimSpace(description); trimmed != original.Description {
		op.Patch.Description = &trimmed
	}
	return op
}

// SetDeckPaused toggles whether a deck's cards are scheduled.
func SetDeckPaused(deckID string, paused bool) UpdateDeck {
	return UpdateDeck{DeckID: deckID, Patch: repeater.DeckUpdate{IsPaused: &paused}}
}

// SetDeckArchived moves a deck in or out of the archive.
func SetDeckArchived(deckID string, archived bool) UpdateDeck {
	return UpdateDeck{DeckID: deckID, Patch: repeater.DeckUpdate{IsArchived: &archived}}
}
