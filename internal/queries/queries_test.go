package queries

import (
	"testing"

	"github.com/five82/repeater/internal/query"
)

func TestKeyHierarchy(t *testing.T) {
	tests := []struct {
		name   string
		key    query.Key
		prefix query.Key
		want   bool
	}{
		{"due under cards", DueCardsKey(), CardsKey(), true},
		{"deck cards under cards", DeckCardsKey("d1"), CardsKey(), true},
		{"deck under decks", DeckKey("d1"), DecksKey(), true},
		{"archived under decks", ArchivedDecksKey(), DecksKey(), true},
		{"deck stats under stats", DeckStatsKey("d1"), StatsKey(), true},
		{"reviews not under cards", ReviewsKey("c1"), CardsKey(), false},
		{"other deck", DeckCardsKey("d2"), DeckCardsKey("d1"), false},
		{"user is standalone", UserKey(), DecksKey(), false},
	}
	for _, tt := range tests {
		if got := tt.key.HasPrefix(tt.prefix); got != tt.want {
			t.Fatalf("%s: %s.HasPrefix(%s) = %v, want %v", tt.name, tt.key, tt.prefix, got, tt.want)
		}
	}
}

func TestDeckCardsKeyString(t *testing.T) {
	if got := DeckCardsKey("d1").String(); got != "cards|deck=d1" {
		t.Fatalf("DeckCardsKey string = %q, want cards|deck=d1", got)
	}
}
