package repeater

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// sideSeparator splits card content into its front and back sides.
const sideSeparator = "---"

const backendTimestampLayout = "2006-01-02T15:04:05.999999"

// Deck mirrors DeckOut.
type Deck struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	CategoryID  string `json:"category_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPaused    bool   `json:"is_paused"`
	IsArchived  bool   `json:"is_archived"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// ParsedCreatedAt returns the parsed CreatedAt timestamp.
func (d Deck) ParsedCreatedAt() time.Time {
	return parseTime(d.CreatedAt)
}

// DeckCreate is the POST /decks payload.
type DeckCreate struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CategoryID  string `json:"category_id,omitempty"`
}

// DeckUpdate is a partial PATCH /decks/{id} payload. Nil fields are left unchanged.
type DeckUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	CategoryID  *string `json:"category_id,omitempty"`
	IsPaused    *bool   `json:"is_paused,omitempty"`
	IsArchived  *bool   `json:"is_archived,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u DeckUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.CategoryID == nil && u.IsPaused == nil && u.IsArchived == nil
}

// DeckFilter configures GET /decks.
type DeckFilter struct {
	Archived bool
}

// Card mirrors CardOut.
type Card struct {
	ID             string `json:"id"`
	DeckID         string `json:"deck_id"`
	DeckName       string `json:"deck_name"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
	NextReviewDate string `json:"next_review_date"`
	Overdue        bool   `json:"overdue"`
}

// Sides splits the markdown content on the side separator. Content without a
// separator is a single side. Empty sides are kept so indices stay stable.
func (c Card) Sides() []string {
	parts := strings.Split(c.Content, sideSeparator)
	sides := make([]string, len(parts))
	for i, part := range parts {
		sides[i] = strings.TrimSpace(part)
	}
	return sides
}

// Front returns the first side of the card.
func (c Card) Front() string {
	return c.Sides()[0]
}

// ParsedNextReview returns the parsed next review timestamp.
func (c Card) ParsedNextReview() time.Time {
	return parseTime(c.NextReviewDate)
}

// ParsedCreatedAt returns the parsed CreatedAt timestamp.
func (c Card) ParsedCreatedAt() time.Time {
	return parseTime(c.CreatedAt)
}

// CardCreate is the POST /cards payload.
type CardCreate struct {
	DeckID  string `json:"deck_id"`
	Content string `json:"content"`
}

// CardUpdate is a partial PATCH /cards/{id} payload. Nil fields are left unchanged.
type CardUpdate struct {
	Content *string `json:"content,omitempty"`
	DeckID  *string `json:"deck_id,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u CardUpdate) Empty() bool {
	return u.Content == nil && u.DeckID == nil
}

// CardFilter configures GET /cards.
type CardFilter struct {
	DeckID          string
	OnlyDue         bool
	ExcludeArchived bool
	ExcludePaused   bool
}

// Feedback is the outcome of a single review attempt.
type Feedback string

const (
	FeedbackOK      Feedback = "ok"
	FeedbackForgot  Feedback = "forgot"
	FeedbackSkipped Feedback = "skipped"
)

// ParseFeedback validates a feedback value.
func ParseFeedback(value string) (Feedback, error) {
	switch fb := Feedback(strings.ToLower(strings.TrimSpace(value))); fb {
	case FeedbackOK, FeedbackForgot, FeedbackSkipped:
		return fb, nil
	default:
		return "", fmt.Errorf("unknown feedback %q (want ok, forgot or skipped)", value)
	}
}

// ParseID validates a deck, card or review id, which the backend issues as
// UUIDs, and returns its canonical lowercase form. kind names the entity in
// the error.
func ParseID(kind, value string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("invalid %s id %q", kind, value)
	}
	return id.String(), nil
}

// Valid reports whether the feedback is one of the known outcomes.
func (f Feedback) Valid() bool {
	_, err := ParseFeedback(string(f))
	return err == nil
}

// ReviewCreate is the POST /reviews payload.
type ReviewCreate struct {
	CardID   string   `json:"card_id"`
	Feedback Feedback `json:"feedback"`
}

// Review mirrors ReviewOut.
type Review struct {
	ID          string   `json:"id"`
	CardID      string   `json:"card_id"`
	DeckID      string   `json:"deck_id"`
	ReviewedAt  string   `json:"reviewed_at"`
	Feedback    Feedback `json:"feedback"`
	Succeeded   bool     `json:"succeeded"`
	Failed      bool     `json:"failed"`
	Interval    int      `json:"interval"`
	Repetitions int      `json:"repetitions"`
	EaseFactor  float64  `json:"ease_factor"`
}

// ParsedReviewedAt returns the parsed ReviewedAt timestamp.
func (r Review) ParsedReviewedAt() time.Time {
	return parseTime(r.ReviewedAt)
}

// Rate is a ratio in [0,1]. The backend sometimes formats rates as strings
// ("0.67"), so both encodings are accepted.
type Rate float64

// UnmarshalJSON accepts a JSON number or a numeric string.
func (r *Rate) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		*r = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*r = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("parse rate %q: %w", raw, err)
	}
	*r = Rate(v)
	return nil
}

// Percent returns the rate scaled to 0-100.
func (r Rate) Percent() float64 {
	return float64(r) * 100
}

// DeckStatistics mirrors the per-deck statistics block.
type DeckStatistics struct {
	DeckID            string `json:"deck_id"`
	DeckName          string `json:"deck_name"`
	RetentionRate     Rate   `json:"retention_rate"`
	TotalReviews      int    `json:"total_reviews"`
	LastStudied       string `json:"last_studied"`
	DifficultyRanking string `json:"difficulty_ranking"`
}

// Statistics mirrors StatisticsOut for the user or a single deck.
type Statistics struct {
	Streak         int              `json:"streak"`
	TotalReviews   int              `json:"total_reviews"`
	SuccessRate    Rate             `json:"success_rate"`
	RetentionRate  Rate             `json:"retention_rate"`
	DailyReviews   map[string]int   `json:"daily_reviews"`
	DeckStatistics []DeckStatistics `json:"deck_statistics"`
}

// Category mirrors CategoryOut.
type Category struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ParentID    string   `json:"parent_id,omitempty"`
	IsRoot      bool     `json:"is_root"`
	Path        []string `json:"path"`
}

// User mirrors UserOut.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	AuthProvider string `json:"auth_provider"`
	CreatedAt    string `json:"created_at"`
}

// Credentials are posted to /auth/login and /auth/register.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Export is a downloaded deck file.
type Export struct {
	Filename string
	Data     []byte
}

// Tokens are the session cookies issued by the backend.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Empty reports whether no token is present.
func (t Tokens) Empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	// The backend emits naive timestamps in UTC.
	if t, err := time.ParseInLocation(backendTimestampLayout, value, time.UTC); err == nil {
		return t
	}
	if t, err := time.ParseInLocation(time.DateOnly, value, time.UTC); err == nil {
		return t
	}
	return time.Time{}
}
