// Package stats turns backend statistics into display-ready values.
package stats

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/five82/repeater/internal/repeater"
)

// MaxLevel is the highest heatmap intensity.
const MaxLevel = 4

// Day is one heatmap cell.
type Day struct {
	Date    time.Time
	Reviews int
	Level   int
}

// MonthLabel marks the week column where a month starts.
type MonthLabel struct {
	Week int
	Name string
}

// Heatmap is a year of daily review counts grouped into 7-day columns. The
// last column may be shorter than seven days.
type Heatmap struct {
	Weeks  [][]Day
	Months []MonthLabel
	Total  int
}

// Intensity buckets a daily review count: 0 for none, then one level per
// ten reviews, capped at MaxLevel.
func Intensity(reviews int) int {
	if reviews <= 0 {
		return 0
	}
	return min(reviews/10+1, MaxLevel)
}

// BuildHeatmap covers the year ending on today. Keys of daily are
// YYYY-MM-DD dates; unparseable keys are ignored.
func BuildHeatmap(daily map[string]int, today time.Time) Heatmap {
	end := truncateDay(today)
	start := end.AddDate(-1, 0, 0)

	var hm Heatmap
	var week []Day
	prevMonth := time.Month(0)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		count := daily[d.Format(time.DateOnly)]
		if d.Month() != prevMonth {
			prevMonth = d.Month()
			hm.Months = append(hm.Months, MonthLabel{Week: len(hm.Weeks), Name: d.Month().String()[:3]})
		}
		week = append(week, Day{Date: d, Reviews: count, Level: Intensity(count)})
		hm.Total += count
		if len(week) == 7 {
			hm.Weeks = append(hm.Weeks, week)
			week = nil
		}
	}
	if len(week) > 0 {
		hm.Weeks = append(hm.Weeks, week)
	}
	return hm
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Percent formats a rate as a whole percentage, e.g. "67%".
func Percent(r repeater.Rate) string {
	return fmt.Sprintf("%d%%", int(math.Round(r.Percent())))
}

// Streak formats a day streak.
func Streak(days int) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// SortDecks orders deck statistics by review count, most reviewed first,
// then by name.
func SortDecks(decks []repeater.DeckStatistics) []repeater.DeckStatistics {
	out := append([]repeater.DeckStatistics(nil), decks...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalReviews != out[j].TotalReviews {
			return out[i].TotalReviews > out[j].TotalReviews
		}
		return out[i].DeckName < out[j].DeckName
	})
	return out
}
