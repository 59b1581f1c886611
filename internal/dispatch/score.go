package dispatch

import (
	"strings"
	"time"

	"github.com/cotai/tendersearch/internal/category"
	"github.com/cotai/tendersearch/internal/provider"
)

const (
	baseScore = 50.0
	maxScore  = 100.0
)

// sourceBonus rewards sources whose records are historically more complete.
var sourceBonus = map[string]float64{
	"pncp":       5,
	"comprasnet": 3,
}

// openStatuses are the raw status spellings that mean a tender still
// accepts proposals.
var openStatuses = []string{"open", "aberto", "aberta", "publicado", "publicada"}

// Score rates a tender's relevance to the query on a 0-100 scale. Matching
// is diacritic-insensitive so "informática" finds "informatica". now anchors
// the deadline-urgency bonus.
func Score(t *provider.Tender, query string, now time.Time) float64 {
	score := baseScore

	q := category.Fold(strings.TrimSpace(query))
	if q != "" {
		if strings.Contains(category.Fold(t.Title), q) {
			score += 20
		}
		if strings.Contains(category.Fold(t.Description), q) {
			score += 15
		}
	}

	switch {
	case t.EstimatedValue > 1_000_000:
		score += 10
	case t.EstimatedValue > 100_000:
		score += 5
	}

	if t.Deadline != nil && t.Deadline.After(now) {
		switch days := t.Deadline.Sub(now); {
		case days <= 7*24*time.Hour:
			score += 15
		case days <= 30*24*time.Hour:
			score += 10
		case days <= 60*24*time.Hour:
			score += 5
		}
	}

	status := category.Fold(t.Status)
	for _, open := range openStatuses {
		if status == open {
			score += 10
			break
		}
	}

	score += sourceBonus[t.Source]

	if score > maxScore {
		score = maxScore
	}
	return score
}
