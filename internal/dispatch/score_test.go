package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cotai/tendersearch/internal/provider"
)

func TestScore(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	deadline := func(days int) *time.Time {
		d := now.AddDate(0, 0, days)
		return &d
	}

	tests := []struct {
		name   string
		tender provider.Tender
		query  string
		want   float64
	}{
		{
			name:   "base score only",
			tender: provider.Tender{Source: "siconv"},
			query:  "ponte",
			want:   50,
		},
		{
			name: "title match is diacritic insensitive",
			tender: provider.Tender{
				Source: "siconv",
				Title:  "Aquisição de equipamentos de informática",
			},
			query: "INFORMATICA",
			want:  70,
		},
		{
			name: "description match",
			tender: provider.Tender{
				Source:      "siconv",
				Description: "construção de ponte sobre o rio",
			},
			query: "ponte",
			want:  65,
		},
		{
			name:   "high value tier",
			tender: provider.Tender{Source: "siconv", EstimatedValue: 2_000_000},
			query:  "ponte",
			want:   60,
		},
		{
			name:   "mid value tier",
			tender: provider.Tender{Source: "siconv", EstimatedValue: 150_000},
			query:  "ponte",
			want:   55,
		},
		{
			name:   "deadline within a week",
			tender: provider.Tender{Source: "siconv", Deadline: deadline(3)},
			query:  "ponte",
			want:   65,
		},
		{
			name:   "deadline within a month",
			tender: provider.Tender{Source: "siconv", Deadline: deadline(20)},
			query:  "ponte",
			want:   60,
		},
		{
			name:   "deadline within two months",
			tender: provider.Tender{Source: "siconv", Deadline: deadline(45)},
			query:  "ponte",
			want:   55,
		},
		{
			name:   "expired deadline earns nothing",
			tender: provider.Tender{Source: "siconv", Deadline: deadline(-1)},
			query:  "ponte",
			want:   50,
		},
		{
			name:   "open status",
			tender: provider.Tender{Source: "siconv", Status: "Aberto"},
			query:  "ponte",
			want:   60,
		},
		{
			name:   "pncp source bonus",
			tender: provider.Tender{Source: "pncp"},
			query:  "ponte",
			want:   55,
		},
		{
			name:   "comprasnet source bonus",
			tender: provider.Tender{Source: "comprasnet"},
			query:  "ponte",
			want:   53,
		},
		{
			name: "everything caps at 100",
			tender: provider.Tender{
				Source:         "pncp",
				Title:          "Ponte nova",
				Description:    "Construção de ponte",
				EstimatedValue: 5_000_000,
				Deadline:       deadline(2),
				Status:         "aberto",
			},
			query: "ponte",
			want:  100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(&tt.tender, tt.query, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScore_EmptyQuery(t *testing.T) {
	now := time.Now()
	tender := provider.Tender{Source: "siconv", Title: "qualquer coisa"}
	assert.Equal(t, 50.0, Score(&tender, "", now))
	assert.Equal(t, 50.0, Score(&tender, "   ", now))
}
