package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchFilters(t *testing.T) {
	searchState = "PR"
	searchStartDate = "2025-06-01"
	searchMinValue = 1000
	searchModality, searchEndDate, searchMaxValue = "", "", 0
	t.Cleanup(func() {
		searchState, searchStartDate, searchMinValue = "", "", 0
	})

	filters := searchFilters()
	assert.Equal(t, "PR", filters["state"])
	assert.Equal(t, "2025-06-01", filters["start_date"])
	assert.Equal(t, 1000.0, filters["min_value"])
	assert.NotContains(t, filters, "modality")
	assert.NotContains(t, filters, "max_value")
}

func TestTransferFilters(t *testing.T) {
	transferState = "SP"
	transferMinistry = "26000"
	transferMaxValue = 50000
	transferCity, transferStartDate, transferEndDate, transferMinValue = "", "", "", 0
	t.Cleanup(func() {
		transferState, transferMinistry, transferMaxValue = "", "", 0
	})

	filters := transferFilters()
	assert.Equal(t, "SP", filters["state"])
	assert.Equal(t, "26000", filters["ministry_code"])
	assert.Equal(t, 50000.0, filters["max_value"])
	assert.NotContains(t, filters, "municipality_code")
}
