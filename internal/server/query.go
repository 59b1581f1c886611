package server

import (
	"net/url"
	"strconv"
)

// searchFilters extracts tender filters from query parameters. Unknown and
// malformed values are dropped rather than rejected.
func searchFilters(q url.Values) map[string]any {
	filters := map[string]any{}
	for _, key := range []string{"state", "modality", "start_date", "end_date", "agency_uasg"} {
		if v := q.Get(key); v != "" {
			filters[key] = v
		}
	}
	putFloat(filters, q, "min_value")
	putFloat(filters, q, "max_value")
	return filters
}

// transferFilters extracts transfer and agreement filters.
func transferFilters(q url.Values) map[string]any {
	filters := map[string]any{}
	for _, key := range []string{"state", "municipality_code", "ministry_code", "program_code", "status", "start_date", "end_date"} {
		if v := q.Get(key); v != "" {
			filters[key] = v
		}
	}
	putFloat(filters, q, "min_value")
	putFloat(filters, q, "max_value")
	return filters
}

func putFloat(filters map[string]any, q url.Values, key string) {
	raw := q.Get(key)
	if raw == "" {
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return
	}
	filters[key] = v
}
