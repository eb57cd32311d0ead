package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeRange_Contains(t *testing.T) {
	r := TimeRange{Start: 100, End: 200}

	assert.True(t, r.Contains(100), "start is inclusive")
	assert.True(t, r.Contains(200), "end is inclusive")
	assert.True(t, r.Contains(150))
	assert.False(t, r.Contains(99))
	assert.False(t, r.Contains(201))
}

func TestPagination_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   Pagination
		want Pagination
	}{
		{name: "zero value", in: Pagination{}, want: Pagination{Limit: DefaultPageLimit}},
		{name: "negative limit", in: Pagination{Limit: -5}, want: Pagination{Limit: DefaultPageLimit}},
		{name: "negative offset", in: Pagination{Offset: -1, Limit: 10}, want: Pagination{Limit: 10}},
		{name: "already valid", in: Pagination{Offset: 20, Limit: 50}, want: Pagination{Offset: 20, Limit: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestEventFilters_Match(t *testing.T) {
	sev := SeverityError
	event := &CapturedEvent{
		ID:          1,
		SourceApp:   "dex-aggregator",
		EventType:   "swap",
		Timestamp:   150,
		Data:        json.RawMessage(`{"pool":"AVAX-USDC"}`),
		Severity:    SeverityError,
		SourceChain: "C",
	}

	tests := []struct {
		name    string
		filters EventFilters
		want    bool
	}{
		{name: "empty filters match everything", filters: EventFilters{}, want: true},
		{name: "app match", filters: EventFilters{AppIDs: []string{"dex-aggregator"}}, want: true},
		{name: "app mismatch", filters: EventFilters{AppIDs: []string{"lending-pool"}}, want: false},
		{name: "event type match", filters: EventFilters{EventTypes: []string{"swap", "mint"}}, want: true},
		{name: "event type mismatch", filters: EventFilters{EventTypes: []string{"mint"}}, want: false},
		{name: "time range match", filters: EventFilters{TimeRange: &TimeRange{Start: 100, End: 200}}, want: true},
		{name: "time range mismatch", filters: EventFilters{TimeRange: &TimeRange{Start: 300, End: 400}}, want: false},
		{name: "severity match", filters: EventFilters{Severity: &sev}, want: true},
		{name: "search text case-insensitive", filters: EventFilters{SearchText: "avax-usdc"}, want: true},
		{name: "search text mismatch", filters: EventFilters{SearchText: "btc"}, want: false},
		{
			name: "all filters together",
			filters: EventFilters{
				AppIDs:     []string{"dex-aggregator"},
				EventTypes: []string{"swap"},
				TimeRange:  &TimeRange{Start: 100, End: 200},
				Severity:   &sev,
				SearchText: "pool",
			},
			want: true,
		},
		{
			name: "one failing filter rejects",
			filters: EventFilters{
				AppIDs:    []string{"dex-aggregator"},
				TimeRange: &TimeRange{Start: 0, End: 10},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filters.Match(event))
		})
	}
}
