package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"repodash/models"
)

func TestHeatmapRange(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		weeks    int
		wantFrom time.Time
		wantTo   time.Time
	}{
		{
			name:     "saturday",
			now:      time.Date(2026, 10, 17, 15, 4, 5, 0, time.UTC),
			weeks:    1,
			wantFrom: time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "sunday with span",
			now:      time.Date(2026, 10, 18, 0, 30, 0, 0, time.UTC),
			weeks:    3,
			wantFrom: time.Date(2026, 10, 4, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "non-positive span means one week",
			now:      time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC),
			weeks:    0,
			wantFrom: time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := HeatmapRange(tt.now, tt.weeks)
			assert.Equal(t, tt.wantFrom, r.From)
			assert.Equal(t, tt.wantTo, r.To)
			assert.Equal(t, time.Sunday, r.From.Weekday())
			assert.Equal(t, time.Saturday, r.To.Weekday())
		})
	}
}

func TestClipHeatmap(t *testing.T) {
	r := models.DateRange{
		From: time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
	}
	cells := []models.HeatmapCell{
		{Date: time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC), Count: 1},
		{Date: time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC), Count: 2},
		{Date: time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), Count: 3},
		{Date: time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), Count: 4},
	}
	got := ClipHeatmap(cells, r)
	assert.Equal(t, []models.HeatmapCell{cells[1], cells[2]}, got)
}
