package activity

import (
	"time"

	"repodash/models"
)

// HeatmapRange returns spanWeeks whole weeks (Sunday through Saturday) ending
// with the week that contains now, in now's location.
func HeatmapRange(now time.Time, spanWeeks int) models.DateRange {
	if spanWeeks < 1 {
		spanWeeks = 1
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := day.AddDate(0, 0, -int(day.Weekday()))
	return models.DateRange{
		From: weekStart.AddDate(0, 0, -7*(spanWeeks-1)),
		To:   weekStart.AddDate(0, 0, 6),
	}
}

// ClipHeatmap keeps the cells inside r, in date order as received.
func ClipHeatmap(cells []models.HeatmapCell, r models.DateRange) []models.HeatmapCell {
	out := make([]models.HeatmapCell, 0, len(cells))
	for _, c := range cells {
		if c.Date.Before(r.From) || c.Date.After(r.To) {
			continue
		}
		out = append(out, c)
	}
	return out
}
