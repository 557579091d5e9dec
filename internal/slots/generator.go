package slots

import (
	"fmt"

	"github.com/fablab/fablab-registration/internal/models"
)

// DefaultStepMinutes is the width of a public booking slot.
const DefaultStepMinutes = 30

// Generate emits one slot every stepMinutes from startTime (inclusive) up
// to endTime (exclusive). All slots start out available. A window with
// startTime >= endTime yields no slots; windows never wrap past midnight.
func Generate(startTime, endTime string, stepMinutes int) ([]models.Slot, error) {
	if stepMinutes <= 0 {
		stepMinutes = DefaultStepMinutes
	}

	start, err := models.ParseClock(startTime)
	if err != nil {
		return nil, fmt.Errorf("parse start time: %w", err)
	}
	end, err := models.ParseClock(endTime)
	if err != nil {
		return nil, fmt.Errorf("parse end time: %w", err)
	}

	if start >= end {
		return []models.Slot{}, nil
	}

	grid := make([]models.Slot, 0, (end-start+stepMinutes-1)/stepMinutes)
	for minute := start; minute < end; minute += stepMinutes {
		grid = append(grid, models.Slot{
			Time:          models.FormatClock(minute),
			TimeInMinutes: minute,
			Available:     true,
		})
	}
	return grid, nil
}

// MarkBlocked flags every slot whose start minute falls inside any blocked
// interval as unavailable. The grid is modified in place and returned.
func MarkBlocked(grid []models.Slot, blocked []models.Interval) []models.Slot {
	for i := range grid {
		for _, b := range blocked {
			if b.Contains(grid[i].TimeInMinutes) {
				grid[i].Available = false
				break
			}
		}
	}
	return grid
}

// Available returns only the slots still marked available.
func Available(grid []models.Slot) []models.Slot {
	available := make([]models.Slot, 0, len(grid))
	for _, s := range grid {
		if s.Available {
			available = append(available, s)
		}
	}
	return available
}

// OverlapsAny reports whether candidate overlaps any interval using
// half-open semantics.
func OverlapsAny(candidate models.Interval, blocked []models.Interval) bool {
	for _, b := range blocked {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}
