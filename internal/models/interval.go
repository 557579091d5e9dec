package models

// Interval is a half-open [Start, End) range in minutes since midnight.
type Interval struct {
	Start int `json:"startMinutes"`
	End   int `json:"endMinutes"`
}

// Overlaps uses half-open semantics: back-to-back intervals do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && other.Start < i.End
}

// Contains reports whether minute falls in [Start, End).
func (i Interval) Contains(minute int) bool {
	return minute >= i.Start && minute < i.End
}

// BlockedInterval is an interval annotated with the commitment that produced it.
type BlockedInterval struct {
	Interval
	Source   string `json:"source"` // "registration" or "task"
	SourceID string `json:"sourceId"`
}

// Slot is a fixed-width grid cell. It is never persisted.
type Slot struct {
	Time          string `json:"time"`
	TimeInMinutes int    `json:"timeInMinutes"`
	Available     bool   `json:"available"`
}
