package models

import (
	"time"

	"github.com/google/uuid"
)

// SectionAvailability is a deactivation window: while active and covering
// a date, the whole section is closed for new bookings on that date.
type SectionAvailability struct {
	ID            string     `json:"id"`
	Section       Section    `json:"section"`
	StartDate     string     `json:"startDate"`
	EndDate       string     `json:"endDate"`
	ReasonEn      string     `json:"reasonEn"`
	ReasonAr      string     `json:"reasonAr"`
	IsActive      bool       `json:"isActive"`
	CreatedBy     string     `json:"createdBy"`
	CreatedAt     time.Time  `json:"createdAt"`
	ReactivatedAt *time.Time `json:"reactivatedAt,omitempty"`
	ReactivatedBy *string    `json:"reactivatedBy,omitempty"`
}

// NewSectionAvailability creates an active deactivation record
func NewSectionAvailability(section Section, startDate, endDate, reasonEn, reasonAr, createdBy string) *SectionAvailability {
	return &SectionAvailability{
		ID:        uuid.New().String(),
		Section:   section,
		StartDate: startDate,
		EndDate:   endDate,
		ReasonEn:  reasonEn,
		ReasonAr:  reasonAr,
		IsActive:  true,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
}

// Covers reports whether date falls inside the record's range.
func (s *SectionAvailability) Covers(date string) bool {
	return s.StartDate <= date && date <= s.EndDate
}

// OverlapsRange uses the inclusive date-range overlap test.
func (s *SectionAvailability) OverlapsRange(startDate, endDate string) bool {
	return s.StartDate <= endDate && s.EndDate >= startDate
}

// IsExpired reports whether the window ended before today.
func (s *SectionAvailability) IsExpired(today string) bool {
	return s.EndDate < today
}

// MarkReactivated clears the active flag and stamps who did it.
func (s *SectionAvailability) MarkReactivated(by string) {
	now := time.Now()
	s.IsActive = false
	s.ReactivatedAt = &now
	s.ReactivatedBy = &by
}

// SectionStatus is the public per-section view.
type SectionStatus struct {
	Section            Section              `json:"section"`
	IsAvailable        bool                 `json:"isAvailable"`
	ActiveDeactivation *SectionAvailability `json:"-"`
}
