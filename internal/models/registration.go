package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus is the admin-driven review state.
type RegistrationStatus string

const (
	StatusPending  RegistrationStatus = "pending"
	StatusApproved RegistrationStatus = "approved"
	StatusRejected RegistrationStatus = "rejected"
	StatusOnHold   RegistrationStatus = "on-hold"
)

// BlockingStatuses are the statuses that hold calendar time.
var BlockingStatuses = []RegistrationStatus{StatusPending, StatusApproved, StatusOnHold}

// IsValid reports whether s is a known status.
func (s RegistrationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusOnHold:
		return true
	}
	return false
}

// Blocks reports whether a registration in this status holds calendar time.
func (s RegistrationStatus) Blocks() bool {
	return s != StatusRejected
}

// CanTransitionTo enforces pending -> approved|rejected|on-hold and
// on-hold -> approved|rejected. Approved and rejected are terminal.
func (s RegistrationStatus) CanTransitionTo(next RegistrationStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected || next == StatusOnHold
	case StatusOnHold:
		return next == StatusApproved || next == StatusRejected
	}
	return false
}

// ScheduleKind discriminates the three registration date-shapes.
type ScheduleKind string

const (
	ScheduleKindAppointment ScheduleKind = "appointment"
	ScheduleKindVolunteer   ScheduleKind = "volunteer"
	ScheduleKindVisit       ScheduleKind = "visit"
)

// Schedule is the date-shape of a registration. Exactly one of
// AppointmentSchedule, VolunteerSchedule or VisitSchedule.
type Schedule interface {
	Kind() ScheduleKind
	// CoversDate reports whether the schedule touches the calendar date.
	CoversDate(date string) bool
	// Interval is the time-of-day window held on each covered date.
	Interval() (Interval, error)
	// Dates lists every calendar date the schedule touches.
	Dates() ([]string, error)
	isSchedule()
}

// DefaultAppointmentDuration applies when an appointment has no duration.
const DefaultAppointmentDuration = 60

type AppointmentSchedule struct {
	Date     string
	Time     string
	Duration int
}

func (AppointmentSchedule) isSchedule() {}

func (a AppointmentSchedule) Kind() ScheduleKind { return ScheduleKindAppointment }

func (a AppointmentSchedule) CoversDate(date string) bool { return a.Date == date }

func (a AppointmentSchedule) Dates() ([]string, error) { return []string{a.Date}, nil }

func (a AppointmentSchedule) Interval() (Interval, error) {
	start, err := ParseClock(a.Time)
	if err != nil {
		return Interval{}, err
	}
	duration := a.Duration
	if duration <= 0 {
		duration = DefaultAppointmentDuration
	}
	return Interval{Start: start, End: start + duration}, nil
}

type VolunteerSchedule struct {
	StartDate string
	EndDate   string
	StartTime string
	EndTime   string
}

func (VolunteerSchedule) isSchedule() {}

func (v VolunteerSchedule) Kind() ScheduleKind { return ScheduleKindVolunteer }

func (v VolunteerSchedule) CoversDate(date string) bool {
	return v.StartDate <= date && date <= v.EndDate
}

func (v VolunteerSchedule) Dates() ([]string, error) { return DatesBetween(v.StartDate, v.EndDate) }

func (v VolunteerSchedule) Interval() (Interval, error) {
	return clockPair(v.StartTime, v.EndTime)
}

type VisitSchedule struct {
	Date      string
	StartTime string
	EndTime   string
}

func (VisitSchedule) isSchedule() {}

func (v VisitSchedule) Kind() ScheduleKind { return ScheduleKindVisit }

func (v VisitSchedule) CoversDate(date string) bool { return v.Date == date }

func (v VisitSchedule) Dates() ([]string, error) { return []string{v.Date}, nil }

func (v VisitSchedule) Interval() (Interval, error) {
	return clockPair(v.StartTime, v.EndTime)
}

func clockPair(startTime, endTime string) (Interval, error) {
	start, err := ParseClock(startTime)
	if err != nil {
		return Interval{}, err
	}
	end, err := ParseClock(endTime)
	if err != nil {
		return Interval{}, err
	}
	if start >= end {
		return Interval{}, fmt.Errorf("start time %s must be before end time %s", startTime, endTime)
	}
	return Interval{Start: start, End: end}, nil
}

type Registration struct {
	ID            string
	UserID        string
	FablabSection Section
	Status        RegistrationStatus
	// ApplicationType is fixed at creation; the applicant's current type
	// may change later.
	ApplicationType ApplicationType
	Schedule        Schedule
	Purpose         string
	Details         string
	ApprovedBy      *string
	ApprovedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// User is populated by joins; nil when not loaded.
	User *User
}

// NewRegistration creates a pending registration with a generated UUID
func NewRegistration(userID string, appType ApplicationType, section Section, schedule Schedule, purpose, details string) *Registration {
	now := time.Now()
	return &Registration{
		ID:              uuid.New().String(),
		UserID:          userID,
		FablabSection:   section,
		Status:          StatusPending,
		ApplicationType: appType,
		Schedule:        schedule,
		Purpose:         purpose,
		Details:         details,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Approve stamps the approval.
func (r *Registration) Approve(by string) {
	now := time.Now()
	r.Status = StatusApproved
	r.ApprovedBy = &by
	r.ApprovedAt = &now
	r.UpdatedAt = now
}

// registrationJSON flattens the schedule into the field names the
// registration wizard already uses.
type registrationJSON struct {
	RegistrationID      string             `json:"registrationId"`
	UserID              string             `json:"userId"`
	FablabSection       Section            `json:"fablabSection"`
	Status              RegistrationStatus `json:"status"`
	ApplicationType     ApplicationType    `json:"applicationType"`
	ScheduleKind        ScheduleKind       `json:"scheduleKind"`
	AppointmentDate     string             `json:"appointmentDate,omitempty"`
	AppointmentTime     string             `json:"appointmentTime,omitempty"`
	AppointmentDuration int                `json:"appointmentDuration,omitempty"`
	StartDate           string             `json:"startDate,omitempty"`
	EndDate             string             `json:"endDate,omitempty"`
	StartTime           string             `json:"startTime,omitempty"`
	EndTime             string             `json:"endTime,omitempty"`
	VisitDate           string             `json:"visitDate,omitempty"`
	VisitStartTime      string             `json:"visitStartTime,omitempty"`
	VisitEndTime        string             `json:"visitEndTime,omitempty"`
	Purpose             string             `json:"purpose,omitempty"`
	Details             string             `json:"details,omitempty"`
	ApprovedBy          *string            `json:"approvedBy,omitempty"`
	ApprovedAt          *time.Time         `json:"approvedAt,omitempty"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
	User                *User              `json:"user,omitempty"`
}

func (r *Registration) MarshalJSON() ([]byte, error) {
	out := registrationJSON{
		RegistrationID:  r.ID,
		UserID:          r.UserID,
		FablabSection:   r.FablabSection,
		Status:          r.Status,
		ApplicationType: r.ApplicationType,
		Purpose:         r.Purpose,
		Details:         r.Details,
		ApprovedBy:      r.ApprovedBy,
		ApprovedAt:      r.ApprovedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		User:            r.User,
	}

	switch s := r.Schedule.(type) {
	case AppointmentSchedule:
		out.ScheduleKind = s.Kind()
		out.AppointmentDate = s.Date
		out.AppointmentTime = s.Time
		out.AppointmentDuration = s.Duration
	case VolunteerSchedule:
		out.ScheduleKind = s.Kind()
		out.StartDate = s.StartDate
		out.EndDate = s.EndDate
		out.StartTime = s.StartTime
		out.EndTime = s.EndTime
	case VisitSchedule:
		out.ScheduleKind = s.Kind()
		out.VisitDate = s.Date
		out.VisitStartTime = s.StartTime
		out.VisitEndTime = s.EndTime
	}

	return json.Marshal(out)
}
