package models

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationType is the kind of applicant filling the public wizard.
type ApplicationType string

const (
	ApplicationBeneficiary ApplicationType = "Beneficiary"
	ApplicationTalented    ApplicationType = "Talented"
	ApplicationVisitor     ApplicationType = "Visitor"
	ApplicationVolunteer   ApplicationType = "Volunteer"
	ApplicationFablabVisit ApplicationType = "FABLAB Visit"
)

// IsValid reports whether t is a known application type.
func (t ApplicationType) IsValid() bool {
	switch t {
	case ApplicationBeneficiary, ApplicationTalented, ApplicationVisitor, ApplicationVolunteer, ApplicationFablabVisit:
		return true
	}
	return false
}

// ScheduleKind returns the date-shape an applicant of this type submits.
func (t ApplicationType) ScheduleKind() ScheduleKind {
	switch t {
	case ApplicationVolunteer:
		return ScheduleKindVolunteer
	case ApplicationFablabVisit:
		return ScheduleKindVisit
	default:
		return ScheduleKindAppointment
	}
}

// ConsumesSlots is false for volunteers: they reserve a date range
// administratively but never take public slot capacity.
func (t ApplicationType) ConsumesSlots() bool {
	return t != ApplicationVolunteer
}

type User struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone"`
	ApplicationType ApplicationType `json:"applicationType"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// NewUser creates a new User with a generated UUID
func NewUser(name, email, phone string, applicationType ApplicationType) *User {
	return &User{
		ID:              uuid.New().String(),
		Name:            name,
		Email:           email,
		Phone:           phone,
		ApplicationType: applicationType,
		CreatedAt:       time.Now(),
	}
}
