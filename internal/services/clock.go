package services

import (
	"time"

	"github.com/fablab/fablab-registration/internal/models"
)

// Clock supplies the current instant. Tests pin it.
type Clock func() time.Time

// Calendar derives local calendar dates from a clock.
type Calendar struct {
	now Clock
	loc *time.Location
}

func NewCalendar(now Clock, loc *time.Location) Calendar {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return Calendar{now: now, loc: loc}
}

// Today is the wall-clock date in the calendar's location as YYYY-MM-DD.
func (c Calendar) Today() string {
	return models.LocalDate(c.now(), c.loc)
}

// Now is the current instant.
func (c Calendar) Now() time.Time {
	return c.now()
}
