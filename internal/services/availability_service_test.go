package services

import (
	"context"
	"testing"

	"github.com/fablab/fablab-registration/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	wednesday = "2025-07-02"
	friday    = "2025-07-04"
)

func appointment(date, clock string, duration int) models.AppointmentSchedule {
	return models.AppointmentSchedule{Date: date, Time: clock, Duration: duration}
}

func TestGetAvailableSlots(t *testing.T) {
	ctx := context.Background()

	t.Run("empty calendar yields the full default grid", func(t *testing.T) {
		env := newTestEnv(t)

		available, err := env.availability.GetAvailableSlots(ctx, models.SectionCNCLaser, wednesday)
		require.NoError(t, err)
		require.Len(t, available, 16)
		assert.Equal(t, "11:00", available[0].Time)
		assert.Equal(t, "18:30", available[15].Time)
	})

	t.Run("appointment removes the slots it covers", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedRegistration(t, models.ApplicationBeneficiary, models.SectionCNCLaser,
			appointment(wednesday, "13:00", 60), models.StatusPending)

		day, err := env.availability.GetDaySchedule(ctx, models.SectionCNCLaser, wednesday)
		require.NoError(t, err)
		available, err := env.availability.GetAvailableSlots(ctx, models.SectionCNCLaser, wednesday)
		require.NoError(t, err)

		assert.Len(t, available, 14)
		assert.NotContains(t, slotTimes(available), "13:00")
		assert.NotContains(t, slotTimes(available), "13:30")
		assert.Contains(t, slotTimes(available), "14:00")

		// Available slots are a subset of the grid; the rest fall in a blocked interval.
		assert.Len(t, day.Slots, 16)
		assert.Equal(t, len(available), day.AvailableCount)
		require.Len(t, day.Blocked, 1)
		for _, slot := range day.Slots {
			blocked := day.Blocked[0].Contains(slot.TimeInMinutes)
			assert.Equal(t, !blocked, slot.Available, slot.Time)
		}
	})

	t.Run("other sections are unaffected", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedRegistration(t, models.ApplicationBeneficiary, models.SectionCNCLaser,
			appointment(wednesday, "13:00", 60), models.StatusApproved)

		available, err := env.availability.GetAvailableSlots(ctx, models.Section3D, wednesday)
		require.NoError(t, err)
		assert.Len(t, available, 16)
	})

	t.Run("volunteer registrations never block", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedRegistration(t, models.ApplicationVolunteer, models.SectionCNCLaser,
			models.VolunteerSchedule{StartDate: wednesday, EndDate: wednesday, StartTime: "11:00", EndTime: "19:00"},
			models.StatusApproved)

		available, err := env.availability.GetAvailableSlots(ctx, models.SectionCNCLaser, wednesday)
		require.NoError(t, err)
		assert.Len(t, available, 16)
	})

	t.Run("rejected registrations never block", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedRegistration(t, models.ApplicationBeneficiary, models.SectionCNCLaser,
			appointment(wednesday, "13:00", 60), models.StatusRejected)

		available, err := env.availability.GetAvailableSlots(ctx, models.SectionCNCLaser, wednesday)
		require.NoError(t, err)
		assert.Len(t, available, 16)
	})

	t.Run("on-hold visits block their window", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedRegistration(t, models.ApplicationFablabVisit, models.SectionCNCLaser,
			models.VisitSchedule{Date: wednesday, StartTime: "11:00", EndTime: "12:00"}, models.StatusOnHold)

		available, err := env.availability.GetAvailableSlots(ctx, models.SectionCNCLaser, wednesday)
		require.NoError(t, err)
		assert.Len(t, available, 14)
		assert.Equal(t, "12:00", available[0].Time)
	})

	t.Run("non-working day yields no slots", func(t *testing.T) {
		env := newTestEnv(t)

		day, err := env.availability.GetDaySchedule(ctx, models.SectionCNCLaser, friday)
		require.NoError(t, err)
		assert.False(t, day.IsWorkingDay)
		assert.Empty(t, day.Slots)
	})

	t.Run("deactivated section yields no slots", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.sections.Deactivate(ctx, DeactivateInput{
			Section:   models.SectionCNCWood,
			StartDate: "2025-07-01",
			EndDate:   "2025-07-10",
			ReasonEn:  "Maintenance",
			ReasonAr:  "صيانة",
		}, "admin-1")
		require.NoError(t, err)

		available, err := env.availability.GetAvailableSlots(ctx, models.SectionCNCWood, wednesday)
		require.NoError(t, err)
		assert.Empty(t, available)

		day, err := env.availability.GetDaySchedule(ctx, models.SectionCNCWood, wednesday)
		require.NoError(t, err)
		require.NotNil(t, day.Deactivation)
		assert.Equal(t, "Maintenance", day.Deactivation.ReasonEn)
		assert.Len(t, day.Slots, 16)

		available, err = env.availability.GetAvailableSlots(ctx, models.SectionCNCWood, "2025-07-13")
		require.NoError(t, err)
		assert.Len(t, available, 16)
	})

	t.Run("open task with a window blocks, completed task does not", func(t *testing.T) {
		env := newTestEnv(t)
		task := env.seedTask(t, models.SectionRobotics, wednesday, "14:00", "15:00", models.TaskStatusInProgress)

		available, err := env.availability.GetAvailableSlots(ctx, models.SectionRobotics, wednesday)
		require.NoError(t, err)
		assert.Len(t, available, 14)
		assert.NotContains(t, slotTimes(available), "14:00")
		assert.NotContains(t, slotTimes(available), "14:30")

		_, err = env.tasks.UpdateStatus(ctx, task.ID, models.TaskStatusCompleted)
		require.NoError(t, err)

		available, err = env.availability.GetAvailableSlots(ctx, models.SectionRobotics, wednesday)
		require.NoError(t, err)
		assert.Len(t, available, 16)
	})

	t.Run("task without a time window does not block", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedTask(t, models.SectionRobotics, wednesday, "14:00", "", models.TaskStatusPending)

		available, err := env.availability.GetAvailableSlots(ctx, models.SectionRobotics, wednesday)
		require.NoError(t, err)
		assert.Len(t, available, 16)
	})

	t.Run("invalid input", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.availability.GetAvailableSlots(ctx, models.Section("Pottery"), wednesday)
		appErr := requireKind(t, err, KindValidation)
		assert.Equal(t, "INVALID_SECTION", appErr.Code)

		_, err = env.availability.GetAvailableSlots(ctx, models.SectionCNCLaser, "2025-13-40")
		appErr = requireKind(t, err, KindValidation)
		assert.Equal(t, "INVALID_DATE", appErr.Code)
	})
}

func TestIsSlotAvailable(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	booked := env.seedRegistration(t, models.ApplicationTalented, models.SectionElectronics,
		appointment(wednesday, "09:00", 60), models.StatusApproved)

	cases := []struct {
		name      string
		start     string
		end       string
		excludeID string
		want      bool
	}{
		{name: "back to back", start: "10:00", end: "11:00", want: true},
		{name: "ends where booking starts", start: "08:00", end: "09:00", want: true},
		{name: "partial overlap", start: "09:30", end: "10:30", want: false},
		{name: "contained", start: "09:15", end: "09:45", want: false},
		{name: "containing", start: "08:00", end: "12:00", want: false},
		{name: "excluded registration", start: "09:30", end: "10:30", excludeID: booked.ID, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := env.availability.IsSlotAvailable(ctx, models.SectionElectronics, wednesday, tc.start, tc.end, tc.excludeID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}

	t.Run("start must precede end", func(t *testing.T) {
		_, err := env.availability.IsSlotAvailable(ctx, models.SectionElectronics, wednesday, "10:00", "10:00", "")
		requireKind(t, err, KindValidation)
	})

	t.Run("malformed clock", func(t *testing.T) {
		_, err := env.availability.IsSlotAvailable(ctx, models.SectionElectronics, wednesday, "9:00", "10:00", "")
		requireKind(t, err, KindValidation)
	})
}

func TestCheckSlotReasons(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedRegistration(t, models.ApplicationBeneficiary, models.SectionVinyl,
		appointment(wednesday, "12:00", 90), models.StatusPending)

	check, err := CheckSlot(ctx, env.db, models.SectionVinyl, wednesday, models.Interval{Start: 13 * 60, End: 14 * 60}, "")
	require.NoError(t, err)
	assert.False(t, check.Available)
	assert.Equal(t, ConflictReasonOverlap, check.Reason)
	require.Len(t, check.Conflicts, 1)
	assert.Equal(t, SourceRegistration, check.Conflicts[0].Source)

	_, err = env.sections.Deactivate(ctx, DeactivateInput{
		Section: models.SectionVinyl, StartDate: wednesday, EndDate: wednesday, ReasonEn: "Inventory",
	}, "admin-1")
	require.NoError(t, err)

	check, err = CheckSlot(ctx, env.db, models.SectionVinyl, wednesday, models.Interval{Start: 15 * 60, End: 16 * 60}, "")
	require.NoError(t, err)
	assert.False(t, check.Available)
	assert.Equal(t, ConflictReasonDeactivated, check.Reason)
	require.NotNil(t, check.Deactivation)
}
