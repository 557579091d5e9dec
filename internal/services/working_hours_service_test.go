package services

import (
	"context"
	"testing"

	"github.com/fablab/fablab-registration/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveWorkingHours(t *testing.T) {
	ctx := context.Background()

	t.Run("seeded defaults", func(t *testing.T) {
		env := newTestEnv(t)

		hours, err := env.workingHours.ResolveWorkingHours(ctx, wednesday)
		require.NoError(t, err)
		assert.Equal(t, "11:00", hours.StartTime)
		assert.Equal(t, "19:00", hours.EndTime)
		assert.Equal(t, []int{0, 1, 2, 3, 4}, hours.WorkingDays)
		assert.False(t, hours.IsOverride)
	})

	t.Run("override wins inside its range only", func(t *testing.T) {
		env := newTestEnv(t)
		override, err := env.workingHours.CreateOverride(ctx, CreateOverrideInput{
			StartDate:   "2025-03-01",
			EndDate:     "2025-03-30",
			StartTime:   "20:00",
			EndTime:     "23:00",
			WorkingDays: []int{6, 0, 1, 2, 3, 4},
			Label:       "Ramadan",
		}, "admin-1")
		require.NoError(t, err)

		hours, err := env.workingHours.ResolveWorkingHours(ctx, "2025-03-15")
		require.NoError(t, err)
		assert.True(t, hours.IsOverride)
		assert.Equal(t, "20:00", hours.StartTime)
		assert.Equal(t, "23:00", hours.EndTime)
		assert.Equal(t, []int{0, 1, 2, 3, 4, 6}, hours.WorkingDays)
		require.NotNil(t, hours.Override)
		assert.Equal(t, override.ID, hours.Override.ID)

		// Saturday is a working day under the override.
		slots, err := env.availability.GetAvailableSlots(ctx, models.SectionCNCLaser, "2025-03-15")
		require.NoError(t, err)
		require.Len(t, slots, 6)
		assert.Equal(t, "20:00", slots[0].Time)

		hours, err = env.workingHours.ResolveWorkingHours(ctx, "2025-05-05")
		require.NoError(t, err)
		assert.False(t, hours.IsOverride)
		assert.Equal(t, "11:00", hours.StartTime)
	})

	t.Run("newest override wins", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.workingHours.CreateOverride(ctx, CreateOverrideInput{
			StartDate: "2025-03-01", EndDate: "2025-03-30",
			StartTime: "20:00", EndTime: "23:00", WorkingDays: []int{0},
		}, "admin-1")
		require.NoError(t, err)
		_, err = env.workingHours.CreateOverride(ctx, CreateOverrideInput{
			StartDate: "2025-03-10", EndDate: "2025-03-20",
			StartTime: "09:00", EndTime: "12:00", WorkingDays: []int{0},
		}, "admin-1")
		require.NoError(t, err)

		hours, err := env.workingHours.ResolveWorkingHours(ctx, "2025-03-15")
		require.NoError(t, err)
		assert.Equal(t, "09:00", hours.StartTime)
	})

	t.Run("deactivated override no longer applies", func(t *testing.T) {
		env := newTestEnv(t)
		override, err := env.workingHours.CreateOverride(ctx, CreateOverrideInput{
			StartDate: "2025-03-01", EndDate: "2025-03-30",
			StartTime: "20:00", EndTime: "23:00", WorkingDays: []int{0},
		}, "admin-1")
		require.NoError(t, err)
		require.NoError(t, env.workingHours.DeactivateOverride(ctx, override.ID))

		hours, err := env.workingHours.ResolveWorkingHours(ctx, "2025-03-15")
		require.NoError(t, err)
		assert.False(t, hours.IsOverride)

		active, err := env.workingHours.ListOverrides(ctx, false)
		require.NoError(t, err)
		assert.Empty(t, active)
		all, err := env.workingHours.ListOverrides(ctx, true)
		require.NoError(t, err)
		assert.Len(t, all, 1)

		err = env.workingHours.DeactivateOverride(ctx, "missing")
		appErr := requireKind(t, err, KindNotFound)
		assert.Equal(t, "OVERRIDE_NOT_FOUND", appErr.Code)
	})

	t.Run("storage failure falls back to built-in defaults", func(t *testing.T) {
		env := newTestEnv(t)
		require.NoError(t, env.db.Close())

		hours, err := env.workingHours.ResolveWorkingHours(ctx, wednesday)
		require.NoError(t, err)
		assert.Equal(t, models.DefaultWorkingHoursStart, hours.StartTime)
		assert.Equal(t, models.DefaultWorkingHoursEnd, hours.EndTime)
		assert.Equal(t, models.DefaultWorkingDays, hours.WorkingDays)
	})

	t.Run("invalid date", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.workingHours.ResolveWorkingHours(ctx, "02/07/2025")
		requireKind(t, err, KindValidation)
	})
}

func TestUpdateDefaults(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	err := env.workingHours.UpdateDefaults(ctx, &models.WorkingHours{
		StartTime: "10:00", EndTime: "12:00", WorkingDays: []int{4, 1, 1},
	})
	require.NoError(t, err)

	stored := env.workingHours.GetDefaults(ctx)
	assert.Equal(t, "10:00", stored.StartTime)
	assert.Equal(t, []int{1, 4}, stored.WorkingDays)

	// 2025-07-03 is a Thursday.
	slots, err := env.availability.GetAvailableSlots(ctx, models.Section3D, "2025-07-03")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "10:30", "11:00", "11:30"}, slotTimes(slots))

	slots, err = env.availability.GetAvailableSlots(ctx, models.Section3D, wednesday)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestWorkingHoursValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	cases := []struct {
		name  string
		hours models.WorkingHours
		code  string
	}{
		{name: "bad start", hours: models.WorkingHours{StartTime: "7am", EndTime: "12:00", WorkingDays: []int{0}}, code: "INVALID_TIME"},
		{name: "bad end", hours: models.WorkingHours{StartTime: "07:00", EndTime: "24:00", WorkingDays: []int{0}}, code: "INVALID_TIME"},
		{name: "end before start", hours: models.WorkingHours{StartTime: "19:00", EndTime: "11:00", WorkingDays: []int{0}}, code: "INVALID_TIME_RANGE"},
		{name: "no days", hours: models.WorkingHours{StartTime: "11:00", EndTime: "19:00"}, code: "INVALID_WORKING_DAYS"},
		{name: "day out of range", hours: models.WorkingHours{StartTime: "11:00", EndTime: "19:00", WorkingDays: []int{7}}, code: "INVALID_WORKING_DAYS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hours := tc.hours
			err := env.workingHours.UpdateDefaults(ctx, &hours)
			appErr := requireKind(t, err, KindValidation)
			assert.Equal(t, tc.code, appErr.Code)
		})
	}

	t.Run("override date order", func(t *testing.T) {
		_, err := env.workingHours.CreateOverride(ctx, CreateOverrideInput{
			StartDate: "2025-03-30", EndDate: "2025-03-01",
			StartTime: "20:00", EndTime: "23:00", WorkingDays: []int{0},
		}, "admin-1")
		appErr := requireKind(t, err, KindValidation)
		assert.Equal(t, "INVALID_DATE_RANGE", appErr.Code)
	})
}
