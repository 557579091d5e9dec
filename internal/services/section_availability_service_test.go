package services

import (
	"context"
	"sync"
	"testing"

	"github.com/fablab/fablab-registration/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deactivation(section models.Section, start, end string) DeactivateInput {
	return DeactivateInput{
		Section:   section,
		StartDate: start,
		EndDate:   end,
		ReasonEn:  "Maintenance",
		ReasonAr:  "صيانة",
	}
}

func TestDeactivate(t *testing.T) {
	ctx := context.Background()

	t.Run("overlapping window is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		first, err := env.sections.Deactivate(ctx, deactivation(models.Section3D, "2025-07-01", "2025-07-10"), "admin-1")
		require.NoError(t, err)

		_, err = env.sections.Deactivate(ctx, deactivation(models.Section3D, "2025-07-05", "2025-07-15"), "admin-1")
		appErr := requireKind(t, err, KindConflict)
		assert.Equal(t, "DEACTIVATION_OVERLAP", appErr.Code)
		assert.Equal(t, first.ID, appErr.Details["existingId"])

		records, err := env.sections.List(ctx, models.Section3D, true)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("adjacent windows and other sections are fine", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.sections.Deactivate(ctx, deactivation(models.Section3D, "2025-07-01", "2025-07-10"), "admin-1")
		require.NoError(t, err)
		_, err = env.sections.Deactivate(ctx, deactivation(models.Section3D, "2025-07-11", "2025-07-15"), "admin-1")
		require.NoError(t, err)
		_, err = env.sections.Deactivate(ctx, deactivation(models.SectionVinyl, "2025-07-01", "2025-07-10"), "admin-1")
		require.NoError(t, err)
	})

	t.Run("reactivated window no longer conflicts", func(t *testing.T) {
		env := newTestEnv(t)
		first, err := env.sections.Deactivate(ctx, deactivation(models.Section3D, "2025-07-01", "2025-07-10"), "admin-1")
		require.NoError(t, err)
		_, err = env.sections.Reactivate(ctx, first.ID, "admin-2")
		require.NoError(t, err)

		_, err = env.sections.Deactivate(ctx, deactivation(models.Section3D, "2025-07-05", "2025-07-15"), "admin-1")
		require.NoError(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t)
		cases := []struct {
			name  string
			input DeactivateInput
			code  string
		}{
			{name: "unknown section", input: deactivation("Pottery", "2025-07-01", "2025-07-02"), code: "INVALID_SECTION"},
			{name: "bad start", input: deactivation(models.Section3D, "2025-7-1", "2025-07-02"), code: "INVALID_DATE"},
			{name: "reversed range", input: deactivation(models.Section3D, "2025-07-05", "2025-07-02"), code: "INVALID_DATE_RANGE"},
			{name: "missing reason", input: DeactivateInput{Section: models.Section3D, StartDate: "2025-07-01", EndDate: "2025-07-02", ReasonEn: "  "}, code: "REASON_REQUIRED"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := env.sections.Deactivate(ctx, tc.input, "admin-1")
				appErr := requireKind(t, err, KindValidation)
				assert.Equal(t, tc.code, appErr.Code)
			})
		}
	})
}

func TestReactivate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	record, err := env.sections.Deactivate(ctx, deactivation(models.SectionKidsClub, "2025-07-01", "2025-07-10"), "admin-1")
	require.NoError(t, err)

	reactivated, err := env.sections.Reactivate(ctx, record.ID, "admin-2")
	require.NoError(t, err)
	assert.False(t, reactivated.IsActive)
	require.NotNil(t, reactivated.ReactivatedBy)
	assert.Equal(t, "admin-2", *reactivated.ReactivatedBy)
	assert.NotNil(t, reactivated.ReactivatedAt)

	active, err := env.sections.ActiveDeactivation(ctx, models.SectionKidsClub, wednesday)
	require.NoError(t, err)
	assert.Nil(t, active)

	_, err = env.sections.Reactivate(ctx, record.ID, "admin-2")
	appErr := requireKind(t, err, KindValidation)
	assert.Equal(t, "DEACTIVATION_INACTIVE", appErr.Code)

	_, err = env.sections.Reactivate(ctx, "missing", "admin-2")
	appErr = requireKind(t, err, KindNotFound)
	assert.Equal(t, "DEACTIVATION_NOT_FOUND", appErr.Code)
}

func TestReactivateConcurrent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	record, err := env.sections.Deactivate(ctx, deactivation(models.SectionVinyl, "2025-07-01", "2025-07-10"), "admin-1")
	require.NoError(t, err)

	admins := []string{"admin-a", "admin-b", "admin-c", "admin-d"}
	errs := make([]error, len(admins))
	var wg sync.WaitGroup
	for i, admin := range admins {
		wg.Add(1)
		go func(i int, admin string) {
			defer wg.Done()
			_, errs[i] = env.sections.Reactivate(ctx, record.ID, admin)
		}(i, admin)
	}
	wg.Wait()

	winner := ""
	for i, err := range errs {
		if err == nil {
			require.Empty(t, winner, "more than one reactivation succeeded")
			winner = admins[i]
			continue
		}
		appErr := requireKind(t, err, KindValidation)
		assert.Equal(t, "DEACTIVATION_INACTIVE", appErr.Code)
	}
	require.NotEmpty(t, winner)

	stored, err := env.sectionRepo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ReactivatedBy)
	assert.Equal(t, winner, *stored.ReactivatedBy)
}

func TestGetStatusForAllSections(t *testing.T) {
	ctx := context.Background()

	t.Run("every section reported in order", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.sections.Deactivate(ctx, deactivation(models.SectionCNCLaser, "2025-01-01", "2025-01-05"), "admin-1")
		require.NoError(t, err)

		statuses, err := env.sections.GetStatusForAllSections(ctx, "")
		require.NoError(t, err)
		require.Len(t, statuses, len(models.AllSections))
		for i, status := range statuses {
			assert.Equal(t, models.AllSections[i], status.Section)
			if status.Section == models.SectionCNCLaser {
				assert.False(t, status.IsAvailable)
				require.NotNil(t, status.ActiveDeactivation)
				assert.Equal(t, "Maintenance", status.ActiveDeactivation.ReasonEn)
			} else {
				assert.True(t, status.IsAvailable, status.Section)
			}
		}
	})

	t.Run("ended windows are expired on read", func(t *testing.T) {
		env := newTestEnv(t)
		ended := models.NewSectionAvailability(models.SectionCNCWood, "2024-12-01", "2024-12-31", "Holiday", "عطلة", "admin-1")
		require.NoError(t, env.sectionRepo.Create(ctx, ended))
		current := models.NewSectionAvailability(models.SectionVinyl, "2024-12-20", "2025-01-01", "Repair", "إصلاح", "admin-1")
		require.NoError(t, env.sectionRepo.Create(ctx, current))

		statuses, err := env.sections.GetStatusForAllSections(ctx, "")
		require.NoError(t, err)
		for _, status := range statuses {
			switch status.Section {
			case models.SectionCNCWood:
				assert.True(t, status.IsAvailable)
			case models.SectionVinyl:
				assert.False(t, status.IsAvailable)
			}
		}

		stored, err := env.sectionRepo.GetByID(ctx, ended.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsActive)
		stored, err = env.sectionRepo.GetByID(ctx, current.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsActive)
	})

	t.Run("explicit date", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.sections.Deactivate(ctx, deactivation(models.SectionRobotics, "2025-07-01", "2025-07-10"), "admin-1")
		require.NoError(t, err)

		statuses, err := env.sections.GetStatusForAllSections(ctx, wednesday)
		require.NoError(t, err)
		for _, status := range statuses {
			assert.Equal(t, status.Section != models.SectionRobotics, status.IsAvailable, status.Section)
		}

		_, err = env.sections.GetStatusForAllSections(ctx, "not-a-date")
		requireKind(t, err, KindValidation)
	})

	t.Run("future date does not expire current records", func(t *testing.T) {
		env := newTestEnv(t)
		record, err := env.sections.Deactivate(ctx, deactivation(models.SectionCNCLaser, "2025-07-01", "2025-07-10"), "admin-1")
		require.NoError(t, err)

		statuses, err := env.sections.GetStatusForAllSections(ctx, "2099-01-01")
		require.NoError(t, err)
		for _, status := range statuses {
			assert.True(t, status.IsAvailable, status.Section)
		}

		stored, err := env.sectionRepo.GetByID(ctx, record.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsActive)

		slots, err := env.availability.GetAvailableSlots(ctx, models.SectionCNCLaser, "2025-07-06")
		require.NoError(t, err)
		assert.Empty(t, slots)
	})
}

func TestSchedulerSweep(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ended := models.NewSectionAvailability(models.Section3D, "2024-11-01", "2024-11-30", "Closed", "مغلق", "admin-1")
	require.NoError(t, env.sectionRepo.Create(ctx, ended))

	scheduler := NewSchedulerService(env.sections, env.cal, "@every 1h")
	n, err := scheduler.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = scheduler.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSchedulerStart(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ended := models.NewSectionAvailability(models.Section3D, "2024-11-01", "2024-11-30", "Closed", "مغلق", "admin-1")
	require.NoError(t, env.sectionRepo.Create(ctx, ended))

	scheduler := NewSchedulerService(env.sections, env.cal, "*/15 * * * *")
	require.NoError(t, scheduler.StartScheduler())
	defer scheduler.Stop(ctx)

	stored, err := env.sectionRepo.GetByID(ctx, ended.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	bad := NewSchedulerService(env.sections, env.cal, "every now and then")
	assert.Error(t, bad.StartScheduler())
}
