package services

import (
	"context"
	"sync"
	"testing"

	"github.com/fablab/fablab-registration/internal/models"
	"github.com/fablab/fablab-registration/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appointmentInput(email, date, clock string, duration int) CreateRegistrationInput {
	return CreateRegistrationInput{
		Name:            "Sara",
		Email:           email,
		Phone:           "0501234567",
		ApplicationType: models.ApplicationBeneficiary,
		FablabSection:   models.SectionCNCLaser,
		Purpose:         "Prototype",
		ScheduleInput: ScheduleInput{
			AppointmentDate:     date,
			AppointmentTime:     clock,
			AppointmentDuration: duration,
		},
	}
}

func TestCreateRegistration(t *testing.T) {
	ctx := context.Background()

	t.Run("appointment is stored pending and removes slots", func(t *testing.T) {
		env := newTestEnv(t)

		reg, err := env.registration.Create(ctx, appointmentInput("Sara@Example.com", wednesday, "13:00", 60))
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, reg.Status)
		require.NotNil(t, reg.User)
		assert.Equal(t, "sara@example.com", reg.User.Email)

		stored, err := env.registration.Get(ctx, reg.ID)
		require.NoError(t, err)
		assert.Equal(t, appointment(wednesday, "13:00", 60), stored.Schedule)

		available, err := env.availability.GetAvailableSlots(ctx, models.SectionCNCLaser, wednesday)
		require.NoError(t, err)
		assert.Len(t, available, 14)
	})

	t.Run("missing duration defaults to an hour", func(t *testing.T) {
		env := newTestEnv(t)

		reg, err := env.registration.Create(ctx, appointmentInput("a@example.com", wednesday, "15:00", 0))
		require.NoError(t, err)
		assert.Equal(t, models.DefaultAppointmentDuration, reg.Schedule.(models.AppointmentSchedule).Duration)
	})

	t.Run("overlapping appointment is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.registration.Create(ctx, appointmentInput("a@example.com", wednesday, "13:00", 60))
		require.NoError(t, err)

		_, err = env.registration.Create(ctx, appointmentInput("b@example.com", wednesday, "13:30", 60))
		appErr := requireKind(t, err, KindConflict)
		assert.Equal(t, "SLOT_UNAVAILABLE", appErr.Code)
		assert.Equal(t, "Time slot is not available", appErr.Message)
		assert.Equal(t, models.SectionCNCLaser, appErr.Details["section"])
		assert.Equal(t, wednesday, appErr.Details["date"])

		all, err := env.registration.List(ctx, repositories.RegistrationFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 1)

		// Back to back is fine.
		_, err = env.registration.Create(ctx, appointmentInput("b@example.com", wednesday, "14:00", 60))
		require.NoError(t, err)
	})

	t.Run("deactivated section is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.sections.Deactivate(ctx, deactivation(models.SectionCNCLaser, "2025-07-01", "2025-07-03"), "admin-1")
		require.NoError(t, err)

		_, err = env.registration.Create(ctx, appointmentInput("a@example.com", wednesday, "13:00", 60))
		appErr := requireKind(t, err, KindConflict)
		assert.Equal(t, "SECTION_DEACTIVATED", appErr.Code)
		assert.Equal(t, "Maintenance", appErr.Details["reasonEn"])
	})

	t.Run("outside working hours", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.registration.Create(ctx, appointmentInput("a@example.com", wednesday, "18:30", 60))
		appErr := requireKind(t, err, KindValidation)
		assert.Equal(t, "OUTSIDE_WORKING_HOURS", appErr.Code)

		_, err = env.registration.Create(ctx, appointmentInput("a@example.com", friday, "13:00", 60))
		appErr = requireKind(t, err, KindValidation)
		assert.Equal(t, "NOT_WORKING_DAY", appErr.Code)
	})

	t.Run("past date", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.registration.Create(ctx, appointmentInput("a@example.com", "2024-12-31", "13:00", 60))
		appErr := requireKind(t, err, KindValidation)
		assert.Equal(t, "DATE_IN_PAST", appErr.Code)
	})

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t)
		cases := []struct {
			name   string
			mutate func(*CreateRegistrationInput)
			code   string
		}{
			{name: "section", mutate: func(in *CreateRegistrationInput) { in.FablabSection = "Pottery" }, code: "INVALID_SECTION"},
			{name: "name", mutate: func(in *CreateRegistrationInput) { in.Name = " " }, code: "NAME_REQUIRED"},
			{name: "email", mutate: func(in *CreateRegistrationInput) { in.Email = "not-an-email" }, code: "INVALID_EMAIL"},
			{name: "type", mutate: func(in *CreateRegistrationInput) { in.ApplicationType = "Tourist" }, code: "INVALID_APPLICATION_TYPE"},
			{name: "missing type", mutate: func(in *CreateRegistrationInput) { in.ApplicationType = "" }, code: "APPLICATION_TYPE_REQUIRED"},
			{name: "time", mutate: func(in *CreateRegistrationInput) { in.AppointmentTime = "1pm" }, code: "INVALID_TIME"},
			{name: "date", mutate: func(in *CreateRegistrationInput) { in.AppointmentDate = "" }, code: "INVALID_DATE"},
			{name: "duration", mutate: func(in *CreateRegistrationInput) { in.AppointmentDuration = -30 }, code: "INVALID_DURATION"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				input := appointmentInput("a@example.com", wednesday, "13:00", 60)
				tc.mutate(&input)
				_, err := env.registration.Create(ctx, input)
				appErr := requireKind(t, err, KindValidation)
				assert.Equal(t, tc.code, appErr.Code)
			})
		}
	})

	t.Run("volunteer range skips the slot check", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.registration.Create(ctx, appointmentInput("a@example.com", wednesday, "13:00", 60))
		require.NoError(t, err)

		reg, err := env.registration.Create(ctx, CreateRegistrationInput{
			Name:            "Omar",
			Email:           "omar@example.com",
			ApplicationType: models.ApplicationVolunteer,
			FablabSection:   models.SectionCNCLaser,
			ScheduleInput: ScheduleInput{
				StartDate: "2025-07-01",
				EndDate:   "2025-07-31",
				StartTime: "09:00",
				EndTime:   "21:00",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, models.ScheduleKindVolunteer, reg.Schedule.Kind())

		available, err := env.availability.GetAvailableSlots(ctx, models.SectionCNCLaser, wednesday)
		require.NoError(t, err)
		assert.Len(t, available, 14)
	})

	t.Run("volunteer range touching a deactivation is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.sections.Deactivate(ctx, deactivation(models.Section3D, "2025-07-20", "2025-07-25"), "admin-1")
		require.NoError(t, err)

		_, err = env.registration.Create(ctx, CreateRegistrationInput{
			Name:            "Omar",
			Email:           "omar@example.com",
			ApplicationType: models.ApplicationVolunteer,
			FablabSection:   models.Section3D,
			ScheduleInput: ScheduleInput{
				StartDate: "2025-07-01", EndDate: "2025-07-21", StartTime: "09:00", EndTime: "12:00",
			},
		})
		appErr := requireKind(t, err, KindConflict)
		assert.Equal(t, "SECTION_DEACTIVATED", appErr.Code)
	})

	t.Run("visit blocks its window", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.registration.Create(ctx, CreateRegistrationInput{
			Name:            "School",
			Email:           "school@example.com",
			ApplicationType: models.ApplicationFablabVisit,
			FablabSection:   models.SectionKidsClub,
			ScheduleInput: ScheduleInput{
				VisitDate: wednesday, VisitStartTime: "11:00", VisitEndTime: "13:00",
			},
		})
		require.NoError(t, err)

		ok, err := env.availability.IsSlotAvailable(ctx, models.SectionKidsClub, wednesday, "12:30", "13:30", "")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("existing user", func(t *testing.T) {
		env := newTestEnv(t)
		first, err := env.registration.Create(ctx, appointmentInput("a@example.com", wednesday, "11:00", 60))
		require.NoError(t, err)

		second, err := env.registration.Create(ctx, CreateRegistrationInput{
			ExistingUserID: first.UserID,
			FablabSection:  models.Section3D,
			ScheduleInput:  ScheduleInput{AppointmentDate: wednesday, AppointmentTime: "11:00"},
		})
		require.NoError(t, err)
		assert.Equal(t, first.UserID, second.UserID)

		_, err = env.registration.Create(ctx, CreateRegistrationInput{
			ExistingUserID: "missing",
			FablabSection:  models.Section3D,
			ScheduleInput:  ScheduleInput{AppointmentDate: wednesday, AppointmentTime: "11:00"},
		})
		appErr := requireKind(t, err, KindNotFound)
		assert.Equal(t, "USER_NOT_FOUND", appErr.Code)
	})

	t.Run("same email reuses the user and refreshes the profile", func(t *testing.T) {
		env := newTestEnv(t)
		first, err := env.registration.Create(ctx, appointmentInput("a@example.com", wednesday, "11:00", 60))
		require.NoError(t, err)

		input := appointmentInput("A@example.com", wednesday, "15:00", 60)
		input.Name = "Sara A."
		input.ApplicationType = models.ApplicationTalented
		second, err := env.registration.Create(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, first.UserID, second.UserID)

		user, err := env.userRepo.GetByID(ctx, first.UserID)
		require.NoError(t, err)
		assert.Equal(t, "Sara A.", user.Name)
		assert.Equal(t, models.ApplicationTalented, user.ApplicationType)
	})

	t.Run("re-typed applicant keeps earlier bookings blocking", func(t *testing.T) {
		env := newTestEnv(t)
		booked, err := env.registration.Create(ctx, appointmentInput("x@example.com", wednesday, "13:00", 60))
		require.NoError(t, err)

		volunteering, err := env.registration.Create(ctx, CreateRegistrationInput{
			Name:            "Sara",
			Email:           "x@example.com",
			ApplicationType: models.ApplicationVolunteer,
			FablabSection:   models.SectionCNCLaser,
			ScheduleInput: ScheduleInput{
				StartDate: "2025-08-03",
				EndDate:   "2025-08-04",
				StartTime: "09:00",
				EndTime:   "21:00",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, booked.UserID, volunteering.UserID)
		assert.Equal(t, models.ApplicationVolunteer, volunteering.ApplicationType)

		stored, err := env.registration.Get(ctx, booked.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ApplicationBeneficiary, stored.ApplicationType)

		_, err = env.registration.Create(ctx, appointmentInput("y@example.com", wednesday, "13:00", 60))
		appErr := requireKind(t, err, KindConflict)
		assert.Equal(t, "SLOT_UNAVAILABLE", appErr.Code)

		available, err := env.availability.GetAvailableSlots(ctx, models.SectionCNCLaser, wednesday)
		require.NoError(t, err)
		assert.Len(t, available, 14)

		// A later beneficiary booking does not turn the volunteer range into blocked time.
		_, err = env.registration.Create(ctx, appointmentInput("x@example.com", "2025-08-05", "11:00", 60))
		require.NoError(t, err)
		available, err = env.availability.GetAvailableSlots(ctx, models.SectionCNCLaser, "2025-08-04")
		require.NoError(t, err)
		assert.Len(t, available, 16)
	})

	t.Run("confirmation and admin notice are queued", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.registration.Create(ctx, appointmentInput("a@example.com", wednesday, "11:00", 60))
		require.NoError(t, err)

		pending, err := env.jobRepo.CountByStatus(ctx, models.JobStatusPending)
		require.NoError(t, err)
		assert.Equal(t, 2, pending)
	})
}

func TestCreateRegistrationConcurrent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	const attempts = 5
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := appointmentInput("racer@example.com", wednesday, "16:00", 60)
			_, errs[i] = env.registration.Create(ctx, input)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, IsKind(err, KindConflict), "unexpected error %v", err)
	}
	assert.Equal(t, 1, succeeded)

	all, err := env.registration.List(ctx, repositories.RegistrationFilter{Section: models.SectionCNCLaser})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdateRegistrationStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("approve stamps the admin", func(t *testing.T) {
		env := newTestEnv(t)
		reg, err := env.registration.Create(ctx, appointmentInput("a@example.com", wednesday, "11:00", 60))
		require.NoError(t, err)

		updated, err := env.registration.UpdateStatus(ctx, reg.ID, models.StatusApproved, "admin-1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, updated.Status)
		require.NotNil(t, updated.ApprovedBy)
		assert.Equal(t, "admin-1", *updated.ApprovedBy)
		assert.NotNil(t, updated.ApprovedAt)

		pending, err := env.jobRepo.CountByStatus(ctx, models.JobStatusPending)
		require.NoError(t, err)
		assert.Equal(t, 3, pending)

		_, err = env.registration.UpdateStatus(ctx, reg.ID, models.StatusRejected, "admin-1")
		appErr := requireKind(t, err, KindValidation)
		assert.Equal(t, "INVALID_STATUS_TRANSITION", appErr.Code)
	})

	t.Run("rejecting frees the slot", func(t *testing.T) {
		env := newTestEnv(t)
		reg, err := env.registration.Create(ctx, appointmentInput("a@example.com", wednesday, "11:00", 60))
		require.NoError(t, err)

		_, err = env.registration.UpdateStatus(ctx, reg.ID, models.StatusOnHold, "admin-1")
		require.NoError(t, err)
		_, err = env.registration.UpdateStatus(ctx, reg.ID, models.StatusRejected, "admin-1")
		require.NoError(t, err)

		_, err = env.registration.Create(ctx, appointmentInput("b@example.com", wednesday, "11:00", 60))
		require.NoError(t, err)
	})

	t.Run("unknown status and registration", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.registration.UpdateStatus(ctx, "any", "archived", "admin-1")
		appErr := requireKind(t, err, KindValidation)
		assert.Equal(t, "INVALID_STATUS", appErr.Code)

		_, err = env.registration.UpdateStatus(ctx, "missing", models.StatusApproved, "admin-1")
		appErr = requireKind(t, err, KindNotFound)
		assert.Equal(t, "REGISTRATION_NOT_FOUND", appErr.Code)
	})
}

func TestRescheduleRegistration(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	reg, err := env.registration.Create(ctx, appointmentInput("a@example.com", wednesday, "13:00", 60))
	require.NoError(t, err)
	other, err := env.registration.Create(ctx, appointmentInput("b@example.com", wednesday, "15:00", 60))
	require.NoError(t, err)

	t.Run("overlapping itself is allowed", func(t *testing.T) {
		moved, err := env.registration.Reschedule(ctx, reg.ID, ScheduleInput{
			AppointmentDate: wednesday, AppointmentTime: "13:30", AppointmentDuration: 60,
		}, "admin-1")
		require.NoError(t, err)
		assert.Equal(t, appointment(wednesday, "13:30", 60), moved.Schedule)

		available, err := env.availability.GetAvailableSlots(ctx, models.SectionCNCLaser, wednesday)
		require.NoError(t, err)
		assert.Contains(t, slotTimes(available), "13:00")
		assert.NotContains(t, slotTimes(available), "14:00")
	})

	t.Run("overlapping another booking is rejected", func(t *testing.T) {
		_, err := env.registration.Reschedule(ctx, reg.ID, ScheduleInput{
			AppointmentDate: wednesday, AppointmentTime: "14:30", AppointmentDuration: 60,
		}, "admin-1")
		appErr := requireKind(t, err, KindConflict)
		assert.Equal(t, "SLOT_UNAVAILABLE", appErr.Code)
	})

	t.Run("rejected registrations cannot move", func(t *testing.T) {
		_, err := env.registration.UpdateStatus(ctx, other.ID, models.StatusRejected, "admin-1")
		require.NoError(t, err)

		_, err = env.registration.Reschedule(ctx, other.ID, ScheduleInput{
			AppointmentDate: wednesday, AppointmentTime: "17:00",
		}, "admin-1")
		appErr := requireKind(t, err, KindValidation)
		assert.Equal(t, "REGISTRATION_CLOSED", appErr.Code)
	})

	t.Run("missing registration", func(t *testing.T) {
		_, err := env.registration.Reschedule(ctx, "missing", ScheduleInput{}, "admin-1")
		requireKind(t, err, KindNotFound)
	})
}

func TestListRegistrations(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.registration.Create(ctx, appointmentInput("a@example.com", wednesday, "11:00", 60))
	require.NoError(t, err)
	input := appointmentInput("b@example.com", "2025-07-03", "11:00", 60)
	input.FablabSection = models.Section3D
	_, err = env.registration.Create(ctx, input)
	require.NoError(t, err)

	byDate, err := env.registration.List(ctx, repositories.RegistrationFilter{Date: wednesday})
	require.NoError(t, err)
	assert.Len(t, byDate, 1)

	bySection, err := env.registration.List(ctx, repositories.RegistrationFilter{Section: models.Section3D})
	require.NoError(t, err)
	require.Len(t, bySection, 1)
	assert.Equal(t, "b@example.com", bySection[0].User.Email)
}
