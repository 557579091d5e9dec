package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/fablab/fablab-registration/internal/locking"
	"github.com/fablab/fablab-registration/internal/models"
	"github.com/fablab/fablab-registration/internal/repositories"
	"github.com/fablab/fablab-registration/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// testNow is a Wednesday; fixture dates later in the year are in the future.
var testNow = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	db           *sql.DB
	cal          Calendar
	workingHours *WorkingHoursService
	sections     *SectionAvailabilityService
	availability *AvailabilityService
	registration *RegistrationService
	tasks        *TaskService

	settingsRepo     *repositories.SettingsRepository
	overrideRepo     *repositories.WorkingHoursOverrideRepository
	sectionRepo      *repositories.SectionAvailabilityRepository
	registrationRepo *repositories.RegistrationRepository
	taskRepo         *repositories.TaskRepository
	userRepo         *repositories.UserRepository
	jobRepo          *repositories.JobRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		db:               db,
		cal:              NewCalendar(func() time.Time { return testNow }, time.UTC),
		settingsRepo:     repositories.NewSettingsRepository(db),
		overrideRepo:     repositories.NewWorkingHoursOverrideRepository(db),
		sectionRepo:      repositories.NewSectionAvailabilityRepository(db),
		registrationRepo: repositories.NewRegistrationRepository(db),
		taskRepo:         repositories.NewTaskRepository(db),
		userRepo:         repositories.NewUserRepository(db),
		jobRepo:          repositories.NewJobRepository(db),
	}
	require.NoError(t, env.settingsRepo.SeedDefaults(context.Background()))

	env.workingHours = NewWorkingHoursService(env.settingsRepo, env.overrideRepo)
	env.sections = NewSectionAvailabilityService(db, env.sectionRepo, env.cal)
	env.availability = NewAvailabilityService(db, env.workingHours)
	env.registration = NewRegistrationService(db, locking.NewLocalSlotLocker(), env.workingHours,
		NewNotificationService("admin@fablab.test"), env.cal)
	env.tasks = NewTaskService(db, env.taskRepo, env.cal)
	return env
}

// seedRegistration writes a registration directly, bypassing validation,
// so tests can set up any status and applicant type.
func (e *testEnv) seedRegistration(t *testing.T, appType models.ApplicationType, section models.Section, schedule models.Schedule, status models.RegistrationStatus) *models.Registration {
	t.Helper()
	ctx := context.Background()

	user := models.NewUser("Applicant", uuid.New().String()+"@fablab.test", "0500000000", appType)
	require.NoError(t, e.userRepo.Create(ctx, user))

	reg := models.NewRegistration(user.ID, appType, section, schedule, "", "")
	reg.Status = status
	require.NoError(t, e.registrationRepo.Create(ctx, reg))
	reg.User = user
	return reg
}

func (e *testEnv) seedTask(t *testing.T, section models.Section, dueDate, dueTime, dueTimeEnd string, status models.TaskStatus) *models.Task {
	t.Helper()
	task := models.NewTask("Maintenance", section, dueDate, "admin-1")
	task.BlocksCalendar = true
	task.Status = status
	if dueTime != "" {
		task.DueTime = &dueTime
	}
	if dueTimeEnd != "" {
		task.DueTimeEnd = &dueTimeEnd
	}
	require.NoError(t, e.taskRepo.Create(context.Background(), task))
	return task
}

func slotTimes(slots []models.Slot) []string {
	times := make([]string, len(slots))
	for i, s := range slots {
		times[i] = s.Time
	}
	return times
}

func requireKind(t *testing.T, err error, kind ErrorKind) *AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	require.Equal(t, kind, appErr.Kind, "unexpected kind for %v", err)
	return appErr
}
