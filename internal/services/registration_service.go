package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/fablab/fablab-registration/internal/locking"
	"github.com/fablab/fablab-registration/internal/metrics"
	"github.com/fablab/fablab-registration/internal/models"
	"github.com/fablab/fablab-registration/internal/repositories"
	"github.com/fablab/fablab-registration/pkg/logger"
	"github.com/sirupsen/logrus"
)

// MaxAppointmentDuration caps a single appointment at one full day.
const MaxAppointmentDuration = 24 * 60

type RegistrationService struct {
	db               *sql.DB
	locker           locking.SlotLocker
	workingHours     *WorkingHoursService
	notifications    *NotificationService
	userRepo         *repositories.UserRepository
	registrationRepo *repositories.RegistrationRepository
	cal              Calendar
}

func NewRegistrationService(
	db *sql.DB,
	locker locking.SlotLocker,
	workingHours *WorkingHoursService,
	notifications *NotificationService,
	cal Calendar,
) *RegistrationService {
	return &RegistrationService{
		db:               db,
		locker:           locker,
		workingHours:     workingHours,
		notifications:    notifications,
		userRepo:         repositories.NewUserRepository(db),
		registrationRepo: repositories.NewRegistrationRepository(db),
		cal:              cal,
	}
}

// ScheduleInput holds the three mutually exclusive date-shapes as they
// arrive from the wizard. Only the shape matching the applicant type is read.
type ScheduleInput struct {
	AppointmentDate     string `json:"appointmentDate"`
	AppointmentTime     string `json:"appointmentTime"`
	AppointmentDuration int    `json:"appointmentDuration"`

	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`

	VisitDate      string `json:"visitDate"`
	VisitStartTime string `json:"visitStartTime"`
	VisitEndTime   string `json:"visitEndTime"`
}

// CreateRegistrationInput is a public wizard submission.
type CreateRegistrationInput struct {
	ExistingUserID  string                 `json:"existingUserId"`
	Name            string                 `json:"name"`
	Email           string                 `json:"email"`
	Phone           string                 `json:"phone"`
	ApplicationType models.ApplicationType `json:"applicationType"`
	FablabSection   models.Section         `json:"fablabSection"`
	Purpose         string                 `json:"purpose"`
	Details         string                 `json:"details"`
	ScheduleInput
}

// Create books a registration. For slot-consuming applicants the section
// and date are locked, then the conflict check and insert share one
// transaction, so two submissions for the same slot cannot both succeed.
func (s *RegistrationService) Create(ctx context.Context, input CreateRegistrationInput) (*models.Registration, error) {
	if !input.FablabSection.IsValid() {
		return nil, errInvalidSection(string(input.FablabSection))
	}

	applicant, appType, err := s.resolveApplicant(ctx, input)
	if err != nil {
		return nil, err
	}

	schedule, err := s.buildSchedule(appType.ScheduleKind(), input.ScheduleInput)
	if err != nil {
		return nil, err
	}

	unlock, err := s.prepareSlot(ctx, input.FablabSection, appType, schedule)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var reg *models.Registration
	err = repositories.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.checkSchedule(ctx, tx, input.FablabSection, appType, schedule, ""); err != nil {
			return err
		}

		user, err := s.saveApplicant(ctx, tx, applicant)
		if err != nil {
			return err
		}

		reg = models.NewRegistration(user.ID, appType, input.FablabSection, schedule,
			strings.TrimSpace(input.Purpose), strings.TrimSpace(input.Details))
		reg.User = user
		if err := repositories.NewRegistrationRepository(tx).Create(ctx, reg); err != nil {
			return err
		}

		s.enqueueCreated(ctx, tx, reg)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncRegistrationCreated(string(appType))
	logger.WithComponent("registration").WithFields(logrus.Fields{
		"registration_id":  reg.ID,
		"user_id":          reg.UserID,
		"section":          reg.FablabSection,
		"application_type": appType,
		"schedule":         DescribeSchedule(reg.Schedule),
	}).Info("Registration created")
	return reg, nil
}

// UpdateStatus applies an admin decision. approved stamps approvedBy/At.
func (s *RegistrationService) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus, adminID string) (*models.Registration, error) {
	if !status.IsValid() {
		return nil, NewValidationError("INVALID_STATUS",
			"Unknown registration status",
			"حالة التسجيل غير معروفة").WithDetail("status", status)
	}

	var reg *models.Registration
	err := repositories.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := repositories.NewRegistrationRepository(tx)
		current, err := repo.GetByID(ctx, id)
		if err != nil {
			return errRegistrationNotFound(err)
		}
		if !current.Status.CanTransitionTo(status) {
			return NewValidationError("INVALID_STATUS_TRANSITION",
				fmt.Sprintf("Cannot change status from %s to %s", current.Status, status),
				"لا يمكن تغيير حالة التسجيل بهذا الشكل").
				WithDetail("from", current.Status).
				WithDetail("to", status)
		}

		if status == models.StatusApproved {
			current.Approve(adminID)
		} else {
			current.Status = status
			current.UpdatedAt = s.cal.Now()
		}
		if err := repo.UpdateStatus(ctx, current); err != nil {
			return err
		}

		job, err := s.notifications.StatusChangedJob(current)
		if err == nil {
			err = s.notifications.Enqueue(ctx, tx, job)
		}
		if err != nil {
			logger.WithComponent("registration").WithError(err).WithField("registration_id", id).
				Warn("Failed to enqueue status email")
		}

		reg = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncRegistrationDecision(string(status))
	logger.WithComponent("registration").WithFields(logrus.Fields{
		"registration_id": reg.ID,
		"status":          reg.Status,
		"admin_id":        adminID,
	}).Info("Registration status updated")
	return reg, nil
}

// Reschedule moves a live registration to a new date-shape of the same kind,
// checking conflicts against everything except the registration itself.
func (s *RegistrationService) Reschedule(ctx context.Context, id string, input ScheduleInput, adminID string) (*models.Registration, error) {
	current, err := s.registrationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, errRegistrationNotFound(err)
	}
	if !current.Status.Blocks() {
		return nil, NewValidationError("REGISTRATION_CLOSED",
			"Rejected registrations cannot be rescheduled",
			"لا يمكن إعادة جدولة طلب مرفوض").WithDetail("status", current.Status)
	}

	appType := current.ApplicationType
	schedule, err := s.buildSchedule(current.Schedule.Kind(), input)
	if err != nil {
		return nil, err
	}

	unlock, err := s.prepareSlot(ctx, current.FablabSection, appType, schedule)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var reg *models.Registration
	err = repositories.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.checkSchedule(ctx, tx, current.FablabSection, appType, schedule, id); err != nil {
			return err
		}

		repo := repositories.NewRegistrationRepository(tx)
		latest, err := repo.GetByID(ctx, id)
		if err != nil {
			return errRegistrationNotFound(err)
		}
		latest.Schedule = schedule
		latest.UpdatedAt = s.cal.Now()
		if err := repo.UpdateSchedule(ctx, latest); err != nil {
			return err
		}
		reg = latest
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithComponent("registration").WithFields(logrus.Fields{
		"registration_id": reg.ID,
		"schedule":        DescribeSchedule(reg.Schedule),
		"admin_id":        adminID,
	}).Info("Registration rescheduled")
	return reg, nil
}

// Get returns a registration with its applicant.
func (s *RegistrationService) Get(ctx context.Context, id string) (*models.Registration, error) {
	reg, err := s.registrationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, errRegistrationNotFound(err)
	}
	return reg, nil
}

// List returns registrations for the admin view.
func (s *RegistrationService) List(ctx context.Context, filter repositories.RegistrationFilter) ([]*models.Registration, error) {
	if filter.Section != "" && !filter.Section.IsValid() {
		return nil, errInvalidSection(string(filter.Section))
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, NewValidationError("INVALID_STATUS",
			"Unknown registration status",
			"حالة التسجيل غير معروفة").WithDetail("status", filter.Status)
	}
	if filter.Date != "" && !models.IsValidDate(filter.Date) {
		return nil, errInvalidDate("date", filter.Date)
	}
	registrations, err := s.registrationRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing registrations: %w", err)
	}
	return registrations, nil
}

// resolveApplicant returns the user to book for (not yet saved when new)
// and the application type driving the date-shape.
func (s *RegistrationService) resolveApplicant(ctx context.Context, input CreateRegistrationInput) (*models.User, models.ApplicationType, error) {
	if input.ApplicationType != "" && !input.ApplicationType.IsValid() {
		return nil, "", NewValidationError("INVALID_APPLICATION_TYPE",
			"Unknown application type",
			"نوع الطلب غير معروف").WithDetail("applicationType", input.ApplicationType)
	}

	if input.ExistingUserID != "" {
		user, err := s.userRepo.GetByID(ctx, input.ExistingUserID)
		if err != nil {
			return nil, "", notFoundOr(err, "USER_NOT_FOUND",
				"User not found",
				"لم يتم العثور على المستخدم")
		}
		if input.ApplicationType != "" {
			user.ApplicationType = input.ApplicationType
		}
		return user, user.ApplicationType, nil
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, "", NewValidationError("NAME_REQUIRED", "Name is required", "الاسم مطلوب")
	}
	email := strings.TrimSpace(input.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, "", NewValidationError("INVALID_EMAIL",
			"A valid email address is required",
			"البريد الإلكتروني غير صحيح").WithDetail("email", input.Email)
	}
	if input.ApplicationType == "" {
		return nil, "", NewValidationError("APPLICATION_TYPE_REQUIRED",
			"Application type is required",
			"نوع الطلب مطلوب")
	}

	user := models.NewUser(name, strings.ToLower(email), strings.TrimSpace(input.Phone), input.ApplicationType)
	return user, input.ApplicationType, nil
}

// saveApplicant persists the applicant inside tx. A submission matching an
// existing email refreshes that user's profile instead of creating a new one.
func (s *RegistrationService) saveApplicant(ctx context.Context, tx *sql.Tx, applicant *models.User) (*models.User, error) {
	userRepo := repositories.NewUserRepository(tx)

	existing, err := userRepo.GetByID(ctx, applicant.ID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	if existing == nil {
		existing, err = userRepo.GetByEmail(ctx, applicant.Email)
		if err != nil {
			return nil, err
		}
	}
	if existing == nil {
		if err := userRepo.Create(ctx, applicant); err != nil {
			return nil, err
		}
		return applicant, nil
	}

	if existing.ID != applicant.ID {
		existing.Name = applicant.Name
		existing.Phone = applicant.Phone
	}
	existing.ApplicationType = applicant.ApplicationType
	if err := userRepo.UpdateProfile(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *RegistrationService) buildSchedule(kind models.ScheduleKind, input ScheduleInput) (models.Schedule, error) {
	today := s.cal.Today()

	switch kind {
	case models.ScheduleKindVolunteer:
		if !models.IsValidDate(input.StartDate) {
			return nil, errInvalidDate("startDate", input.StartDate)
		}
		if !models.IsValidDate(input.EndDate) {
			return nil, errInvalidDate("endDate", input.EndDate)
		}
		if input.StartDate > input.EndDate {
			return nil, errDateOrder("startDate", "endDate")
		}
		if input.StartDate < today {
			return nil, errDateInPast("startDate", input.StartDate)
		}
		if err := validateClockPair("startTime", input.StartTime, "endTime", input.EndTime); err != nil {
			return nil, err
		}
		return models.VolunteerSchedule{
			StartDate: input.StartDate,
			EndDate:   input.EndDate,
			StartTime: input.StartTime,
			EndTime:   input.EndTime,
		}, nil

	case models.ScheduleKindVisit:
		if !models.IsValidDate(input.VisitDate) {
			return nil, errInvalidDate("visitDate", input.VisitDate)
		}
		if input.VisitDate < today {
			return nil, errDateInPast("visitDate", input.VisitDate)
		}
		if err := validateClockPair("visitStartTime", input.VisitStartTime, "visitEndTime", input.VisitEndTime); err != nil {
			return nil, err
		}
		return models.VisitSchedule{
			Date:      input.VisitDate,
			StartTime: input.VisitStartTime,
			EndTime:   input.VisitEndTime,
		}, nil

	default:
		if !models.IsValidDate(input.AppointmentDate) {
			return nil, errInvalidDate("appointmentDate", input.AppointmentDate)
		}
		if input.AppointmentDate < today {
			return nil, errDateInPast("appointmentDate", input.AppointmentDate)
		}
		start, err := models.ParseClock(input.AppointmentTime)
		if err != nil {
			return nil, errInvalidTime("appointmentTime", input.AppointmentTime)
		}
		duration := input.AppointmentDuration
		if duration == 0 {
			duration = models.DefaultAppointmentDuration
		}
		if duration < 0 || start+duration > MaxAppointmentDuration {
			return nil, NewValidationError("INVALID_DURATION",
				"Appointment duration must be positive and end on the same day",
				"مدة الموعد غير صحيحة").WithDetail("appointmentDuration", input.AppointmentDuration)
		}
		return models.AppointmentSchedule{
			Date:     input.AppointmentDate,
			Time:     input.AppointmentTime,
			Duration: duration,
		}, nil
	}
}

// prepareSlot validates a slot-consuming schedule against the working
// hours of its date and takes the section/date lock. Volunteers get a no-op
// unlock.
func (s *RegistrationService) prepareSlot(ctx context.Context, section models.Section, appType models.ApplicationType, schedule models.Schedule) (func(), error) {
	if !appType.ConsumesSlots() {
		return func() {}, nil
	}

	dates, err := schedule.Dates()
	if err != nil || len(dates) == 0 {
		return nil, errInvalidDate("date", "")
	}
	date := dates[0]
	candidate, err := schedule.Interval()
	if err != nil {
		return nil, errTimeOrder("startTime", "endTime")
	}

	if err := s.checkWorkingHours(ctx, section, date, candidate); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, section, date)
	if err != nil {
		if errors.Is(err, locking.ErrLockTimeout) {
			return nil, NewConflictError("SLOT_BUSY",
				"Another booking for this section and date is in progress, please retry",
				"يوجد حجز آخر قيد المعالجة لهذا القسم والتاريخ، يرجى المحاولة مرة أخرى").
				WithDetail("section", section).
				WithDetail("date", date)
		}
		return nil, fmt.Errorf("error acquiring slot lock: %w", err)
	}
	return unlock, nil
}

func (s *RegistrationService) checkWorkingHours(ctx context.Context, section models.Section, date string, candidate models.Interval) error {
	hours, err := s.workingHours.ResolveWorkingHours(ctx, date)
	if err != nil {
		return err
	}
	weekday, err := models.Weekday(date)
	if err != nil {
		return errInvalidDate("date", date)
	}
	if !hours.IsWorkingDay(weekday) {
		return NewValidationError("NOT_WORKING_DAY",
			"FABLAB is closed on the selected day",
			"فاب لاب مغلق في اليوم المحدد").
			WithDetail("section", section).
			WithDetail("date", date)
	}
	window, ok := hours.Window()
	if !ok || candidate.Start < window.Start || candidate.End > window.End {
		return NewValidationError("OUTSIDE_WORKING_HOURS",
			fmt.Sprintf("The selected time must be within working hours %s-%s", hours.StartTime, hours.EndTime),
			fmt.Sprintf("يجب أن يكون الوقت المحدد ضمن ساعات العمل %s-%s", hours.StartTime, hours.EndTime)).
			WithDetail("section", section).
			WithDetail("date", date)
	}
	return nil
}

// checkSchedule is the write-time gate, run inside the booking transaction.
// Slot-consuming schedules get the full conflict check; volunteer ranges
// only need the section to be open on every day of the range.
func (s *RegistrationService) checkSchedule(ctx context.Context, tx *sql.Tx, section models.Section, appType models.ApplicationType, schedule models.Schedule, excludeID string) error {
	if !appType.ConsumesSlots() {
		volunteer, ok := schedule.(models.VolunteerSchedule)
		startDate, endDate := "", ""
		if ok {
			startDate, endDate = volunteer.StartDate, volunteer.EndDate
		} else {
			dates, err := schedule.Dates()
			if err != nil || len(dates) == 0 {
				return errInvalidDate("date", "")
			}
			startDate, endDate = dates[0], dates[len(dates)-1]
		}
		records, err := repositories.NewSectionAvailabilityRepository(tx).FindActiveOverlapping(ctx, section, startDate, endDate)
		if err != nil {
			return fmt.Errorf("error checking section deactivation: %w", err)
		}
		if len(records) > 0 {
			metrics.IncSlotConflict(ConflictReasonDeactivated)
			return errSectionDeactivated(section, startDate, records[0])
		}
		return nil
	}

	dates, err := schedule.Dates()
	if err != nil || len(dates) == 0 {
		return errInvalidDate("date", "")
	}
	candidate, err := schedule.Interval()
	if err != nil {
		return errTimeOrder("startTime", "endTime")
	}

	check, err := CheckSlot(ctx, tx, section, dates[0], candidate, excludeID)
	if err != nil {
		return err
	}
	if check.Available {
		return nil
	}
	if check.Deactivation != nil {
		return errSectionDeactivated(section, dates[0], check.Deactivation)
	}
	return NewConflictError("SLOT_UNAVAILABLE",
		"Time slot is not available",
		"الموعد المحدد غير متاح").
		WithDetail("section", section).
		WithDetail("date", dates[0]).
		WithDetail("reason", check.Reason)
}

func (s *RegistrationService) enqueueCreated(ctx context.Context, tx *sql.Tx, reg *models.Registration) {
	jobs, err := s.notifications.RegistrationCreatedJobs(reg)
	if err == nil {
		err = s.notifications.Enqueue(ctx, tx, jobs...)
	}
	if err != nil {
		logger.WithComponent("registration").WithError(err).WithField("registration_id", reg.ID).
			Warn("Failed to enqueue registration emails")
	}
}

func validateClockPair(startField, startTime, endField, endTime string) error {
	if !models.IsValidClock(startTime) {
		return errInvalidTime(startField, startTime)
	}
	if !models.IsValidClock(endTime) {
		return errInvalidTime(endField, endTime)
	}
	if startTime >= endTime {
		return errTimeOrder(startField, endField)
	}
	return nil
}

func errRegistrationNotFound(err error) error {
	return notFoundOr(err, "REGISTRATION_NOT_FOUND",
		"Registration not found",
		"لم يتم العثور على التسجيل")
}

func errDateInPast(field, value string) *AppError {
	return NewValidationError("DATE_IN_PAST",
		fmt.Sprintf("%s cannot be in the past", field),
		"لا يمكن اختيار تاريخ في الماضي").
		WithDetail("field", field).
		WithDetail("value", value)
}

func errSectionDeactivated(section models.Section, date string, record *models.SectionAvailability) *AppError {
	return NewConflictError("SECTION_DEACTIVATED",
		"Time slot is not available",
		"الموعد المحدد غير متاح").
		WithDetail("section", section).
		WithDetail("date", date).
		WithDetail("reason", ConflictReasonDeactivated).
		WithDetail("reasonEn", record.ReasonEn).
		WithDetail("reasonAr", record.ReasonAr).
		WithDetail("deactivatedUntil", record.EndDate)
}
