package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/fablab/fablab-registration/internal/models"
	"github.com/fablab/fablab-registration/internal/repositories"
)

// NotificationService composes registration emails and writes them to the
// job outbox. Delivery happens later in the notification workers, so a
// failing mail server never affects the booking itself.
type NotificationService struct {
	adminEmail string
}

func NewNotificationService(adminEmail string) *NotificationService {
	return &NotificationService{adminEmail: strings.TrimSpace(adminEmail)}
}

// RegistrationCreatedJobs builds the applicant confirmation and, when an
// admin address is configured, the admin notice.
func (s *NotificationService) RegistrationCreatedJobs(reg *models.Registration) ([]*models.Job, error) {
	var jobs []*models.Job

	if reg.User != nil && reg.User.Email != "" {
		job, err := models.NewEmailJob(models.JobTypeRegistrationConfirmation, models.EmailPayload{
			To:             reg.User.Email,
			Subject:        "FABLAB registration received | تم استلام طلب التسجيل",
			Body:           confirmationBody(reg),
			RegistrationID: reg.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("error building confirmation email: %w", err)
		}
		jobs = append(jobs, job)
	}

	if s.adminEmail != "" {
		job, err := models.NewEmailJob(models.JobTypeRegistrationAdminNotice, models.EmailPayload{
			To:             s.adminEmail,
			Subject:        fmt.Sprintf("New registration: %s", reg.FablabSection),
			Body:           adminNoticeBody(reg),
			RegistrationID: reg.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("error building admin notice: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

// StatusChangedJob builds the applicant email for an admin decision.
// It returns nil when the applicant has no email.
func (s *NotificationService) StatusChangedJob(reg *models.Registration) (*models.Job, error) {
	if reg.User == nil || reg.User.Email == "" {
		return nil, nil
	}
	job, err := models.NewEmailJob(models.JobTypeRegistrationStatus, models.EmailPayload{
		To:             reg.User.Email,
		Subject:        fmt.Sprintf("FABLAB registration %s | %s", reg.Status, statusAr(reg.Status)),
		Body:           statusBody(reg),
		RegistrationID: reg.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("error building status email: %w", err)
	}
	return job, nil
}

// Enqueue writes jobs through db, normally the transaction that wrote the
// registration.
func (s *NotificationService) Enqueue(ctx context.Context, db repositories.DBTX, jobs ...*models.Job) error {
	jobRepo := repositories.NewJobRepository(db)
	for _, job := range jobs {
		if job == nil {
			continue
		}
		if err := jobRepo.Create(ctx, job); err != nil {
			return fmt.Errorf("error enqueueing %s job: %w", job.JobType, err)
		}
	}
	return nil
}

func confirmationBody(reg *models.Registration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", reg.User.Name)
	fmt.Fprintf(&b, "We received your registration for %s.\n", reg.FablabSection)
	fmt.Fprintf(&b, "Schedule: %s\n", DescribeSchedule(reg.Schedule))
	fmt.Fprintf(&b, "Reference: %s\n", reg.ID)
	b.WriteString("Your request is pending review. We will email you once it is decided.\n\n")
	fmt.Fprintf(&b, "عزيزنا %s،\n\n", reg.User.Name)
	fmt.Fprintf(&b, "تم استلام طلب تسجيلك في قسم %s.\n", reg.FablabSection.NameAr())
	fmt.Fprintf(&b, "الموعد: %s\n", DescribeSchedule(reg.Schedule))
	fmt.Fprintf(&b, "رقم المرجع: %s\n", reg.ID)
	b.WriteString("طلبك قيد المراجعة وسنبلغك بالقرار عبر البريد الإلكتروني.\n")
	return b.String()
}

func adminNoticeBody(reg *models.Registration) string {
	var b strings.Builder
	b.WriteString("A new registration was submitted.\n\n")
	if reg.User != nil {
		fmt.Fprintf(&b, "Applicant: %s <%s>\n", reg.User.Name, reg.User.Email)
		fmt.Fprintf(&b, "Phone: %s\n", reg.User.Phone)
	}
	fmt.Fprintf(&b, "Application type: %s\n", reg.ApplicationType)
	fmt.Fprintf(&b, "Section: %s\n", reg.FablabSection)
	fmt.Fprintf(&b, "Schedule: %s\n", DescribeSchedule(reg.Schedule))
	if reg.Purpose != "" {
		fmt.Fprintf(&b, "Purpose: %s\n", reg.Purpose)
	}
	fmt.Fprintf(&b, "Registration ID: %s\n", reg.ID)
	return b.String()
}

func statusBody(reg *models.Registration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", reg.User.Name)
	fmt.Fprintf(&b, "Your registration for %s (%s) is now %s.\n\n",
		reg.FablabSection, DescribeSchedule(reg.Schedule), reg.Status)
	fmt.Fprintf(&b, "عزيزنا %s،\n\n", reg.User.Name)
	fmt.Fprintf(&b, "حالة طلب تسجيلك في قسم %s أصبحت: %s.\n", reg.FablabSection.NameAr(), statusAr(reg.Status))
	return b.String()
}

func statusAr(status models.RegistrationStatus) string {
	switch status {
	case models.StatusApproved:
		return "مقبول"
	case models.StatusRejected:
		return "مرفوض"
	case models.StatusOnHold:
		return "معلق"
	default:
		return "قيد المراجعة"
	}
}

// DescribeSchedule renders a schedule as a short human-readable line.
func DescribeSchedule(schedule models.Schedule) string {
	switch s := schedule.(type) {
	case models.AppointmentSchedule:
		duration := s.Duration
		if duration <= 0 {
			duration = models.DefaultAppointmentDuration
		}
		return fmt.Sprintf("%s %s (%d min)", s.Date, s.Time, duration)
	case models.VolunteerSchedule:
		return fmt.Sprintf("%s to %s, %s-%s", s.StartDate, s.EndDate, s.StartTime, s.EndTime)
	case models.VisitSchedule:
		return fmt.Sprintf("%s %s-%s", s.Date, s.StartTime, s.EndTime)
	default:
		return ""
	}
}
