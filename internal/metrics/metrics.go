package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	availabilityQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fablab",
			Name:      "availability_queries_total",
			Help:      "Count of public available-slot queries by section.",
		},
		[]string{"section"},
	)

	slotConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fablab",
			Name:      "slot_conflicts_total",
			Help:      "Count of write-time conflict check rejections by reason.",
		},
		[]string{"reason"},
	)

	registrationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fablab",
			Name:      "registrations_created_total",
			Help:      "Count of registrations created by application type.",
		},
		[]string{"application_type"},
	)

	registrationDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fablab",
			Name:      "registration_decisions_total",
			Help:      "Count of admin status transitions by target status.",
		},
		[]string{"status"},
	)

	deactivationsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fablab",
			Name:      "section_deactivations_expired_total",
			Help:      "Count of section deactivations auto-expired by the sweep.",
		},
	)

	notificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fablab",
			Name:      "notifications_total",
			Help:      "Count of notification deliveries by job type and result.",
		},
		[]string{"job_type", "result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			availabilityQueries,
			slotConflicts,
			registrationsCreated,
			registrationDecisions,
			deactivationsExpired,
			notificationsSent,
		)
	})
}

func IncAvailabilityQuery(section string) {
	availabilityQueries.WithLabelValues(section).Inc()
}

func IncSlotConflict(reason string) {
	slotConflicts.WithLabelValues(reason).Inc()
}

func IncRegistrationCreated(applicationType string) {
	registrationsCreated.WithLabelValues(applicationType).Inc()
}

func IncRegistrationDecision(status string) {
	registrationDecisions.WithLabelValues(status).Inc()
}

func AddDeactivationsExpired(n int) {
	if n > 0 {
		deactivationsExpired.Add(float64(n))
	}
}

func IncNotification(jobType, result string) {
	notificationsSent.WithLabelValues(jobType, result).Inc()
}
