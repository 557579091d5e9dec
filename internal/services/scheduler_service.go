package services

import (
	"context"
	"fmt"
	"time"

	"github.com/fablab/fablab-registration/pkg/logger"
	"github.com/robfig/cron/v3"
)

const sweepTimeout = time.Minute

// SchedulerService runs periodic maintenance: expiring section
// deactivations whose end date has passed.
type SchedulerService struct {
	sections *SectionAvailabilityService
	cal      Calendar
	spec     string
	cron     *cron.Cron
}

func NewSchedulerService(sections *SectionAvailabilityService, cal Calendar, spec string) *SchedulerService {
	return &SchedulerService{
		sections: sections,
		cal:      cal,
		spec:     spec,
	}
}

// StartScheduler runs one sweep immediately, then on every tick of the
// cron spec in the calendar's location.
func (s *SchedulerService) StartScheduler() error {
	s.cron = cron.New(
		cron.WithLocation(s.cal.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := s.cron.AddFunc(s.spec, s.runSweep); err != nil {
		return fmt.Errorf("error scheduling deactivation sweep %q: %w", s.spec, err)
	}

	s.runSweep()
	s.cron.Start()
	logger.WithComponent("scheduler").WithField("spec", s.spec).Info("Deactivation sweep scheduled")
	return nil
}

// Stop halts the cron and waits for a running sweep to finish or ctx to end.
func (s *SchedulerService) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Sweep expires ended deactivations as of today and returns how many.
func (s *SchedulerService) Sweep(ctx context.Context) (int64, error) {
	return s.sections.ExpireEnded(ctx, s.cal.Today())
}

func (s *SchedulerService) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := s.Sweep(ctx); err != nil {
		logger.WithComponent("scheduler").WithError(err).Error("Deactivation sweep failed")
	}
}
