// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Scheduler runs cron jobs in the group's fixed zone. A job never overlaps
// itself; a tick that fires while the previous run is still going is skipped.
type Scheduler struct {
	sched   gocron.Scheduler
	ctx     context.Context
	timeout time.Duration
	logger  *zap.Logger
}

func NewScheduler(ctx context.Context, loc *time.Location, logger *zap.Logger) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{sched: sched, ctx: ctx, timeout: 5 * time.Minute, logger: logger.Named("scheduler")}, nil
}

// Add registers run under a 5-field cron expression.
func (s *Scheduler) Add(name, expr string, run func(context.Context) error) error {
	_, err := s.sched.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
			defer cancel()

			start := time.Now()
			if err := run(ctx); err != nil {
				s.logger.Error("job failed", zap.String("job", name), zap.Error(err))
				return
			}
			s.logger.Info("job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, expr, err)
	}
	s.logger.Info("job scheduled", zap.String("job", name), zap.String("cron", expr))
	return nil
}

// JobNames lists registered jobs.
func (s *Scheduler) JobNames() []string {
	jobs := s.sched.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}

func (s *Scheduler) Start() { s.sched.Start() }

func (s *Scheduler) Shutdown() error { return s.sched.Shutdown() }

// Schedules holds the cron expressions of the recurring jobs.
type Schedules struct {
	StreakCheck      string
	EveningReminder  string
	NightReminder    string
	RemindersEnabled bool
}

// RegisterJobs adds the streak check and, when enabled, both reminders.
func RegisterJobs(s *Scheduler, cfg Schedules, streak *StreakService, reminders *ReminderService) error {
	if err := s.Add("streak-check", cfg.StreakCheck, func(ctx context.Context) error {
		res, err := streak.Run(ctx)
		if err != nil {
			return err
		}
		s.logger.Info("streak check complete", zap.String("outcome", string(res.Outcome)), zap.String("message", res.Message))
		return nil
	}); err != nil {
		return err
	}
	if !cfg.RemindersEnabled || reminders == nil {
		return nil
	}
	if err := s.Add("evening-reminder", cfg.EveningReminder, func(ctx context.Context) error {
		_, err := reminders.Remind(ctx, false)
		return err
	}); err != nil {
		return err
	}
	return s.Add("night-reminder", cfg.NightReminder, func(ctx context.Context) error {
		_, err := reminders.Remind(ctx, true)
		return err
	})
}
