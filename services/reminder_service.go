// services/reminder_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"marathon-bot/utils"

	"go.uber.org/zap"
)

// ReminderStore is what reminders read.
type ReminderStore interface {
	ParticipantLister
	CheckinLookup
}

// ReminderService posts the day's check-in status to the group on designated days.
type ReminderService struct {
	store    ReminderStore
	notifier Notifier
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

func NewReminderService(store ReminderStore, notifier Notifier, loc *time.Location, logger *zap.Logger) *ReminderService {
	return &ReminderService{
		store:    store,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,
		logger:   logger.Named("reminder"),
	}
}

// Remind sends the status message. final marks the last reminder of the day.
// It reports whether a message was sent.
func (s *ReminderService) Remind(ctx context.Context, final bool) (bool, error) {
	today := utils.CivilDay(s.now(), s.loc)
	log := s.logger.With(zap.String("day", today.String()), zap.Bool("final", final))

	if !today.IsDesignatedDay() {
		log.Info("not a designated day; skipping reminder", zap.String("weekday", today.Weekday().String()))
		return false, nil
	}

	participants, err := s.store.ListParticipants(ctx)
	if err != nil {
		return false, fmt.Errorf("list participants: %w", err)
	}
	if len(participants) == 0 {
		log.Info("no participants registered; skipping reminder")
		return false, nil
	}
	checkedIn, err := s.store.CheckedInUserIDs(ctx, today)
	if err != nil {
		return false, fmt.Errorf("load check-ins for %s: %w", today, err)
	}

	if err := s.notifier.Notify(ctx, ReminderMessage(today, participants, checkedIn, final)); err != nil {
		return false, fmt.Errorf("send reminder: %w", err)
	}
	log.Info("reminder sent", zap.Int("checked_in", countParticipants(participants, checkedIn)), zap.Int("participants", len(participants)))
	return true, nil
}
