// services/streak_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marathon-bot/models"
	"marathon-bot/utils"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// StreakStore loads and conditionally saves the shared streak record.
type StreakStore interface {
	LoadStreak(ctx context.Context) (*models.StreakRecord, error)
	SaveStreak(ctx context.Context, rec *models.StreakRecord) error
}

// ParticipantLister returns the registered roster.
type ParticipantLister interface {
	ListParticipants(ctx context.Context) ([]models.Participant, error)
}

// CheckinLookup returns the distinct user ids that checked in on a day.
type CheckinLookup interface {
	CheckedInUserIDs(ctx context.Context, day utils.DateKey) (map[string]struct{}, error)
}

// Notifier posts a message to the group chat.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

var ErrInvalidPrevious = errors.New("invalid previous streak value")

// Outcome names what one evaluation did.
type Outcome string

const (
	OutcomeIncreased        Outcome = "increased"
	OutcomeReset            Outcome = "reset"
	OutcomeRecovered        Outcome = "recovered"
	OutcomeRecoveryExpired  Outcome = "recovery_expired"
	OutcomeStillBroken      Outcome = "still_broken"
	OutcomeNotDesignatedDay Outcome = "not_designated_day"
	OutcomeNoParticipants   Outcome = "no_participants"
	OutcomeAlreadyEvaluated Outcome = "already_evaluated"
	OutcomeRecoveryPending  Outcome = "recovery_pending"
	OutcomeNoChange         Outcome = "no_change"
)

// Changed reports whether the outcome wrote the streak record.
func (o Outcome) Changed() bool {
	switch o {
	case OutcomeIncreased, OutcomeReset, OutcomeRecovered, OutcomeRecoveryExpired, OutcomeStillBroken:
		return true
	}
	return false
}

// RunResult describes one evaluation.
type RunResult struct {
	Outcome   Outcome             `json:"outcome"`
	Message   string              `json:"message"`
	Today     utils.DateKey       `json:"today"`
	Yesterday utils.DateKey       `json:"yesterday"`
	Before    models.StreakRecord `json:"before"`
	After     models.StreakRecord `json:"after"`
	Notified  bool                `json:"notified"`
	NotifyErr string              `json:"notify_error,omitempty"`
}

// StreakService applies the group streak policy. It is the only writer of the
// streak record.
type StreakService struct {
	store    StreakStore
	roster   ParticipantLister
	checkins CheckinLookup
	notifier Notifier
	locker   RunLocker
	logger   *zap.Logger
	loc      *time.Location
	now      func() time.Time
	lockTTL  time.Duration
	lockWait func() backoff.BackOff
}

// StreakOption customises a StreakService.
type StreakOption func(*StreakService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) StreakOption {
	return func(s *StreakService) { s.now = now }
}

// WithLockRetry sets how long TryRecover waits for a busy run lock.
func WithLockRetry(policy func() backoff.BackOff) StreakOption {
	return func(s *StreakService) { s.lockWait = policy }
}

// WithRunLocker serialises evaluations across processes.
func WithRunLocker(l RunLocker, ttl time.Duration) StreakOption {
	return func(s *StreakService) {
		s.locker = l
		s.lockTTL = ttl
	}
}

func NewStreakService(
	store StreakStore,
	roster ParticipantLister,
	checkins CheckinLookup,
	notifier Notifier,
	loc *time.Location,
	logger *zap.Logger,
	opts ...StreakOption,
) *StreakService {
	s := &StreakService{
		store:    store,
		roster:   roster,
		checkins: checkins,
		notifier: notifier,
		logger:   logger.Named("streak"),
		loc:      loc,
		now:      time.Now,
		lockTTL:  2 * time.Minute,
		lockWait: defaultLockWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location is the civil zone days are computed in.
func (s *StreakService) Location() *time.Location { return s.loc }

// Now returns the service clock.
func (s *StreakService) Now() time.Time { return s.now() }

// Today is the current civil day.
func (s *StreakService) Today() utils.DateKey { return utils.CivilDay(s.now(), s.loc) }

// IsRecoveryDay reports whether today is inside rec's recovery window: a break is
// pending, today follows a designated day, and the break was written on that
// designated day or during today's early run.
func IsRecoveryDay(rec *models.StreakRecord, today utils.DateKey, loc *time.Location) bool {
	if rec == nil || !rec.RecoveryPending() {
		return false
	}
	if !today.IsRecoveryDay() {
		return false
	}
	brokeOn := utils.CivilDay(rec.UpdatedAt, loc)
	return brokeOn == today.Yesterday() || brokeOn == today
}

// AllCheckedIn reports whether every participant appears in checkedIn. Ids that
// are not participants are ignored. An empty roster is never complete.
func AllCheckedIn(participants []models.Participant, checkedIn map[string]struct{}) bool {
	if len(participants) == 0 {
		return false
	}
	for _, p := range participants {
		if _, ok := checkedIn[p.UserID]; !ok {
			return false
		}
	}
	return true
}

// Run performs one scheduled evaluation: recovery, then recovery expiry, then
// the completeness check of yesterday.
func (s *StreakService) Run(ctx context.Context) (*RunResult, error) {
	return s.evaluate(ctx, false)
}

// TryRecover performs only the recovery check. Check-in handling calls it so a
// group that completes its recovery day is restored without waiting for the next run.
// A busy run lock is waited for, since the check-in that completes the group may
// be the only chance to recover before the window expires.
func (s *StreakService) TryRecover(ctx context.Context) (*RunResult, error) {
	return s.evaluate(ctx, true)
}

func (s *StreakService) evaluate(ctx context.Context, recoveryOnly bool) (*RunResult, error) {
	now := s.now()
	today := utils.CivilDay(now, s.loc)
	yesterday := today.Yesterday()
	log := s.logger.With(zap.String("today", today.String()), zap.Bool("recovery_only", recoveryOnly))

	if s.locker != nil {
		release, err := s.acquire(ctx, recoveryOnly)
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		defer release()
	}

	rec, err := s.store.LoadStreak(ctx)
	if err != nil {
		return nil, fmt.Errorf("load streak record: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	res := &RunResult{
		Today:     today,
		Yesterday: yesterday,
		Before:    rec.Clone(),
		After:     rec.Clone(),
	}

	participants, err := s.roster.ListParticipants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	if len(participants) == 0 {
		res.Outcome = OutcomeNoParticipants
		res.Message = "no participants registered; nothing to evaluate"
		log.Info(res.Message)
		return res, nil
	}

	if rec.RecoveryPending() {
		if IsRecoveryDay(rec, today, s.loc) {
			done, err := s.recover(ctx, rec, participants, today, now, res)
			if err != nil || done {
				return res, err
			}
		} else if !recoveryOnly {
			return res, s.expire(ctx, rec, now, res)
		}
	}

	if recoveryOnly {
		res.Outcome = OutcomeNoChange
		res.Message = "no recovery applicable"
		return res, nil
	}

	return res, s.evaluateYesterday(ctx, rec, participants, yesterday, now, res)
}

func defaultLockWait() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxElapsedTime = 30 * time.Second
	return backoff.WithMaxRetries(policy, 8)
}

// acquire takes the run lock. Scheduled and manual runs fail fast; the
// recovery path retries while another evaluation holds the lock.
func (s *StreakService) acquire(ctx context.Context, wait bool) (func(), error) {
	if !wait {
		return s.locker.Acquire(ctx, "streak:run", s.lockTTL)
	}
	var release func()
	op := func() error {
		r, err := s.locker.Acquire(ctx, "streak:run", s.lockTTL)
		if errors.Is(err, ErrRunInProgress) {
			s.logger.Debug("run lock busy; retrying recovery check")
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		release = r
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(s.lockWait(), ctx)); err != nil {
		return nil, err
	}
	return release, nil
}

// recover restores a broken streak when everyone checked in today.
// It returns done=false when the group is not complete yet.
func (s *StreakService) recover(ctx context.Context, rec *models.StreakRecord, participants []models.Participant, today utils.DateKey, now time.Time, res *RunResult) (bool, error) {
	prev := *rec.Previous
	if prev <= 0 {
		s.logger.Error("refusing recovery with invalid previous value", zap.Int("previous", prev))
		return true, fmt.Errorf("%w: previous=%d", ErrInvalidPrevious, prev)
	}

	checkedIn, err := s.checkins.CheckedInUserIDs(ctx, today)
	if err != nil {
		return true, fmt.Errorf("load check-ins for %s: %w", today, err)
	}
	if !AllCheckedIn(participants, checkedIn) {
		s.logger.Debug("recovery day but group incomplete",
			zap.Int("checked_in", countParticipants(participants, checkedIn)),
			zap.Int("participants", len(participants)))
		return false, nil
	}

	rec.Current = prev + 1
	rec.Longest = max(rec.Longest, rec.Current)
	rec.Previous = nil
	// the designated day that broke the streak is settled
	rec.EvaluatedDay = string(today.Yesterday())
	rec.UpdatedAt = now
	if err := s.store.SaveStreak(ctx, rec); err != nil {
		return true, fmt.Errorf("save recovered streak: %w", err)
	}

	res.Outcome = OutcomeRecovered
	res.After = rec.Clone()
	res.Message = fmt.Sprintf("streak recovered from %d to %d", prev, rec.Current)
	s.logger.Info(res.Message, zap.Int("longest", rec.Longest))
	s.notify(ctx, res, RecoveryMessage(today, prev, rec.Current))
	return true, nil
}

// expire closes a recovery window that has passed.
func (s *StreakService) expire(ctx context.Context, rec *models.StreakRecord, now time.Time, res *RunResult) error {
	prev := *rec.Previous
	rec.Previous = nil
	rec.UpdatedAt = now
	if err := s.store.SaveStreak(ctx, rec); err != nil {
		return fmt.Errorf("save expired streak: %w", err)
	}
	res.Outcome = OutcomeRecoveryExpired
	res.After = rec.Clone()
	res.Message = fmt.Sprintf("recovery window for streak %d expired", prev)
	s.logger.Info(res.Message)
	return nil
}

// evaluateYesterday increments or breaks the streak based on yesterday's check-ins.
func (s *StreakService) evaluateYesterday(ctx context.Context, rec *models.StreakRecord, participants []models.Participant, yesterday utils.DateKey, now time.Time, res *RunResult) error {
	if !yesterday.IsDesignatedDay() {
		res.Outcome = OutcomeNotDesignatedDay
		res.Message = fmt.Sprintf("yesterday (%s, %s) was not a designated day; streak unchanged", yesterday, yesterday.Weekday())
		s.logger.Info(res.Message)
		return nil
	}
	if rec.EvaluatedDay == string(yesterday) {
		res.Outcome = OutcomeAlreadyEvaluated
		res.Message = fmt.Sprintf("%s was already evaluated; streak unchanged", yesterday)
		s.logger.Info(res.Message)
		return nil
	}
	if rec.RecoveryPending() {
		res.Outcome = OutcomeRecoveryPending
		res.Message = fmt.Sprintf("recovery of streak %d pending; waiting for today's check-ins", *rec.Previous)
		s.logger.Info(res.Message)
		return nil
	}

	checkedIn, err := s.checkins.CheckedInUserIDs(ctx, yesterday)
	if err != nil {
		return fmt.Errorf("load check-ins for %s: %w", yesterday, err)
	}

	before := rec.Current
	var text string
	switch {
	case AllCheckedIn(participants, checkedIn):
		rec.Current++
		rec.Longest = max(rec.Longest, rec.Current)
		res.Outcome = OutcomeIncreased
		res.Message = fmt.Sprintf("everyone checked in on %s; streak increased from %d to %d", yesterday, before, rec.Current)
		text = IncreaseMessage(yesterday, before, rec.Current)
	case rec.Current > 0:
		prev := rec.Current
		rec.Previous = &prev
		rec.Current = 0
		res.Outcome = OutcomeReset
		res.Message = fmt.Sprintf("%d of %d checked in on %s; streak reset from %d to 0",
			countParticipants(participants, checkedIn), len(participants), yesterday, before)
		text = ResetMessage(yesterday, participants, checkedIn, before)
	default:
		res.Outcome = OutcomeStillBroken
		res.Message = fmt.Sprintf("%d of %d checked in on %s; streak stays at 0",
			countParticipants(participants, checkedIn), len(participants), yesterday)
		text = ResetMessage(yesterday, participants, checkedIn, before)
	}

	rec.EvaluatedDay = string(yesterday)
	rec.UpdatedAt = now
	if err := s.store.SaveStreak(ctx, rec); err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	res.After = rec.Clone()
	s.logger.Info(res.Message, zap.String("outcome", string(res.Outcome)), zap.Int("longest", rec.Longest))
	s.notify(ctx, res, text)
	return nil
}

// notify is best effort: the state is already committed.
func (s *StreakService) notify(ctx context.Context, res *RunResult, text string) {
	if s.notifier == nil || text == "" {
		return
	}
	if err := s.notifier.Notify(ctx, text); err != nil {
		res.NotifyErr = err.Error()
		s.logger.Warn("streak notification failed", zap.String("outcome", string(res.Outcome)), zap.Error(err))
		return
	}
	res.Notified = true
}

func countParticipants(participants []models.Participant, checkedIn map[string]struct{}) int {
	n := 0
	for _, p := range participants {
		if _, ok := checkedIn[p.UserID]; ok {
			n++
		}
	}
	return n
}
