// services/store.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"marathon-bot/models"
	"marathon-bot/utils"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var (
	ErrStreakNotFound     = errors.New("streak record not found")
	ErrStaleStreak        = errors.New("streak record was modified concurrently")
	ErrUnknownParticipant = errors.New("participant not registered")
)

// OpenDatabase connects to postgres ("postgres://…") or, for anything else, a
// sqlite file path (local runs).
func OpenDatabase(dsn string) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return gorm.Open(postgres.Open(dsn), gcfg)
	}
	return gorm.Open(sqlite.Open(strings.TrimPrefix(dsn, "sqlite://")), gcfg)
}

// Migrate creates or updates every table the bot uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Participant{},
		&models.Checkin{},
		&models.StreakRecord{},
	)
}

// Store is the gorm-backed repository for participants, check-ins and the streak record.
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// InitStreak creates the singleton streak record if it does not exist (idempotent).
func (s *Store) InitStreak(ctx context.Context, now time.Time) (*models.StreakRecord, error) {
	rec := models.StreakRecord{ID: models.StreakRecordID, UpdatedAt: now}
	if err := s.DB.WithContext(ctx).
		Where(models.StreakRecord{ID: models.StreakRecordID}).
		FirstOrCreate(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// LoadStreak returns the singleton record. It never substitutes a default.
func (s *Store) LoadStreak(ctx context.Context) (*models.StreakRecord, error) {
	var rec models.StreakRecord
	err := s.DB.WithContext(ctx).Where("id = ?", models.StreakRecordID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStreakNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveStreak writes rec if nobody else wrote since it was loaded (compare-and-set on
// Version). On success rec.Version is advanced.
func (s *Store) SaveStreak(ctx context.Context, rec *models.StreakRecord) error {
	res := s.DB.WithContext(ctx).
		Model(&models.StreakRecord{}).
		Where("id = ? AND version = ?", models.StreakRecordID, rec.Version).
		Updates(map[string]interface{}{
			"current":       rec.Current,
			"longest":       rec.Longest,
			"previous":      rec.Previous,
			"evaluated_day": rec.EvaluatedDay,
			"updated_at":    rec.UpdatedAt,
			"version":       rec.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleStreak
	}
	rec.Version++
	return nil
}

// UpsertParticipant registers the user or refreshes their name and chat.
// The mission label is left untouched.
func (s *Store) UpsertParticipant(ctx context.Context, p *models.Participant) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "chat_id", "updated_at"}),
	}).Create(p).Error
}

// SetMission stores the free-text mission label of a registered participant.
func (s *Store) SetMission(ctx context.Context, userID, mission string) error {
	var value *string
	if mission != "" {
		value = &mission
	}
	res := s.DB.WithContext(ctx).
		Model(&models.Participant{}).
		Where("user_id = ?", userID).
		Update("mission", value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUnknownParticipant
	}
	return nil
}

// ListParticipants returns the roster in registration order.
func (s *Store) ListParticipants(ctx context.Context) ([]models.Participant, error) {
	var participants []models.Participant
	if err := s.DB.WithContext(ctx).Order("created_at ASC, user_id ASC").Find(&participants).Error; err != nil {
		return nil, err
	}
	return participants, nil
}

// CheckinInput is everything a check-in writer supplies.
type CheckinInput struct {
	UserID      string
	DisplayName string
	ChatID      int64
	Content     string
	PhotoRef    string
	Day         utils.DateKey
	At          time.Time
}

// RecordCheckin appends one check-in under its day.
func (s *Store) RecordCheckin(ctx context.Context, in CheckinInput) (*models.Checkin, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("record checkin: empty user id")
	}
	c := &models.Checkin{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		DisplayName: in.DisplayName,
		ChatID:      in.ChatID,
		Content:     in.Content,
		DayKey:      string(in.Day),
		CreatedAt:   in.At,
	}
	if in.PhotoRef != "" {
		ref := in.PhotoRef
		c.PhotoRef = &ref
	}
	if err := s.DB.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// ListCheckins returns every check-in of a day, oldest first.
func (s *Store) ListCheckins(ctx context.Context, day utils.DateKey) ([]models.Checkin, error) {
	var checkins []models.Checkin
	if err := s.DB.WithContext(ctx).
		Where("day_key = ?", string(day)).
		Order("created_at ASC").
		Find(&checkins).Error; err != nil {
		return nil, err
	}
	return checkins, nil
}

// CheckedInUserIDs returns the distinct users who checked in on day.
func (s *Store) CheckedInUserIDs(ctx context.Context, day utils.DateKey) (map[string]struct{}, error) {
	var ids []string
	if err := s.DB.WithContext(ctx).
		Model(&models.Checkin{}).
		Where("day_key = ?", string(day)).
		Distinct().
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}
