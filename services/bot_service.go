// services/bot_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strconv"
	"strings"
	"time"

	"marathon-bot/models"
	"marathon-bot/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// BotStore is the persistence the command handlers use.
type BotStore interface {
	UpsertParticipant(ctx context.Context, p *models.Participant) error
	SetMission(ctx context.Context, userID, mission string) error
	ListParticipants(ctx context.Context) ([]models.Participant, error)
	RecordCheckin(ctx context.Context, in CheckinInput) (*models.Checkin, error)
	CheckedInUserIDs(ctx context.Context, day utils.DateKey) (map[string]struct{}, error)
	LoadStreak(ctx context.Context) (*models.StreakRecord, error)
}

// PhotoStore keeps check-in photos and returns a public URL. *utils.R2Store
// implements it.
type PhotoStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Recoverer restores a broken streak once the recovery day is complete.
type Recoverer interface {
	TryRecover(ctx context.Context) (*RunResult, error)
}

type Downloader func(ctx context.Context, url string) ([]byte, string, error)

type BotService struct {
	store     BotStore
	messenger Messenger
	streak    Recoverer
	photos    PhotoStore
	download  Downloader
	botName   string
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

type BotOption func(*BotService)

func WithPhotoStore(p PhotoStore) BotOption {
	return func(s *BotService) { s.photos = p }
}

func WithDownloader(d Downloader) BotOption {
	return func(s *BotService) { s.download = d }
}

func WithBotName(name string) BotOption {
	return func(s *BotService) { s.botName = name }
}

func WithBotClock(now func() time.Time) BotOption {
	return func(s *BotService) { s.now = now }
}

func NewBotService(store BotStore, messenger Messenger, streak Recoverer, loc *time.Location, logger *zap.Logger, opts ...BotOption) *BotService {
	s := &BotService{
		store:     store,
		messenger: messenger,
		streak:    streak,
		loc:       loc,
		now:       time.Now,
		logger:    logger.Named("bot"),
		download: func(ctx context.Context, url string) ([]byte, string, error) {
			return utils.Download(ctx, utils.HTTPClient, url)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleUpdate dispatches one Telegram update. Failures are reported to the chat
// and returned; non-command messages are ignored.
func (s *BotService) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return nil
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	cmd, args := ParseCommand(text, s.botName)
	if cmd == CommandNone {
		return nil
	}

	log := s.logger.With(
		zap.String("command", cmd.String()),
		zap.Int64("user_id", msg.From.ID),
		zap.Int64("chat_id", msg.Chat.ID),
	)
	log.Info("command received")

	if err := s.dispatch(ctx, cmd, args, msg); err != nil {
		log.Error("command failed", zap.Error(err))
		reply := fmt.Sprintf("Something went wrong while handling /%s: %v", cmd, err)
		if sendErr := s.messenger.SendText(ctx, msg.Chat.ID, reply, msg.MessageID); sendErr != nil {
			log.Warn("failed to report command error", zap.Error(sendErr))
		}
		return err
	}
	return nil
}

func (s *BotService) dispatch(ctx context.Context, cmd Command, args string, msg *tgbotapi.Message) error {
	switch cmd {
	case CommandCheckin:
		return s.checkin(ctx, args, msg)
	case CommandToday:
		return s.today(ctx, msg)
	case CommandStreak:
		return s.streakStatus(ctx, msg)
	case CommandMission:
		return s.mission(ctx, args, msg)
	default:
		return s.reply(ctx, msg, HelpText)
	}
}

func (s *BotService) checkin(ctx context.Context, content string, msg *tgbotapi.Message) error {
	now := s.now()
	day := utils.CivilDay(now, s.loc)
	userID := strconv.FormatInt(msg.From.ID, 10)
	name := DisplayName(msg.From)

	if err := s.store.UpsertParticipant(ctx, &models.Participant{
		UserID:      userID,
		DisplayName: name,
		ChatID:      msg.Chat.ID,
	}); err != nil {
		return fmt.Errorf("register participant: %w", err)
	}

	var photoRef string
	if len(msg.Photo) > 0 {
		photo := largestPhoto(msg.Photo)
		ref, err := s.storePhoto(ctx, day, name, photo)
		if err != nil {
			// the check-in still counts without the upload
			s.logger.Warn("photo upload failed", zap.String("file_id", photo.FileID), zap.Error(err))
			ref = "telegram:file/" + photo.FileID
		}
		photoRef = ref
	}

	if _, err := s.store.RecordCheckin(ctx, CheckinInput{
		UserID:      userID,
		DisplayName: name,
		ChatID:      msg.Chat.ID,
		Content:     content,
		PhotoRef:    photoRef,
		Day:         day,
		At:          now,
	}); err != nil {
		return fmt.Errorf("record check-in: %w", err)
	}

	participants, checkedIn, err := s.progress(ctx, day)
	if err != nil {
		return err
	}
	if err := s.reply(ctx, msg, CheckinReply(name, day, countParticipants(participants, checkedIn), len(participants), photoRef != "")); err != nil {
		return err
	}

	if s.streak != nil {
		if res, err := s.streak.TryRecover(ctx); err != nil {
			s.logger.Warn("recovery check after check-in failed", zap.Error(err))
		} else if res.Outcome == OutcomeRecovered {
			s.logger.Info("streak recovered by check-in", zap.String("user_id", userID))
		}
	}
	return nil
}

func (s *BotService) today(ctx context.Context, msg *tgbotapi.Message) error {
	day := utils.CivilDay(s.now(), s.loc)
	participants, checkedIn, err := s.progress(ctx, day)
	if err != nil {
		return err
	}
	return s.reply(ctx, msg, TodayMessage(day, participants, checkedIn))
}

func (s *BotService) streakStatus(ctx context.Context, msg *tgbotapi.Message) error {
	rec, err := s.store.LoadStreak(ctx)
	if errors.Is(err, ErrStreakNotFound) {
		return s.reply(ctx, msg, "Streak data not found. Please ask an admin to initialise it.")
	}
	if err != nil {
		return fmt.Errorf("load streak: %w", err)
	}
	return s.reply(ctx, msg, StreakStatusMessage(rec, utils.CivilDay(s.now(), s.loc), s.loc))
}

func (s *BotService) mission(ctx context.Context, mission string, msg *tgbotapi.Message) error {
	if mission == "" {
		return s.reply(ctx, msg, "Usage: /mission <text>")
	}
	err := s.store.SetMission(ctx, strconv.FormatInt(msg.From.ID, 10), mission)
	if errors.Is(err, ErrUnknownParticipant) {
		return s.reply(ctx, msg, "Check in once with /checkin before setting a mission.")
	}
	if err != nil {
		return fmt.Errorf("set mission: %w", err)
	}
	return s.reply(ctx, msg, fmt.Sprintf("🎯 Mission for %s: %s", DisplayName(msg.From), mission))
}

func (s *BotService) progress(ctx context.Context, day utils.DateKey) ([]models.Participant, map[string]struct{}, error) {
	participants, err := s.store.ListParticipants(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list participants: %w", err)
	}
	checkedIn, err := s.store.CheckedInUserIDs(ctx, day)
	if err != nil {
		return nil, nil, fmt.Errorf("load check-ins for %s: %w", day, err)
	}
	return participants, checkedIn, nil
}

// storePhoto copies a Telegram photo into the photo store.
func (s *BotService) storePhoto(ctx context.Context, day utils.DateKey, name string, photo tgbotapi.PhotoSize) (string, error) {
	if s.photos == nil {
		return "telegram:file/" + photo.FileID, nil
	}
	url, err := s.messenger.FileURL(ctx, photo.FileID)
	if err != nil {
		return "", err
	}
	body, contentType, err := s.download(ctx, url)
	if err != nil {
		return "", fmt.Errorf("download photo: %w", err)
	}
	return s.photos.Put(ctx, PhotoKey(day, name, contentType), body, contentType)
}

func (s *BotService) reply(ctx context.Context, msg *tgbotapi.Message, text string) error {
	return s.messenger.SendText(ctx, msg.Chat.ID, text, msg.MessageID)
}

// PhotoKey builds the object key "checkins/<day>/<name>-<uuid><ext>".
func PhotoKey(day utils.DateKey, name, contentType string) string {
	base := slug.Make(name)
	if base == "" {
		base = "runner"
	}
	ext := ".jpg"
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 && contentType != "image/jpeg" {
		ext = exts[0]
	}
	return fmt.Sprintf("checkins/%s/%s-%s%s", day, base, uuid.NewString(), ext)
}

// DisplayName is the user's full name, falling back to the @username.
func DisplayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	if name == "" {
		name = strconv.FormatInt(u.ID, 10)
	}
	return name
}

func largestPhoto(sizes []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	best := sizes[0]
	for _, p := range sizes[1:] {
		if p.Width*p.Height > best.Width*best.Height {
			best = p
		}
	}
	return best
}
