package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"marathon-bot/utils"

	"github.com/joho/godotenv"
)

// ErrMissingSetting marks configuration the process cannot start without.
var ErrMissingSetting = errors.New("missing required setting")

// AppConfig holds environment driven configuration values.
// Secrets have no defaults and must come from the environment or a .env file.
type AppConfig struct {
	Port           string
	DatabaseURL    string
	AllowedOrigins string
	AdminToken     string // bearer token for the manual trigger

	// Telegram
	TelegramBotToken string
	GroupChatID      int64
	WebhookURL       string // empty switches the bot to long polling
	WebhookSecret    string
	BotDebug         bool

	// Streak calendar and schedules
	TimezoneOffsetHours int
	StreakCheckCron     string
	EveningReminderCron string
	NightReminderCron   string
	RemindersEnabled    bool

	// Redis run lock (optional)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RunLockTTL    time.Duration

	// Cloudflare R2 photo storage (optional)
	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2Bucket          string
	CDNBaseURL        string

	// Logging
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

// Load reads .env (when present) and the environment. Missing required
// settings are reported together as one error.
func Load() (AppConfig, error) {
	_ = godotenv.Load()

	cfg := AppConfig{
		Port:                getEnv("PORT", "5200"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		AllowedOrigins:      getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		AdminToken:          getEnv("ADMIN_TOKEN", ""),
		TelegramBotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:          getEnv("WEBHOOK_URL", ""),
		WebhookSecret:       getEnv("WEBHOOK_SECRET", ""),
		BotDebug:            getBool("BOT_DEBUG", false),
		TimezoneOffsetHours: getInt("TZ_OFFSET_HOURS", 9),
		StreakCheckCron:     getEnv("STREAK_CHECK_CRON", "1 0 * * *"),
		EveningReminderCron: getEnv("EVENING_REMINDER_CRON", "0 20 * * *"),
		NightReminderCron:   getEnv("NIGHT_REMINDER_CRON", "0 23 * * *"),
		RemindersEnabled:    getBool("REMINDERS_ENABLED", true),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getInt("REDIS_DB", 0),
		RunLockTTL:          time.Duration(getInt("RUN_LOCK_TTL_SECONDS", 120)) * time.Second,
		R2AccountID:         getEnv("CLOUDFLARE_ACCOUNT_ID", ""),
		R2AccessKeyID:       getEnv("R2_ACCESS_KEY_ID", ""),
		R2AccessKeySecret:   getEnv("R2_ACCESS_KEY_SECRET", ""),
		R2Bucket:            getEnv("R2_BUCKET_NAME", ""),
		CDNBaseURL:          getEnv("CDN_BASE_URL", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogPath:             getEnv("LOG_PATH", ""),
		LogMaxSizeMB:        getInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups:       getInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays:       getInt("LOG_MAX_AGE_DAYS", 7),
		LogCompress:         getBool("LOG_COMPRESS", false),
	}

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.TelegramBotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	groupChat := getEnv("GROUP_CHAT_ID", "")
	if groupChat == "" {
		missing = append(missing, "GROUP_CHAT_ID")
	} else {
		id, err := strconv.ParseInt(groupChat, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("GROUP_CHAT_ID %q is not an integer: %w", groupChat, err)
		}
		cfg.GroupChatID = id
	}
	if len(missing) > 0 {
		return cfg, fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(missing, ", "))
	}
	if cfg.TimezoneOffsetHours < -12 || cfg.TimezoneOffsetHours > 14 {
		return cfg, fmt.Errorf("TZ_OFFSET_HOURS %d out of range", cfg.TimezoneOffsetHours)
	}
	return cfg, nil
}

// Location is the fixed civil zone every day and weekday is computed in.
func (c AppConfig) Location() *time.Location {
	return utils.FixedZone(c.TimezoneOffsetHours)
}

// LogOptions maps the LOG_* settings onto the logger.
func (c AppConfig) LogOptions() utils.LogOptions {
	return utils.LogOptions{
		Level:      c.LogLevel,
		Path:       c.LogPath,
		MaxSizeMB:  c.LogMaxSizeMB,
		MaxBackups: c.LogMaxBackups,
		MaxAgeDays: c.LogMaxAgeDays,
		Compress:   c.LogCompress,
	}
}

// R2Enabled reports whether photo uploads can go to object storage.
func (c AppConfig) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2AccessKeySecret != "" && c.R2Bucket != ""
}

// Origins splits ALLOWED_ORIGINS and trims each entry.
func (c AppConfig) Origins() string {
	parts := strings.Split(c.AllowedOrigins, ",")
	for i, origin := range parts {
		parts[i] = strings.TrimSpace(origin)
	}
	return strings.Join(parts, ",")
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return v
}

func getBool(key string, defaultVal bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return v
}
