package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marathon-bot/config"
	"marathon-bot/handlers"
	"marathon-bot/services"
	"marathon-bot/utils"
	"marathon-bot/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "marathon-bot",
		Short:         "Telegram check-in bot that keeps the running group's shared streak",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCommand(), newCheckCommand(), newInitStreakCommand(), newMigrateCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server, scheduler and bot (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newCheckCommand() *cobra.Command {
	var debug, quiet bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate the streak once, as the 00:01 job does",
		Long: `Evaluate the streak once, exactly like the scheduled run.

Running it twice on the same day is a no-op the second time.

Example:
  marathon-bot check --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := bootstrap()
			if err != nil {
				return err
			}
			defer env.close()

			var notifier services.Notifier
			if !quiet {
				tg, err := services.NewTelegramClient(env.cfg.TelegramBotToken, env.cfg.BotDebug, env.logger)
				if err != nil {
					return err
				}
				notifier = services.ChatNotifier{Messenger: tg, ChatID: env.cfg.GroupChatID}
			}
			streak, err := env.streakService(cmd.Context(), notifier)
			if err != nil {
				return err
			}

			res, err := streak.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("streak check: %w", err)
			}
			out := map[string]any{
				"outcome":  res.Outcome,
				"message":  res.Message,
				"dateInfo": utils.NewDayInfo(streak.Now(), streak.Location()),
			}
			if debug {
				out["before"] = res.Before
				out["after"] = res.After
				out["notifyError"] = res.NotifyErr
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "include the record before and after the run")
	cmd.Flags().BoolVar(&quiet, "no-notify", false, "do not post to the group chat")
	return cmd
}

func newInitStreakCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init-streak",
		Short: "Create the group's streak record if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := bootstrap()
			if err != nil {
				return err
			}
			defer env.close()

			rec, err := env.store.InitStreak(cmd.Context(), time.Now())
			if err != nil {
				return fmt.Errorf("init streak: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ streak record ready: current=%d longest=%d\n", rec.Current, rec.Longest)
			return nil
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := bootstrap()
			if err != nil {
				return err
			}
			defer env.close()
			fmt.Fprintln(cmd.OutOrStdout(), "✅ schema migrated")
			return nil
		},
	}
}

// environment is the shared wiring of every subcommand.
type environment struct {
	cfg    config.AppConfig
	logger *zap.Logger
	db     *gorm.DB
	store  *services.Store
	redis  *redis.Client
}

func bootstrap() (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := utils.NewLogger(cfg.LogOptions())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := services.OpenDatabase(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := services.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	env := &environment{cfg: cfg, logger: logger, db: db, store: services.NewStore(db)}
	if cfg.RedisAddr != "" {
		env.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return env, nil
}

func (e *environment) close() {
	if e.redis != nil {
		_ = e.redis.Close()
	}
	if sqlDB, err := e.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = e.logger.Sync()
}

func (e *environment) streakService(ctx context.Context, notifier services.Notifier) (*services.StreakService, error) {
	var opts []services.StreakOption
	if e.redis != nil {
		if err := e.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		opts = append(opts, services.WithRunLocker(services.NewRedisRunLock(e.redis, e.logger), e.cfg.RunLockTTL))
		e.logger.Info("streak run lock enabled", zap.String("redis", e.cfg.RedisAddr))
	}
	return services.NewStreakService(e.store, e.store, e.store, notifier, e.cfg.Location(), e.logger, opts...), nil
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := bootstrap()
	if err != nil {
		return err
	}
	defer env.close()
	cfg, logger, loc := env.cfg, env.logger, env.cfg.Location()

	tg, err := services.NewTelegramClient(cfg.TelegramBotToken, cfg.BotDebug, logger)
	if err != nil {
		return err
	}
	notifier := services.ChatNotifier{Messenger: tg, ChatID: cfg.GroupChatID}

	streak, err := env.streakService(ctx, notifier)
	if err != nil {
		return err
	}

	botOpts := []services.BotOption{services.WithBotName(tg.Username())}
	if cfg.R2Enabled() {
		r2, err := utils.NewR2Store(ctx, utils.R2Options{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			Bucket:          cfg.R2Bucket,
			CDNBaseURL:      cfg.CDNBaseURL,
		})
		if err != nil {
			return err
		}
		botOpts = append(botOpts, services.WithPhotoStore(r2))
		logger.Info("photo uploads go to R2", zap.String("bucket", cfg.R2Bucket))
	} else {
		logger.Warn("R2 is not configured; check-in photos are stored as telegram file references")
	}
	bot := services.NewBotService(env.store, tg, streak, loc, logger, botOpts...)
	reminders := services.NewReminderService(env.store, notifier, loc, logger)

	scheduler, err := services.NewScheduler(ctx, loc, logger)
	if err != nil {
		return err
	}
	if err := services.RegisterJobs(scheduler, services.Schedules{
		StreakCheck:      cfg.StreakCheckCron,
		EveningReminder:  cfg.EveningReminderCron,
		NightReminder:    cfg.NightReminderCron,
		RemindersEnabled: cfg.RemindersEnabled,
	}, streak, reminders); err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			logger.Warn("scheduler shutdown", zap.Error(err))
		}
	}()

	if cfg.WebhookURL != "" {
		if err := tg.SetWebhook(cfg.WebhookURL, cfg.WebhookSecret); err != nil {
			return err
		}
	} else {
		if err := tg.DeleteWebhook(); err != nil {
			logger.Warn("could not clear webhook before polling", zap.Error(err))
		}
		workers.NewUpdatePoller(tg.Bot, bot, logger).Start(ctx)
	}

	app := fiber.New(fiber.Config{
		AppName:               "marathon-bot",
		DisableStartupMessage: true,
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Origins(),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       86400, // 24 hours
	}))
	handlers.SetupWebhookRoutes(app, bot, cfg.WebhookSecret, logger)
	handlers.SetupStreakRoutes(app, streak, env.store, cfg.AdminToken, logger)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()
	logger.Info("server running",
		zap.String("port", cfg.Port),
		zap.String("zone", loc.String()),
		zap.Bool("webhook", cfg.WebhookURL != ""),
		zap.String("origins", cfg.Origins()),
	)

	<-ctx.Done()
	logger.Info("shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}
