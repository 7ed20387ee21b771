// handlers/streak.go
package handlers

import (
	"context"
	"errors"
	"time"

	"marathon-bot/middleware"
	"marathon-bot/models"
	"marathon-bot/services"
	"marathon-bot/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// StreakRunner runs the streak evaluation on demand.
type StreakRunner interface {
	Run(ctx context.Context) (*services.RunResult, error)
	Now() time.Time
	Location() *time.Location
}

// ReadStore backs the read-only API used by the companion front end.
type ReadStore interface {
	LoadStreak(ctx context.Context) (*models.StreakRecord, error)
	ListParticipants(ctx context.Context) ([]models.Participant, error)
	ListCheckins(ctx context.Context, day utils.DateKey) ([]models.Checkin, error)
}

// SetupStreakRoutes mounts the manual trigger and the read API.
func SetupStreakRoutes(app *fiber.App, runner StreakRunner, store ReadStore, adminToken string, logger *zap.Logger) {
	logger = logger.Named("http")

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	// 🔐 Operator trigger, same effect as the scheduled run
	check := manualCheck(runner, logger)
	admin := app.Group("/streak/check", middleware.AdminAuth(adminToken, logger))
	admin.Post("/", check)
	admin.Get("/", check)

	app.Get("/streak", func(c *fiber.Ctx) error {
		rec, err := store.LoadStreak(c.UserContext())
		if errors.Is(err, services.ErrStreakNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "streak record not initialised"})
		}
		if err != nil {
			logger.Error("load streak", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load streak"})
		}
		now := runner.Now()
		return c.JSON(fiber.Map{
			"streak":   rec,
			"emoji":    services.StreakEmoji(rec.Current),
			"dateInfo": utils.NewDayInfo(now, runner.Location()),
		})
	})

	app.Get("/participants", func(c *fiber.Ctx) error {
		participants, err := store.ListParticipants(c.UserContext())
		if err != nil {
			logger.Error("list participants", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list participants"})
		}
		return c.JSON(fiber.Map{"participants": participants, "count": len(participants)})
	})

	app.Get("/checkins/:day", func(c *fiber.Ctx) error {
		raw := c.Params("day")
		if raw == "today" {
			raw = utils.CivilDay(runner.Now(), runner.Location()).String()
		}
		day, err := utils.ParseDateKey(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "day must be YYYY-MM-DD or today"})
		}
		checkins, err := store.ListCheckins(c.UserContext(), day)
		if err != nil {
			logger.Error("list checkins", zap.String("day", day.String()), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list check-ins"})
		}
		return c.JSON(fiber.Map{
			"day":        day,
			"designated": day.IsDesignatedDay(),
			"checkins":   checkins,
			"count":      len(checkins),
		})
	})
}

func manualCheck(runner StreakRunner, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		debug := c.QueryBool("debug", false)
		logger.Info("manual streak check requested", zap.String("ip", c.IP()), zap.Bool("debug", debug))

		res, err := runner.Run(c.UserContext())
		now := runner.Now()
		if err != nil {
			logger.Error("manual streak check failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success":   false,
				"error":     err.Error(),
				"timestamp": now.Format(time.RFC3339),
			})
		}

		body := fiber.Map{
			"success":   true,
			"message":   res.Message,
			"outcome":   res.Outcome,
			"timestamp": now.Format(time.RFC3339),
			"dateInfo":  utils.NewDayInfo(now, runner.Location()),
		}
		if debug {
			body["before"] = res.Before
			body["after"] = res.After
			body["notified"] = res.Notified
			if res.NotifyErr != "" {
				body["notifyError"] = res.NotifyErr
			}
		}
		return c.JSON(body)
	}
}
