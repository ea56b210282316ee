// handlers/handlers.go - HTTP surface of the progression engine
package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ironquest/middleware"
	"ironquest/services"
)

// Handler carries the services every route needs.
type Handler struct {
	DB       *gorm.DB
	Auth     *middleware.Auth
	Progress *services.ProgressionService
	Quests   *services.QuestService
	Activity *services.ActivityService
	Reset    *services.WeeklyResetRunner
	Hub      *services.Hub
	Log      *zap.Logger

	// AuthLimiter throttles register and login per client IP; nil disables it.
	AuthLimiter *middleware.RateLimiter
}

// Routes mounts every endpoint on app.
func (h *Handler) Routes(app *fiber.App) {
	if h.Log == nil {
		h.Log = zap.NewNop()
	}

	app.Get("/health", h.Health)

	api := app.Group("/api")

	authGroup := api.Group("/auth", middleware.FiberAuthRateLimitMiddleware(h.AuthLimiter))
	authGroup.Post("/register", h.Register)
	authGroup.Post("/login", h.Login)

	required := h.Auth.Required()

	progressionGroup := api.Group("/progression", required)
	progressionGroup.Get("/", h.GetProgression)
	progressionGroup.Get("/achievements", h.GetAchievements)
	progressionGroup.Post("/achievements/:id", h.SaveAchievement)
	progressionGroup.Delete("/achievements/:id", h.RemoveAchievement)
	progressionGroup.Post("/events", h.ApplyEvent)

	api.Get("/leaderboard", h.GetLeaderboard)

	api.Post("/workouts", required, h.RecordWorkout)
	api.Post("/weights", required, h.LogWeight)

	questGroup := api.Group("/quests", required)
	questGroup.Get("/", h.GetQuest)
	questGroup.Put("/", h.UpsertQuest)
	questGroup.Post("/complete", h.CompleteQuest)

	userGroup := api.Group("/users", required)
	userGroup.Put("/me/push-token", h.UpdatePushToken)

	adminGroup := api.Group("/admin", required, h.Auth.Admin())
	adminGroup.Post("/weekly-reset", h.RunWeeklyReset)
	adminGroup.Get("/achievements", h.GetCatalog)
	adminGroup.Post("/achievements", h.CreateCatalogEntry)
	adminGroup.Put("/achievements/:id", h.UpdateCatalogEntry)
	adminGroup.Delete("/achievements/:id", h.DeleteCatalogEntry)

	app.Get("/ws/progress", h.Auth.WebSocket(), h.upgradeOnly, websocket.New(h.LiveProgress))
}

func (h *Handler) Health(c *fiber.Ctx) error {
	status := "healthy"
	code := fiber.StatusOK
	if h.DB != nil {
		if sqlDB, err := h.DB.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}
	}
	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().Unix(),
	})
}

// ErrorHandler renders errors that escape a handler in the standard envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}
