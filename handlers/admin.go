// handlers/admin.go
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"ironquest/middleware"
	"ironquest/services"
	"ironquest/utils"
)

// RunWeeklyReset triggers the weekly reset outside its schedule.
func (h *Handler) RunWeeklyReset(c *fiber.Ctx) error {
	adminID, _ := middleware.GetUserID(c)
	result, err := h.Reset.RunOnce(c.UserContext())
	if errors.Is(err, services.ErrLockHeld) {
		return utils.JSONError(c, fiber.StatusConflict, "Weekly reset already running")
	}
	if err != nil {
		return utils.RespondError(c, err)
	}
	h.Log.Info("manual weekly reset",
		zap.Uint("admin_id", adminID),
		zap.Int64("achievements_reset", result.AchievementsReset),
		zap.Int64("users_reset", result.UsersReset))
	return utils.JSONSuccess(c, fiber.Map{"result": result})
}
