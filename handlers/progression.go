// handlers/progression.go
package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"ironquest/middleware"
	"ironquest/models"
	"ironquest/progression"
	"ironquest/utils"
)

type ApplyEventRequest struct {
	GoalTypes []string          `json:"goal_types"`
	Context   progression.Event `json:"context"`
}

func achievementID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, &progression.ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	return uint(id), nil
}

// GetProgression returns the caller's level, XP and lifting totals.
func (h *Handler) GetProgression(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	view, err := h.Progress.Snapshot(c.UserContext(), userID)
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"progression": view})
}

// GetAchievements lists the catalog annotated with the caller's progress.
func (h *Handler) GetAchievements(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	list, err := h.Progress.ListAchievements(c.UserContext(), userID)
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"achievements": list})
}

func (h *Handler) SaveAchievement(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	id, err := achievementID(c)
	if err != nil {
		return utils.RespondError(c, err)
	}
	entry, err := h.Progress.SaveToUser(c.UserContext(), userID, id)
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"entry": entry})
}

func (h *Handler) RemoveAchievement(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	id, err := achievementID(c)
	if err != nil {
		return utils.RespondError(c, err)
	}
	if err := h.Progress.RemoveFromUser(c.UserContext(), userID, id); err != nil {
		return utils.RespondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"removed": id})
}

// ApplyEvent runs an arbitrary event through the coordinator.
func (h *Handler) ApplyEvent(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	var req ApplyEventRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, 400, "Invalid request body")
	}
	if len(req.GoalTypes) == 0 {
		return utils.JSONError(c, 400, "goal_types is required")
	}

	types := make([]models.GoalType, 0, len(req.GoalTypes))
	for _, raw := range req.GoalTypes {
		gt, ok := models.ParseGoalType(raw)
		if !ok {
			return utils.JSONError(c, 400, "Unknown goal type: "+raw)
		}
		types = append(types, gt)
	}

	// LEVEL goals read the stored level, never a client-supplied one.
	req.Context.Level = 0

	result, err := h.Progress.ApplyEvent(c.UserContext(), userID, types, req.Context)
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"result": result})
}
