// handlers/activity.go
package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"ironquest/middleware"
	"ironquest/services"
	"ironquest/utils"
)

type LogWeightRequest struct {
	Weight   float64   `json:"weight"`
	LoggedAt time.Time `json:"logged_at"`
}

// RecordWorkout stores a finished workout and applies its progression.
func (h *Handler) RecordWorkout(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	var req services.WorkoutInput
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, 400, "Invalid request body")
	}

	result, err := h.Activity.RecordWorkout(c.UserContext(), userID, req)
	if err != nil {
		return utils.RespondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"workout": result.Workout,
		"result":  result.Event,
	})
}

func (h *Handler) LogWeight(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	var req LogWeightRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, 400, "Invalid request body")
	}

	result, err := h.Activity.LogWeight(c.UserContext(), userID, req.Weight, req.LoggedAt)
	if err != nil {
		return utils.RespondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"entry":   result.Entry,
		"result":  result.Event,
	})
}
