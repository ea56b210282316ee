// handlers/quests.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"ironquest/middleware"
	"ironquest/services"
	"ironquest/utils"
)

func (h *Handler) GetQuest(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	quest, err := h.Quests.Get(c.UserContext(), userID)
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"quest": quest})
}

// UpsertQuest sets the caller's quest, replacing any existing one.
func (h *Handler) UpsertQuest(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	var req services.QuestInput
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, 400, "Invalid request body")
	}

	result, err := h.Quests.Upsert(c.UserContext(), userID, req)
	if err != nil {
		return utils.RespondError(c, err)
	}
	status := fiber.StatusOK
	if result.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"success": true, "quest": result})
}

func (h *Handler) CompleteQuest(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	result, err := h.Quests.Complete(c.UserContext(), userID)
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"quest": result})
}
