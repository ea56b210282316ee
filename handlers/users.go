// handlers/users.go
package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"ironquest/middleware"
	"ironquest/models"
	"ironquest/utils"
)

type PushTokenRequest struct {
	Token string `json:"token"`
}

// UpdatePushToken stores the device token used for push notifications.
// An empty token unregisters the device.
func (h *Handler) UpdatePushToken(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	var req PushTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, 400, "Invalid request body")
	}

	var token *string
	if t := strings.TrimSpace(req.Token); t != "" {
		if len(t) > 255 {
			return utils.JSONError(c, 400, "Token too long")
		}
		token = &t
	}

	res := h.DB.WithContext(c.UserContext()).Model(&models.User{}).Where("id = ?", userID).Update("push_token", token)
	if res.Error != nil {
		return utils.RespondError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.JSONError(c, 404, "User not found")
	}
	return utils.JSONSuccess(c, fiber.Map{"registered": token != nil})
}
