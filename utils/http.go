// utils/http.go - Fiber response helpers
package utils

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"ironquest/progression"
)

// JSONError sends the standard error envelope.
func JSONError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// JSONSuccess merges data into a success envelope.
func JSONSuccess(c *fiber.Ctx, data fiber.Map) error {
	response := fiber.Map{"success": true}
	for k, v := range data {
		response[k] = v
	}
	return c.JSON(response)
}

// StatusForError maps the progression error taxonomy onto HTTP statuses.
func StatusForError(err error) int {
	switch {
	case progression.IsNotFound(err):
		return fiber.StatusNotFound
	case progression.IsValidation(err):
		return fiber.StatusBadRequest
	case progression.IsTransactionFailed(err):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondError logs server-side failures and hides their detail from clients.
func RespondError(c *fiber.Ctx, err error) error {
	status := StatusForError(err)
	switch status {
	case fiber.StatusNotFound, fiber.StatusBadRequest:
		return JSONError(c, status, err.Error())
	case fiber.StatusServiceUnavailable:
		Logger.Warn("progression transaction failed", zap.Error(err), zap.String("path", c.Path()))
		return JSONError(c, status, "Something went wrong, please try again")
	default:
		Logger.Error("request failed", zap.Error(err), zap.String("path", c.Path()))
		return JSONError(c, status, "Something went wrong")
	}
}
