// handlers/catalog.go - admin management of the achievement catalog
package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"ironquest/database"
	"ironquest/models"
	"ironquest/utils"
)

func validAchievement(a models.Achievement) error {
	if problems := database.ValidateCatalog([]models.Achievement{a}); len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// GetCatalog returns all achievements
func (h *Handler) GetCatalog(c *fiber.Ctx) error {
	var achievements []models.Achievement
	if err := h.DB.WithContext(c.UserContext()).Order("id").Find(&achievements).Error; err != nil {
		return utils.JSONError(c, 500, "Failed to fetch achievements")
	}
	return utils.JSONSuccess(c, fiber.Map{"achievements": achievements})
}

// CreateCatalogEntry creates a new achievement
func (h *Handler) CreateCatalogEntry(c *fiber.Ctx) error {
	var achievement models.Achievement
	if err := c.BodyParser(&achievement); err != nil {
		return utils.JSONError(c, 400, "Invalid request body")
	}
	achievement.ID = 0
	if err := validAchievement(achievement); err != nil {
		return utils.JSONError(c, 400, err.Error())
	}

	if err := h.DB.WithContext(c.UserContext()).Create(&achievement).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.JSONError(c, 409, "Achievement name already exists")
		}
		return utils.JSONError(c, 500, "Failed to create achievement")
	}
	return c.Status(201).JSON(fiber.Map{"success": true, "achievement": achievement})
}

// UpdateCatalogEntry updates an existing achievement. Ledger progress is kept.
func (h *Handler) UpdateCatalogEntry(c *fiber.Ctx) error {
	id, err := achievementID(c)
	if err != nil {
		return utils.RespondError(c, err)
	}
	db := h.DB.WithContext(c.UserContext())

	var achievement models.Achievement
	if err := db.First(&achievement, id).Error; err != nil {
		return utils.JSONError(c, 404, "Achievement not found")
	}
	if err := c.BodyParser(&achievement); err != nil {
		return utils.JSONError(c, 400, "Invalid request body")
	}
	achievement.ID = id
	if err := validAchievement(achievement); err != nil {
		return utils.JSONError(c, 400, err.Error())
	}

	if err := db.Save(&achievement).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.JSONError(c, 409, "Achievement name already exists")
		}
		return utils.JSONError(c, 500, "Failed to update achievement")
	}
	return utils.JSONSuccess(c, fiber.Map{"achievement": achievement})
}

// DeleteCatalogEntry deletes an achievement and, by cascade, its ledger rows.
func (h *Handler) DeleteCatalogEntry(c *fiber.Ctx) error {
	id, err := achievementID(c)
	if err != nil {
		return utils.RespondError(c, err)
	}
	db := h.DB.WithContext(c.UserContext())

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("achievement_id = ?", id).Delete(&models.UserAchievement{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Achievement{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.JSONError(c, 404, "Achievement not found")
	}
	if err != nil {
		return utils.JSONError(c, 500, "Failed to delete achievement")
	}
	return utils.JSONSuccess(c, fiber.Map{"message": "Achievement deleted successfully"})
}
