// handlers/leaderboard.go
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"ironquest/models"
	"ironquest/utils"
)

type LeaderboardEntry struct {
	Rank               int     `json:"rank"`
	UserID             uint    `json:"user_id"`
	Username           string  `json:"username"`
	Level              int     `json:"level"`
	XP                 int     `json:"xp"`
	WeeklyWeightLifted float64 `json:"weekly_weight_lifted"`
	TotalWeightLifted  float64 `json:"total_weight_lifted"`
}

var leaderboardOrder = map[string]string{
	"level":  "level DESC, xp DESC, id ASC",
	"weekly": "weekly_weight_lifted DESC, id ASC",
	"total":  "total_weight_lifted DESC, id ASC",
}

// GetLeaderboard returns the global leaderboard
// GET /api/leaderboard?category=level&limit=100&offset=0
func (h *Handler) GetLeaderboard(c *fiber.Ctx) error {
	category := c.Query("category", "level")
	orderBy, ok := leaderboardOrder[category]
	if !ok {
		return utils.JSONError(c, 400, "category must be one of level, weekly, total")
	}
	limit := clampInt(c.QueryInt("limit", 100), 1, 100)
	offset := max(c.QueryInt("offset", 0), 0)

	db := h.DB.WithContext(c.UserContext())
	var users []models.User
	if err := db.Select("id", "username", "level", "xp", "weekly_weight_lifted", "total_weight_lifted").
		Order(orderBy).
		Limit(limit).
		Offset(offset).
		Find(&users).Error; err != nil {
		return utils.JSONError(c, 500, "Failed to fetch leaderboard")
	}

	var total int64
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		h.Log.Error("count leaderboard users", zap.Error(err))
		return utils.JSONError(c, 500, "Failed to fetch leaderboard")
	}

	entries := make([]LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, LeaderboardEntry{
			Rank:               offset + i + 1,
			UserID:             u.ID,
			Username:           u.Username,
			Level:              u.Level,
			XP:                 u.XP,
			WeeklyWeightLifted: u.WeeklyWeightLifted,
			TotalWeightLifted:  u.TotalWeightLifted,
		})
	}

	return utils.JSONSuccess(c, fiber.Map{
		"entries":  entries,
		"category": category,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
