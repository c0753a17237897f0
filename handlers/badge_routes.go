// handlers/badge_routes.go
package handlers

import (
	"fmt"
	"path/filepath"

	"rewards-engine/middleware"
	"rewards-engine/models"
	"rewards-engine/services"
	"rewards-engine/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SetupBadgeRoutes wires the achievement/badge surface plus the admin
// definition endpoints.
func SetupBadgeRoutes(app *fiber.App, badges *services.BadgeService, ledger *services.LedgerService) {
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	securedGroup.Get("/user/badges", func(c *fiber.Ctx) error {
		acct, err := resolveAccount(c, ledger)
		if err != nil {
			return failJSON(c, err)
		}
		list, err := badges.ListBadges(acct.ID)
		if err != nil {
			return failJSON(c, err)
		}
		return c.JSON(list)
	})

	// Progress deltas from the content/quiz collaborator
	securedGroup.Post("/achievements/:id/progress", func(c *fiber.Ctx) error {
		acct, err := resolveAccount(c, ledger)
		if err != nil {
			return failJSON(c, err)
		}
		var req struct {
			Delta int64 `json:"delta"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if err := badges.RecordProgress(acct.ID, c.Params("id"), req.Delta); err != nil {
			return failJSON(c, err)
		}
		return c.JSON(fiber.Map{"message": "OK"})
	})

	// Admin endpoints
	adminGroup := app.Group("/admin/achievements", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	adminGroup.Post("/", func(c *fiber.Ctx) error {
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Tiers       []struct {
				TierRank         int   `json:"tier_rank"`
				RequirementValue int64 `json:"requirement_value"`
			} `json:"tiers"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if req.Name == "" || len(req.Tiers) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name and at least one tier required"})
		}

		def := models.AchievementDefinition{
			ID:          uuid.NewString(),
			Name:        req.Name,
			Description: req.Description,
			Active:      true,
		}
		for _, t := range req.Tiers {
			def.Tiers = append(def.Tiers, models.BadgeTier{
				ID:               uuid.NewString(),
				AchievementID:    def.ID,
				TierRank:         t.TierRank,
				RequirementValue: t.RequirementValue,
			})
		}
		def.RequirementValue = def.Tiers[len(def.Tiers)-1].RequirementValue

		if err := badges.DB.Create(&def).Error; err != nil {
			return failJSON(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(def)
	})

	// Icon assets go to R2; the stored URL is what ListBadges serves
	adminGroup.Post("/:id/icon", func(c *fiber.Ctx) error {
		var def models.AchievementDefinition
		if err := badges.DB.Where("id = ?", c.Params("id")).First(&def).Error; err != nil {
			return failJSON(c, models.ErrNotFound)
		}

		fileHeader, err := c.FormFile("icon")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "icon file required"})
		}

		key := fmt.Sprintf("badges/%s%s", def.ID, filepath.Ext(fileHeader.Filename))
		iconURL, err := utils.UploadBadgeIcon(fileHeader, key)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		if err := badges.DB.Model(&def).Update("icon_url", iconURL).Error; err != nil {
			return failJSON(c, err)
		}
		return c.JSON(fiber.Map{"icon_url": iconURL})
	})
}
