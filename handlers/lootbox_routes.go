// handlers/lootbox_routes.go
package handlers

import (
	"errors"

	"rewards-engine/middleware"
	"rewards-engine/models"
	"rewards-engine/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupLootBoxRoutes wires the loot box catalog, purchase and open surface.
func SetupLootBoxRoutes(app *fiber.App, boxes *services.LootBoxService, ledger *services.LedgerService) {
	securedGroup := app.Group("/lootboxes", middleware.UserContextMiddleware())

	securedGroup.Get("/", func(c *fiber.Ctx) error {
		defs, err := boxes.ListDefinitions()
		if err != nil {
			return failJSON(c, err)
		}
		return c.JSON(defs)
	})

	securedGroup.Get("/mine", func(c *fiber.Ctx) error {
		acct, err := resolveAccount(c, ledger)
		if err != nil {
			return failJSON(c, err)
		}
		instances, err := boxes.ListInstances(acct.ID)
		if err != nil {
			return failJSON(c, err)
		}
		return c.JSON(instances)
	})

	securedGroup.Post("/:definitionId/purchase", func(c *fiber.Ctx) error {
		acct, err := resolveAccount(c, ledger)
		if err != nil {
			return failJSON(c, err)
		}
		instance, err := boxes.Purchase(acct.ID, c.Params("definitionId"))
		if err != nil {
			return failJSON(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(instance)
	})

	securedGroup.Post("/instances/:id/open", func(c *fiber.Ctx) error {
		acct, err := resolveAccount(c, ledger)
		if err != nil {
			return failJSON(c, err)
		}

		// Ownership check before resolving — opening someone else's box is a 404
		var instance models.LootBoxInstance
		if err := boxes.DB.Where("id = ? AND account_id = ?", c.Params("id"), acct.ID).First(&instance).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return failJSON(c, models.ErrNotFound)
			}
			return failJSON(c, err)
		}

		rewards, err := boxes.Open(instance.ID)
		if err != nil {
			return failJSON(c, err)
		}
		return c.JSON(fiber.Map{"rewards": rewards})
	})
}
