// handlers/guild_routes.go
package handlers

import (
	"time"

	"rewards-engine/middleware"
	"rewards-engine/services"

	"github.com/gofiber/fiber/v2"
)

// SetupGuildRoutes wires guild management, XP contribution and challenges.
func SetupGuildRoutes(app *fiber.App, guilds *services.GuildService, ledger *services.LedgerService) {
	securedGroup := app.Group("/guilds", middleware.UserContextMiddleware())

	securedGroup.Post("/", func(c *fiber.Ctx) error {
		acct, err := resolveAccount(c, ledger)
		if err != nil {
			return failJSON(c, err)
		}
		var req struct {
			Name string `json:"name"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		guild, err := guilds.CreateGuild(acct.ID, req.Name)
		if err != nil {
			return failJSON(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(guild)
	})

	securedGroup.Get("/:id", func(c *fiber.Ctx) error {
		guild, members, err := guilds.GetGuild(c.Params("id"))
		if err != nil {
			return failJSON(c, err)
		}
		return c.JSON(fiber.Map{"guild": guild, "members": members})
	})

	securedGroup.Post("/:id/join", func(c *fiber.Ctx) error {
		acct, err := resolveAccount(c, ledger)
		if err != nil {
			return failJSON(c, err)
		}
		if err := guilds.JoinGuild(acct.ID, c.Params("id")); err != nil {
			return failJSON(c, err)
		}
		return c.JSON(fiber.Map{"message": "joined"})
	})

	securedGroup.Post("/:id/leave", func(c *fiber.Ctx) error {
		acct, err := resolveAccount(c, ledger)
		if err != nil {
			return failJSON(c, err)
		}
		if err := guilds.LeaveGuild(acct.ID, c.Params("id")); err != nil {
			return failJSON(c, err)
		}
		return c.JSON(fiber.Map{"message": "left"})
	})

	// Contribution deltas come from the content collaborator alongside the
	// personal XP credit; the membership row routes them to the right guild.
	securedGroup.Post("/contribute", func(c *fiber.Ctx) error {
		acct, err := resolveAccount(c, ledger)
		if err != nil {
			return failJSON(c, err)
		}
		var req struct {
			Amount int64 `json:"amount"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if err := guilds.ContributeXP(acct.ID, req.Amount); err != nil {
			return failJSON(c, err)
		}
		return c.JSON(fiber.Map{"message": "contributed", "amount": req.Amount})
	})

	securedGroup.Post("/:id/challenges/:challengeId/advance", func(c *fiber.Ctx) error {
		if _, err := resolveAccount(c, ledger); err != nil {
			return failJSON(c, err)
		}
		var req struct {
			Amount int64 `json:"amount"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		ch, err := guilds.AdvanceChallenge(c.Params("challengeId"), req.Amount, time.Now())
		if err != nil {
			return failJSON(c, err)
		}
		return c.JSON(ch)
	})

	// Admin endpoints
	adminGroup := app.Group("/admin/guilds", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	adminGroup.Post("/:id/challenges", func(c *fiber.Ctx) error {
		var req struct {
			Title      string    `json:"title"`
			TargetXP   int64     `json:"target_xp"`
			RewardXP   int64     `json:"reward_xp"`
			RewardGold int64     `json:"reward_gold"`
			StartDate  time.Time `json:"start_date"`
			EndDate    time.Time `json:"end_date"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		ch, err := guilds.CreateChallenge(c.Params("id"), req.Title, req.TargetXP, req.RewardXP, req.RewardGold, req.StartDate, req.EndDate)
		if err != nil {
			return failJSON(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(ch)
	})
}
