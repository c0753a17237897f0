// handlers/rewards_routes.go
package handlers

import (
	"strconv"
	"time"

	"rewards-engine/middleware"
	"rewards-engine/models"
	"rewards-engine/services"

	"github.com/gofiber/fiber/v2"
)

// SetupRewardsRoutes wires the progression surface: stats, login streaks,
// quests, notifications and the leaderboard.
func SetupRewardsRoutes(
	app *fiber.App,
	ledger *services.LedgerService,
	streaks *services.StreakService,
	quests *services.QuestService,
	notify *services.NotificationService,
	board *services.LeaderboardService,
	authClient *services.AuthServiceClient,
) {
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	securedGroup.Get("/user/stats", func(c *fiber.Ctx) error {
		acct, err := resolveAccount(c, ledger)
		if err != nil {
			return failJSON(c, err)
		}
		stats, err := ledger.Stats(acct.ID)
		if err != nil {
			return failJSON(c, err)
		}
		return c.JSON(stats)
	})

	// Called by the UI on session start; advances the daily streak at most
	// once per calendar day regardless of how often it fires.
	securedGroup.Post("/user/login", func(c *fiber.Ctx) error {
		acct, err := resolveAccount(c, ledger)
		if err != nil {
			return failJSON(c, err)
		}
		streak, err := streaks.RecordLogin(acct.ID, time.Now())
		if err != nil {
			return failJSON(c, err)
		}
		return c.JSON(streak)
	})

	securedGroup.Get("/user/streak", func(c *fiber.Ctx) error {
		acct, err := resolveAccount(c, ledger)
		if err != nil {
			return failJSON(c, err)
		}
		streak, err := streaks.GetStreak(acct.ID)
		if err != nil {
			return failJSON(c, err)
		}
		return c.JSON(streak)
	})

	securedGroup.Get("/quests", func(c *fiber.Ctx) error {
		difficulty := models.QuestDifficulty(c.Query("difficulty"))
		templates, err := quests.ListTemplates(difficulty)
		if err != nil {
			return failJSON(c, err)
		}
		return c.JSON(templates)
	})

	// Progress deltas arrive from the content/quiz collaborator
	// (e.g., "watched N minutes", "completed assignment").
	securedGroup.Post("/quests/:id/advance", func(c *fiber.Ctx) error {
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
		completion, err := quests.AdvanceQuest(acct.ID, c.Params("id"), req.Delta)
		if err != nil {
			return failJSON(c, err)
		}
		return c.JSON(completion)
	})

	securedGroup.Get("/quests/history", func(c *fiber.Ctx) error {
		acct, err := resolveAccount(c, ledger)
		if err != nil {
			return failJSON(c, err)
		}
		completions, err := quests.ListCompletions(acct.ID)
		if err != nil {
			return failJSON(c, err)
		}
		return c.JSON(completions)
	})

	securedGroup.Get("/user/notifications", func(c *fiber.Ctx) error {
		acct, err := resolveAccount(c, ledger)
		if err != nil {
			return failJSON(c, err)
		}
		list, err := notify.FetchUnshown(acct.ID)
		if err != nil {
			return failJSON(c, err)
		}
		return c.JSON(list)
	})

	securedGroup.Post("/user/notifications/:id/shown", func(c *fiber.Ctx) error {
		if _, err := resolveAccount(c, ledger); err != nil {
			return failJSON(c, err)
		}
		if err := notify.MarkShown(c.Params("id")); err != nil {
			return failJSON(c, err)
		}
		return c.JSON(fiber.Map{"message": "OK"})
	})

	securedGroup.Get("/leaderboard", func(c *fiber.Ctx) error {
		n, _ := strconv.ParseInt(c.Query("limit", "10"), 10, 64)
		entries, err := board.Top(n)
		if err != nil {
			return failJSON(c, err)
		}
		return c.JSON(entries)
	})

	securedGroup.Get("/leaderboard/me", func(c *fiber.Ctx) error {
		acct, err := resolveAccount(c, ledger)
		if err != nil {
			return failJSON(c, err)
		}
		rank, err := board.Rank(acct.ID)
		if err != nil {
			return failJSON(c, err)
		}
		return c.JSON(fiber.Map{"rank": rank})
	})

	// SSE stream authn is query-token based — EventSource cannot set headers
	app.Get("/user/notifications/stream", middleware.SSEAuthMiddleware(authClient), func(c *fiber.Ctx) error {
		acct, err := resolveAccount(c, ledger)
		if err != nil {
			return failJSON(c, err)
		}
		c.Locals("account_id", acct.ID)
		return notify.StreamNotificationsSSE(c)
	})
}
