package handlers

import (
	"errors"

	"rewards-engine/models"
	"rewards-engine/services"

	"github.com/gofiber/fiber/v2"
)

// resolveAccount maps the gateway-asserted external user id to the local
// Account row, creating it on first contact.
func resolveAccount(c *fiber.Ctx, ledger *services.LedgerService) (*models.Account, error) {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "user context missing")
	}
	acct, err := ledger.EnsureAccount(userID)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "failed to resolve account")
	}
	return acct, nil
}

// failJSON maps sentinel errors to HTTP statuses with short human messages;
// raw storage errors never reach a client.
func failJSON(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, models.ErrInsufficientGold):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": "not enough gold"})
	case errors.Is(err, models.ErrAlreadyInGuild):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already in a guild"})
	case errors.Is(err, models.ErrNotInGuild):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "not a member of this guild"})
	case errors.Is(err, models.ErrGuildNameTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "guild name already taken"})
	case errors.Is(err, models.ErrAlreadyOpened):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "loot box already opened"})
	case errors.Is(err, models.ErrAlreadyUnlocked):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already unlocked"})
	case errors.Is(err, models.ErrRequirementNotMet):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "requirement not met"})
	case errors.Is(err, models.ErrChallengeClosed):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "challenge window closed"})
	case errors.Is(err, models.ErrNegativeDelta):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "delta must be positive"})
	default:
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
