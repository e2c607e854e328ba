// handlers/rewards.go
package handlers

import (
	"errors"
	"fmt"

	"game-rewards-system/middleware"
	"game-rewards-system/models"
	"game-rewards-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRewardRoutes(app *fiber.App, rewards *services.RewardService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	// POST /rewards/award — {activity} → {coins, daily_coin_earnings}
	secured.Post("/rewards/award", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			Activity string `json:"activity"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.Activity == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "activity is required"})
		}

		result, err := rewards.Award(userID, models.TransactionType(req.Activity), "")
		if err != nil {
			return rewardErrorResponse(c, err)
		}
		return c.JSON(result)
	})

	// POST /rewards/share — {blog_id} → {coins, daily_coin_earnings}
	secured.Post("/rewards/share", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			BlogID string `json:"blog_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.BlogID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "blog_id is required"})
		}

		desc := fmt.Sprintf("share reward (blog %s)", req.BlogID)
		result, err := rewards.Award(userID, models.TxShare, desc)
		if err != nil {
			return rewardErrorResponse(c, err)
		}
		return c.JSON(result)
	})

	// POST /rewards/redeem-fair — {redeem: true} → {coins, fair_play_coins}
	secured.Post("/rewards/redeem-fair", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			Redeem bool `json:"redeem"`
		}
		if err := c.BodyParser(&req); err != nil || !req.Redeem {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "redeem flag is required"})
		}

		result, err := rewards.RedeemFairCoin(userID)
		if err != nil {
			return rewardErrorResponse(c, err)
		}
		return c.JSON(result)
	})

	// POST /rewards/redeem-cash — → {coins}
	secured.Post("/rewards/redeem-cash", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		coins, err := rewards.RedeemCash(userID)
		if err != nil {
			return rewardErrorResponse(c, err)
		}
		return c.JSON(fiber.Map{"coins": coins})
	})

	// GET /rewards — balances + 20 most recent ledger entries
	secured.Get("/rewards", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		data, err := rewards.GetRewardData(userID)
		if err != nil {
			return rewardErrorResponse(c, err)
		}
		return c.JSON(data)
	})
}

// rewardErrorResponse maps service sentinels onto the wire contract. Every
// failure carries a stable kind; no handler ever returns 200 with an error.
func rewardErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidActivity):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown activity"})
	case errors.Is(err, services.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	case errors.Is(err, services.ErrDailyLimitExceeded):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "daily coin limit reached"})
	case errors.Is(err, services.ErrInsufficientFairCoins):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "insufficient fair play coins"})
	case errors.Is(err, services.ErrInsufficientBalance):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "insufficient coin balance"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "reward operation failed",
			"cause": err.Error(),
		})
	}
}
