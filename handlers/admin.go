// handlers/admin.go
package handlers

import (
	"errors"

	"game-rewards-system/middleware"
	"game-rewards-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAdminRoutes(app *fiber.App, rewards *services.RewardService, fairPlay *services.FairPlayService, export *services.LedgerExportService) {
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.AdminOnlyMiddleware())

	// GET /s/admin/rewards — per-user balance overview
	adminGroup.Get("/rewards", func(c *fiber.Ctx) error {
		rows, err := rewards.GetAllRewards()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch reward overview",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"users": rows})
	})

	// POST /s/admin/fairplay/run — same code path as the Sunday cron
	adminGroup.Post("/fairplay/run", func(c *fiber.Ctx) error {
		awarded, err := fairPlay.RunWeeklyAward()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "weekly fair-play run failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"awarded": awarded})
	})

	// POST /s/admin/ledger/export — on-demand audit snapshot
	adminGroup.Post("/ledger/export", func(c *fiber.Ctx) error {
		key, err := export.Export(c.Context())
		if err != nil {
			if errors.Is(err, services.ErrExportDisabled) {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "ledger export failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "ledger exported", "key": key})
	})

	// POST /s/admin/coins/grant — manual cap-exempt grant, always logged
	adminGroup.Post("/coins/grant", func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id"`
			Amount int64  `json:"amount"`
			Reason string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.UserID == "" || req.Amount <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id and a positive amount are required"})
		}

		coins, err := rewards.GrantCoins(req.UserID, req.Amount, req.Reason)
		if err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "coin grant failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"message": "coins granted",
			"user_id": req.UserID,
			"coins":   coins,
		})
	})
}
