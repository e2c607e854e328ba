// handlers/referrals.go
package handlers

import (
	"errors"

	"game-rewards-system/middleware"
	"game-rewards-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupReferralRoutes(app *fiber.App, referrals *services.ReferralService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	// POST /referrals — {referred_email} → {message, token}
	secured.Post("/referrals", func(c *fiber.Ctx) error {
		referrerID := c.Locals("user_id").(string)

		var req struct {
			ReferredEmail string `json:"referred_email"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.ReferredEmail == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "referred_email is required"})
		}

		token, err := referrals.CreateReferral(referrerID, req.ReferredEmail)
		if err != nil {
			return referralErrorResponse(c, err)
		}
		return c.JSON(fiber.Map{
			"message": "referral created, awaiting confirmation",
			"token":   token,
		})
	})

	// POST /referrals/confirm — {token} → {message}
	// The referred party presents the token, so confirmation can live behind
	// the same user context as everything else.
	secured.Post("/referrals/confirm", func(c *fiber.Ctx) error {
		var req struct {
			Token string `json:"token"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.Token == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "token is required"})
		}

		if err := referrals.ConfirmReferral(req.Token); err != nil {
			return referralErrorResponse(c, err)
		}
		return c.JSON(fiber.Map{"message": "referral confirmed, bonus awarded"})
	})

	// POST /referrals/apply — {referral_code} → {message, referrer_coins}
	secured.Post("/referrals/apply", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			ReferralCode string `json:"referral_code"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.ReferralCode == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "referral_code is required"})
		}

		referrerCoins, err := referrals.ProcessReferralCode(userID, req.ReferralCode)
		if err != nil {
			return referralErrorResponse(c, err)
		}
		return c.JSON(fiber.Map{
			"message":        "referral applied, bonus awarded",
			"referrer_coins": referrerCoins,
		})
	})
}

func referralErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	case errors.Is(err, services.ErrReferredUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "referred user not found"})
	case errors.Is(err, services.ErrReferralTokenInvalid):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "invalid or already consumed referral token"})
	case errors.Is(err, services.ErrReferralCodeInvalid):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "invalid referral code"})
	case errors.Is(err, services.ErrDuplicateReferral):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "referral already exists for this pair"})
	case errors.Is(err, services.ErrSelfReferral):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot refer yourself"})
	case errors.Is(err, services.ErrAlreadyReferred):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user was already referred"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "referral operation failed",
			"cause": err.Error(),
		})
	}
}
