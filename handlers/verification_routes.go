package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Replant-Application/Replant-BE-sub002/middleware"
	"github.com/Replant-Application/Replant-BE-sub002/services"
	"github.com/Replant-Application/Replant-BE-sub002/utils"
)

func SetupVerificationRoutes(app *fiber.App, verificationService *services.VerificationService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	// Proof image upload: multipart form, returns the CDN URL to embed
	// in the submission.
	secured.Post("/verifications/images", func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("image")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "image file is required",
			})
		}

		key := fmt.Sprintf("proofs/%s/%s", middleware.UserID(c), uuid.NewString())
		url, err := utils.UploadProofImage(fileHeader, key)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to upload image",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
	})

	secured.Post("/verifications", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		var body struct {
			MissionInstanceID string   `json:"mission_instance_id"`
			Content           string   `json:"content"`
			ImageURLs         []string `json:"image_urls"`
		}
		if err := c.BodyParser(&body); err != nil || body.MissionInstanceID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "mission_instance_id is required",
			})
		}

		sub, err := verificationService.Submit(userID, body.MissionInstanceID, body.Content, body.ImageURLs, time.Now())
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(sub)
	})

	secured.Get("/verifications/feed", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		page, size := pageParams(c)

		subs, total, err := verificationService.PendingFeed(userID, page, size)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"submissions": subs,
			"total":       total,
			"page":        page,
		})
	})

	secured.Get("/verifications/mine", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		page, size := pageParams(c)

		subs, total, err := verificationService.ListMine(userID, page, size)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"submissions": subs,
			"total":       total,
			"page":        page,
		})
	})

	secured.Get("/verifications/:id", func(c *fiber.Ctx) error {
		sub, err := verificationService.GetSubmission(c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(sub)
	})

	secured.Patch("/verifications/:id", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		var body struct {
			Content   string   `json:"content"`
			ImageURLs []string `json:"image_urls"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}

		sub, err := verificationService.EditContent(c.Params("id"), userID, body.Content, body.ImageURLs)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(sub)
	})

	secured.Post("/verifications/:id/votes", func(c *fiber.Ctx) error {
		voterID := middleware.UserID(c)

		var body struct {
			Choice string `json:"choice"` // APPROVE or REJECT
		}
		if err := c.BodyParser(&body); err != nil || body.Choice == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "choice is required (APPROVE or REJECT)",
			})
		}

		sub, err := verificationService.CastVote(c.Params("id"), voterID, body.Choice, time.Now())
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(sub)
	})

	secured.Delete("/verifications/:id", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		err := verificationService.Revoke(c.Params("id"), userID, middleware.IsAdmin(c), time.Now())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"revoked": c.Params("id")})
	})
}
