package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Replant-Application/Replant-BE-sub002/middleware"
	"github.com/Replant-Application/Replant-BE-sub002/models"
	"github.com/Replant-Application/Replant-BE-sub002/services"
)

func SetupCompanionRoutes(app *fiber.App, companionService *services.CompanionService, badgeService *services.BadgeService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/companion", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		comp, err := companionService.EnsureCompanion(userID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(companionView(comp))
	})

	secured.Patch("/companion/name", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		var body struct {
			Name string `json:"name"`
		}
		if err := c.BodyParser(&body); err != nil || body.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "name is required",
			})
		}

		comp, err := companionService.Rename(userID, body.Name)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(companionView(comp))
	})

	interactions := map[string]func(string) (*models.Companion, error){
		"feed": companionService.Feed,
		"rest": companionService.Rest,
		"play": companionService.Play,
		"pet":  companionService.Pet,
	}

	secured.Post("/companion/:action", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		interact, ok := interactions[c.Params("action")]
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "unknown interaction",
			})
		}

		comp, err := interact(userID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(companionView(comp))
	})

	secured.Get("/badges", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		badges, err := badgeService.ValidBadges(userID, time.Now())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"badges": badges})
	})

	secured.Get("/badges/history", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		page, size := pageParams(c)

		badges, total, err := badgeService.History(userID, page, size)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"badges": badges,
			"total":  total,
			"page":   page,
		})
	})
}

// companionView decorates the row with derived progress fields the
// client renders on the home screen.
func companionView(comp *models.Companion) fiber.Map {
	return fiber.Map{
		"companion":   comp,
		"exp_to_next": comp.ExpToNext(),
		"next_level":  models.NextLevelExp(comp.Level),
	}
}
