package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Replant-Application/Replant-BE-sub002/middleware"
	"github.com/Replant-Application/Replant-BE-sub002/models"
	"github.com/Replant-Application/Replant-BE-sub002/services"
)

func SetupMissionRoutes(app *fiber.App, missionService *services.MissionService) {
	// 🔓 Public catalog — gateway auth only, no user context needed
	app.Get("/mission-types", func(c *fiber.Ctx) error {
		types, err := missionService.ListMissionTypes()
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"mission_types": types})
	})

	// 🔐 Secured routes — require user context from the gateway
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/missions", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		status := c.Query("status", "ASSIGNED")

		instances, err := missionService.ListByStatus(userID, status)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"missions": instances})
	})

	secured.Get("/missions/history", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		page, size := pageParams(c)

		instances, total, err := missionService.History(userID, page, size)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"missions": instances,
			"total":    total,
			"page":     page,
		})
	})

	secured.Get("/missions/:id", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		instance, err := missionService.Get(c.Params("id"), userID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(instance)
	})

	// Spontaneous self-assignment: the user picks a mission type to do
	// right now. Scheduled cadences are handled by the distributor.
	secured.Post("/missions", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		var body struct {
			MissionTypeTag  string `json:"mission_type_tag"`
			DeadlineMinutes *int   `json:"deadline_minutes"`
		}
		if err := c.BodyParser(&body); err != nil || body.MissionTypeTag == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "mission_type_tag is required",
			})
		}

		instance, err := missionService.Assign(userID, body.MissionTypeTag, "", body.DeadlineMinutes, time.Now())
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(instance)
	})

	secured.Post("/missions/:id/skip", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		instance, err := missionService.Skip(c.Params("id"), userID, time.Now())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(instance)
	})

	// 🔐 Admin catalog management
	secured.Post("/admin/mission-types", func(c *fiber.Ctx) error {
		if !middleware.IsAdmin(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
		}

		var body struct {
			Title             string `json:"title"`
			Description       string `json:"description"`
			Category          string `json:"category"`
			Cadence           string `json:"cadence"`
			Difficulty        string `json:"difficulty"` // EASY, NORMAL, HARD
			ExpReward         int    `json:"exp_reward"`
			DeadlineMinutes   *int   `json:"deadline_minutes"`
			BadgeValidityDays int    `json:"badge_validity_days"`
		}
		if err := c.BodyParser(&body); err != nil || body.Title == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "title is required",
			})
		}
		if body.ExpReward <= 0 {
			body.ExpReward = models.RewardForDifficulty(body.Difficulty)
		}

		mt, err := missionService.CreateMissionType(
			body.Title, body.Description, body.Category, body.Cadence,
			body.ExpReward, body.DeadlineMinutes, body.BadgeValidityDays,
		)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(mt)
	})

	secured.Delete("/admin/mission-types/:tag", func(c *fiber.Ctx) error {
		if !middleware.IsAdmin(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
		}

		if err := missionService.DeactivateMissionType(c.Params("tag")); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"deactivated": c.Params("tag")})
	})
}
