package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Replant-Application/Replant-BE-sub002/apperrors"
)

// statusFor maps business error codes to HTTP statuses. Anything not in
// the table is a 500.
var statusFor = map[string]int{
	apperrors.NotFound.Code:            fiber.StatusNotFound,
	apperrors.DuplicateAssignment.Code: fiber.StatusConflict,
	apperrors.DuplicateSubmission.Code: fiber.StatusConflict,
	apperrors.AlreadyCompleted.Code:    fiber.StatusConflict,
	apperrors.AlreadyVoted.Code:        fiber.StatusConflict,
	apperrors.AlreadyIssued.Code:       fiber.StatusConflict,
	apperrors.InvalidTransition.Code:   fiber.StatusConflict,
	apperrors.SubmissionClosed.Code:    fiber.StatusConflict,
	apperrors.SelfVote.Code:            fiber.StatusForbidden,
	apperrors.NotSubmissionOwner.Code:  fiber.StatusForbidden,
}

// fail renders a service error as JSON with the right status code.
func fail(c *fiber.Ctx, err error) error {
	var def apperrors.Definition
	if errors.As(err, &def) {
		status, ok := statusFor[def.Code]
		if !ok {
			status = fiber.StatusInternalServerError
		}
		return c.Status(status).JSON(fiber.Map{
			"error": def.Message,
			"code":  def.Code,
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal error",
		"cause": err.Error(),
	})
}

func pageParams(c *fiber.Ctx) (int, int) {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	size, _ := strconv.Atoi(c.Query("page_size", "20"))
	return page, size
}
