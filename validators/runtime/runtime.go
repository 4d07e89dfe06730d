package runtimeValidator

import (
	"strings"

	"scormhost/middleware"

	"github.com/gofiber/fiber/v2"
)

func StartAttempt() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			CourseID  uint   `json:"course_id"`
			LearnerID string `json:"learner_id"`
			ScoID     *uint  `json:"sco_id"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		// Validate CourseID
		if reqData.CourseID == 0 {
			errors["course_id"] = "Course id is required!"
		}

		// Validate LearnerID
		if strings.TrimSpace(reqData.LearnerID) == "" {
			errors["learner_id"] = "Learner id is required!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		reqData.LearnerID = strings.TrimSpace(reqData.LearnerID)
		c.Locals("validatedAttempt", reqData)
		return c.Next()
	}
}

// CommitBatch parses the commit body, a flat element -> value object. Name
// and value validation against the vocabulary happens in the controller so
// a rejection there can abort the whole batch.
func CommitBatch() fiber.Handler {
	return func(c *fiber.Ctx) error {
		batch := make(map[string]string)

		if err := c.BodyParser(&batch); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		c.Locals("validatedCommit", batch)
		return c.Next()
	}
}
