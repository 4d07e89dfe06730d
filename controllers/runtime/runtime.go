package controllers

import (
	"errors"
	"sort"
	"time"

	"scormhost/database"
	"scormhost/middleware"
	"scormhost/models"
	"scormhost/scorm"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Initialize returns the full persisted element snapshot for the attempt so
// content can seed its working cache. No side effect on attempt state.
func Initialize(c *fiber.Ctx) error {
	attempt, errResp := loadTokenAttempt(c)
	if attempt == nil {
		return errResp
	}
	if attempt.Status == models.AttemptCompleted {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Attempt is already completed!", nil)
	}

	var elements []models.CmiElement
	if err := database.Database.Db.Where("attempt_id = ?", attempt.ID).Find(&elements).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch elements!", nil)
	}

	snapshot := make(map[string]string, len(elements))
	for _, element := range elements {
		snapshot[element.Element] = element.Value
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Attempt initialized!", snapshot)
}

// GetValue and SetValue are protocol acknowledgements only. The working
// cache lives in the player; nothing is read from or written to the store
// until the content commits.
func GetValue(c *fiber.Ctx) error {
	attempt, errResp := loadTokenAttempt(c)
	if attempt == nil {
		return errResp
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Acknowledged!", fiber.Map{"value": ""})
}

func SetValue(c *fiber.Ctx) error {
	attempt, errResp := loadTokenAttempt(c)
	if attempt == nil {
		return errResp
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Acknowledged!", nil)
}

// CommitData persists a batch of elements for the attempt. The whole batch
// is validated up front and applied in one transaction: an unknown element
// or invalid value anywhere rejects the entire commit with no writes.
// Commit never changes the attempt status.
func CommitData(c *fiber.Ctx) error {
	attempt, errResp := loadTokenAttempt(c)
	if attempt == nil {
		return errResp
	}

	batch, ok := c.Locals("validatedCommit").(map[string]string)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}

	normalized := make(map[string]string, len(batch))
	for element, value := range batch {
		clean, err := scorm.NormalizeValue(element, value)
		if err != nil {
			return middleware.JsonResponse(c, runtimeStatus(err), false, err.Error(), nil)
		}
		normalized[element] = clean
	}

	if len(normalized) == 0 {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Nothing to commit!", nil)
	}

	// Deterministic upsert order keeps concurrent commits on the same
	// attempt from deadlocking on row locks.
	elements := make([]string, 0, len(normalized))
	for element := range normalized {
		elements = append(elements, element)
	}
	sort.Strings(elements)

	rows := make([]models.CmiElement, 0, len(elements))
	for _, element := range elements {
		rows = append(rows, models.CmiElement{
			AttemptID: attempt.ID,
			Element:   element,
			Value:     normalized[element],
		})
	}

	err := database.Database.Db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "element"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&rows).Error
	})
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to commit elements!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Committed successfully!", fiber.Map{
		"committed": len(rows),
	})
}

// FinishAttempt moves an in_progress attempt to completed and stamps
// finished_at. Finishing an already-completed attempt is a no-op success
// because host unload handlers can fire more than once.
func FinishAttempt(c *fiber.Ctx) error {
	attempt, errResp := loadTokenAttempt(c)
	if attempt == nil {
		return errResp
	}

	if attempt.Status == models.AttemptCompleted {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Attempt already completed!", attempt)
	}
	if attempt.Status != models.AttemptInProgress {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Attempt is not in progress!", nil)
	}

	now := time.Now()
	attempt.Status = models.AttemptCompleted
	attempt.FinishedAt = &now
	if err := database.Database.Db.Save(attempt).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to finish attempt!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Attempt finished successfully!", attempt)
}

func runtimeStatus(err error) int {
	switch {
	case errors.Is(err, scorm.ErrUnknownElement),
		errors.Is(err, scorm.ErrInvalidElementValue):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, scorm.ErrInvalidTransition):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
