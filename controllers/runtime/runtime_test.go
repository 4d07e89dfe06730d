package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"scormhost/config"
	"scormhost/database"
	"scormhost/middleware"
	"scormhost/models"
	runtimeValidator "scormhost/validators/runtime"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupTest(t *testing.T) *fiber.App {
	t.Helper()

	config.AppConfig = &config.Config{
		JWTKey:       "test-secret",
		DataDir:      t.TempDir(),
		MaxPackageMB: 10,
		MaxEntryMB:   5,
	}

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	database.RunMigrations(db)
	database.Database = database.DbInstance{Db: db}

	app := fiber.New()
	app.Post("/runtime/attempts", runtimeValidator.StartAttempt(), StartAttempt)
	app.Get("/runtime/attempts/:id/launch", middleware.LaunchTokenMiddleware, ResolveLaunch)
	app.Post("/runtime/attempts/:id/initialize", middleware.LaunchTokenMiddleware, Initialize)
	app.Post("/runtime/attempts/:id/get", middleware.LaunchTokenMiddleware, GetValue)
	app.Post("/runtime/attempts/:id/set", middleware.LaunchTokenMiddleware, SetValue)
	app.Post("/runtime/attempts/:id/commit", middleware.LaunchTokenMiddleware, runtimeValidator.CommitBatch(), CommitData)
	app.Post("/runtime/attempts/:id/finish", middleware.LaunchTokenMiddleware, FinishAttempt)
	return app
}

func createCourse(t *testing.T) models.Course {
	t.Helper()
	course := models.Course{
		Title:      "Test Course",
		LaunchHref: "index.html",
		BasePath:   "courses/" + t.Name(),
		Scos: []models.Sco{
			{Identifier: "SCO-1", LaunchHref: "sco1/index.html", Parameters: "lang=en"},
		},
	}
	require.NoError(t, database.Database.Db.Create(&course).Error)
	return course
}

func createAttempt(t *testing.T, courseID uint) (models.Attempt, string) {
	t.Helper()
	now := time.Now()
	attempt := models.Attempt{
		CourseID:  courseID,
		LearnerID: "learner-1",
		Status:    models.AttemptInProgress,
		StartedAt: &now,
	}
	require.NoError(t, database.Database.Db.Create(&attempt).Error)

	token, err := middleware.GenerateLaunchToken(attempt.ID, attempt.LearnerID)
	require.NoError(t, err)
	return attempt, token
}

func doJSON(t *testing.T, app *fiber.App, method, url, token string, body interface{}) (*http.Response, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var parsed apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return resp, parsed
}

func snapshot(t *testing.T, attemptID uint) map[string]string {
	t.Helper()
	var elements []models.CmiElement
	require.NoError(t, database.Database.Db.Where("attempt_id = ?", attemptID).Find(&elements).Error)
	out := make(map[string]string, len(elements))
	for _, element := range elements {
		out[element.Element] = element.Value
	}
	return out
}

func commitURL(attemptID uint) string {
	return attemptURL(attemptID, "commit")
}

func attemptURL(attemptID uint, op string) string {
	return "/runtime/attempts/" + itoa(attemptID) + "/" + op
}

func itoa(v uint) string {
	return strconv.Itoa(int(v))
}

func TestStartAttempt(t *testing.T) {
	app := setupTest(t)
	course := createCourse(t)

	resp, parsed := doJSON(t, app, "POST", "/runtime/attempts", "", fiber.Map{
		"course_id":  course.ID,
		"learner_id": "learner-1",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var data struct {
		Attempt   models.Attempt `json:"attempt"`
		Token     string         `json:"token"`
		PlayerURL string         `json:"player_url"`
	}
	require.NoError(t, json.Unmarshal(parsed.Data, &data))

	assert.Equal(t, models.AttemptInProgress, data.Attempt.Status)
	assert.NotNil(t, data.Attempt.StartedAt)
	assert.Nil(t, data.Attempt.FinishedAt)
	assert.NotEmpty(t, data.Token)
	assert.Contains(t, data.PlayerURL, "/player/")
}

func TestStartAttemptCourseNotFound(t *testing.T) {
	app := setupTest(t)

	resp, _ := doJSON(t, app, "POST", "/runtime/attempts", "", fiber.Map{
		"course_id":  9999,
		"learner_id": "learner-1",
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestStartAttemptLearnerRequired(t *testing.T) {
	app := setupTest(t)
	course := createCourse(t)

	resp, _ := doJSON(t, app, "POST", "/runtime/attempts", "", fiber.Map{
		"course_id":  course.ID,
		"learner_id": "   ",
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestStartAttemptScoNotFound(t *testing.T) {
	app := setupTest(t)
	course := createCourse(t)

	resp, _ := doJSON(t, app, "POST", "/runtime/attempts", "", fiber.Map{
		"course_id":  course.ID,
		"learner_id": "learner-1",
		"sco_id":     4242,
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestResolveLaunch(t *testing.T) {
	app := setupTest(t)
	course := createCourse(t)

	t.Run("course default", func(t *testing.T) {
		attempt, token := createAttempt(t, course.ID)

		resp, parsed := doJSON(t, app, "GET", attemptURL(attempt.ID, "launch"), token, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var data struct {
			Path       string `json:"path"`
			Parameters string `json:"parameters"`
		}
		require.NoError(t, json.Unmarshal(parsed.Data, &data))
		assert.Equal(t, course.BasePath+"/index.html", data.Path)
		assert.Empty(t, data.Parameters)
	})

	t.Run("pinned sco", func(t *testing.T) {
		attempt, token := createAttempt(t, course.ID)
		scoID := course.Scos[0].ID
		require.NoError(t, database.Database.Db.Model(&models.Attempt{}).Where("id = ?", attempt.ID).Update("sco_id", scoID).Error)

		resp, parsed := doJSON(t, app, "GET", attemptURL(attempt.ID, "launch"), token, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var data struct {
			Path       string `json:"path"`
			Parameters string `json:"parameters"`
		}
		require.NoError(t, json.Unmarshal(parsed.Data, &data))
		assert.Equal(t, course.BasePath+"/sco1/index.html", data.Path)
		assert.Equal(t, "lang=en", data.Parameters)
	})
}

func TestCommitPersistsBatch(t *testing.T) {
	app := setupTest(t)
	course := createCourse(t)
	attempt, token := createAttempt(t, course.ID)

	resp, _ := doJSON(t, app, "POST", commitURL(attempt.ID), token, map[string]string{
		"cmi.core.lesson_location": "page-2",
		"cmi.core.score.raw":       "80",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, map[string]string{
		"cmi.core.lesson_location": "page-2",
		"cmi.core.score.raw":       "80",
	}, snapshot(t, attempt.ID))
}

func TestCommitLastWriteWinsMerge(t *testing.T) {
	app := setupTest(t)
	course := createCourse(t)
	attempt, token := createAttempt(t, course.ID)

	resp, _ := doJSON(t, app, "POST", commitURL(attempt.ID), token, map[string]string{
		"cmi.core.lesson_location": "page-2",
		"cmi.suspend_data":         "state-a",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, "POST", commitURL(attempt.ID), token, map[string]string{
		"cmi.core.lesson_location": "page-7",
		"cmi.core.score.raw":       "95",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Per-element merge: shared elements take the second value, values
	// unique to the first commit persist.
	assert.Equal(t, map[string]string{
		"cmi.core.lesson_location": "page-7",
		"cmi.suspend_data":         "state-a",
		"cmi.core.score.raw":       "95",
	}, snapshot(t, attempt.ID))
}

func TestCommitUnknownElementRejectsWholeBatch(t *testing.T) {
	app := setupTest(t)
	course := createCourse(t)
	attempt, token := createAttempt(t, course.ID)

	resp, _ := doJSON(t, app, "POST", commitURL(attempt.ID), token, map[string]string{
		"cmi.core.lesson_location": "page-1",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	before := snapshot(t, attempt.ID)

	resp, parsed := doJSON(t, app, "POST", commitURL(attempt.ID), token, map[string]string{
		"cmi.core.lesson_location": "page-9",
		"cmi.bogus.element":        "x",
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, parsed.Message, "cmi.bogus.element")

	// All-or-nothing: the valid entry in the batch was not applied either
	assert.Equal(t, before, snapshot(t, attempt.ID))
}

func TestCommitNormalizesLessonStatus(t *testing.T) {
	app := setupTest(t)
	course := createCourse(t)
	attempt, token := createAttempt(t, course.ID)

	resp, _ := doJSON(t, app, "POST", commitURL(attempt.ID), token, map[string]string{
		"cmi.core.lesson_status": "Completed",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", snapshot(t, attempt.ID)["cmi.core.lesson_status"])

	resp, _ = doJSON(t, app, "POST", commitURL(attempt.ID), token, map[string]string{
		"cmi.core.lesson_status": "finished",
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "completed", snapshot(t, attempt.ID)["cmi.core.lesson_status"])
}

func TestCommitDoesNotChangeAttemptStatus(t *testing.T) {
	app := setupTest(t)
	course := createCourse(t)
	attempt, token := createAttempt(t, course.ID)

	resp, _ := doJSON(t, app, "POST", commitURL(attempt.ID), token, map[string]string{
		"cmi.core.lesson_status": "passed",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var reloaded models.Attempt
	require.NoError(t, database.Database.Db.First(&reloaded, attempt.ID).Error)
	assert.Equal(t, models.AttemptInProgress, reloaded.Status)
	assert.Nil(t, reloaded.FinishedAt)
}

func TestGetSetAreAcknowledgementOnly(t *testing.T) {
	app := setupTest(t)
	course := createCourse(t)
	attempt, token := createAttempt(t, course.ID)

	resp, _ := doJSON(t, app, "POST", attemptURL(attempt.ID, "set"), token, fiber.Map{
		"element": "cmi.core.lesson_location",
		"value":   "page-3",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, "POST", attemptURL(attempt.ID, "get"), token, fiber.Map{
		"element": "cmi.core.lesson_location",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Nothing persisted until commit
	assert.Empty(t, snapshot(t, attempt.ID))
}

func TestInitializeReturnsSnapshot(t *testing.T) {
	app := setupTest(t)
	course := createCourse(t)
	attempt, token := createAttempt(t, course.ID)

	resp, _ := doJSON(t, app, "POST", commitURL(attempt.ID), token, map[string]string{
		"cmi.core.lesson_location": "page-5",
		"cmi.suspend_data":         "bookmark",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, parsed := doJSON(t, app, "POST", attemptURL(attempt.ID, "initialize"), token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var values map[string]string
	require.NoError(t, json.Unmarshal(parsed.Data, &values))
	assert.Equal(t, map[string]string{
		"cmi.core.lesson_location": "page-5",
		"cmi.suspend_data":         "bookmark",
	}, values)
}

func TestInitializeAfterFinishRejected(t *testing.T) {
	app := setupTest(t)
	course := createCourse(t)
	attempt, token := createAttempt(t, course.ID)

	resp, _ := doJSON(t, app, "POST", attemptURL(attempt.ID, "finish"), token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, "POST", attemptURL(attempt.ID, "initialize"), token, nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestFinishIsIdempotent(t *testing.T) {
	app := setupTest(t)
	course := createCourse(t)
	attempt, token := createAttempt(t, course.ID)

	resp, _ := doJSON(t, app, "POST", attemptURL(attempt.ID, "finish"), token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var first models.Attempt
	require.NoError(t, database.Database.Db.First(&first, attempt.ID).Error)
	assert.Equal(t, models.AttemptCompleted, first.Status)
	require.NotNil(t, first.FinishedAt)

	// Unload handlers fire more than once; the second call is a no-op
	// success and finished_at does not move.
	resp, _ = doJSON(t, app, "POST", attemptURL(attempt.ID, "finish"), token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var second models.Attempt
	require.NoError(t, database.Database.Db.First(&second, attempt.ID).Error)
	assert.Equal(t, models.AttemptCompleted, second.Status)
	require.NotNil(t, second.FinishedAt)
	assert.True(t, first.FinishedAt.Equal(*second.FinishedAt))
}

func TestTokenAttemptMismatch(t *testing.T) {
	app := setupTest(t)
	course := createCourse(t)
	_, tokenA := createAttempt(t, course.ID)
	attemptB, _ := createAttempt(t, course.ID)

	resp, _ := doJSON(t, app, "POST", attemptURL(attemptB.ID, "initialize"), tokenA, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRuntimeRequiresToken(t *testing.T) {
	app := setupTest(t)
	course := createCourse(t)
	attempt, _ := createAttempt(t, course.ID)

	resp, _ := doJSON(t, app, "POST", attemptURL(attempt.ID, "initialize"), "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
