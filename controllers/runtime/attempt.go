package controllers

import (
	"fmt"
	"html"
	"strings"
	"time"

	"scormhost/database"
	"scormhost/middleware"
	"scormhost/models"

	"github.com/gofiber/fiber/v2"
)

// StartAttempt creates a learner session against a course, optionally
// pinned to a specific SCO, and moves it straight to in_progress.
func StartAttempt(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedAttempt").(*struct {
		CourseID  uint   `json:"course_id"`
		LearnerID string `json:"learner_id"`
		ScoID     *uint  `json:"sco_id"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}

	var course models.Course
	if err := database.Database.Db.Where("id = ?", reqData.CourseID).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	if reqData.ScoID != nil {
		var sco models.Sco
		if err := database.Database.Db.Where("id = ? AND course_id = ?", *reqData.ScoID, course.ID).First(&sco).Error; err != nil {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "SCO not found!", nil)
		}
	}

	// A new attempt is not_started for only an instant: starting a
	// session transitions it to in_progress and stamps started_at.
	now := time.Now()
	attempt := models.Attempt{
		CourseID:  course.ID,
		LearnerID: reqData.LearnerID,
		ScoID:     reqData.ScoID,
		Status:    models.AttemptInProgress,
		StartedAt: &now,
	}

	if err := database.Database.Db.Create(&attempt).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to start attempt!", nil)
	}

	token, err := middleware.GenerateLaunchToken(attempt.ID, attempt.LearnerID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to sign launch token!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Attempt started successfully!", fiber.Map{
		"attempt":    attempt,
		"token":      token,
		"player_url": fmt.Sprintf("/player/%d?token=%s", attempt.ID, token),
	})
}

// ResolveLaunch returns the content-relative launch path for an attempt:
// the pinned SCO if one was chosen, the course default otherwise.
func ResolveLaunch(c *fiber.Ctx) error {
	attempt, errResp := loadTokenAttempt(c)
	if attempt == nil {
		return errResp
	}

	href, params, err := launchTarget(attempt)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, err.Error(), nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Launch resolved successfully!", fiber.Map{
		"path":       href,
		"parameters": params,
	})
}

// PlayerShell renders the HTML page hosting the content iframe and the
// SCORM 1.2 window.API shim. Get/set only touch the in-page cache; the
// shim flushes it explicitly through commit.
func PlayerShell(c *fiber.Ctx) error {
	attempt, errResp := loadTokenAttempt(c)
	if attempt == nil {
		return errResp
	}

	href, params, err := launchTarget(attempt)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, err.Error(), nil)
	}

	launchURL := "/content/" + href
	if params != "" {
		sep := "?"
		if strings.Contains(launchURL, "?") {
			sep = "&"
		}
		launchURL += sep + params
	}

	token := c.Query("token")
	page := fmt.Sprintf(playerTemplate, attempt.ID, html.EscapeString(launchURL),
		attempt.ID, html.EscapeString(token))

	c.Type("html", "utf-8")
	return c.SendString(page)
}

// loadTokenAttempt loads the attempt named in the path and checks that the
// launch token was issued for it. Returns (nil, response) on failure.
func loadTokenAttempt(c *fiber.Ctx) (*models.Attempt, error) {
	attemptID, err := c.ParamsInt("id")
	if err != nil || attemptID < 1 {
		return nil, middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid attempt id!", nil)
	}

	tokenAttempt, ok := c.Locals("attemptId").(uint)
	if !ok || tokenAttempt != uint(attemptID) {
		return nil, middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Token does not match attempt!", nil)
	}

	var attempt models.Attempt
	if err := database.Database.Db.Where("id = ?", attemptID).First(&attempt).Error; err != nil {
		return nil, middleware.JsonResponse(c, fiber.StatusNotFound, false, "Attempt not found!", nil)
	}
	return &attempt, nil
}

func launchTarget(attempt *models.Attempt) (string, string, error) {
	var course models.Course
	if err := database.Database.Db.Where("id = ?", attempt.CourseID).First(&course).Error; err != nil {
		return "", "", fmt.Errorf("course not found")
	}

	href := course.LaunchHref
	params := ""
	if attempt.ScoID != nil {
		var sco models.Sco
		if err := database.Database.Db.Where("id = ?", *attempt.ScoID).First(&sco).Error; err != nil {
			return "", "", fmt.Errorf("SCO not found")
		}
		href = sco.LaunchHref
		params = sco.Parameters
	}

	return course.BasePath + "/" + href, params, nil
}

const playerTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8"/>
  <title>Attempt %d</title>
  <style>
    html,body,iframe{height:100%%;width:100%%;margin:0;padding:0;border:0}
    .bar{position:fixed;top:0;left:0;right:0;height:36px;background:#eee;border-bottom:1px solid #ddd;display:flex;align-items:center;padding:0 8px;z-index:2}
    iframe{position:absolute;top:36px;left:0;right:0;bottom:0}
  </style>
</head>
<body>
<div class="bar"><button onclick="window.API.LMSCommit('')">Save</button> <span id="status"></span></div>
<iframe id="sco" src="%s"></iframe>
<script>
(function(){
  const cache = {};
  const attemptId = '%d';
  const token = '%s';

  async function post(path, body){
    const res = await fetch('/runtime/attempts/' + attemptId + '/' + path, {
      method: 'POST',
      headers: {'content-type': 'application/json', 'Authorization': 'Bearer ' + token},
      body: JSON.stringify(body || {})
    });
    return res.json().catch(() => ({}));
  }

  async function seed(){
    try {
      const j = await post('initialize');
      if (j && j.data && typeof j.data === 'object') {
        Object.assign(cache, j.data);
      }
    } catch(e){ console.warn('initialize failed', e); }
  }

  window.API = {
    LMSInitialize(){ return "true"; },
    LMSFinish(){ post('finish'); return "true"; },
    LMSGetValue(el){ return (el in cache) ? String(cache[el]) : ""; },
    LMSSetValue(el, v){ cache[el] = String(v); return "true"; },
    LMSCommit(){
      post('commit', cache).then(() => {
        const s = document.getElementById('status');
        if (s){ s.textContent = 'saved'; setTimeout(() => s.textContent = '', 1200); }
      });
      return "true";
    },
    LMSGetLastError(){ return "0"; },
    LMSGetErrorString(){ return "No error"; },
    LMSGetDiagnostic(){ return ""; }
  };

  seed();
})();
</script>
</body>
</html>`
