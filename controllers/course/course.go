package controllers

import (
	"errors"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"

	"scormhost/config"
	"scormhost/database"
	"scormhost/middleware"
	"scormhost/models"
	"scormhost/scorm"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// UploadCourse ingests an uploaded package: extract, resolve the manifest,
// then persist the course and its SCOs in one transaction. Any failure
// removes the extraction directory so no partial course is ever visible.
func UploadCourse(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Package file is required!", nil)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Failed to read uploaded file!", nil)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Failed to read uploaded file!", nil)
	}

	relBase := path.Join("courses", uuid.NewString())
	destDir := filepath.Join(config.AppConfig.DataDir, filepath.FromSlash(relBase))

	limits := scorm.ExtractLimits{
		MaxTotalBytes: int64(config.AppConfig.MaxPackageMB) << 20,
		MaxEntryBytes: int64(config.AppConfig.MaxEntryMB) << 20,
	}
	if err := scorm.ExtractPackage(data, destDir, limits); err != nil {
		return middleware.JsonResponse(c, ingestStatus(err), false, err.Error(), nil)
	}

	parsed, err := scorm.ResolveManifest(destDir)
	if err != nil {
		os.RemoveAll(destDir)
		return middleware.JsonResponse(c, ingestStatus(err), false, err.Error(), nil)
	}

	title := c.FormValue("title")
	if title == "" {
		title = parsed.Title
	}
	if title == "" {
		title = "Untitled Course"
	}

	course := models.Course{
		Title:         title,
		OrgIdentifier: parsed.OrgIdentifier,
		LaunchHref:    parsed.DefaultLaunch,
		BasePath:      relBase,
	}
	for _, sco := range parsed.Scos {
		course.Scos = append(course.Scos, models.Sco{
			Identifier: sco.Identifier,
			LaunchHref: sco.Href,
			Parameters: sco.Parameters,
		})
	}

	tx := database.Database.Db.Begin()
	if err := tx.Create(&course).Error; err != nil {
		tx.Rollback()
		os.RemoveAll(destDir)
		log.Printf("Failed to persist course: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save course!", nil)
	}
	tx.Commit()

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course ingested successfully!", course)
}

// GetAllCourses lists ingested courses with pagination
func GetAllCourses(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedList").(*struct {
		Page  *int `json:"page" query:"page"`
		Limit *int `json:"limit" query:"limit"`
	})
	if !ok {
		// No pagination params: return the full listing
		var courses []models.Course
		if err := database.Database.Db.Order("created_at desc").Find(&courses).Error; err != nil {
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch courses!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", fiber.Map{
			"courses": courses,
			"pagination": fiber.Map{
				"total": int64(len(courses)),
				"page":  1,
				"limit": len(courses),
			},
		})
	}

	page := *reqData.Page
	limit := *reqData.Limit
	offset := (page - 1) * limit

	db := database.Database.Db.Model(&models.Course{})

	var total int64
	db.Count(&total)

	var courses []models.Course
	if err := db.Offset(offset).Limit(limit).Order("created_at desc").Find(&courses).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch courses!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", fiber.Map{
		"courses": courses,
		"pagination": fiber.Map{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// GetCourseDetails returns one course with its launchable units
func GetCourseDetails(c *fiber.Ctx) error {
	courseID := c.Locals("courseID").(int)

	var course models.Course
	if err := database.Database.Db.Preload("Scos").Where("id = ?", courseID).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course fetched successfully!", course)
}

// DeleteCourse removes a course, its SCOs and its extraction directory.
// Attempts are retained for reporting.
func DeleteCourse(c *fiber.Ctx) error {
	courseID := c.Locals("courseID").(int)

	var course models.Course
	if err := database.Database.Db.Where("id = ?", courseID).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	tx := database.Database.Db.Begin()
	if err := tx.Unscoped().Where("course_id = ?", course.ID).Delete(&models.Sco{}).Error; err != nil {
		tx.Rollback()
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete course!", nil)
	}
	if err := tx.Unscoped().Delete(&course).Error; err != nil {
		tx.Rollback()
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete course!", nil)
	}
	tx.Commit()

	destDir := filepath.Join(config.AppConfig.DataDir, filepath.FromSlash(course.BasePath))
	if err := os.RemoveAll(destDir); err != nil {
		log.Printf("Failed to remove course directory %s: %v", destDir, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course deleted successfully!", nil)
}

// ingestStatus maps ingestion failures to HTTP statuses; every reason is
// reported specifically so the uploader can correct the package.
func ingestStatus(err error) int {
	switch {
	case errors.Is(err, scorm.ErrArchiveInvalid),
		errors.Is(err, scorm.ErrPathTraversal),
		errors.Is(err, scorm.ErrSizeLimit),
		errors.Is(err, scorm.ErrManifestNotFound),
		errors.Is(err, scorm.ErrManifestInvalid):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
