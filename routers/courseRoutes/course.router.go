package courseRoutes

import (
	controllers "scormhost/controllers/course"
	validators "scormhost/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up package ingestion and course listing routes
func SetupCourseRoutes(app *fiber.App) {
	courseGroup := app.Group("/course")

	courseGroup.Post("/upload", controllers.UploadCourse)
	courseGroup.Get("/list", validators.CourseList(), controllers.GetAllCourses)
	courseGroup.Get("/:id", validators.CourseID(), controllers.GetCourseDetails)
	courseGroup.Delete("/:id", validators.CourseID(), controllers.DeleteCourse)
}
