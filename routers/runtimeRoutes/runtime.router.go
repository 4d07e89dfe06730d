package runtimeRoutes

import (
	controllers "scormhost/controllers/runtime"
	"scormhost/middleware"
	validators "scormhost/validators/runtime"

	"github.com/gofiber/fiber/v2"
)

// SetupRuntimeRoutes sets up attempt and session-protocol routes
func SetupRuntimeRoutes(app *fiber.App) {
	runtimeGroup := app.Group("/runtime")

	runtimeGroup.Post("/attempts", validators.StartAttempt(), controllers.StartAttempt)
	runtimeGroup.Get("/attempts/:id/launch", middleware.LaunchTokenMiddleware, controllers.ResolveLaunch)

	runtimeGroup.Post("/attempts/:id/initialize", middleware.LaunchTokenMiddleware, controllers.Initialize)
	runtimeGroup.Post("/attempts/:id/get", middleware.LaunchTokenMiddleware, controllers.GetValue)
	runtimeGroup.Post("/attempts/:id/set", middleware.LaunchTokenMiddleware, controllers.SetValue)
	runtimeGroup.Post("/attempts/:id/commit", middleware.LaunchTokenMiddleware, validators.CommitBatch(), controllers.CommitData)
	runtimeGroup.Post("/attempts/:id/finish", middleware.LaunchTokenMiddleware, controllers.FinishAttempt)

	// Player shell hosting the SCORM API shim
	app.Get("/player/:id", middleware.LaunchTokenMiddleware, controllers.PlayerShell)
}
