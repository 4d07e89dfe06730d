package main

import (
	"log"

	"scormhost/config"
	"scormhost/database"
	courseRoutes "scormhost/routers/courseRoutes"
	runtimeRoutes "scormhost/routers/runtimeRoutes"
	"scormhost/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadConfig()
	database.ConnectDb()

	app := fiber.New(fiber.Config{
		BodyLimit: config.AppConfig.MaxPackageMB << 20,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",        // Allowed HTTP methods
		AllowHeaders: "Content-Type,Authorization", // Allowed headers
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	// Serve extracted course content
	app.Static("/content", config.AppConfig.DataDir)

	courseRoutes.SetupCourseRoutes(app)
	runtimeRoutes.SetupRuntimeRoutes(app)

	utils.StartSweepScheduler()

	log.Printf("Server is running on port %s", config.AppConfig.Port)
	log.Fatal(app.Listen(":" + config.AppConfig.Port))
}
