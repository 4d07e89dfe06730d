package utils

import (
	"log"
	"os"
	"path"
	"path/filepath"
	"time"

	"scormhost/config"
	"scormhost/database"
	"scormhost/models"

	"github.com/robfig/cron/v3"
)

// logScheduler logs scheduler events with timestamp
func logScheduler(message string) {
	log.Printf("[SWEEP-SCHEDULER %s] %s", time.Now().Format(time.RFC3339), message)
}

// sweepOrphanedDirs removes extraction directories that have no course row.
// These are the leftovers of ingestions that crashed between extraction and
// persistence. Directories younger than an hour are skipped so a sweep
// never races an ingestion still in flight.
func sweepOrphanedDirs() {
	coursesRoot := filepath.Join(config.AppConfig.DataDir, "courses")

	entries, err := os.ReadDir(coursesRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			logScheduler("Error reading courses dir: " + err.Error())
		}
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil || time.Since(info.ModTime()) < time.Hour {
			continue
		}

		basePath := path.Join("courses", entry.Name())
		var count int64
		if err := database.Database.Db.Model(&models.Course{}).Where("base_path = ?", basePath).Count(&count).Error; err != nil {
			logScheduler("Error checking course row for " + basePath + ": " + err.Error())
			continue
		}
		if count > 0 {
			continue
		}

		if err := os.RemoveAll(filepath.Join(coursesRoot, entry.Name())); err != nil {
			logScheduler("Error removing orphaned dir " + basePath + ": " + err.Error())
			continue
		}
		logScheduler("Removed orphaned extraction dir " + basePath)
	}
}

// StartSweepScheduler runs the orphan sweep hourly
func StartSweepScheduler() *cron.Cron {
	scheduler := cron.New()

	if _, err := scheduler.AddFunc("@hourly", sweepOrphanedDirs); err != nil {
		logScheduler("Failed to register sweep job: " + err.Error())
		return scheduler
	}

	scheduler.Start()
	logScheduler("Sweep scheduler started")
	return scheduler
}
