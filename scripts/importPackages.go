package main

import (
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"scormhost/config"
	"scormhost/database"
	"scormhost/models"
	"scormhost/scorm"

	"github.com/google/uuid"
)

// Bulk-imports every zip in a local directory as a course. Usage:
//
//	go run ./scripts <packages-dir>
func main() {
	// Load config and connect to database
	config.LoadConfig()
	database.ConnectDb()

	srcDir := "./packages"
	if len(os.Args) > 1 {
		srcDir = os.Args[1]
	}

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		log.Fatalf("Failed to read package dir: %v", err)
	}

	limits := scorm.ExtractLimits{
		MaxTotalBytes: int64(config.AppConfig.MaxPackageMB) << 20,
		MaxEntryBytes: int64(config.AppConfig.MaxEntryMB) << 20,
	}

	imported := 0
	skipped := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".zip") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(srcDir, entry.Name()))
		if err != nil {
			log.Printf("Skipping %s: %v", entry.Name(), err)
			skipped++
			continue
		}

		relBase := path.Join("courses", uuid.NewString())
		destDir := filepath.Join(config.AppConfig.DataDir, filepath.FromSlash(relBase))

		if err := scorm.ExtractPackage(data, destDir, limits); err != nil {
			log.Printf("Skipping %s: %v", entry.Name(), err)
			skipped++
			continue
		}

		parsed, err := scorm.ResolveManifest(destDir)
		if err != nil {
			os.RemoveAll(destDir)
			log.Printf("Skipping %s: %v", entry.Name(), err)
			skipped++
			continue
		}

		title := parsed.Title
		if title == "" {
			title = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
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
			log.Printf("Skipping %s: %v", entry.Name(), err)
			skipped++
			continue
		}
		tx.Commit()

		log.Printf("Imported %s as course %d (%d SCOs)", entry.Name(), course.ID, len(course.Scos))
		imported++
	}

	log.Printf("Done. Imported: %d, Skipped: %d", imported, skipped)
}
