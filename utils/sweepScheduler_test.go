package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"scormhost/config"
	"scormhost/database"
	"scormhost/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSweepTest(t *testing.T) string {
	t.Helper()

	config.AppConfig = &config.Config{DataDir: t.TempDir()}

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	database.RunMigrations(db)
	database.Database = database.DbInstance{Db: db}

	coursesRoot := filepath.Join(config.AppConfig.DataDir, "courses")
	require.NoError(t, os.MkdirAll(coursesRoot, 0o755))
	return coursesRoot
}

func makeCourseDir(t *testing.T, coursesRoot, name string, old bool) string {
	t.Helper()
	dir := filepath.Join(coursesRoot, name)
	require.NoError(t, os.Mkdir(dir, 0o755))
	if old {
		stale := time.Now().Add(-2 * time.Hour)
		require.NoError(t, os.Chtimes(dir, stale, stale))
	}
	return dir
}

func TestSweepRemovesOrphanedDirs(t *testing.T) {
	coursesRoot := setupSweepTest(t)

	kept := makeCourseDir(t, coursesRoot, "kept", true)
	orphan := makeCourseDir(t, coursesRoot, "orphan", true)
	fresh := makeCourseDir(t, coursesRoot, "fresh", false)

	course := models.Course{Title: "Kept", LaunchHref: "index.html", BasePath: "courses/kept"}
	require.NoError(t, database.Database.Db.Create(&course).Error)

	sweepOrphanedDirs()

	// Dirs with a course row survive, so do dirs too young to judge
	_, err := os.Stat(kept)
	assert.NoError(t, err)
	_, err = os.Stat(fresh)
	assert.NoError(t, err)

	// The stale dir without a row is gone
	_, err = os.Stat(orphan)
	assert.True(t, os.IsNotExist(err))
}

func TestSweepNoCoursesDir(t *testing.T) {
	setupSweepTest(t)
	require.NoError(t, os.RemoveAll(filepath.Join(config.AppConfig.DataDir, "courses")))

	// Must not panic or create anything
	sweepOrphanedDirs()
	_, err := os.Stat(filepath.Join(config.AppConfig.DataDir, "courses"))
	assert.True(t, os.IsNotExist(err))
}
