package models

import (
	"time"

	"gorm.io/gorm"
)

// Attempt statuses
const (
	AttemptNotStarted = "not_started"
	AttemptInProgress = "in_progress"
	AttemptCompleted  = "completed"
)

// Attempt is one learner session against a course, optionally pinned to a
// specific SCO. Attempts are retained for reporting and never deleted with
// their course.
type Attempt struct {
	gorm.Model
	CourseID   uint       `json:"course_id" gorm:"index;not null"`
	LearnerID  string     `json:"learner_id" gorm:"index;not null"`
	ScoID      *uint      `json:"sco_id,omitempty"`
	Status     string     `json:"status" gorm:"default:'not_started'"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
