package models

import "gorm.io/gorm"

// Sco is one launchable resource resolved from a course manifest.
type Sco struct {
	gorm.Model
	CourseID   uint   `json:"course_id" gorm:"index;not null;uniqueIndex:idx_course_identifier"`
	Identifier string `json:"identifier" gorm:"not null;uniqueIndex:idx_course_identifier"`
	LaunchHref string `json:"launch_href"`
	Parameters string `json:"parameters,omitempty"`
}
