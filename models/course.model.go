package models

import "gorm.io/gorm"

type Course struct {
	gorm.Model
	Title         string `json:"title"`
	OrgIdentifier string `json:"org_identifier"`
	LaunchHref    string `json:"launch_href"`
	BasePath      string `json:"base_path" gorm:"uniqueIndex;not null"` // relative to DATA_DIR, e.g. "courses/<uuid>"
	Scos          []Sco  `json:"scos,omitempty" gorm:"constraint:OnDelete:CASCADE;"`
}
