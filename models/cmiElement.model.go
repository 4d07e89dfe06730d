package models

import "gorm.io/gorm"

// CmiElement is one persisted (attempt, element) -> value fact. Values are
// overwritten in place on commit, never appended.
type CmiElement struct {
	gorm.Model
	AttemptID uint    `json:"attempt_id" gorm:"not null;uniqueIndex:idx_attempt_element"`
	Element   string  `json:"element" gorm:"not null;uniqueIndex:idx_attempt_element"`
	Value     string  `json:"value"`
	Attempt   Attempt `json:"-" gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`
}
