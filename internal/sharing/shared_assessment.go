package sharing

import (
	"time"

	"gorm.io/datatypes"
)

// SharedAssessment is an immutable snapshot reachable through its share code.
type SharedAssessment struct {
	ID             string         `gorm:"column:id;primaryKey;size:36"`
	Code           string         `gorm:"column:code;size:16;not null;uniqueIndex"`
	OwnerID        *string        `gorm:"column:owner_id;size:36;index"`
	Title          string         `gorm:"column:title;size:255;not null"`
	AssessmentData datatypes.JSON `gorm:"column:assessment_data;not null"`
	ExpiresAt      *time.Time     `gorm:"column:expires_at"`
	CreatedAt      time.Time      `gorm:"column:created_at;not null"`
}

// TableName exposes the table backing shared assessments.
func (SharedAssessment) TableName() string {
	return "shared_assessments"
}

// ExpiredAt reports whether the snapshot is no longer resolvable at instant.
func (s SharedAssessment) ExpiredAt(instant time.Time) bool {
	return s.ExpiresAt != nil && instant.After(*s.ExpiresAt)
}
