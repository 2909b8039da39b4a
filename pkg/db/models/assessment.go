package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/homease/homease-backend/pkg/enums"
)

// Assessment is an AR room scan moving through the analysis pipeline.
// Raw images live in GCS under ar-assessments/{userID}/{assessmentID}/.
type Assessment struct {
	ID              uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	RoomType        string                 `gorm:"column:room_type;not null"`
	Description     *string                `gorm:"column:description"`
	Status          enums.AssessmentStatus `gorm:"column:status;type:assessment_status;not null;default:'uploading'"`
	ImageCount      int                    `gorm:"column:image_count;not null;default:0"`
	Hazards         json.RawMessage        `gorm:"column:hazards;type:jsonb"`
	Recommendations json.RawMessage        `gorm:"column:recommendations;type:jsonb"`
	Visualizations  pq.StringArray         `gorm:"column:visualizations;type:text[];not null;default:ARRAY[]::text[]"`
	Error           *string                `gorm:"column:error"`
	ProcessedAt     *time.Time             `gorm:"column:processed_at"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides GORM pluralization.
func (Assessment) TableName() string {
	return "ar_assessments"
}
