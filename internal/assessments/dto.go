package assessments

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/homease/homease-backend/pkg/db/models"
	"github.com/homease/homease-backend/pkg/enums"
)

// CreateAssessmentRequest opens a new assessment in the uploading state.
type CreateAssessmentRequest struct {
	RoomType    string  `json:"room_type" validate:"required,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
}

// AssessmentDTO is the transport shape of an assessment.
type AssessmentDTO struct {
	ID              uuid.UUID              `json:"id"`
	UserID          uuid.UUID              `json:"user_id"`
	RoomType        string                 `json:"room_type"`
	Description     *string                `json:"description,omitempty"`
	Status          enums.AssessmentStatus `json:"status"`
	ImageCount      int                    `json:"image_count"`
	UploadPrefix    string                 `json:"upload_prefix,omitempty"`
	Hazards         json.RawMessage        `json:"hazards,omitempty"`
	Recommendations json.RawMessage        `json:"recommendations,omitempty"`
	Visualizations  []string               `json:"visualizations"`
	Error           *string                `json:"error,omitempty"`
	ProcessedAt     *time.Time             `json:"processed_at,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// FromModel maps an assessment row to its transport shape.
func FromModel(a *models.Assessment) *AssessmentDTO {
	if a == nil {
		return nil
	}
	return &AssessmentDTO{
		ID:              a.ID,
		UserID:          a.UserID,
		RoomType:        a.RoomType,
		Description:     a.Description,
		Status:          a.Status,
		ImageCount:      a.ImageCount,
		Hazards:         a.Hazards,
		Recommendations: a.Recommendations,
		Visualizations:  append([]string(nil), a.Visualizations...),
		Error:           a.Error,
		ProcessedAt:     a.ProcessedAt,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// RawPrefix is the object-store prefix holding the assessment's uploads.
func RawPrefix(userID, assessmentID uuid.UUID) string {
	return fmt.Sprintf("ar-assessments/%s/%s/", userID, assessmentID)
}

// ResultObject is the object-store path for a generated visualization.
func ResultObject(assessmentID uuid.UUID, index int) string {
	return fmt.Sprintf("ar-results/%s/visualization_%d.jpg", assessmentID, index)
}
