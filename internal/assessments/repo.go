package assessments

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/homease/homease-backend/pkg/db/models"
	"github.com/homease/homease-backend/pkg/enums"
)

// Repository exposes AR assessment persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an assessments repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new assessment.
func (r *Repository) Create(ctx context.Context, assessment *models.Assessment) error {
	return r.db.WithContext(ctx).Create(assessment).Error
}

// FindByID loads an assessment by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Assessment, error) {
	var assessment models.Assessment
	if err := r.db.WithContext(ctx).First(&assessment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &assessment, nil
}

// ListByUser returns the user's assessments newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Assessment, error) {
	var assessments []models.Assessment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&assessments).Error
	return assessments, err
}

// SetProcessing moves the assessment into the pipeline.
func (r *Repository) SetProcessing(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, map[string]any{
		"status": enums.AssessmentStatusProcessing,
		"error":  nil,
	})
}

// SetImageCount records how many raw images were found under the prefix.
func (r *Repository) SetImageCount(ctx context.Context, id uuid.UUID, count int) error {
	return r.update(ctx, id, map[string]any{
		"image_count": count,
	})
}

// SetComplete writes the terminal success state with the analysis results.
func (r *Repository) SetComplete(ctx context.Context, id uuid.UUID, hazards, recommendations json.RawMessage, visualizations []string, processedAt time.Time) error {
	return r.update(ctx, id, map[string]any{
		"status":          enums.AssessmentStatusComplete,
		"hazards":         hazards,
		"recommendations": recommendations,
		"visualizations":  pq.StringArray(visualizations),
		"processed_at":    processedAt,
		"error":           nil,
	})
}

// SetFailed writes the terminal failure state with the error message.
func (r *Repository) SetFailed(ctx context.Context, id uuid.UUID, message string) error {
	return r.update(ctx, id, map[string]any{
		"status": enums.AssessmentStatusFailed,
		"error":  message,
	})
}

func (r *Repository) update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.Assessment{}).
		Where("id = ?", id).
		Updates(updates).Error
}
