package roles

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/homease/homease-backend/pkg/db/models"
	"github.com/homease/homease-backend/pkg/enums"
)

// Repository persists pending role assignments and applies roles to users.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a roles repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindPending loads the pending assignment for the user, if any.
func (r *Repository) FindPending(ctx context.Context, userID uuid.UUID) (*models.PendingRoleAssignment, error) {
	var pending models.PendingRoleAssignment
	if err := r.db.WithContext(ctx).First(&pending, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &pending, nil
}

// DeletePending removes the consumed assignment row.
func (r *Repository) DeletePending(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.PendingRoleAssignment{}, "user_id = ?", userID).Error
}

// SetUserRole writes the authoritative role column.
func (r *Repository) SetUserRole(ctx context.Context, userID uuid.UUID, role enums.Role) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"role":       role,
			"updated_at": time.Now().UTC(),
		}).Error
}

// UserExists reports whether the user row is present.
func (r *Repository) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Count(&count).Error
	return count > 0, err
}

// EnsureContractorProfile creates the profile row backing vetting and
// matching if it does not exist yet.
func (r *Repository) EnsureContractorProfile(ctx context.Context, userID uuid.UUID) error {
	profile := models.ContractorProfile{
		UserID:        userID,
		VettingStatus: enums.VettingStatusPending,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&profile).Error
}
