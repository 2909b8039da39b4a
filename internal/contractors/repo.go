package contractors

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/homease/homease-backend/pkg/db/models"
	"github.com/homease/homease-backend/pkg/enums"
)

// Repository exposes contractor profile persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a contractors repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByUserID loads the contractor profile for a user.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.ContractorProfile, error) {
	var profile models.ContractorProfile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByStripeAccountID resolves a profile by its connected account id.
func (r *Repository) FindByStripeAccountID(ctx context.Context, accountID string) (*models.ContractorProfile, error) {
	var profile models.ContractorProfile
	if err := r.db.WithContext(ctx).First(&profile, "stripe_account_id = ?", accountID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// SetStripeAccount records the connected account and moves vetting to
// pending_stripe while onboarding completes.
func (r *Repository) SetStripeAccount(ctx context.Context, userID uuid.UUID, accountID string) error {
	return r.db.WithContext(ctx).
		Model(&models.ContractorProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"stripe_account_id": accountID,
			"vetting_status":    enums.VettingStatusPendingStripe,
			"updated_at":        time.Now().UTC(),
		}).Error
}

// UpdateVettingStatus overwrites the vetting state.
func (r *Repository) UpdateVettingStatus(ctx context.Context, userID uuid.UUID, status enums.VettingStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.ContractorProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"vetting_status": status,
			"updated_at":     time.Now().UTC(),
		}).Error
}

// UpdateServiceArea overwrites the zips and specialties used by matching.
func (r *Repository) UpdateServiceArea(ctx context.Context, userID uuid.UUID, zips, specialties []string) error {
	return r.db.WithContext(ctx).
		Model(&models.ContractorProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"service_area_zips": pqStringArray(zips),
			"specialties":       pqStringArray(specialties),
			"updated_at":        time.Now().UTC(),
		}).Error
}

func pqStringArray(values []string) pq.StringArray {
	if values == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(values)
}
