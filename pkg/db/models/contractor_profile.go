package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/homease/homease-backend/pkg/enums"
)

// ContractorProfile holds the vetting and coverage data used by lead matching.
type ContractorProfile struct {
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;primaryKey"`
	VettingStatus   enums.VettingStatus `gorm:"column:vetting_status;type:vetting_status;not null;default:'pending'"`
	ServiceAreaZips pq.StringArray      `gorm:"column:service_area_zips;type:text[];not null;default:ARRAY[]::text[]"`
	Specialties     pq.StringArray      `gorm:"column:specialties;type:text[];not null;default:ARRAY[]::text[]"`
	AverageRating   *float64            `gorm:"column:average_rating"`
	ReviewCount     int                 `gorm:"column:review_count;not null;default:0"`
	StripeAccountID *string             `gorm:"column:stripe_account_id"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides GORM pluralization.
func (ContractorProfile) TableName() string {
	return "contractor_profiles"
}
