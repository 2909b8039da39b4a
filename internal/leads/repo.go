package leads

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/homease/homease-backend/pkg/db/models"
	dbtypes "github.com/homease/homease-backend/pkg/db/types"
	"github.com/homease/homease-backend/pkg/enums"
)

// Repository exposes lead persistence plus the matching candidate query.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a leads repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new lead.
func (r *Repository) Create(ctx context.Context, lead *models.Lead) error {
	return r.db.WithContext(ctx).Create(lead).Error
}

// FindByID loads a lead by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	if err := r.db.WithContext(ctx).First(&lead, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

// ListByHomeowner returns the homeowner's leads newest first.
func (r *Repository) ListByHomeowner(ctx context.Context, homeownerID uuid.UUID) ([]models.Lead, error) {
	var leads []models.Lead
	err := r.db.WithContext(ctx).
		Where("homeowner_id = ?", homeownerID).
		Order("created_at DESC").
		Find(&leads).Error
	return leads, err
}

// ListForContractor returns leads where the contractor was matched or has
// purchased access, newest first.
func (r *Repository) ListForContractor(ctx context.Context, contractorID uuid.UUID) ([]models.Lead, error) {
	var leads []models.Lead
	err := r.db.WithContext(ctx).
		Where("? = ANY(matched_contractor_ids) OR ? = ANY(purchased_by)", contractorID, contractorID).
		Order("created_at DESC").
		Find(&leads).Error
	return leads, err
}

// SetMatching marks the lead as in-flight so duplicate triggers are visible.
func (r *Repository) SetMatching(ctx context.Context, id uuid.UUID) error {
	return r.updateStatus(ctx, id, map[string]any{
		"status": enums.LeadStatusMatching,
	})
}

// SetMatched persists the ordered contractor list and the matched status.
func (r *Repository) SetMatched(ctx context.Context, id uuid.UUID, contractorIDs []uuid.UUID) error {
	return r.updateStatus(ctx, id, map[string]any{
		"status":                 enums.LeadStatusMatched,
		"matched_contractor_ids": dbtypes.UUIDArray(contractorIDs),
		"error":                  nil,
	})
}

// SetNoMatch records the terminal no-match outcome.
func (r *Repository) SetNoMatch(ctx context.Context, id uuid.UUID) error {
	return r.updateStatus(ctx, id, map[string]any{
		"status":                 enums.LeadStatusNoMatchFound,
		"matched_contractor_ids": dbtypes.UUIDArray{},
		"error":                  nil,
	})
}

// SetFailed records a failed matching run with an explanatory error.
func (r *Repository) SetFailed(ctx context.Context, id uuid.UUID, message string) error {
	return r.updateStatus(ctx, id, map[string]any{
		"status": enums.LeadStatusFailed,
		"error":  message,
	})
}

func (r *Repository) updateStatus(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.Lead{}).
		Where("id = ?", id).
		Updates(updates).Error
}

type candidateRow struct {
	UserID        uuid.UUID      `gorm:"column:user_id"`
	Specialties   pq.StringArray `gorm:"column:specialties;type:text[]"`
	AverageRating *float64       `gorm:"column:average_rating"`
	ReviewCount   int            `gorm:"column:review_count"`
}

// ApprovedCandidatesByZip returns approved contractors whose service area
// covers the postal code, joined against the users role column.
func (r *Repository) ApprovedCandidatesByZip(ctx context.Context, zip string) ([]Candidate, error) {
	var rows []candidateRow
	err := r.db.WithContext(ctx).
		Table("contractor_profiles").
		Select("contractor_profiles.user_id, contractor_profiles.specialties, contractor_profiles.average_rating, contractor_profiles.review_count").
		Joins("JOIN users ON users.id = contractor_profiles.user_id").
		Where("users.role = ?", enums.RoleContractor).
		Where("contractor_profiles.vetting_status = ?", enums.VettingStatusApproved).
		Where("? = ANY(contractor_profiles.service_area_zips)", zip).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, Candidate{
			UserID:        row.UserID,
			Specialties:   []string(row.Specialties),
			AverageRating: row.AverageRating,
			ReviewCount:   row.ReviewCount,
		})
	}
	return candidates, nil
}
