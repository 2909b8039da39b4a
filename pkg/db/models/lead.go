package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	dbtypes "github.com/homease/homease-backend/pkg/db/types"
	"github.com/homease/homease-backend/pkg/enums"
)

// Lead is a homeowner job request flowing through the matching engine.
// MatchedContractorIDs is ordered best-first and capped at three entries;
// PurchasedBy is append-only.
type Lead struct {
	ID                   uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	HomeownerID          uuid.UUID         `gorm:"column:homeowner_id;type:uuid;not null;index"`
	ContactName          string            `gorm:"column:contact_name;not null"`
	ContactEmail         string            `gorm:"column:contact_email;not null"`
	ContactPhone         *string           `gorm:"column:contact_phone"`
	Address              string            `gorm:"column:address;not null"`
	Zip                  string            `gorm:"column:zip;not null;index"`
	Description          string            `gorm:"column:description;not null"`
	RequiredSpecialties  pq.StringArray    `gorm:"column:required_specialties;type:text[];not null;default:ARRAY[]::text[]"`
	Urgency              enums.Urgency     `gorm:"column:urgency;type:lead_urgency;not null;default:'medium'"`
	PriceCents           int64             `gorm:"column:price_cents;not null"`
	Currency             string            `gorm:"column:currency;not null;default:'usd'"`
	Status               enums.LeadStatus  `gorm:"column:status;type:lead_status;not null;default:'new'"`
	MatchedContractorIDs dbtypes.UUIDArray `gorm:"column:matched_contractor_ids;type:uuid[];not null;default:ARRAY[]::uuid[]"`
	PurchasedBy          dbtypes.UUIDArray `gorm:"column:purchased_by;type:uuid[];not null;default:ARRAY[]::uuid[]"`
	Error                *string           `gorm:"column:error"`
	CreatedAt            time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
