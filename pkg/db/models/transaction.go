package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is the fulfillment ledger row for a completed checkout.
// SessionID is the Stripe checkout session id; the primary key makes
// webhook replays a no-op inside the grant transaction.
type Transaction struct {
	SessionID       string    `gorm:"column:session_id;primaryKey"`
	ContractorID    uuid.UUID `gorm:"column:contractor_id;type:uuid;not null;index"`
	LeadID          uuid.UUID `gorm:"column:lead_id;type:uuid;not null;index"`
	AmountCents     int64     `gorm:"column:amount_cents;not null"`
	Currency        string    `gorm:"column:currency;not null"`
	PaymentIntentID *string   `gorm:"column:payment_intent_id"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}
