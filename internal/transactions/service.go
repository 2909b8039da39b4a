package transactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/homease/homease-backend/pkg/db/models"
	dbtypes "github.com/homease/homease-backend/pkg/db/types"
	"github.com/homease/homease-backend/pkg/enums"
	"github.com/homease/homease-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type leadEventEmitter interface {
	Emit(ctx context.Context, eventType enums.LeadEventType, leadID uuid.UUID, data any)
}

// Fulfillment grants lead access and writes the ledger row in one
// transaction keyed by the checkout session id. Replays are a no-op.
type Fulfillment struct {
	tx      txRunner
	emitter leadEventEmitter
	logg    *logger.Logger
	now     func() time.Time
}

// GrantParams carries the checkout outcome applied by Grant.
type GrantParams struct {
	SessionID       string
	LeadID          uuid.UUID
	ContractorID    uuid.UUID
	AmountCents     int64
	Currency        string
	PaymentIntentID *string
}

// NewFulfillment constructs the fulfillment service.
func NewFulfillment(tx txRunner, emitter leadEventEmitter, logg *logger.Logger) (*Fulfillment, error) {
	if tx == nil {
		return nil, errors.New("transaction runner is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Fulfillment{
		tx:      tx,
		emitter: emitter,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// Grant appends the contractor to the lead's purchased set, marks the lead
// sold, and inserts the ledger row. The existence check on the ledger row
// runs inside the same transaction as the grant, so a duplicate webhook
// delivery observes the row and returns without side effects.
func (f *Fulfillment) Grant(ctx context.Context, params GrantParams) error {
	if params.SessionID == "" {
		return errors.New("session id is required")
	}
	if params.LeadID == uuid.Nil || params.ContractorID == uuid.Nil {
		return errors.New("lead id and contractor id are required")
	}

	logCtx := f.logg.WithLeadID(ctx, params.LeadID.String())
	logCtx = f.logg.WithFields(logCtx, map[string]any{
		"contractor_id": params.ContractorID.String(),
		"session_id":    params.SessionID,
	})

	replay := false
	err := f.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var existing models.Transaction
		err := tx.First(&existing, "session_id = ?", params.SessionID).Error
		if err == nil {
			replay = true
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check ledger: %w", err)
		}

		var lead models.Lead
		if err := tx.First(&lead, "id = ?", params.LeadID).Error; err != nil {
			return fmt.Errorf("load lead: %w", err)
		}

		purchased := lead.PurchasedBy
		if !purchased.Contains(params.ContractorID) {
			purchased = append(purchased, params.ContractorID)
		}

		if err := tx.Model(&models.Lead{}).
			Where("id = ?", params.LeadID).
			Updates(map[string]any{
				"purchased_by": dbtypes.UUIDArray(purchased),
				"status":       enums.LeadStatusSold,
				"updated_at":   f.now().UTC(),
			}).Error; err != nil {
			return fmt.Errorf("grant lead access: %w", err)
		}

		ledger := models.Transaction{
			SessionID:       params.SessionID,
			ContractorID:    params.ContractorID,
			LeadID:          params.LeadID,
			AmountCents:     params.AmountCents,
			Currency:        params.Currency,
			PaymentIntentID: params.PaymentIntentID,
		}
		if err := tx.Create(&ledger).Error; err != nil {
			return fmt.Errorf("write ledger: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if replay {
		f.logg.Warn(logCtx, "checkout session already fulfilled")
		return nil
	}

	f.logg.Info(logCtx, "lead sold")
	if f.emitter != nil {
		f.emitter.Emit(logCtx, enums.LeadEventSold, params.LeadID, map[string]any{
			"contractor_id": params.ContractorID.String(),
			"amount_cents":  params.AmountCents,
			"currency":      params.Currency,
		})
	}
	return nil
}
