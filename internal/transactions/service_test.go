package transactions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/homease/homease-backend/pkg/db/models"
	dbtypes "github.com/homease/homease-backend/pkg/db/types"
	"github.com/homease/homease-backend/pkg/enums"
	"github.com/homease/homease-backend/pkg/logger"
)

func setupFulfillmentTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	leads := `
CREATE TABLE IF NOT EXISTS leads (
  id TEXT PRIMARY KEY,
  homeowner_id TEXT NOT NULL,
  contact_name TEXT NOT NULL,
  contact_email TEXT NOT NULL,
  contact_phone TEXT,
  address TEXT NOT NULL,
  zip TEXT NOT NULL,
  description TEXT NOT NULL,
  required_specialties TEXT NOT NULL DEFAULT '{}',
  urgency TEXT NOT NULL DEFAULT 'medium',
  price_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'usd',
  status TEXT NOT NULL DEFAULT 'new',
  matched_contractor_ids TEXT NOT NULL DEFAULT '{}',
  purchased_by TEXT NOT NULL DEFAULT '{}',
  error TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	transactions := `
CREATE TABLE IF NOT EXISTS transactions (
  session_id TEXT PRIMARY KEY,
  contractor_id TEXT NOT NULL,
  lead_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL,
  payment_intent_id TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(leads).Error)
	require.NoError(t, db.Exec(transactions).Error)
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type recordingEmitter struct {
	events []enums.LeadEventType
}

func (r *recordingEmitter) Emit(ctx context.Context, eventType enums.LeadEventType, leadID uuid.UUID, data any) {
	r.events = append(r.events, eventType)
}

func seedLead(t *testing.T, db *gorm.DB) *models.Lead {
	t.Helper()
	lead := &models.Lead{
		ID:                  uuid.New(),
		HomeownerID:         uuid.New(),
		ContactName:         "Jane",
		ContactEmail:        "jane@example.com",
		Address:             "1 Main St",
		Zip:                 "73301",
		Description:         "leaky faucet",
		RequiredSpecialties: pq.StringArray{},
		PriceCents:          2500,
		Currency:            "usd",
		Status:              enums.LeadStatusMatched,
	}
	require.NoError(t, db.Create(lead).Error)
	return lead
}

func newFulfillmentForTests(t *testing.T, db *gorm.DB) (*Fulfillment, *recordingEmitter) {
	t.Helper()
	emitter := &recordingEmitter{}
	svc, err := NewFulfillment(&gormTxRunner{db: db}, emitter, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	return svc, emitter
}

func TestGrantMarksLeadSoldAndWritesLedger(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	lead := seedLead(t, db)
	svc, emitter := newFulfillmentForTests(t, db)
	contractorID := uuid.New()
	intentID := "pi_123"

	err := svc.Grant(context.Background(), GrantParams{
		SessionID:       "cs_test_1",
		LeadID:          lead.ID,
		ContractorID:    contractorID,
		AmountCents:     2500,
		Currency:        "usd",
		PaymentIntentID: &intentID,
	})
	require.NoError(t, err)

	var reloaded models.Lead
	require.NoError(t, db.First(&reloaded, "id = ?", lead.ID).Error)
	require.Equal(t, enums.LeadStatusSold, reloaded.Status)
	require.True(t, reloaded.PurchasedBy.Contains(contractorID))

	var ledger models.Transaction
	require.NoError(t, db.First(&ledger, "session_id = ?", "cs_test_1").Error)
	require.Equal(t, lead.ID, ledger.LeadID)
	require.Equal(t, int64(2500), ledger.AmountCents)
	require.NotNil(t, ledger.PaymentIntentID)

	require.Equal(t, []enums.LeadEventType{enums.LeadEventSold}, emitter.events)
}

func TestGrantReplayIsNoop(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	lead := seedLead(t, db)
	svc, emitter := newFulfillmentForTests(t, db)
	contractorID := uuid.New()

	params := GrantParams{
		SessionID:    "cs_test_replay",
		LeadID:       lead.ID,
		ContractorID: contractorID,
		AmountCents:  2500,
		Currency:     "usd",
	}
	require.NoError(t, svc.Grant(context.Background(), params))
	require.NoError(t, svc.Grant(context.Background(), params))

	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	var reloaded models.Lead
	require.NoError(t, db.First(&reloaded, "id = ?", lead.ID).Error)
	require.Len(t, []uuid.UUID(reloaded.PurchasedBy), 1)

	require.Equal(t, []enums.LeadEventType{enums.LeadEventSold}, emitter.events)
}

func TestGrantSecondContractorAppends(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	lead := seedLead(t, db)
	first := uuid.New()
	lead.PurchasedBy = dbtypes.UUIDArray{first}
	require.NoError(t, db.Model(&models.Lead{}).Where("id = ?", lead.ID).
		Update("purchased_by", lead.PurchasedBy).Error)

	svc, _ := newFulfillmentForTests(t, db)
	second := uuid.New()

	require.NoError(t, svc.Grant(context.Background(), GrantParams{
		SessionID:    "cs_test_2",
		LeadID:       lead.ID,
		ContractorID: second,
		AmountCents:  2500,
		Currency:     "usd",
	}))

	var reloaded models.Lead
	require.NoError(t, db.First(&reloaded, "id = ?", lead.ID).Error)
	require.True(t, reloaded.PurchasedBy.Contains(first))
	require.True(t, reloaded.PurchasedBy.Contains(second))
}

func TestGrantUnknownLeadFails(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	svc, emitter := newFulfillmentForTests(t, db)

	err := svc.Grant(context.Background(), GrantParams{
		SessionID:    "cs_test_missing",
		LeadID:       uuid.New(),
		ContractorID: uuid.New(),
		AmountCents:  2500,
		Currency:     "usd",
	})
	require.Error(t, err)
	require.Empty(t, emitter.events)

	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestGrantValidatesParams(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	svc, _ := newFulfillmentForTests(t, db)

	require.Error(t, svc.Grant(context.Background(), GrantParams{
		LeadID:       uuid.New(),
		ContractorID: uuid.New(),
	}))
	require.Error(t, svc.Grant(context.Background(), GrantParams{
		SessionID:    "cs_test_3",
		ContractorID: uuid.New(),
	}))
	require.Error(t, svc.Grant(context.Background(), GrantParams{
		SessionID: "cs_test_3",
		LeadID:    uuid.New(),
	}))
}
