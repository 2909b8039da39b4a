package leads

import (
	"time"

	"github.com/google/uuid"

	"github.com/homease/homease-backend/pkg/db/models"
	"github.com/homease/homease-backend/pkg/enums"
)

// CreateLeadRequest is the homeowner-facing creation payload.
type CreateLeadRequest struct {
	ContactName         string   `json:"contact_name" validate:"required,max=200"`
	ContactEmail        string   `json:"contact_email" validate:"required,email"`
	ContactPhone        *string  `json:"contact_phone,omitempty" validate:"omitempty,max=32"`
	Address             string   `json:"address" validate:"required,max=500"`
	Zip                 string   `json:"zip" validate:"required,min=3,max=10"`
	Description         string   `json:"description" validate:"required,max=5000"`
	RequiredSpecialties []string `json:"required_specialties" validate:"max=10,dive,required,max=100"`
	Urgency             string   `json:"urgency" validate:"required,oneof=low medium high"`
	PriceCents          int64    `json:"price_cents" validate:"required,min=100"`
	Currency            string   `json:"currency,omitempty" validate:"omitempty,len=3"`
}

// LeadDTO is the transport shape of a lead. Contact fields are omitted for
// contractors who have not purchased the lead.
type LeadDTO struct {
	ID                   uuid.UUID        `json:"id"`
	HomeownerID          uuid.UUID        `json:"homeowner_id"`
	ContactName          string           `json:"contact_name,omitempty"`
	ContactEmail         string           `json:"contact_email,omitempty"`
	ContactPhone         *string          `json:"contact_phone,omitempty"`
	Address              string           `json:"address,omitempty"`
	Zip                  string           `json:"zip"`
	Description          string           `json:"description"`
	RequiredSpecialties  []string         `json:"required_specialties"`
	Urgency              enums.Urgency    `json:"urgency"`
	PriceCents           int64            `json:"price_cents"`
	Currency             string           `json:"currency"`
	Status               enums.LeadStatus `json:"status"`
	MatchedContractorIDs []uuid.UUID      `json:"matched_contractor_ids,omitempty"`
	PurchasedBy          []uuid.UUID      `json:"purchased_by,omitempty"`
	Error                *string          `json:"error,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// PurchaseResponse returns the hosted checkout handoff.
type PurchaseResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// FromModel maps a lead for its owner (or an admin): every field visible.
func FromModel(l *models.Lead) *LeadDTO {
	if l == nil {
		return nil
	}
	return &LeadDTO{
		ID:                   l.ID,
		HomeownerID:          l.HomeownerID,
		ContactName:          l.ContactName,
		ContactEmail:         l.ContactEmail,
		ContactPhone:         l.ContactPhone,
		Address:              l.Address,
		Zip:                  l.Zip,
		Description:          l.Description,
		RequiredSpecialties:  append([]string(nil), l.RequiredSpecialties...),
		Urgency:              l.Urgency,
		PriceCents:           l.PriceCents,
		Currency:             l.Currency,
		Status:               l.Status,
		MatchedContractorIDs: append([]uuid.UUID(nil), l.MatchedContractorIDs...),
		PurchasedBy:          append([]uuid.UUID(nil), l.PurchasedBy...),
		Error:                l.Error,
		CreatedAt:            l.CreatedAt,
		UpdatedAt:            l.UpdatedAt,
	}
}

// FromModelForContractor redacts homeowner contact details until the
// contractor has purchased the lead.
func FromModelForContractor(l *models.Lead, contractorID uuid.UUID) *LeadDTO {
	dto := FromModel(l)
	if dto == nil {
		return nil
	}
	dto.MatchedContractorIDs = nil
	dto.PurchasedBy = nil
	dto.Error = nil
	if !l.PurchasedBy.Contains(contractorID) {
		dto.ContactName = ""
		dto.ContactEmail = ""
		dto.ContactPhone = nil
		dto.Address = ""
	}
	return dto
}
