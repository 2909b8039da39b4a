package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/homease/homease-backend/pkg/db/models"
	"github.com/homease/homease-backend/pkg/enums"
	pkgerrors "github.com/homease/homease-backend/pkg/errors"
	"github.com/homease/homease-backend/pkg/logger"
)

const missingZipError = "Missing homeowner zip code."

const defaultCurrency = "usd"

type repository interface {
	Create(ctx context.Context, lead *models.Lead) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	ListByHomeowner(ctx context.Context, homeownerID uuid.UUID) ([]models.Lead, error)
	ListForContractor(ctx context.Context, contractorID uuid.UUID) ([]models.Lead, error)
	SetMatching(ctx context.Context, id uuid.UUID) error
	SetMatched(ctx context.Context, id uuid.UUID, contractorIDs []uuid.UUID) error
	SetNoMatch(ctx context.Context, id uuid.UUID) error
	SetFailed(ctx context.Context, id uuid.UUID, message string) error
	ApprovedCandidatesByZip(ctx context.Context, zip string) ([]Candidate, error)
}

type leadCreatedPublisher interface {
	PublishJSON(ctx context.Context, payload any, attrs map[string]string) (string, error)
}

// LeadCreatedPayload triggers the matching engine.
type LeadCreatedPayload struct {
	LeadID              string   `json:"leadId"`
	RequiredSpecialties []string `json:"requiredSpecialties,omitempty"`
}

// ServiceParams bundles the dependencies for the lead service.
type ServiceParams struct {
	Repo      repository
	Publisher leadCreatedPublisher
	Emitter   *Emitter
	Logger    *logger.Logger
}

// Service owns lead creation, reads, and the matching engine.
type Service struct {
	repo    repository
	pub     leadCreatedPublisher
	emitter *Emitter
	logg    *logger.Logger
}

// NewService constructs the lead service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("leads repository is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		repo:    params.Repo,
		pub:     params.Publisher,
		emitter: params.Emitter,
		logg:    params.Logger,
	}, nil
}

// Create persists a new lead and publishes the lead-created event that
// drives matching.
func (s *Service) Create(ctx context.Context, homeownerID uuid.UUID, req CreateLeadRequest) (*LeadDTO, error) {
	urgency, err := enums.ParseUrgency(req.Urgency)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid urgency")
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	lead := &models.Lead{
		HomeownerID:         homeownerID,
		ContactName:         strings.TrimSpace(req.ContactName),
		ContactEmail:        strings.ToLower(strings.TrimSpace(req.ContactEmail)),
		ContactPhone:        req.ContactPhone,
		Address:             strings.TrimSpace(req.Address),
		Zip:                 strings.TrimSpace(req.Zip),
		Description:         req.Description,
		RequiredSpecialties: pq.StringArray(normalizeSpecialties(req.RequiredSpecialties)),
		Urgency:             urgency,
		PriceCents:          req.PriceCents,
		Currency:            currency,
		Status:              enums.LeadStatusNew,
	}

	if err := s.repo.Create(ctx, lead); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create lead")
	}

	logCtx := s.logg.WithLeadID(ctx, lead.ID.String())
	s.publishLeadCreated(logCtx, lead)
	s.emitter.Emit(logCtx, enums.LeadEventCreated, lead.ID, map[string]any{
		"homeowner_id": lead.HomeownerID.String(),
		"zip":          lead.Zip,
		"urgency":      lead.Urgency.String(),
		"price_cents":  lead.PriceCents,
	})

	return FromModel(lead), nil
}

func (s *Service) publishLeadCreated(ctx context.Context, lead *models.Lead) {
	if s.pub == nil {
		return
	}
	payload := LeadCreatedPayload{
		LeadID:              lead.ID.String(),
		RequiredSpecialties: []string(lead.RequiredSpecialties),
	}
	if _, err := s.pub.PublishJSON(ctx, payload, map[string]string{"lead_id": lead.ID.String()}); err != nil {
		// The lead stays in status new; matching waits for a republish.
		s.logg.Error(ctx, "publish lead-created event failed", err)
	}
}

// List returns the leads visible to the actor. Homeowners see their own
// leads in full; contractors see redacted leads they were matched to or
// purchased; admins see nothing here (they use per-lead reads).
func (s *Service) List(ctx context.Context, actorID uuid.UUID, role enums.Role) ([]*LeadDTO, error) {
	switch role {
	case enums.RoleHomeowner, enums.RoleAdmin:
		rows, err := s.repo.ListByHomeowner(ctx, actorID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list leads")
		}
		out := make([]*LeadDTO, 0, len(rows))
		for i := range rows {
			out = append(out, FromModel(&rows[i]))
		}
		return out, nil
	case enums.RoleContractor:
		rows, err := s.repo.ListForContractor(ctx, actorID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list leads")
		}
		out := make([]*LeadDTO, 0, len(rows))
		for i := range rows {
			out = append(out, FromModelForContractor(&rows[i], actorID))
		}
		return out, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role required")
	}
}

// Get returns one lead with access control: the owner and admins see it in
// full; matched or purchasing contractors see the contractor view; everyone
// else gets not found.
func (s *Service) Get(ctx context.Context, actorID uuid.UUID, role enums.Role, leadID uuid.UUID) (*LeadDTO, error) {
	lead, err := s.repo.FindByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load lead")
	}

	switch {
	case role == enums.RoleAdmin, lead.HomeownerID == actorID:
		return FromModel(lead), nil
	case role == enums.RoleContractor &&
		(lead.MatchedContractorIDs.Contains(actorID) || lead.PurchasedBy.Contains(actorID)):
		return FromModelForContractor(lead, actorID), nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
	}
}

// Match runs the matching engine for one lead. Any error inside the run is
// caught here: the lead is forced to failed best-effort and nil is returned,
// because redelivery is the only retry mechanism and reprocessing fully
// overwrites the matching fields.
func (s *Service) Match(ctx context.Context, leadID uuid.UUID, requiredSpecialties []string) error {
	logCtx := s.logg.WithLeadID(ctx, leadID.String())

	if err := s.match(logCtx, leadID, requiredSpecialties); err != nil {
		s.logg.Error(logCtx, "lead matching failed", err)
		if failErr := s.repo.SetFailed(logCtx, leadID, err.Error()); failErr != nil {
			s.logg.Error(logCtx, "failed to mark lead failed", failErr)
		} else {
			s.emitter.Emit(logCtx, enums.LeadEventMatchFailed, leadID, map[string]any{
				"error": err.Error(),
			})
		}
	}
	return nil
}

func (s *Service) match(ctx context.Context, leadID uuid.UUID, requiredSpecialties []string) error {
	lead, err := s.repo.FindByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(ctx, "lead not found, skipping")
			return nil
		}
		return fmt.Errorf("load lead: %w", err)
	}

	if err := s.repo.SetMatching(ctx, leadID); err != nil {
		return fmt.Errorf("mark matching: %w", err)
	}

	if strings.TrimSpace(lead.Zip) == "" {
		if err := s.repo.SetFailed(ctx, leadID, missingZipError); err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}
		s.emitter.Emit(ctx, enums.LeadEventMatchFailed, leadID, map[string]any{
			"error": missingZipError,
		})
		return nil
	}

	candidates, err := s.repo.ApprovedCandidatesByZip(ctx, lead.Zip)
	if err != nil {
		return fmt.Errorf("query contractors: %w", err)
	}

	if len(candidates) == 0 {
		if err := s.repo.SetNoMatch(ctx, leadID); err != nil {
			return fmt.Errorf("mark no match: %w", err)
		}
		s.emitter.Emit(ctx, enums.LeadEventNoMatch, leadID, map[string]any{"zip": lead.Zip})
		return nil
	}

	selected := SelectContractors(candidates, normalizeSpecialties(requiredSpecialties))
	if len(selected) == 0 {
		if err := s.repo.SetNoMatch(ctx, leadID); err != nil {
			return fmt.Errorf("mark no match: %w", err)
		}
		s.emitter.Emit(ctx, enums.LeadEventNoMatch, leadID, map[string]any{"zip": lead.Zip})
		return nil
	}

	if err := s.repo.SetMatched(ctx, leadID, selected); err != nil {
		return fmt.Errorf("mark matched: %w", err)
	}
	s.emitter.Emit(ctx, enums.LeadEventMatched, leadID, map[string]any{
		"contractor_ids": uuidStrings(selected),
		"zip":            lead.Zip,
	})
	return nil
}

func normalizeSpecialties(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
