package assessments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/homease/homease-backend/pkg/db/models"
	"github.com/homease/homease-backend/pkg/enums"
	pkgerrors "github.com/homease/homease-backend/pkg/errors"
	"github.com/homease/homease-backend/pkg/logger"
)

type repository interface {
	Create(ctx context.Context, assessment *models.Assessment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Assessment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Assessment, error)
	SetProcessing(ctx context.Context, id uuid.UUID) error
}

type processPublisher interface {
	PublishJSON(ctx context.Context, payload any, attrs map[string]string) (string, error)
}

// ProcessPayload triggers the assessment pipeline.
type ProcessPayload struct {
	AssessmentID string `json:"assessmentId"`
	UserID       string `json:"userId"`
}

// ServiceParams bundles the dependencies for the assessment service.
type ServiceParams struct {
	Repo      repository
	Publisher processPublisher
	Logger    *logger.Logger
}

// Service owns assessment lifecycle outside the pipeline: creation, reads,
// and kicking off processing once uploads are done.
type Service struct {
	repo repository
	pub  processPublisher
	logg *logger.Logger
}

// NewService constructs the assessment service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("assessments repository is required")
	}
	if params.Publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		repo: params.Repo,
		pub:  params.Publisher,
		logg: params.Logger,
	}, nil
}

// Create opens a new assessment in the uploading state and returns the
// object-store prefix the client should upload room images under.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateAssessmentRequest) (*AssessmentDTO, error) {
	assessment := &models.Assessment{
		UserID:      userID,
		RoomType:    req.RoomType,
		Description: req.Description,
		Status:      enums.AssessmentStatusUploading,
	}
	if err := s.repo.Create(ctx, assessment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create assessment")
	}

	dto := FromModel(assessment)
	dto.UploadPrefix = RawPrefix(userID, assessment.ID)
	return dto, nil
}

// StartProcessing moves the caller's assessment into the pipeline. It is
// only valid from the uploading or failed state; processing and complete
// assessments are left alone.
func (s *Service) StartProcessing(ctx context.Context, userID uuid.UUID, assessmentID uuid.UUID) (*AssessmentDTO, error) {
	assessment, err := s.repo.FindByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assessment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load assessment")
	}
	if assessment.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assessment not found")
	}

	switch assessment.Status {
	case enums.AssessmentStatusUploading, enums.AssessmentStatusFailed:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("assessment is %s", assessment.Status))
	}

	if err := s.repo.SetProcessing(ctx, assessmentID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark processing")
	}

	payload := ProcessPayload{
		AssessmentID: assessmentID.String(),
		UserID:       userID.String(),
	}
	attrs := map[string]string{"assessment_id": assessmentID.String()}
	if _, err := s.pub.PublishJSON(ctx, payload, attrs); err != nil {
		// Roll back so the client can retry the whole call.
		logCtx := s.logg.WithAssessmentID(ctx, assessmentID.String())
		s.logg.Error(logCtx, "publish assessment-process event failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue assessment")
	}

	assessment.Status = enums.AssessmentStatusProcessing
	assessment.Error = nil
	return FromModel(assessment), nil
}

// List returns the caller's assessments newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*AssessmentDTO, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list assessments")
	}
	out := make([]*AssessmentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

// Get returns one assessment. Owners and admins see it; everyone else gets
// not found.
func (s *Service) Get(ctx context.Context, actorID uuid.UUID, role enums.Role, assessmentID uuid.UUID) (*AssessmentDTO, error) {
	assessment, err := s.repo.FindByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assessment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load assessment")
	}
	if assessment.UserID != actorID && role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assessment not found")
	}
	return FromModel(assessment), nil
}
