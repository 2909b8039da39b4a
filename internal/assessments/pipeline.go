package assessments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/homease/homease-backend/pkg/db/models"
	"github.com/homease/homease-backend/pkg/genai"
	"github.com/homease/homease-backend/pkg/logger"
	"github.com/homease/homease-backend/pkg/storage/gcs"
)

const defaultImageMIME = "image/jpeg"

type pipelineRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Assessment, error)
	SetImageCount(ctx context.Context, id uuid.UUID, count int) error
	SetComplete(ctx context.Context, id uuid.UUID, hazards, recommendations json.RawMessage, visualizations []string, processedAt time.Time) error
	SetFailed(ctx context.Context, id uuid.UUID, message string) error
}

type objectStore interface {
	List(ctx context.Context, prefix string) ([]gcs.ObjectInfo, error)
	Download(ctx context.Context, object string) ([]byte, string, error)
	Upload(ctx context.Context, object string, data []byte, contentType string) error
	MakePublic(ctx context.Context, object string) error
	PublicURL(object string) string
}

type inferenceClient interface {
	AnalyzeImages(ctx context.Context, images []genai.ImageData, prompt string) (string, error)
	GenerateVisualization(ctx context.Context, base genai.ImageData, prompt string) ([]genai.ImageData, error)
}

// Pipeline runs the assessment analysis: download images, ask the model for
// hazards and recommendations, optionally render an "after" visualization,
// and persist the terminal state.
type Pipeline struct {
	repo      pipelineRepository
	store     objectStore
	inference inferenceClient
	logg      *logger.Logger
	now       func() time.Time
}

// NewPipeline constructs the assessment pipeline.
func NewPipeline(repo pipelineRepository, store objectStore, inference inferenceClient, logg *logger.Logger) (*Pipeline, error) {
	if repo == nil {
		return nil, errors.New("assessments repository is required")
	}
	if store == nil {
		return nil, errors.New("object store is required")
	}
	if inference == nil {
		return nil, errors.New("inference client is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Pipeline{
		repo:      repo,
		store:     store,
		inference: inference,
		logg:      logg,
		now:       time.Now,
	}, nil
}

type analysisResult struct {
	Hazards         json.RawMessage `json:"hazards"`
	Recommendations json.RawMessage `json:"recommendations"`
}

type recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Process runs the pipeline for one assessment. Any error outside the
// visualization stage marks the assessment failed with the error message;
// visualization errors are logged and the assessment completes without
// visualizations.
func (p *Pipeline) Process(ctx context.Context, assessmentID, userID uuid.UUID) error {
	logCtx := p.logg.WithAssessmentID(ctx, assessmentID.String())
	logCtx = p.logg.WithUserID(logCtx, userID.String())

	if err := p.run(logCtx, assessmentID, userID); err != nil {
		p.logg.Error(logCtx, "assessment processing failed", err)
		if failErr := p.repo.SetFailed(logCtx, assessmentID, err.Error()); failErr != nil {
			p.logg.Error(logCtx, "failed to mark assessment failed", failErr)
			return failErr
		}
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context, assessmentID, userID uuid.UUID) error {
	if _, err := p.repo.FindByID(ctx, assessmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p.logg.Warn(ctx, "assessment not found, skipping")
			return nil
		}
		return fmt.Errorf("load assessment: %w", err)
	}

	images, err := p.downloadImages(ctx, RawPrefix(userID, assessmentID))
	if err != nil {
		return err
	}
	if err := p.repo.SetImageCount(ctx, assessmentID, len(images)); err != nil {
		return fmt.Errorf("record image count: %w", err)
	}

	text, err := p.inference.AnalyzeImages(ctx, images, analysisPrompt)
	if err != nil {
		return fmt.Errorf("analyze images: %w", err)
	}

	var analysis analysisResult
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return fmt.Errorf("parse analysis response: %w", err)
	}

	recommendations := decodeRecommendations(analysis.Recommendations)

	var visualizations []string
	if len(recommendations) > 0 && len(images) > 0 {
		visualizations = p.generateVisualizations(ctx, assessmentID, images[0], recommendations[0])
	}

	if err := p.repo.SetComplete(ctx, assessmentID, analysis.Hazards, analysis.Recommendations, visualizations, p.now().UTC()); err != nil {
		return fmt.Errorf("persist results: %w", err)
	}

	p.logg.Info(p.logg.WithField(ctx, "visualization_count", len(visualizations)),
		"assessment processed")
	return nil
}

func (p *Pipeline) downloadImages(ctx context.Context, prefix string) ([]genai.ImageData, error) {
	objects, err := p.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list assessment images: %w", err)
	}

	images := make([]genai.ImageData, 0, len(objects))
	for _, object := range objects {
		data, contentType, err := p.store.Download(ctx, object.Name)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", object.Name, err)
		}
		if contentType == "" {
			contentType = defaultImageMIME
		}
		images = append(images, genai.ImageData{MIMEType: contentType, Data: data})
	}
	return images, nil
}

// generateVisualizations is best-effort: any error here is logged and the
// assessment completes without visualizations.
func (p *Pipeline) generateVisualizations(ctx context.Context, assessmentID uuid.UUID, base genai.ImageData, top recommendation) []string {
	prompt := visualizationPrompt(top.Title, top.Description)

	generated, err := p.inference.GenerateVisualization(ctx, base, prompt)
	if err != nil {
		p.logg.Error(ctx, "visualization generation failed", err)
		return nil
	}

	urls := make([]string, 0, len(generated))
	for i, image := range generated {
		object := ResultObject(assessmentID, i)
		contentType := image.MIMEType
		if contentType == "" {
			contentType = defaultImageMIME
		}
		if err := p.store.Upload(ctx, object, image.Data, contentType); err != nil {
			p.logg.Error(ctx, "visualization upload failed", err)
			return urls
		}
		if err := p.store.MakePublic(ctx, object); err != nil {
			p.logg.Error(ctx, "visualization publish failed", err)
			return urls
		}
		urls = append(urls, p.store.PublicURL(object))
	}

	p.logg.Info(p.logg.WithField(ctx, "visualization_count", len(urls)),
		"visualizations generated")
	return urls
}

func decodeRecommendations(raw json.RawMessage) []recommendation {
	if len(raw) == 0 {
		return nil
	}
	var recs []recommendation
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil
	}
	return recs
}
