package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/homease/homease-backend/pkg/config"
	"github.com/homease/homease-backend/pkg/logger"
)

var errAPIKeyRequired = errors.New("gemini api key is required")

// ImageData carries raw image bytes with their MIME type.
type ImageData struct {
	MIMEType string
	Data     []byte
}

// Client wraps the Gemini API for assessment analysis and visualization.
type Client struct {
	api *genai.Client
	cfg config.GeminiConfig
}

// NewClient creates a Gemini API client using the configured key.
func NewClient(ctx context.Context, cfg config.GeminiConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errAPIKeyRequired
	}

	api, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "genai client initialized")
	}

	return &Client{api: api, cfg: cfg}, nil
}

// AnalyzeImages runs the analysis model over the images with a JSON-only
// response and returns the raw JSON text.
func (c *Client) AnalyzeImages(ctx context.Context, images []ImageData, prompt string) (string, error) {
	if c == nil || c.api == nil {
		return "", errors.New("genai client not initialized")
	}

	// A prompt-only call is valid; the model answers from text alone.
	parts := make([]*genai.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: img.MIMEType,
				Data:     img.Data,
			},
		})
	}
	parts = append(parts, genai.NewPartFromText(prompt))

	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	resp, err := c.api.Models.GenerateContent(ctx, c.cfg.AnalysisModel, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("gemini analysis: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini analysis returned no text")
	}
	return text, nil
}

// GenerateVisualization asks the image model to render the prompt against
// the base image and returns every inline image in the response.
func (c *Client) GenerateVisualization(ctx context.Context, base ImageData, prompt string) ([]ImageData, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("genai client not initialized")
	}
	if len(base.Data) == 0 {
		return nil, errors.New("base image is required")
	}

	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: base.MIMEType, Data: base.Data}},
			genai.NewPartFromText(prompt),
		},
	}}

	resp, err := c.api.Models.GenerateContent(ctx, c.cfg.VisualizationModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini visualization: %w", err)
	}

	var out []ImageData
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			out = append(out, ImageData{
				MIMEType: part.InlineData.MIMEType,
				Data:     part.InlineData.Data,
			})
		}
	}
	return out, nil
}
