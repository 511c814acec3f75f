// Package gemini provides an imageflow Backend implementation using
// Google's Gemini API via the official Go SDK:
// https://github.com/googleapis/go-genai
//
// For Vertex AI or other Google Cloud backends, a separate implementation
// could be created using the same SDK with a different backend
// configuration.
package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/mhpenta/imageflow"
)

// Backend implements imageflow.Backend using Google's Gemini API.
type Backend struct {
	client         *genai.Client
	model          string
	safetySettings []*genai.SafetySetting
}

// Ensure Backend implements the interface.
var _ imageflow.Backend = (*Backend)(nil)

// Config configures the Gemini backend.
type Config struct {
	// APIKey for authentication. If empty, the SDK falls back to the
	// GOOGLE_API_KEY or GEMINI_API_KEY env vars.
	APIKey string

	// Model is the API model name. Empty selects the default image model.
	Model string

	// SafetySettings applied to every request unless the request carries
	// its own.
	SafetySettings []imageflow.SafetySetting
}

// New creates a Gemini backend.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	clientCfg := &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.APIKey != "" {
		clientCfg.APIKey = cfg.APIKey
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModelInfo().APIModelName
	}

	return &Backend{
		client:         client,
		model:          model,
		safetySettings: convertSafetySettings(cfg.SafetySettings),
	}, nil
}

// NewWithAPIKey creates a backend with an API key and the default model.
func NewWithAPIKey(ctx context.Context, apiKey string) (*Backend, error) {
	return New(ctx, Config{APIKey: apiKey})
}

// Model returns the API model name this backend targets.
func (b *Backend) Model() string {
	return b.model
}

// Generate performs one generation attempt. Conversation history on the
// request is replayed as chat contents ahead of the new user contribution.
func (b *Backend) Generate(ctx context.Context, req *imageflow.Request) (*imageflow.Result, error) {
	contents := buildContents(req)
	genConfig := b.buildGenerateContentConfig(req)

	result, err := b.client.Models.GenerateContent(ctx, b.model, contents, genConfig)
	if err != nil {
		return nil, mapAPIError(err)
	}

	return parseResult(result)
}

// Close releases any resources held by the backend.
func (b *Backend) Close() error {
	// The genai.Client doesn't require explicit closing in the current SDK
	return nil
}

// buildContents assembles the request contents: prior turns first, then the
// new user contribution with reference images before the prompt text.
func buildContents(req *imageflow.Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)

	for _, turn := range req.History {
		parts := make([]*genai.Part, 0, len(turn.Images)+1)
		for _, img := range turn.Images {
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{
					Data:     img.Data,
					MIMEType: img.MIMEType,
				},
			})
		}
		if turn.Text != "" {
			parts = append(parts, &genai.Part{Text: turn.Text})
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  turn.Role,
			Parts: parts,
		})
	}

	parts := make([]*genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				Data:     img.Data,
				MIMEType: img.MIMEType,
			},
		})
	}
	if req.Prompt != "" {
		parts = append(parts, &genai.Part{Text: req.Prompt})
	}
	contents = append(contents, &genai.Content{
		Role:  "user",
		Parts: parts,
	})

	return contents
}

// buildGenerateContentConfig converts the request to Gemini's config format.
func (b *Backend) buildGenerateContentConfig(req *imageflow.Request) *genai.GenerateContentConfig {
	genConfig := &genai.GenerateContentConfig{
		// Enable image output
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	if req.EnableGrounding {
		genConfig.Tools = []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		}
	}

	imageConfig := &genai.ImageConfig{}
	if req.Size != "" {
		imageConfig.ImageSize = req.Size.String()
	}
	if req.AspectRatio != "" {
		imageConfig.AspectRatio = req.AspectRatio.String()
	}
	genConfig.ImageConfig = imageConfig

	if req.Temperature != nil {
		genConfig.Temperature = genai.Ptr(*req.Temperature)
	}

	if req.EnableThinking {
		genConfig.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: true,
		}
	}

	// Safety settings: per-request overrides backend defaults
	if len(req.SafetySettings) > 0 {
		genConfig.SafetySettings = convertSafetySettings(req.SafetySettings)
	} else if len(b.safetySettings) > 0 {
		genConfig.SafetySettings = b.safetySettings
	}

	if req.Count > 1 {
		genConfig.CandidateCount = int32(req.Count)
	}

	return genConfig
}

// convertSafetySettings converts imageflow SafetySettings to Gemini's format.
func convertSafetySettings(settings []imageflow.SafetySetting) []*genai.SafetySetting {
	if len(settings) == 0 {
		return nil
	}
	result := make([]*genai.SafetySetting, 0, len(settings))
	for _, s := range settings {
		result = append(result, &genai.SafetySetting{
			Category:  genai.HarmCategory(s.Category),
			Threshold: genai.HarmBlockThreshold(s.Threshold),
		})
	}
	return result
}

// parseResult converts a Gemini response to an imageflow Result. Safety
// blocks surface as a typed ContentBlocked backend error so callers can
// message users differently from a generic failure.
func parseResult(result *genai.GenerateContentResponse) (*imageflow.Result, error) {
	if result == nil {
		return nil, &imageflow.BackendError{
			Kind:    imageflow.KindTransient,
			Message: "empty response from model",
		}
	}

	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return nil, &imageflow.BackendError{
			Kind:    imageflow.KindContentBlocked,
			Message: fmt.Sprintf("prompt blocked: %s", result.PromptFeedback.BlockReason),
		}
	}

	if len(result.Candidates) == 0 {
		return nil, &imageflow.BackendError{
			Kind:    imageflow.KindTransient,
			Message: "empty response from model",
		}
	}

	genResult := &imageflow.Result{
		Images: make([]imageflow.GeneratedImage, 0),
	}

	var thinkingParts []string

	imageIndex := 0
	for _, candidate := range result.Candidates {
		if candidate.FinishReason == genai.FinishReasonSafety ||
			candidate.FinishReason == genai.FinishReasonProhibitedContent {
			return nil, &imageflow.BackendError{
				Kind:    imageflow.KindContentBlocked,
				Message: fmt.Sprintf("candidate blocked: %s", candidate.FinishReason),
			}
		}

		if candidate.GroundingMetadata != nil &&
			candidate.GroundingMetadata.SearchEntryPoint != nil {
			genResult.SearchSources = candidate.GroundingMetadata.SearchEntryPoint.RenderedContent
		}

		if candidate.Content == nil {
			continue
		}

		for _, part := range candidate.Content.Parts {
			// Handle thinking/thought parts
			if part.Thought && part.Text != "" {
				thinkingParts = append(thinkingParts, part.Text)
				continue
			}

			if part.Text != "" {
				genResult.Text += part.Text
			}

			if part.InlineData != nil && part.InlineData.Data != nil {
				genResult.Images = append(genResult.Images, imageflow.GeneratedImage{
					Data:     part.InlineData.Data,
					MIMEType: part.InlineData.MIMEType,
					Index:    imageIndex,
				})
				imageIndex++
			}
		}
	}

	if len(thinkingParts) > 0 {
		genResult.ThinkingContent = strings.Join(thinkingParts, "\n")
	}

	if result.UsageMetadata != nil {
		genResult.Usage = &imageflow.Usage{
			PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
			CandidatesTokens: int(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(result.UsageMetadata.TotalTokenCount),
			ImageCount:       len(genResult.Images),
		}
	}

	return genResult, nil
}

// ImageFromBytes wraps raw bytes as a reference image.
func ImageFromBytes(data []byte, mimeType string) imageflow.InputImage {
	return imageflow.InputImage{
		Data:     data,
		MIMEType: mimeType,
	}
}

// ImageFromBase64 decodes a base64 payload as a reference image.
func ImageFromBase64(b64 string, mimeType string) (imageflow.InputImage, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return imageflow.InputImage{}, fmt.Errorf("invalid base64: %w", err)
	}
	return imageflow.InputImage{
		Data:     data,
		MIMEType: mimeType,
	}, nil
}
