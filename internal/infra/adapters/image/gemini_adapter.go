package image

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"portrait-studio/internal/domain"
	"portrait-studio/internal/domain/model"
	"portrait-studio/internal/domain/ports/adapter"
)

var _ adapter.ImageGenerator = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiAdapter creates a Gemini image adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, defaultModel string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, defaultModel: defaultModel}, nil
}

func (g *GeminiAdapter) Name() string { return "gemini" }

func (g *GeminiAdapter) Generate(ctx context.Context, req adapter.ImageRequest) (*model.GeneratedImage, error) {
	if req.Image == nil {
		return nil, fmt.Errorf("gemini: %w: missing image", domain.ErrInvalidArgument)
	}
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{Text: req.Prompt},
			{InlineData: &genai.Blob{MIMEType: req.Image.MIMEType, Data: req.Image.Data}},
		},
	}}
	modelName := modelOrDefault(req.Model, g.defaultModel)
	resp, err := g.client.Models.GenerateContent(ctx, modelName, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, classifyStatus(g.Name(), apiErr.Code, truncate(apiErr.Message, 200))
		}
		return nil, classifyTransport(ctx, g.Name(), err)
	}

	if resp != nil {
		for _, cand := range resp.Candidates {
			if cand == nil || cand.Content == nil {
				continue
			}
			for _, p := range cand.Content.Parts {
				if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
					mt := p.InlineData.MIMEType
					if mt == "" {
						mt = "image/png"
					}
					return &model.GeneratedImage{Data: p.InlineData.Data, MIMEType: mt, Model: modelName}, nil
				}
			}
		}
	}
	return nil, fmt.Errorf("gemini: response carried no image: %w", domain.ErrUpstreamFailure)
}

func modelOrDefault(m, def string) string {
	if m != "" {
		return m
	}
	return def
}
