package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"portrait-studio/internal/domain"
	"portrait-studio/internal/domain/model"
	"portrait-studio/internal/domain/ports/adapter"
)

var _ adapter.ImageGenerator = (*OpenAIAdapter)(nil)

// OpenAIAdapter uses the Images Edit endpoint: the upload is the edit source.
type OpenAIAdapter struct {
	client openai.Client
	model  string
}

func NewOpenAIAdapter(apiKey, baseURL, model string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = string(openai.ImageModelGPTImage1)
	}
	// one attempt per generation; the saga owns retries and refunds
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIAdapter{client: openai.NewClient(opts...), model: model}, nil
}

func (o *OpenAIAdapter) Name() string { return "openai" }

func (o *OpenAIAdapter) Generate(ctx context.Context, req adapter.ImageRequest) (*model.GeneratedImage, error) {
	if req.Image == nil {
		return nil, fmt.Errorf("openai: %w: missing image", domain.ErrInvalidArgument)
	}
	modelName := modelOrDefault(req.Model, o.model)
	ext := strings.TrimPrefix(req.Image.MIMEType, "image/")
	resp, err := o.client.Images.Edit(ctx, openai.ImageEditParams{
		Image: openai.ImageEditParamsImageUnion{
			OfFile: openai.File(bytes.NewReader(req.Image.Data), "portrait."+ext, req.Image.MIMEType),
		},
		Prompt: req.Prompt,
		Model:  openai.ImageModel(modelName),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, classifyStatus(o.Name(), apiErr.StatusCode, truncate(apiErr.Message, 200))
		}
		return nil, classifyTransport(ctx, o.Name(), err)
	}
	if resp == nil || len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("openai: response carried no image: %w", domain.ErrUpstreamFailure)
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("openai: decode image: %v: %w", err, domain.ErrUpstreamFailure)
	}
	return &model.GeneratedImage{Data: data, MIMEType: "image/png", Model: modelName}, nil
}
