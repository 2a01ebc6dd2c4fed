package adapter

import (
	"context"

	"portrait-studio/internal/domain/model"
)

// ImageRequest is the single call made to the generation vendor.
type ImageRequest struct {
	Image  *model.SourceImage
	Prompt string
	Model  string // empty: adapter default
}

// ImageGenerator is the port for the external image-generation vendor.
//
// Implementations make exactly one attempt and honour ctx cancellation.
// Failures are wrapped with one of domain.ErrUpstreamTimeout,
// domain.ErrUpstreamAuth, domain.ErrUpstreamRateLimited or
// domain.ErrUpstreamFailure.
type ImageGenerator interface {
	Name() string
	Generate(ctx context.Context, req ImageRequest) (*model.GeneratedImage, error)
}
