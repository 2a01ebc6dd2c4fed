package image

import (
	"context"
	"fmt"

	"portrait-studio/internal/domain"
	"portrait-studio/internal/domain/model"
	"portrait-studio/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.ImageGenerator = (*limitedGenerator)(nil)

type limitedGenerator struct {
	inner adapter.ImageGenerator
	sem   chan struct{}
}

// NewLimited bounds in-flight vendor calls. A caller waiting for a slot gives
// up when its context ends.
func NewLimited(inner adapter.ImageGenerator, maxConcurrent int) adapter.ImageGenerator {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedGenerator{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedGenerator) Name() string { return l.inner.Name() }

func (l *limitedGenerator) Generate(ctx context.Context, req adapter.ImageRequest) (*model.GeneratedImage, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, classifyTransport(ctx, l.inner.Name(), fmt.Errorf("waiting for slot: %w", ctx.Err()))
	}
	defer func() { <-l.sem }()
	img, err := l.inner.Generate(ctx, req)
	if err == nil && (img == nil || len(img.Data) == 0) {
		return nil, fmt.Errorf("%s: empty image: %w", l.inner.Name(), domain.ErrUpstreamFailure)
	}
	return img, err
}
