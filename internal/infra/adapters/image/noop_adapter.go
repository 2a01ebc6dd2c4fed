package image

import (
	"context"
	"time"

	"portrait-studio/internal/domain/model"
	"portrait-studio/internal/domain/ports/adapter"
)

var _ adapter.ImageGenerator = (*NoopAdapter)(nil)

// onePixelPNG is a valid 1x1 transparent PNG.
var onePixelPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// NoopAdapter implements adapter.ImageGenerator for local/dev testing.
// It returns a fixed image after a short delay instead of calling a vendor.
type NoopAdapter struct {
	Delay time.Duration
}

func NewNoopAdapter() *NoopAdapter {
	return &NoopAdapter{Delay: 100 * time.Millisecond}
}

func (a *NoopAdapter) Name() string { return "noop" }

func (a *NoopAdapter) Generate(ctx context.Context, req adapter.ImageRequest) (*model.GeneratedImage, error) {
	select {
	case <-time.After(a.Delay):
	case <-ctx.Done():
		return nil, classifyTransport(ctx, a.Name(), ctx.Err())
	}
	out := make([]byte, len(onePixelPNG))
	copy(out, onePixelPNG)
	return &model.GeneratedImage{Data: out, MIMEType: "image/png"}, nil
}
