package image

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"portrait-studio/internal/domain"
)

// classifyStatus maps a vendor HTTP status to an upstream sentinel.
func classifyStatus(provider string, status int, detail string) error {
	var base error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		base = domain.ErrUpstreamAuth
	case status == http.StatusTooManyRequests:
		base = domain.ErrUpstreamRateLimited
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		base = domain.ErrUpstreamTimeout
	default:
		base = domain.ErrUpstreamFailure
	}
	if detail != "" {
		return fmt.Errorf("%s: status %d: %s: %w", provider, status, detail, base)
	}
	return fmt.Errorf("%s: status %d: %w", provider, status, base)
}

// classifyTransport maps an error that produced no HTTP response.
func classifyTransport(ctx context.Context, provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %v: %w", provider, err, domain.ErrUpstreamTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: %v: %w", provider, err, domain.ErrUpstreamTimeout)
	}
	return fmt.Errorf("%s: %v: %w", provider, err, domain.ErrUpstreamFailure)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
