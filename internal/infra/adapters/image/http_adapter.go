package image

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"portrait-studio/internal/domain"
	"portrait-studio/internal/domain/model"
	"portrait-studio/internal/domain/ports/adapter"
)

var _ adapter.ImageGenerator = (*HTTPAdapter)(nil)

// maxResponseBytes caps what is read from the vendor.
const maxResponseBytes = 32 << 20

// HTTPAdapter posts {"image": <data URL>, "prompt": ...} with a bearer key
// and expects raw image bytes back.
type HTTPAdapter struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPAdapter leaves timeouts to the caller's context.
func NewHTTPAdapter(endpoint, apiKey string, client *http.Client) (*HTTPAdapter, error) {
	if endpoint == "" || apiKey == "" {
		return nil, errors.New("http image adapter: endpoint and api key are required")
	}
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPAdapter{endpoint: endpoint, apiKey: apiKey, client: client}, nil
}

func (a *HTTPAdapter) Name() string { return "http" }

func (a *HTTPAdapter) Generate(ctx context.Context, req adapter.ImageRequest) (*model.GeneratedImage, error) {
	if req.Image == nil {
		return nil, fmt.Errorf("http: %w: missing image", domain.ErrInvalidArgument)
	}
	body, err := json.Marshal(struct {
		Image  string `json:"image"`
		Prompt string `json:"prompt"`
	}{
		Image:  "data:" + req.Image.MIMEType + ";base64," + req.Image.Base64,
		Prompt: req.Prompt,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("http: build request: %v: %w", err, domain.ErrUpstreamFailure)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(ctx, a.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, classifyStatus(a.Name(), resp.StatusCode, truncate(strings.TrimSpace(string(snippet)), 200))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyTransport(ctx, a.Name(), err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("http: empty image: %w", domain.ErrUpstreamFailure)
	}
	return &model.GeneratedImage{Data: data, MIMEType: responseMIME(resp.Header.Get("Content-Type"), data)}, nil
}

// responseMIME trusts an image/* content type, otherwise sniffs; JPEG is the fallback.
func responseMIME(header string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(header); err == nil && strings.HasPrefix(mt, "image/") {
		return mt
	}
	if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	return "image/jpeg"
}
