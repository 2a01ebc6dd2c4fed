package model

import (
	"encoding/base64"
	"fmt"
	"strings"

	"portrait-studio/internal/domain"
)

const ImageMaxBytes = 4 * 1024 * 1024

var allowedImageFormats = map[string]string{
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
}

// SourceImage is a decoded upload.
type SourceImage struct {
	Data     []byte
	MIMEType string
	// Base64 is the original payload without the data URL prefix; vendors
	// that take base64 get it verbatim.
	Base64 string
}

// ParseSourceImage accepts either a data URL
// ("data:image/png;base64,....") or bare base64 (assumed JPEG).
func ParseSourceImage(raw string) (*SourceImage, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: image is required", domain.ErrInvalidArgument)
	}
	mime := "image/jpeg"
	payload := raw
	if strings.HasPrefix(raw, "data:") {
		comma := strings.IndexByte(raw, ',')
		if comma < 0 {
			return nil, fmt.Errorf("%w: malformed data URL", domain.ErrInvalidArgument)
		}
		header := raw[len("data:"):comma]
		payload = raw[comma+1:]
		if !strings.HasSuffix(header, ";base64") {
			return nil, fmt.Errorf("%w: image must be base64 encoded", domain.ErrInvalidArgument)
		}
		format := strings.TrimPrefix(strings.TrimSuffix(header, ";base64"), "image/")
		m, ok := allowedImageFormats[strings.ToLower(format)]
		if !ok {
			return nil, fmt.Errorf("%w: unsupported image format %q", domain.ErrInvalidArgument, format)
		}
		mime = m
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > ImageMaxBytes+3 {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", domain.ErrInvalidArgument, ImageMaxBytes)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: image is not valid base64", domain.ErrInvalidArgument)
	}
	if len(data) == 0 || len(data) > ImageMaxBytes {
		return nil, fmt.Errorf("%w: image must be between 1 and %d bytes", domain.ErrInvalidArgument, ImageMaxBytes)
	}
	return &SourceImage{Data: data, MIMEType: mime, Base64: payload}, nil
}

// GeneratedImage is the vendor output.
type GeneratedImage struct {
	Data     []byte
	MIMEType string
	Model    string // vendor model that produced it, when known
}
