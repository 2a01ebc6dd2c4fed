//go:build !integration

package model

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"portrait-studio/internal/domain"
)

// --- VerificationCode Tests ---

func TestNewVerificationCode(t *testing.T) {
	t.Run("should normalize and create an active code", func(t *testing.T) {
		c, err := NewVerificationCode("  abc12345 ", 5)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if c.Code != "ABC12345" {
			t.Errorf("expected normalized code ABC12345, got %s", c.Code)
		}
		if !c.IsActive() || c.UsedAt != nil {
			t.Error("expected a fresh code to be active and unused")
		}
	})

	t.Run("should reject bad points and bad codes", func(t *testing.T) {
		cases := []struct {
			code   string
			points int64
		}{
			{"ABC12345", 0},
			{"ABC12345", PointsMax + 1},
			{"ABC", 1},
			{strings.Repeat("A", CodeLengthMax+1), 1},
			{"ABC-1234", 1},
		}
		for _, tc := range cases {
			if _, err := NewVerificationCode(tc.code, tc.points); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("code=%q points=%d: expected ErrInvalidArgument, got %v", tc.code, tc.points, err)
			}
		}
	})
}

func TestParseCodeStatusFilter(t *testing.T) {
	for in, want := range map[string]CodeStatus{"": "", "all": "", "ACTIVE": CodeStatusActive, "used": CodeStatusUsed} {
		got, err := ParseCodeStatusFilter(in)
		if err != nil || got != want {
			t.Errorf("ParseCodeStatusFilter(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseCodeStatusFilter("expired"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for unknown status, got %v", err)
	}
}

// --- CreditAccount Tests ---

func TestNormalizeDeviceID(t *testing.T) {
	if id, err := NormalizeDeviceID(" dev-1 "); err != nil || id != "dev-1" {
		t.Fatalf("expected dev-1, got %q (%v)", id, err)
	}
	if _, err := NormalizeDeviceID(""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for empty id")
	}
	if _, err := NormalizeDeviceID(strings.Repeat("x", DeviceIDMaxLength+1)); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for long id")
	}
}

// --- StyleOptions Tests ---

func TestBuildPrompt(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		got := StyleOptions{}.BuildPrompt()
		want := "professional American-style portrait photo, front-facing direct eye contact, natural skin tone, " +
			"wearing professional business suit, clean white background, " +
			"high quality studio lighting, sharp focus, professional photography"
		if got != want {
			t.Errorf("unexpected default prompt:\n got: %s\nwant: %s", got, want)
		}
	})

	t.Run("explicit options and custom prompt", func(t *testing.T) {
		got := StyleOptions{Angle: "side", SkinTone: "brighten", Outfit: "academic", Background: "blue", CustomPrompt: "smiling"}.BuildPrompt()
		for _, part := range []string{"slight side angle", "slightly brightened skin tone", "academic doctoral regalia", "blue gradient", "smiling"} {
			if !strings.Contains(got, part) {
				t.Errorf("expected prompt to contain %q, got %s", part, got)
			}
		}
		if !strings.HasSuffix(got, ", smiling") {
			t.Errorf("custom prompt should be appended last, got %s", got)
		}
	})

	t.Run("unknown values fall back", func(t *testing.T) {
		got := StyleOptions{Outfit: "spacesuit"}.BuildPrompt()
		if !strings.Contains(got, "professional business suit") {
			t.Errorf("expected fallback outfit, got %s", got)
		}
	})
}

// --- SourceImage Tests ---

func TestParseSourceImage(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	enc := base64.StdEncoding.EncodeToString(png)

	img, err := ParseSourceImage("data:image/png;base64," + enc)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if img.MIMEType != "image/png" || string(img.Data) != string(png) || img.Base64 != enc {
		t.Errorf("unexpected parse result: %+v", img)
	}

	bare, err := ParseSourceImage(enc)
	if err != nil || bare.MIMEType != "image/jpeg" {
		t.Fatalf("bare base64 should default to jpeg, got %+v (%v)", bare, err)
	}

	for _, bad := range []string{"", "data:image/gif;base64," + enc, "data:image/png," + enc, "!!!notbase64"} {
		if _, err := ParseSourceImage(bad); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("input %q: expected ErrInvalidArgument, got %v", bad, err)
		}
	}

	big := base64.StdEncoding.EncodeToString(make([]byte, ImageMaxBytes+1))
	if _, err := ParseSourceImage(big); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected oversized image to be rejected, got %v", err)
	}
}
