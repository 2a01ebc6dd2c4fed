package model

import (
	"fmt"
	"strings"

	"portrait-studio/internal/domain"
)

const PromptMaxLength = 500

// StyleOptions are the user-facing knobs of a portrait generation.
type StyleOptions struct {
	Angle        string `json:"angle"`      // front | side
	SkinTone     string `json:"skinTone"`   // natural | brighten
	Outfit       string `json:"outfit"`     // business_formal | business_casual | academic | original
	Background   string `json:"background"` // white | gray | blue | original
	CustomPrompt string `json:"customPrompt"`
}

var (
	anglePhrases = map[string]string{
		"front": "front-facing direct eye contact",
		"side":  "slight side angle",
	}
	skinPhrases = map[string]string{
		"natural":  "natural skin tone",
		"brighten": "slightly brightened skin tone",
	}
	outfitPhrases = map[string]string{
		"business_formal": "wearing professional business suit",
		"business_casual": "wearing business casual attire",
		"academic":        "wearing academic doctoral regalia",
		"original":        "keeping original clothing",
	}
	backgroundPhrases = map[string]string{
		"white":    "clean white background",
		"gray":     "neutral gray background",
		"blue":     "professional blue gradient background",
		"original": "original background",
	}
)

func pick(table map[string]string, key, def string) string {
	if p, ok := table[strings.ToLower(strings.TrimSpace(key))]; ok {
		return p
	}
	return table[def]
}

// BuildPrompt renders the options into the prompt sent to the generator.
// Unknown values fall back to the defaults.
func (o StyleOptions) BuildPrompt() string {
	parts := []string{
		"professional American-style portrait photo",
		pick(anglePhrases, o.Angle, "front"),
		pick(skinPhrases, o.SkinTone, "natural"),
		pick(outfitPhrases, o.Outfit, "business_formal"),
		pick(backgroundPhrases, o.Background, "white"),
		"high quality studio lighting, sharp focus, professional photography",
	}
	if c := strings.TrimSpace(o.CustomPrompt); c != "" {
		parts = append(parts, c)
	}
	return strings.Join(parts, ", ")
}

// ValidatePrompt enforces the prompt length limit (in characters).
func ValidatePrompt(p string) error {
	if len([]rune(p)) > PromptMaxLength {
		return fmt.Errorf("%w: prompt must be at most %d characters", domain.ErrInvalidArgument, PromptMaxLength)
	}
	return nil
}
