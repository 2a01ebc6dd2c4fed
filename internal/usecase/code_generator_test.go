//go:build !integration

package usecase

import (
	"strings"
	"testing"
)

func TestGenerateCode(t *testing.T) {
	t.Run("draws only from the alphabet", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			code, err := generateCode("XYZ", 12)
			if err != nil {
				t.Fatal(err)
			}
			if len(code) != 12 || strings.Trim(code, "XYZ") != "" {
				t.Fatalf("unexpected code %q", code)
			}
		}
	})

	t.Run("covers the whole alphabet", func(t *testing.T) {
		seen := map[rune]bool{}
		for i := 0; i < 50; i++ {
			code, _ := generateCode(DefaultCodeAlphabet, 20)
			for _, r := range code {
				seen[r] = true
			}
		}
		if len(seen) != len(DefaultCodeAlphabet) {
			t.Errorf("expected all %d symbols over 1000 draws, saw %d", len(DefaultCodeAlphabet), len(seen))
		}
	})
}
