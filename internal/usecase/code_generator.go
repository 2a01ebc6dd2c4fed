package usecase

import (
	"crypto/rand"
	"io"
)

// DefaultCodeAlphabet is what issued codes are drawn from unless configured.
const DefaultCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateCode draws length characters uniformly from alphabet using
// crypto/rand. Bytes that would bias the modulo are rejected and redrawn.
func generateCode(alphabet string, length int) (string, error) {
	n := len(alphabet)
	limit := 256 - (256 % n)

	out := make([]byte, 0, length)
	buffer := make([]byte, length)
	for len(out) < length {
		if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
			return "", err
		}
		for _, b := range buffer {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%n])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
