//go:build !integration

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersUseNormalizedLabels(t *testing.T) {
	IncRedemption(" Success ")
	IncRedemption("success")
	if got := testutil.ToFloat64(redemptionsTotal.WithLabelValues("success")); got < 2 {
		t.Errorf("expected at least 2 successful redemptions, got %v", got)
	}

	IncGeneration("Gemini", "timeout")
	if got := testutil.ToFloat64(generationsTotal.WithLabelValues("gemini", "timeout")); got < 1 {
		t.Errorf("expected gemini timeout counter to be incremented, got %v", got)
	}

	before := testutil.ToFloat64(codesIssuedTotal)
	AddCodesIssued(0)
	AddCodesIssued(3)
	if got := testutil.ToFloat64(codesIssuedTotal) - before; got != 3 {
		t.Errorf("expected codes_issued_total to grow by 3, got %v", got)
	}
}

func TestMustRegisterIsIdempotent(t *testing.T) {
	MustRegister()
	MustRegister()
}
