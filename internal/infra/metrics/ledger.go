package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(redemptionsTotal, refundsTotal, codesIssuedTotal)
}

var (
	redemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redemptions_total",
			Help: "Code redemptions by result (success/not_found/invalid/error).",
		},
		[]string{"result"},
	)

	refundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_refunds_total",
			Help: "Compensating refunds after failed generations (ok/failed).",
		},
		[]string{"result"},
	)

	codesIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "codes_issued_total",
			Help: "Verification codes created by admin issuance.",
		},
	)
)

func IncRedemption(result string) {
	redemptionsTotal.WithLabelValues(norm(result)).Inc()
}

func IncRefund(result string) {
	refundsTotal.WithLabelValues(norm(result)).Inc()
}

func AddCodesIssued(n int) {
	if n > 0 {
		codesIssuedTotal.Add(float64(n))
	}
}
