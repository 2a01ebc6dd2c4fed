package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolStats, buildInfo) }

var (
	dbPoolStats = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_stats",
			Help: "Current state of the database connection pool.",
		},
		[]string{"state"}, // total | idle | in_use
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Constant 1 labelled with version, commit and storage backend.",
		},
		[]string{"version", "commit", "backend"},
	)
)

func SetDBPoolStats(total, idle, inUse int32) {
	dbPoolStats.WithLabelValues("total").Set(float64(total))
	dbPoolStats.WithLabelValues("idle").Set(float64(idle))
	dbPoolStats.WithLabelValues("in_use").Set(float64(inUse))
}

func SetBuildInfo(version, commit, backend string) {
	buildInfo.WithLabelValues(version, commit, norm(backend)).Set(1)
}
