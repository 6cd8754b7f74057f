package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics for the token lifecycle.
type Metrics struct {
	LoginsTotal         prometheus.Counter
	RotationsTotal      prometheus.Counter
	RotationFailures    *prometheus.CounterVec
	ReuseDetectedTotal  prometheus.Counter
	RevokedTokensTotal  prometheus.Counter
	WrongClassTotal     prometheus.Counter
}

// NewMetrics creates and registers the metrics on the given registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		LoginsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "access_server_logins_total",
			Help: "Successful logins (initial token pair issuance)",
		}),
		RotationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "access_server_rotations_total",
			Help: "Successful refresh token rotations",
		}),
		RotationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "access_server_rotation_failures_total",
			Help: "Rejected refresh attempts by reason",
		}, []string{"reason"}),
		ReuseDetectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "access_server_reuse_detected_total",
			Help: "Refresh token reuse signals (full-account revocations)",
		}),
		RevokedTokensTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "access_server_revoked_tokens_total",
			Help: "Refresh token records deleted by logout or containment",
		}),
		WrongClassTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "access_server_wrong_class_total",
			Help: "Tokens presented with the wrong class tag (misuse signal)",
		}),
	}

	registry.MustRegister(
		m.LoginsTotal,
		m.RotationsTotal,
		m.RotationFailures,
		m.ReuseDetectedTotal,
		m.RevokedTokensTotal,
		m.WrongClassTotal,
	)
	return m
}

// NewNopMetrics returns metrics registered on a throwaway registry, for
// tests and callers that do not scrape.
func NewNopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
