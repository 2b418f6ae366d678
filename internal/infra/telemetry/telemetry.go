package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the Prometheus instruments exposed by the auth service.
type Metrics struct {
	LoginAttempts    *prometheus.CounterVec
	AccountLockouts  prometheus.Counter
	TokensIssued     *prometheus.CounterVec
	TokensRevoked    *prometheus.CounterVec
	SessionsOpened   prometheus.Counter
	SessionsCleaned  prometheus.Counter
	RevocationsSwept prometheus.Counter
	RefreshRotations *prometheus.CounterVec
}

// NewMetrics registers the auth metric set on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		LoginAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharing",
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts partitioned by outcome",
		}, []string{"outcome"}),
		AccountLockouts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "sharing",
			Subsystem: "auth",
			Name:      "account_lockouts_total",
			Help:      "Accounts locked after exceeding the failed-attempt budget",
		}),
		TokensIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharing",
			Subsystem: "auth",
			Name:      "tokens_issued_total",
			Help:      "Tokens issued partitioned by type",
		}, []string{"type"}),
		TokensRevoked: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharing",
			Subsystem: "auth",
			Name:      "tokens_revoked_total",
			Help:      "Tokens written to the revocation ledger partitioned by reason",
		}, []string{"reason"}),
		SessionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "sharing",
			Subsystem: "auth",
			Name:      "sessions_opened_total",
			Help:      "Sessions opened on login, signup, and refresh",
		}),
		SessionsCleaned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "sharing",
			Subsystem: "auth",
			Name:      "sessions_cleaned_total",
			Help:      "Stale or expired sessions removed by the background sweeper",
		}),
		RevocationsSwept: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "sharing",
			Subsystem: "auth",
			Name:      "revocations_swept_total",
			Help:      "Expired revocation entries removed by the manual sweep path",
		}),
		RefreshRotations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharing",
			Subsystem: "auth",
			Name:      "refresh_rotations_total",
			Help:      "Refresh rotations partitioned by outcome",
		}, []string{"outcome"}),
	}
}
