package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Token operation results.
const (
	ResultOK      = "ok"
	ResultMissing = "missing"
	ResultExpired = "expired"
	ResultError   = "error"
)

var (
	TokenOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "authmail_token_operations_total",
		Help: "Token store operations by outcome",
	}, []string{"store", "operation", "result"})

	TokensEvicted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "authmail_tokens_evicted_total",
		Help: "Expired tokens removed from the store, lazily or by the sweeper",
	}, []string{"store"})

	MailDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "authmail_mail_deliveries_total",
		Help: "Outbound emails by task and outcome",
	}, []string{"task", "result"})

	CredentialHashDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "authmail_credential_hash_duration_seconds",
		Help:    "Time spent hashing or verifying a credential",
		Buckets: prometheus.ExponentialBuckets(0.001, 2.0, 12), // 1ms to ~2s
	}, []string{"algorithm", "operation"})
)

// ObserveToken counts one token store operation.
func ObserveToken(store, operation, result string) {
	TokenOperations.WithLabelValues(store, operation, result).Inc()
}
