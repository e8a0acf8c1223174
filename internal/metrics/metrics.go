// Package metrics holds the business counters exported on /metrics next to
// the HTTP metrics from fiberprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "propmarket"

var (
	// CodesIssued counts issued codes by kind (access, loi, contract, declaration)
	CodesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entitlement",
			Name:      "codes_issued_total",
			Help:      "Total number of codes issued",
		},
		[]string{"kind"},
	)

	// CodeVerifications counts verification attempts by kind and result
	CodeVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entitlement",
			Name:      "code_verifications_total",
			Help:      "Total number of code verification attempts",
		},
		[]string{"kind", "result"}, // result: success/failure
	)

	// AccessDecisions counts access gate decisions by reason
	AccessDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "access",
			Name:      "decisions_total",
			Help:      "Total number of access decisions",
		},
		[]string{"entity_type", "reason"},
	)

	// Transitions counts lifecycle transitions
	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Total number of lifecycle transitions",
		},
		[]string{"entity_type", "event"},
	)

	// MatchesUpserted counts stored matches
	MatchesUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "matches_upserted_total",
			Help:      "Total number of match rows created or updated",
		},
	)

	// NotificationsSent counts e-mail notifications by template and result
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Total number of notification e-mails attempted",
		},
		[]string{"template", "result"}, // result: delivered/failed
	)
)
