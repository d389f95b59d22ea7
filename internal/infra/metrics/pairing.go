package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	invitationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairing_invitations_total",
			Help: "Invitation ledger events (sent/accepted/rejected/expired).",
		},
		[]string{"event"},
	)

	pairingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairings_total",
			Help: "Completed pairing protocol runs by protocol (invitation/code_join/placeholder).",
		},
		[]string{"protocol"},
	)

	unpairingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unpairings_total",
			Help: "Unpairing protocol runs by kind (leave/delete/account_cleanup).",
		},
		[]string{"kind"},
	)

	pairingCodeCollisions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pairing_code_collisions_total",
			Help: "Pairing code generation attempts that hit an existing code.",
		},
	)

	invariantAlerts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pairing_invariant_alerts_total",
			Help: "Fatal conditions that need out-of-band reconciliation (dangling pointers, code space exhaustion).",
		},
	)
)

func IncInvitation(event string) { invitationsTotal.WithLabelValues(event).Inc() }

func AddInvitations(event string, n int64) {
	invitationsTotal.WithLabelValues(event).Add(float64(n))
}

func IncPairing(protocol string) { pairingsTotal.WithLabelValues(protocol).Inc() }

func IncUnpairing(kind string) { unpairingsTotal.WithLabelValues(kind).Inc() }

func IncPairingCodeCollision() { pairingCodeCollisions.Inc() }

func IncInvariantAlert() { invariantAlerts.Inc() }
