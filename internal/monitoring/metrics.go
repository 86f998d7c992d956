// Package monitoring exposes prometheus metrics for the sales
// lifecycle. Counters are registered through promauto so importing the
// package is enough; cmd/api serves them on /metrics.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_reservations_total",
			Help: "Inventory reservation outcomes",
		},
		[]string{"result"},
	)

	bookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_transitions_total",
			Help: "Booking status transitions",
		},
		[]string{"to"},
	)

	paymentOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_outcomes_total",
			Help: "Terminal payment outcomes by source",
		},
		[]string{"status", "source"},
	)

	gatewayRequests = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Payment gateway call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op", "outcome"},
	)

	ticketsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_issued_total",
			Help: "Tickets issued on booking confirmation",
		},
	)

	sweepExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_expired_total",
			Help: "Bookings expired by the stale-pending sweep",
		},
	)
)

func ReservationResult(result string) {
	reservations.WithLabelValues(result).Inc()
}

func BookingTransition(to string) {
	bookingTransitions.WithLabelValues(to).Inc()
}

func PaymentOutcome(status, source string) {
	paymentOutcomes.WithLabelValues(status, source).Inc()
}

func GatewayRequest(op, outcome string, d time.Duration) {
	gatewayRequests.WithLabelValues(op, outcome).Observe(d.Seconds())
}

func TicketsIssued(n int) {
	ticketsIssued.Add(float64(n))
}

func BookingsExpired(n int) {
	sweepExpired.Add(float64(n))
}
