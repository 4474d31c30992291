package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Delivery outcomes used as label values.
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

var (
	// NotificationsCreated counts persisted notification records, by type.
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habit_tracker_notifications_created_total",
			Help: "Total number of notification records created, by notification type.",
		},
		[]string{"type"},
	)

	// PushDeliveries counts real-time push attempts, by outcome.
	PushDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habit_tracker_push_deliveries_total",
			Help: "Total number of real-time push attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	// EmailDeliveries counts email attempts, by outcome.
	EmailDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habit_tracker_email_deliveries_total",
			Help: "Total number of notification email attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	// SendDuration measures a whole send operation, from recipient selection to the last delivery attempt.
	SendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "habit_tracker_notification_send_duration_seconds",
			Help:    "Histogram of notification send duration in seconds, by targeting mode.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"mode"},
	)
)

// Handler returns the HTTP handler for the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSend records the duration of a send operation started at start.
func ObserveSend(mode string, start time.Time) {
	SendDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}

// Outcome maps a delivery error to its label value.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailed
	}
	return OutcomeSent
}
