// Package metrics exposes portal activity to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"profile-portal/internal/event"
)

type Collector struct {
	reg            prometheus.Registerer
	transitions    *prometheus.CounterVec
	backendCalls   *prometheus.CounterVec
	backendLatency *prometheus.HistogramVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reg: reg,
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_auth_transitions_total",
			Help: "Auth state transitions by event type.",
		}, []string{"event"}),
		backendCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_backend_requests_total",
			Help: "Backend requests by operation and HTTP status (0 when no response arrived).",
		}, []string{"op", "status"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_backend_request_duration_seconds",
			Help:    "Backend request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}

	reg.MustRegister(c.transitions, c.backendCalls, c.backendLatency)

	return c
}

func (c *Collector) RecordTransition(t event.Type) {
	c.transitions.WithLabelValues(string(t)).Inc()
}

// ObserveBackendCall implements backend.Observer.
func (c *Collector) ObserveBackendCall(op string, status int, duration time.Duration) {
	c.backendCalls.WithLabelValues(op, strconv.Itoa(status)).Inc()
	c.backendLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// TrackSessions exports the number of live session state machines.
func (c *Collector) TrackSessions(count func() int) {
	c.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "portal_active_sessions",
		Help: "Session state machines currently held in memory.",
	}, func() float64 {
		return float64(count())
	}))
}

// TrackDroppedEvents exports how many bus deliveries were skipped.
func (c *Collector) TrackDroppedEvents(dropped func() int64) {
	c.reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "portal_events_dropped_total",
		Help: "Event deliveries skipped because a subscriber was full.",
	}, func() float64 {
		return float64(dropped())
	}))
}

// Consume counts every event published on bus until ctx is done.
func (c *Collector) Consume(ctx context.Context, bus event.Bus) {
	events, unsubscribe := bus.Subscribe()

	go func() {
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				c.RecordTransition(e.Type)
			}
		}
	}()
}

// Handler serves the Prometheus scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
