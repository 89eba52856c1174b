// Package metrics exposes Prometheus collectors for the HTTP surface and the
// ticket lifecycle.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Prince-Singh-05/Lottery-POS/internal/models"
)

const namespace = "lottery_pos"

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	ticketTypes    *prometheus.CounterVec
	ticketsCreated *prometheus.CounterVec
	ticketsSold    prometheus.Counter
	salesMinor     prometheus.Counter
	ticketsClaimed prometheus.Counter
	payoutsMinor   prometheus.Counter
	ticketsExpired prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "path"}),
		ticketTypes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tickets",
			Name:      "types_created_total",
			Help:      "Ticket types created, by draw name.",
		}, []string{"draw"}),
		ticketsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tickets",
			Name:      "generated_total",
			Help:      "Tickets materialized by allocations, by draw name.",
		}, []string{"draw"}),
		ticketsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tickets",
			Name:      "sold_total",
			Help:      "Tickets sold.",
		}),
		salesMinor: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tickets",
			Name:      "sales_minor_units_total",
			Help:      "Revenue from ticket sales in minor currency units.",
		}),
		ticketsClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tickets",
			Name:      "claimed_total",
			Help:      "Tickets claimed.",
		}),
		payoutsMinor: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tickets",
			Name:      "payouts_minor_units_total",
			Help:      "Winnings paid out in minor currency units.",
		}),
		ticketsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tickets",
			Name:      "expired_total",
			Help:      "Tickets moved to expired, lazily or by the sweeper.",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.ticketTypes,
		m.ticketsCreated,
		m.ticketsSold,
		m.salesMinor,
		m.ticketsClaimed,
		m.payoutsMinor,
		m.ticketsExpired,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) TicketTypeCreated(name string) {
	m.ticketTypes.WithLabelValues(name).Inc()
}

func (m *Metrics) TicketsGenerated(ticketType string, n int) {
	m.ticketsCreated.WithLabelValues(ticketType).Add(float64(n))
}

func (m *Metrics) TicketSold(price models.Money) {
	m.ticketsSold.Inc()
	m.salesMinor.Add(float64(price))
}

func (m *Metrics) TicketClaimed(amount models.Money) {
	m.ticketsClaimed.Inc()
	m.payoutsMinor.Add(float64(amount))
}

func (m *Metrics) TicketsExpired(n int64) {
	m.ticketsExpired.Add(float64(n))
}
