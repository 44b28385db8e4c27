// Package observability exposes the Prometheus metrics of the chat server.
package observability

//go:generate go run go.uber.org/mock/mockgen -source=metrics.go -destination=../mocks/mock_metrics.go -package=mocks

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector is what the gateway, the pipeline and the workers report to.
type MetricsCollector interface {
	RecordConnectionOpened()
	RecordConnectionClosed()
	RecordAuthFailure()
	RecordMessagePersisted()
	RecordMessageDelivered()
	RecordSendFailure(reason string)
	RecordSendLatency(duration time.Duration)
	RecordPushDropped(event string)
	RecordMessagesRead(count int)
	SetOnlineUsers(count int)
	SetProcessStats(rssBytes uint64, cpuPercent float64)
}

type Collector struct {
	connectionsOpened prometheus.Counter
	connectionsClosed prometheus.Counter
	authFailures      prometheus.Counter
	messagesPersisted prometheus.Counter
	messagesDelivered prometheus.Counter
	sendFailures      *prometheus.CounterVec
	sendLatency       prometheus.Histogram
	pushDropped       *prometheus.CounterVec
	messagesRead      prometheus.Counter
	onlineUsers       prometheus.Gauge
	processRSS        prometheus.Gauge
	processCPU        prometheus.Gauge
}

// NewCollector registers every metric on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		connectionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skillxchange_connections_opened_total",
			Help: "Authenticated realtime connections opened",
		}),
		connectionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skillxchange_connections_closed_total",
			Help: "Realtime connections closed",
		}),
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skillxchange_auth_failures_total",
			Help: "Connections rejected during the handshake",
		}),
		messagesPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skillxchange_messages_persisted_total",
			Help: "Messages durably stored",
		}),
		messagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skillxchange_messages_delivered_total",
			Help: "Messages pushed live to an online receiver",
		}),
		sendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillxchange_send_failures_total",
			Help: "sendMessage requests that did not produce a message",
		}, []string{"reason"}),
		sendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "skillxchange_send_latency_seconds",
			Help:    "Time from sendMessage reception to acknowledgement",
			Buckets: prometheus.DefBuckets,
		}),
		pushDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillxchange_push_dropped_total",
			Help: "Events that could not be queued on a connection",
		}, []string{"event"}),
		messagesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skillxchange_messages_read_total",
			Help: "Messages moved to read",
		}),
		onlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "skillxchange_online_users",
			Help: "Users with an authoritative connection",
		}),
		processRSS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "skillxchange_process_rss_bytes",
			Help: "Resident memory of the server process",
		}),
		processCPU: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "skillxchange_process_cpu_percent",
			Help: "CPU usage of the server process",
		}),
	}

	reg.MustRegister(
		c.connectionsOpened,
		c.connectionsClosed,
		c.authFailures,
		c.messagesPersisted,
		c.messagesDelivered,
		c.sendFailures,
		c.sendLatency,
		c.pushDropped,
		c.messagesRead,
		c.onlineUsers,
		c.processRSS,
		c.processCPU,
	)
	return c
}

func (c *Collector) RecordConnectionOpened() { c.connectionsOpened.Inc() }
func (c *Collector) RecordConnectionClosed() { c.connectionsClosed.Inc() }
func (c *Collector) RecordAuthFailure()      { c.authFailures.Inc() }
func (c *Collector) RecordMessagePersisted() { c.messagesPersisted.Inc() }
func (c *Collector) RecordMessageDelivered() { c.messagesDelivered.Inc() }

func (c *Collector) RecordSendFailure(reason string) {
	c.sendFailures.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordSendLatency(duration time.Duration) {
	c.sendLatency.Observe(duration.Seconds())
}

func (c *Collector) RecordPushDropped(event string) {
	c.pushDropped.WithLabelValues(event).Inc()
}

func (c *Collector) RecordMessagesRead(count int) {
	c.messagesRead.Add(float64(count))
}

func (c *Collector) SetOnlineUsers(count int) {
	c.onlineUsers.Set(float64(count))
}

func (c *Collector) SetProcessStats(rssBytes uint64, cpuPercent float64) {
	c.processRSS.Set(float64(rssBytes))
	c.processCPU.Set(cpuPercent)
}

// Handler serves the registry for Prometheus scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
