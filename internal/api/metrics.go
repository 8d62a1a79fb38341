package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nerrad567/sinric-link/internal/queue"
	"github.com/nerrad567/sinric-link/internal/session"
)

const metricsNamespace = "sinriclink"

// newMetricsRegistry builds the registry served on /metrics: session
// counters plus the Go runtime and process collectors.
func newMetricsRegistry(src Source) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		newSessionCollector(src),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// sessionCollector exports one Stats snapshot per scrape.
type sessionCollector struct {
	src Source

	connected      *prometheus.Desc
	devices        *prometheus.Desc
	requests       *prometheus.Desc
	requestsFailed *prometheus.Desc
	events         *prometheus.Desc
	invalid        *prometheus.Desc
	unknown        *prometheus.Desc
	rxDropped      *prometheus.Desc
	txSent         *prometheus.Desc
	txFailures     *prometheus.Desc

	queueLength    *prometheus.Desc
	queueCapacity  *prometheus.Desc
	queueDropped   *prometheus.Desc
	queueTruncated *prometheus.Desc

	frames     *prometheus.Desc
	bytes      *prometheus.Desc
	messages   *prometheus.Desc
	pings      *prometheus.Desc
	pongs      *prometheus.Desc
	connects   *prometheus.Desc
	reconnects *prometheus.Desc
	errors     *prometheus.Desc
}

func newSessionCollector(src Source) *sessionCollector {
	desc := func(subsystem, name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, subsystem, name), help, labels, nil)
	}
	return &sessionCollector{
		src: src,

		connected:      desc("session", "connected", "1 when the session is connected to the cloud."),
		devices:        desc("session", "devices", "Registered devices."),
		requests:       desc("session", "requests_handled_total", "Requests answered."),
		requestsFailed: desc("session", "requests_failed_total", "Requests answered with success=false."),
		events:         desc("session", "events_queued_total", "Events queued for delivery."),
		invalid:        desc("session", "invalid_messages_total", "Inbound messages that failed verification or parsing."),
		unknown:        desc("session", "unknown_device_messages_total", "Requests addressed to unregistered devices."),
		rxDropped:      desc("session", "rx_dropped_total", "Inbound messages dropped before dispatch."),
		txSent:         desc("session", "tx_sent_total", "Outbound messages written to the transport."),
		txFailures:     desc("session", "tx_send_failures_total", "Outbound writes that failed."),

		queueLength:    desc("queue", "length", "Messages waiting in the queue.", "queue"),
		queueCapacity:  desc("queue", "capacity", "Queue capacity.", "queue"),
		queueDropped:   desc("queue", "dropped_total", "Pushes rejected because the queue was full.", "queue"),
		queueTruncated: desc("queue", "truncated_total", "Pushes shortened to the slot size.", "queue"),

		frames:     desc("websocket", "frames_total", "WebSocket frames.", "direction"),
		bytes:      desc("websocket", "bytes_total", "WebSocket payload bytes.", "direction"),
		messages:   desc("websocket", "messages_total", "WebSocket text messages.", "direction"),
		pings:      desc("websocket", "pings_sent_total", "Keepalive pings sent."),
		pongs:      desc("websocket", "pongs_received_total", "Pongs received."),
		connects:   desc("websocket", "connects_total", "Successful upgrades."),
		reconnects: desc("websocket", "reconnects_total", "Reconnect attempts."),
		errors:     desc("websocket", "errors_total", "Transport errors."),
	}
}

// Describe implements prometheus.Collector.
func (c *sessionCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.connected, c.devices, c.requests, c.requestsFailed, c.events,
		c.invalid, c.unknown, c.rxDropped, c.txSent, c.txFailures,
		c.queueLength, c.queueCapacity, c.queueDropped, c.queueTruncated,
		c.frames, c.bytes, c.messages, c.pings, c.pongs,
		c.connects, c.reconnects, c.errors,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *sessionCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()

	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}
	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	connected := 0.0
	if st.State == session.StateConnected {
		connected = 1
	}
	gauge(c.connected, connected)
	gauge(c.devices, float64(st.Devices))
	counter(c.requests, st.RequestsHandled)
	counter(c.requestsFailed, st.RequestsFailed)
	counter(c.events, st.EventsQueued)
	counter(c.invalid, st.InvalidMessages)
	counter(c.unknown, st.UnknownDevices)
	counter(c.rxDropped, st.RxDropped)
	counter(c.txSent, st.TxSent)
	counter(c.txFailures, st.TxSendFailures)

	for name, q := range map[string]queue.Stats{"rx": st.RxQueue, "tx": st.TxQueue} {
		gauge(c.queueLength, float64(q.Length), name)
		gauge(c.queueCapacity, float64(q.Capacity), name)
		counter(c.queueDropped, q.Dropped, name)
		counter(c.queueTruncated, q.Truncated, name)
	}

	t := st.Transport
	counter(c.frames, t.FramesRx, "rx")
	counter(c.frames, t.FramesTx, "tx")
	counter(c.bytes, t.BytesRx, "rx")
	counter(c.bytes, t.BytesTx, "tx")
	counter(c.messages, t.MessagesRx, "rx")
	counter(c.messages, t.MessagesTx, "tx")
	counter(c.pings, t.PingsSent)
	counter(c.pongs, t.PongsRx)
	counter(c.connects, t.ConnectsTotal)
	counter(c.reconnects, t.ReconnectsTotal)
	counter(c.errors, t.ErrorsTotal)
}
