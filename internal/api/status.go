package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/nerrad567/sinric-link/internal/queue"
	"github.com/nerrad567/sinric-link/internal/session"
)

// healthCheckTimeout bounds each component check.
const healthCheckTimeout = 2 * time.Second

// HealthResponse is returned by /api/v1/health.
type HealthResponse struct {
	Status        string            `json:"status"` // ok or degraded
	Version       string            `json:"version"`
	Session       string            `json:"session"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks,omitempty"`
}

// StatusResponse is returned by /api/v1/status.
type StatusResponse struct {
	Timestamp string          `json:"timestamp"`
	Version   string          `json:"version"`
	State     string          `json:"state"`
	Connected bool            `json:"connected"`
	Devices   int             `json:"devices"`
	Counters  SessionCounters `json:"counters"`
	RxQueue   QueueStatus     `json:"rx_queue"`
	TxQueue   QueueStatus     `json:"tx_queue"`
	Transport TransportStatus `json:"transport"`
}

// SessionCounters mirrors the session statistics.
type SessionCounters struct {
	RequestsHandled uint64 `json:"requests_handled"`
	RequestsFailed  uint64 `json:"requests_failed"`
	EventsQueued    uint64 `json:"events_queued"`
	InvalidMessages uint64 `json:"invalid_messages"`
	UnknownDevices  uint64 `json:"unknown_devices"`
	RxDropped       uint64 `json:"rx_dropped"`
	TxSent          uint64 `json:"tx_sent"`
	TxSendFailures  uint64 `json:"tx_send_failures"`
}

// QueueStatus describes one message queue.
type QueueStatus struct {
	Length    int    `json:"length"`
	Capacity  int    `json:"capacity"`
	Pushed    uint64 `json:"pushed"`
	Popped    uint64 `json:"popped"`
	Dropped   uint64 `json:"dropped"`
	Truncated uint64 `json:"truncated"`
}

// TransportStatus describes the WebSocket transport.
type TransportStatus struct {
	State      string `json:"state"`
	FramesRx   uint64 `json:"frames_rx"`
	FramesTx   uint64 `json:"frames_tx"`
	BytesRx    uint64 `json:"bytes_rx"`
	BytesTx    uint64 `json:"bytes_tx"`
	MessagesRx uint64 `json:"messages_rx"`
	MessagesTx uint64 `json:"messages_tx"`
	PingsSent  uint64 `json:"pings_sent"`
	PongsRx    uint64 `json:"pongs_rx"`
	Connects   uint64 `json:"connects"`
	Reconnects uint64 `json:"reconnects"`
	Errors     uint64 `json:"errors"`
	Dropped    uint64 `json:"dropped"`
	LastPong   string `json:"last_pong,omitempty"`
}

// handleHealth reports liveness. A failing component check marks the
// response degraded with 503; a disconnected session does not, since
// reconnecting is normal operation.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:        "ok",
		Version:       s.version,
		Session:       s.session.Stats().State.String(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	}

	if len(s.checks) > 0 {
		resp.Checks = make(map[string]string, len(s.checks))
		names := make([]string, 0, len(s.checks))
		for name := range s.checks {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := s.checks[name].HealthCheck(ctx)
			cancel()
			if err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleStatus returns a snapshot of the session counters.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.buildStatus(s.session.Stats()))
}

func (s *Server) buildStatus(st session.Stats) StatusResponse {
	t := st.Transport
	resp := StatusResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.version,
		State:     st.State.String(),
		Connected: st.State == session.StateConnected,
		Devices:   st.Devices,
		Counters: SessionCounters{
			RequestsHandled: st.RequestsHandled,
			RequestsFailed:  st.RequestsFailed,
			EventsQueued:    st.EventsQueued,
			InvalidMessages: st.InvalidMessages,
			UnknownDevices:  st.UnknownDevices,
			RxDropped:       st.RxDropped,
			TxSent:          st.TxSent,
			TxSendFailures:  st.TxSendFailures,
		},
		RxQueue: queueStatus(st.RxQueue),
		TxQueue: queueStatus(st.TxQueue),
		Transport: TransportStatus{
			State:      t.State.String(),
			FramesRx:   t.FramesRx,
			FramesTx:   t.FramesTx,
			BytesRx:    t.BytesRx,
			BytesTx:    t.BytesTx,
			MessagesRx: t.MessagesRx,
			MessagesTx: t.MessagesTx,
			PingsSent:  t.PingsSent,
			PongsRx:    t.PongsRx,
			Connects:   t.ConnectsTotal,
			Reconnects: t.ReconnectsTotal,
			Errors:     t.ErrorsTotal,
			Dropped:    t.DroppedTotal,
		},
	}
	if !t.LastPong.IsZero() {
		resp.Transport.LastPong = t.LastPong.UTC().Format(time.RFC3339)
	}
	return resp
}

func queueStatus(q queue.Stats) QueueStatus {
	return QueueStatus{
		Length:    q.Length,
		Capacity:  q.Capacity,
		Pushed:    q.Pushed,
		Popped:    q.Popped,
		Dropped:   q.Dropped,
		Truncated: q.Truncated,
	}
}
