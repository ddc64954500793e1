// Package metrics exports RSCP traffic counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rscp/protocol"
)

// Collector counts frames and failed transactions. It implements
// protocol.Observer so it can be handed to a master or a slave.
type Collector struct {
	framesSent     *prometheus.CounterVec
	framesReceived *prometheus.CounterVec
	bytesSent      prometheus.Counter
	bytesReceived  prometheus.Counter
	errors         *prometheus.CounterVec
}

// NewCollector creates unregistered counters
func NewCollector() *Collector {
	return &Collector{
		framesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rscp_frames_sent_total",
			Help: "Frames handed to the link, by command",
		}, []string{"cmd"}),
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rscp_frames_received_total",
			Help: "Frames received with a valid CRC, by command",
		}, []string{"cmd"}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rscp_bytes_sent_total",
			Help: "Frame bytes handed to the link",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rscp_bytes_received_total",
			Help: "Frame bytes received with a valid CRC",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rscp_errors_total",
			Help: "Failed transactions, by error kind",
		}, []string{"kind"}),
	}
}

// Register adds all counters to reg
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{
		c.framesSent, c.framesReceived, c.bytesSent, c.bytesReceived, c.errors,
	} {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) FrameSent(cmd protocol.Command, size int) {
	c.framesSent.WithLabelValues(cmd.String()).Inc()
	c.bytesSent.Add(float64(size))
}

func (c *Collector) FrameReceived(cmd protocol.Command, size int) {
	c.framesReceived.WithLabelValues(cmd.String()).Inc()
	c.bytesReceived.Add(float64(size))
}

func (c *Collector) TransactionFailed(_ protocol.Command, err error) {
	c.errors.WithLabelValues(Kind(err)).Inc()
}

var kindNames = map[protocol.Code]string{
	protocol.CodeTimeout:        "timeout",
	protocol.CodeOverflow:       "overflow",
	protocol.CodeMalformed:      "malformed",
	protocol.CodeNotSupported:   "not_supported",
	protocol.CodeTxFailed:       "tx_failed",
	protocol.CodeRequestFailed:  "request_failed",
	protocol.CodeTaskBufferFull: "task_buffer_full",
	protocol.CodeInvalidAnswer:  "invalid_answer",
}

// Kind names the protocol error wrapped in err, "other" if there is none
func Kind(err error) string {
	if name, ok := kindNames[protocol.CodeOf(err)]; ok {
		return name
	}
	return "other"
}

// Handler serves the metrics gathered by reg
func Handler(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

var _ protocol.Observer = (*Collector)(nil)
