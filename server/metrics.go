package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	chunks   prometheus.Counter
	bytes    prometheus.Counter
	archives *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zipfirehose_chunks_total",
			Help: "Archive chunks forwarded to clients.",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zipfirehose_bytes_total",
			Help: "Archive bytes forwarded to clients.",
		}),
		archives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zipfirehose_archives_total",
			Help: "Archives streamed, by transport and result.",
		}, []string{"transport", "result"}),
	}

	reg.MustRegister(m.chunks, m.bytes, m.archives)
	return m
}

func (m *metrics) observeChunk(n int) {
	m.chunks.Inc()
	m.bytes.Add(float64(n))
}

func (m *metrics) observeArchive(transport string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.archives.WithLabelValues(transport, result).Inc()
}
