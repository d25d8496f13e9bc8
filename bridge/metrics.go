package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests   *prometheus.CounterVec
	rejections *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func newMetrics() *metrics {
	return &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "custody",
			Subsystem: "bridge",
			Name:      "requests_total",
			Help:      "Coordinator requests by operation and result code.",
		}, []string{"operation", "code"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "custody",
			Subsystem: "bridge",
			Name:      "rejections_total",
			Help:      "Requests rejected after validation, by stage.",
		}, []string{"stage"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "custody",
			Subsystem: "bridge",
			Name:      "request_seconds",
			Help:      "Time spent handling a request, external calls included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *metrics) register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.requests, m.rejections, m.duration} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}
