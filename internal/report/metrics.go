package report

import (
	"strconv"

	"pairsched/internal/sched"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics keeps run-level counters on its own registry so several runs in
// one process do not collide.
type Metrics struct {
	Registry *prometheus.Registry

	frames      prometheus.Counter
	decisions   *prometheus.CounterVec
	clusters    prometheus.Gauge
	frameLength prometheus.Gauge
	coreLoad    *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pairsched_frames_total",
			Help: "Frames scheduled.",
		}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pairsched_decisions_total",
			Help: "Placement decisions by kind.",
		}, []string{"event"}),
		clusters: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pairsched_clusters",
			Help: "Clusters built in the last frame.",
		}),
		frameLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pairsched_frame_length",
			Help: "Length of the last frame in simulated time units.",
		}),
		coreLoad: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pairsched_core_load_ratio",
			Help: "Fraction of the last frame used on each core.",
		}, []string{"core"}),
	}
	m.Registry.MustRegister(m.frames, m.decisions, m.clusters, m.frameLength, m.coreLoad)
	return m
}

func (m *Metrics) ReportFrame(fr sched.FrameReport) error {
	m.frames.Inc()
	m.clusters.Set(float64(len(fr.Clusters)))
	m.frameLength.Set(float64(fr.Length))
	for _, ev := range fr.Trace {
		m.decisions.WithLabelValues(ev.Kind.String()).Inc()
	}
	for _, core := range fr.Schedule.Cores() {
		used := fr.Schedule.FrameLength - fr.Schedule.Remaining(core)
		m.coreLoad.WithLabelValues(strconv.Itoa(int(core))).Set(used / fr.Schedule.FrameLength)
	}
	return nil
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
