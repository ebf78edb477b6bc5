package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "goshadertoyvr"

// Metrics holds the renderer's collectors. All methods are safe to call on a
// nil *Metrics, which records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	FPS              prometheus.Gauge
	ResolutionScale  prometheus.Gauge
	TrashDepth       prometheus.Gauge
	Compiles         *prometheus.CounterVec
	TextureUploads   *prometheus.CounterVec
	TaskFailures     *prometheus.CounterVec
	UIFramesProduced prometheus.Counter
	UIFramesDropped  prometheus.Counter
	TexturesReleased prometheus.Counter
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		FPS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frames_per_second",
			Help:      "Render frames per second, sampled once a second",
		}),
		ResolutionScale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resolution_scale",
			Help:      "Offscreen shader resolution as a fraction of the display resolution",
		}),
		TrashDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ui_trash_depth",
			Help:      "UI textures waiting on a GPU fence before release",
		}),
		Compiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shader_compiles_total",
			Help:      "Shader builds by result",
		}, []string{"result"}),
		TextureUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "texture_uploads_total",
			Help:      "Channel textures uploaded to the GPU by target",
		}, []string{"target"}),
		TaskFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_task_failures_total",
			Help:      "Render thread tasks that returned an error or panicked",
		}, []string{"task"}),
		UIFramesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ui_frames_produced_total",
			Help:      "UI frames published to the render thread",
		}),
		UIFramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ui_frames_dropped_total",
			Help:      "UI frames replaced before the render thread consumed them",
		}),
		TexturesReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ui_textures_released_total",
			Help:      "UI textures handed back to the UI thread after their fence signaled",
		}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.FPS,
		m.ResolutionScale,
		m.TrashDepth,
		m.Compiles,
		m.TextureUploads,
		m.TaskFailures,
		m.UIFramesProduced,
		m.UIFramesDropped,
		m.TexturesReleased,
	)
	return m
}

func (m *Metrics) SetFPS(fps float64) {
	if m != nil {
		m.FPS.Set(fps)
	}
}

func (m *Metrics) SetResolutionScale(s float64) {
	if m != nil {
		m.ResolutionScale.Set(s)
	}
}

func (m *Metrics) SetTrashDepth(n int) {
	if m != nil {
		m.TrashDepth.Set(float64(n))
	}
}

func (m *Metrics) CompileResult(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.Compiles.WithLabelValues(result).Inc()
}

func (m *Metrics) TextureUploaded(target string) {
	if m != nil {
		m.TextureUploads.WithLabelValues(target).Inc()
	}
}

func (m *Metrics) TaskFailed(task string) {
	if m != nil {
		m.TaskFailures.WithLabelValues(task).Inc()
	}
}

func (m *Metrics) UIFrame(dropped bool) {
	if m == nil {
		return
	}
	m.UIFramesProduced.Inc()
	if dropped {
		m.UIFramesDropped.Inc()
	}
}

func (m *Metrics) Released(n int) {
	if m != nil && n > 0 {
		m.TexturesReleased.Add(float64(n))
	}
}

// NewServer returns an HTTP server exposing the registry on /metrics.
func NewServer(addr string, m *Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry}))
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
}
