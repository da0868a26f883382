// Package promrecorder records run metrics on a private Prometheus registry
// and writes them in the node-exporter textfile format.
package promrecorder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/user/frame2prompt/pkg/ports"
)

// Recorder implements ports.Metrics.
type Recorder struct {
	registry *prometheus.Registry

	framesRequested  prometheus.Counter
	framesWritten    prometheus.Counter
	decodeGaps       prometheus.Counter
	detections       prometheus.Counter
	inferenceSeconds prometheus.Histogram
	chatRequests     *prometheus.CounterVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		framesRequested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frame2prompt_frames_requested_total",
			Help: "Frame indices scheduled for decoding",
		}),
		framesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frame2prompt_frames_written_total",
			Help: "JPEG files written to the output directory",
		}),
		decodeGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frame2prompt_decode_gaps_total",
			Help: "Frames that could not be decoded",
		}),
		detections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frame2prompt_detections_total",
			Help: "Detections returned by the model",
		}),
		inferenceSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "frame2prompt_inference_duration_seconds",
			Help:    "Per-frame model inference duration",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		chatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "frame2prompt_chat_requests_total",
			Help: "Chat completion requests, by status",
		}, []string{"status"}),
	}

	r.registry.MustRegister(
		r.framesRequested,
		r.framesWritten,
		r.decodeGaps,
		r.detections,
		r.inferenceSeconds,
		r.chatRequests,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) FramesRequested(n int) { r.framesRequested.Add(float64(n)) }
func (r *Recorder) FrameWritten()         { r.framesWritten.Inc() }
func (r *Recorder) DecodeGap()            { r.decodeGaps.Inc() }
func (r *Recorder) Detections(n int)      { r.detections.Add(float64(n)) }

func (r *Recorder) ObserveInference(seconds float64) {
	r.inferenceSeconds.Observe(seconds)
}

func (r *Recorder) ChatRequest(status string) {
	r.chatRequests.WithLabelValues(status).Inc()
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// Noop discards metrics.
type Noop struct{}

func (Noop) FramesRequested(int)      {}
func (Noop) FrameWritten()            {}
func (Noop) DecodeGap()               {}
func (Noop) Detections(int)           {}
func (Noop) ObserveInference(float64) {}
func (Noop) ChatRequest(string)       {}

var (
	_ ports.Metrics = (*Recorder)(nil)
	_ ports.Metrics = Noop{}
)
