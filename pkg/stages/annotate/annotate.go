// Package annotate runs the detection model over a decoded frame.
package annotate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/user/frame2prompt/pkg/pipeline"
	"github.com/user/frame2prompt/pkg/ports"
)

// Stage wraps a loaded detector.
type Stage struct {
	detector ports.Detector
	sink     ports.DebugSink
	logger   ports.Logger
	metrics  ports.Metrics
	now      func() time.Time
}

// NewStage creates a new annotate stage around an already started detector.
func NewStage(detector ports.Detector, sink ports.DebugSink, logger ports.Logger, metrics ports.Metrics) *Stage {
	return &Stage{
		detector: detector,
		sink:     sink,
		logger:   logger.WithComponent("annotate"),
		metrics:  metrics,
		now:      time.Now,
	}
}

// Execute runs inference on one frame. Inference errors are fatal for the run.
func (s *Stage) Execute(ctx context.Context, input pipeline.AnnotateInput) (pipeline.AnnotateResult, error) {
	start := s.now()
	detections, err := s.detector.Infer(ctx, input.Frame.Image)
	if err != nil {
		return pipeline.AnnotateResult{}, fmt.Errorf("inference on frame %d: %w", input.Frame.Index, err)
	}
	elapsed := s.now().Sub(start)

	s.metrics.ObserveInference(elapsed.Seconds())
	s.metrics.Detections(len(detections))
	s.logger.Debug("Frame %d: %d detections in %s", input.Frame.Index, len(detections), elapsed)

	if s.sink.Enabled() {
		if data, err := json.MarshalIndent(DetectionsJSON(detections), "", "  "); err == nil {
			if err := s.sink.SaveDetectionsJSON(input.Frame.Index, data); err != nil {
				s.logger.Warn("Failed to save debug detections: %v", err)
			}
		}
	}

	return pipeline.AnnotateResult{Detections: detections, Elapsed: elapsed}, nil
}

// DetectionJSON is the debug representation of a detection.
type DetectionJSON struct {
	Box        [4]int  `json:"box"`
	Confidence float64 `json:"confidence"`
	Label      int     `json:"label"`
	MaskWidth  int     `json:"mask_width,omitempty"`
	MaskHeight int     `json:"mask_height,omitempty"`
	MaskPixels int     `json:"mask_pixels,omitempty"`
}

// DetectionsJSON converts detections for debug output. Mask bits are summarised.
func DetectionsJSON(detections []ports.Detection) []DetectionJSON {
	out := make([]DetectionJSON, 0, len(detections))
	for _, d := range detections {
		j := DetectionJSON{
			Box:        [4]int{d.Box.Min.X, d.Box.Min.Y, d.Box.Max.X, d.Box.Max.Y},
			Confidence: d.Confidence,
			Label:      d.Label,
		}
		if d.Mask.Valid() {
			j.MaskWidth, j.MaskHeight = d.Mask.Width, d.Mask.Height
			for _, b := range d.Mask.Bits {
				if b != 0 {
					j.MaskPixels++
				}
			}
		}
		out = append(out, j)
	}
	return out
}

var _ pipeline.Stage[pipeline.AnnotateInput, pipeline.AnnotateResult] = (*Stage)(nil)
