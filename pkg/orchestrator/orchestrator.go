// Package orchestrator coordinates all pipeline stages.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/user/frame2prompt/pkg/pipeline"
	"github.com/user/frame2prompt/pkg/ports"
	"github.com/user/frame2prompt/pkg/stages/write"
)

// DefaultPrefix is the filename prefix for extracted frames.
const DefaultPrefix = "frame"

// Config contains all configuration for an extraction run.
type Config struct {
	// Input
	VideoPath string

	// Output
	OutputRoot string
	Trial      string
	Prefix     string

	// Sampling
	IntervalSeconds float64

	// Annotation. Detections are composited only when Annotate is set.
	Annotate  bool
	Composite pipeline.CompositeOptions
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		OutputRoot:      "extracted_frames",
		Prefix:          DefaultPrefix,
		IntervalSeconds: 1,
		Composite:       pipeline.DefaultCompositeOptions(),
	}
}

// OutputDir returns the frame directory for the run.
func (c Config) OutputDir() string {
	return write.OutputDir(c.OutputRoot, c.Trial, c.IntervalSeconds)
}

// ConverseConfig contains parameters for the chat analysis of a run.
type ConverseConfig struct {
	GroupSize   int
	Prompt      string
	FollowUp    string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Stages groups the pipeline stages. Annotate may be nil when no detector is loaded;
// Converse may be nil when Analyze is never called.
type Stages struct {
	Open      pipeline.Stage[pipeline.OpenInput, pipeline.OpenResult]
	Sample    pipeline.Stage[pipeline.SampleInput, pipeline.SampleResult]
	Annotate  pipeline.Stage[pipeline.AnnotateInput, pipeline.AnnotateResult]
	Composite pipeline.Stage[pipeline.CompositeInput, pipeline.CompositeResult]
	Write     pipeline.Stage[pipeline.WriteInput, pipeline.WriteResult]
	Converse  pipeline.Stage[pipeline.ConverseInput, pipeline.ConverseResult]
}

// Orchestrator coordinates the execution of all pipeline stages.
type Orchestrator struct {
	stages Stages
	sink   ports.DebugSink
	logger ports.Logger
}

// New creates a new Orchestrator.
func New(stages Stages, sink ports.DebugSink, logger ports.Logger) *Orchestrator {
	return &Orchestrator{
		stages: stages,
		sink:   sink,
		logger: logger,
	}
}

// Run executes the extraction pipeline: open, sample and, per frame,
// annotate, composite and write. Frames are processed one at a time.
func (o *Orchestrator) Run(ctx context.Context, config Config) (RunResult, error) {
	if config.Prefix == "" {
		config.Prefix = DefaultPrefix
	}
	if config.Annotate && o.stages.Annotate == nil {
		return RunResult{}, errors.New("annotation enabled without a detector")
	}

	o.logger.Info("Starting pipeline")

	// 1. Open, re-encoding once if needed
	opened, err := o.stages.Open.Execute(ctx, pipeline.OpenInput{Path: config.VideoPath})
	if err != nil {
		o.logger.Error("Failed to open video: %s", err)
		return RunResult{}, fmt.Errorf("open stage: %w", err)
	}
	defer opened.Handle.Close()

	o.logger.Info("Video opened: %dx%d, %.2f fps, %d frames", opened.Info.Width, opened.Info.Height, opened.Info.FrameRate, opened.Info.FrameCount)

	if o.sink.Enabled() {
		if data, err := json.MarshalIndent(probeJSON(opened), "", "  "); err == nil {
			o.sink.SaveProbeJSON(data)
		}
	}

	result := RunResult{
		Video:           opened.Info,
		SourcePath:      opened.SourcePath,
		VideoPath:       opened.Path,
		Converted:       opened.Converted,
		OutputDir:       config.OutputDir(),
		IntervalSeconds: config.IntervalSeconds,
	}
	paths := make(map[string]struct{})

	// 2. Sample, handling each frame as it is decoded
	onFrame := func(frame pipeline.DecodedFrame) error {
		if o.sink.Enabled() {
			if err := o.sink.SaveRawFrame(frame.Index, frame.Image); err != nil {
				o.logger.Warn("Failed to save debug frame: %s", err)
			}
		}

		img := frame.Image
		if config.Annotate {
			annotated, err := o.stages.Annotate.Execute(ctx, pipeline.AnnotateInput{Frame: frame})
			if err != nil {
				return fmt.Errorf("annotate stage: %w", err)
			}
			result.Detections += len(annotated.Detections)

			composed, err := o.stages.Composite.Execute(ctx, pipeline.CompositeInput{
				Frame:      frame,
				Detections: annotated.Detections,
				Options:    config.Composite,
			})
			if err != nil {
				return fmt.Errorf("composite stage: %w", err)
			}
			img = composed.Image
		}

		written, err := o.stages.Write.Execute(ctx, pipeline.WriteInput{
			Image:            img,
			Dir:              result.OutputDir,
			Prefix:           config.Prefix,
			TimestampSeconds: frame.WholeSeconds(),
		})
		if err != nil {
			return fmt.Errorf("write stage: %w", err)
		}
		result.Written = written.Saved
		paths[written.Path] = struct{}{}
		return nil
	}

	sampled, err := o.stages.Sample.Execute(ctx, pipeline.SampleInput{
		Handle:          opened.Handle,
		Info:            opened.Info,
		IntervalSeconds: config.IntervalSeconds,
		OnFrame:         onFrame,
	})
	result.Stride = sampled.Stride
	result.Requested = sampled.Requested
	result.Produced = sampled.Produced
	result.Gap = sampled.Gap
	result.Interrupted = sampled.Interrupted
	result.Files = len(paths)
	if err != nil {
		o.logger.Error("Failed to process frames: %s", err)
		return result, fmt.Errorf("sample stage: %w", err)
	}

	if result.Written == 0 {
		o.logger.Warn("No frames were written to %s", result.OutputDir)
	} else {
		o.logger.Info("Saved %d frames to %s", result.Written, result.OutputDir)
	}
	if result.Files < result.Written {
		o.logger.Warn("%d frames overwrote earlier frames with the same timestamp", result.Written-result.Files)
	}
	if result.Interrupted {
		o.logger.Warn("Pipeline interrupted")
	} else {
		o.logger.Info("Pipeline completed successfully")
	}

	return result, nil
}

// Analyze runs the grouped chat conversation over the frames of a completed run.
func (o *Orchestrator) Analyze(ctx context.Context, run RunResult, config ConverseConfig) (pipeline.ConverseResult, error) {
	if o.stages.Converse == nil {
		return pipeline.ConverseResult{}, errors.New("no chat client configured")
	}

	o.logger.Info("Analyzing frames in %s", run.OutputDir)
	transcript, err := o.stages.Converse.Execute(ctx, pipeline.ConverseInput{
		Dir:         run.OutputDir,
		GroupSize:   config.GroupSize,
		Prompt:      config.Prompt,
		FollowUp:    config.FollowUp,
		Model:       config.Model,
		Temperature: config.Temperature,
		MaxTokens:   config.MaxTokens,
	})
	if err != nil {
		o.logger.Error("Failed to analyze frames: %s", err)
		return transcript, fmt.Errorf("converse stage: %w", err)
	}

	o.logger.Info("Analysis completed: %d groups", len(transcript.Groups))
	return transcript, nil
}

type probeDebug struct {
	SourcePath string          `json:"source_path"`
	Path       string          `json:"path"`
	Converted  bool            `json:"converted"`
	Info       ports.VideoInfo `json:"info"`
}

func probeJSON(opened pipeline.OpenResult) probeDebug {
	return probeDebug{
		SourcePath: opened.SourcePath,
		Path:       opened.Path,
		Converted:  opened.Converted,
		Info:       opened.Info,
	}
}

// RunResult contains the results of a pipeline run for summary generation.
type RunResult struct {
	// Video information
	Video      ports.VideoInfo
	SourcePath string
	VideoPath  string // Converted file when the source was re-encoded
	Converted  bool

	// Sampling
	OutputDir       string
	IntervalSeconds float64
	Stride          int
	Requested       int
	Produced        int
	Written         int // Successful writes, overwrites included
	Files           int // Distinct files written
	Detections      int

	// Early termination
	Gap         error
	Interrupted bool
}

// Shortfall returns the number of requested frames that were not produced.
func (r RunResult) Shortfall() int {
	return r.Requested - r.Produced
}
