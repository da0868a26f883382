// Package sample implements fixed-interval frame sampling.
package sample

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/user/frame2prompt/pkg/pipeline"
	"github.com/user/frame2prompt/pkg/ports"
)

// Stride returns the number of frames between samples: max(1, round(fps*interval)).
// Products too large for an int saturate at math.MaxInt.
func Stride(frameRate, intervalSeconds float64) int {
	s := math.Round(frameRate * intervalSeconds)
	if !(s >= 1) {
		return 1
	}
	if s >= math.MaxInt {
		return math.MaxInt
	}
	return int(s)
}

// ComputeIndices returns 0, stride, 2*stride, ... below frameCount.
// Invalid inputs, NaN included, yield an empty slice.
func ComputeIndices(frameCount int, frameRate, intervalSeconds float64) []int {
	if frameCount <= 0 || !(frameRate > 0) || !(intervalSeconds > 0) {
		return []int{}
	}

	stride := Stride(frameRate, intervalSeconds)
	indices := make([]int, 0, (frameCount-1)/stride+1)
	for i := 0; ; i += stride {
		indices = append(indices, i)
		if i >= frameCount-stride {
			break
		}
	}
	return indices
}

// Stage decodes sampled frames in ascending order and hands each to a callback.
type Stage struct {
	logger   ports.Logger
	progress ports.Progress
	metrics  ports.Metrics
}

// NewStage creates a new sample stage.
func NewStage(logger ports.Logger, progress ports.Progress, metrics ports.Metrics) *Stage {
	return &Stage{
		logger:   logger.WithComponent("sample"),
		progress: progress,
		metrics:  metrics,
	}
}

// Execute samples input.Handle. A decode gap ends sampling with the frames so
// far; a callback error is returned; cancellation marks the result Interrupted.
func (s *Stage) Execute(ctx context.Context, input pipeline.SampleInput) (pipeline.SampleResult, error) {
	if input.IntervalSeconds <= 0 {
		return pipeline.SampleResult{}, fmt.Errorf("interval must be positive, got %v", input.IntervalSeconds)
	}

	info := input.Info
	indices := ComputeIndices(info.FrameCount, info.FrameRate, input.IntervalSeconds)
	result := pipeline.SampleResult{
		Stride:    Stride(info.FrameRate, input.IntervalSeconds),
		Indices:   indices,
		Requested: len(indices),
	}

	s.logger.Info("Video FPS: %.2f, Total frames: %d, Saving every %d frames", info.FrameRate, info.FrameCount, result.Stride)
	s.metrics.FramesRequested(result.Requested)
	s.progress.Start(result.Requested)
	defer s.progress.Finish()

	for _, index := range indices {
		if ctx.Err() != nil {
			result.Interrupted = true
			break
		}

		img, err := input.Handle.DecodeFrame(ctx, index)
		if err != nil {
			if ctx.Err() != nil {
				result.Interrupted = true
				break
			}
			if errors.Is(err, ports.ErrDecodeGap) {
				s.logger.Warn("Stopped at frame %d: %v", index, err)
				s.metrics.DecodeGap()
				result.Gap = err
				break
			}
			return result, fmt.Errorf("decode frame %d: %w", index, err)
		}

		frame := pipeline.DecodedFrame{
			Index:     index,
			Timestamp: float64(index) / info.FrameRate,
			Image:     img,
		}
		if err := input.OnFrame(frame); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				result.Interrupted = true
				break
			}
			return result, err
		}

		result.Produced++
		s.progress.Advance()
	}

	if result.Interrupted {
		s.logger.Warn("Interrupted after %d of %d frames", result.Produced, result.Requested)
	}
	return result, nil
}

var _ pipeline.Stage[pipeline.SampleInput, pipeline.SampleResult] = (*Stage)(nil)
