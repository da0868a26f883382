// Package open implements the video open stage with its one-shot re-encode fallback.
package open

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/user/frame2prompt/pkg/pipeline"
	"github.com/user/frame2prompt/pkg/ports"
)

// Stage opens and probes a video, re-encoding it once when it cannot be read.
type Stage struct {
	source     ports.VideoSource
	transcoder ports.Transcoder
	logger     ports.Logger
}

// NewStage creates a new open stage.
func NewStage(source ports.VideoSource, transcoder ports.Transcoder, logger ports.Logger) *Stage {
	return &Stage{
		source:     source,
		transcoder: transcoder,
		logger:     logger.WithComponent("open"),
	}
}

// ConvertedPath returns the re-encode target for path: <dir>/<basename>_converted.mp4.
func ConvertedPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_converted.mp4"
}

// Execute opens input.Path. On success the caller owns result.Handle.
func (s *Stage) Execute(ctx context.Context, input pipeline.OpenInput) (pipeline.OpenResult, error) {
	result := pipeline.OpenResult{SourcePath: input.Path, Path: input.Path}

	handle, info, err := s.tryOpen(ctx, input.Path)
	if err == nil && info.Valid() {
		result.Handle, result.Info = handle, info
		return result, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}
	if err != nil && !errors.Is(err, ports.ErrVideoOpen) {
		return result, err
	}

	if err != nil {
		s.logger.Warn("Failed to open video '%s' (%v), attempting re-encoding...", input.Path, err)
	} else {
		s.logger.Warn("Failed to read video metadata for '%s', attempting re-encoding...", input.Path)
	}

	converted := ConvertedPath(input.Path)
	s.logger.Info("Re-encoding video to: %s", converted)
	if err := s.transcoder.Transcode(ctx, input.Path, converted); err != nil {
		return result, err
	}
	s.logger.Info("Re-encoding successful")

	result.Path = converted
	result.Converted = true

	handle, info, err = s.tryOpen(ctx, converted)
	if err != nil {
		if errors.Is(err, ports.ErrVideoOpen) {
			return result, fmt.Errorf("%w: %s after re-encode", ports.ErrVideoOpen, converted)
		}
		return result, err
	}
	if !info.Valid() {
		return result, fmt.Errorf("%w: %s", ports.ErrVideoUnreadable, converted)
	}

	result.Handle, result.Info = handle, info
	return result, nil
}

// tryOpen opens and probes path. An invalid probe is returned without error
// and the handle is closed.
func (s *Stage) tryOpen(ctx context.Context, path string) (ports.VideoHandle, ports.VideoInfo, error) {
	handle, err := s.source.Open(ctx, path)
	if err != nil {
		return nil, ports.VideoInfo{}, err
	}

	info, err := handle.Probe(ctx)
	if err != nil {
		handle.Close()
		return nil, ports.VideoInfo{}, err
	}
	if !info.Valid() {
		s.logger.Debug("Invalid metadata for %s: %+v", path, info)
		handle.Close()
		return nil, info, nil
	}

	s.logger.Debug("Video FPS: %.3f, Total frames: %d, Size: %dx%d", info.FrameRate, info.FrameCount, info.Width, info.Height)
	return handle, info, nil
}

var _ pipeline.Stage[pipeline.OpenInput, pipeline.OpenResult] = (*Stage)(nil)
