// Package write persists frames as JPEG files.
package write

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/user/frame2prompt/pkg/pipeline"
	"github.com/user/frame2prompt/pkg/ports"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 85

// FormatInterval renders an interval with the shortest decimal form: 2 -> "2", 0.5 -> "0.5".
func FormatInterval(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

// OutputDir returns <root>/<trial>_<interval>s.
func OutputDir(root, trial string, intervalSeconds float64) string {
	return filepath.Join(root, trial+"_"+FormatInterval(intervalSeconds)+"s")
}

// Filename returns <prefix>_<ts:04d>.jpg.
func Filename(prefix string, timestampSeconds int) string {
	return fmt.Sprintf("%s_%04d.jpg", prefix, timestampSeconds)
}

// Stage writes frames and counts them. Frames that map to the same
// filename overwrite each other; the later write wins.
type Stage struct {
	fs       ports.FileSystem
	renderer ports.Renderer
	logger   ports.Logger
	metrics  ports.Metrics
	quality  int

	mu    sync.Mutex
	saved int
	paths map[string]int
}

// NewStage creates a new write stage. quality <= 0 selects DefaultQuality.
func NewStage(fs ports.FileSystem, renderer ports.Renderer, logger ports.Logger, metrics ports.Metrics, quality int) *Stage {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Stage{
		fs:       fs,
		renderer: renderer,
		logger:   logger.WithComponent("write"),
		metrics:  metrics,
		quality:  quality,
		paths:    make(map[string]int),
	}
}

// Execute encodes input.Image and writes it via a temporary file and rename.
func (s *Stage) Execute(ctx context.Context, input pipeline.WriteInput) (pipeline.WriteResult, error) {
	if err := s.fs.MkdirAll(input.Dir); err != nil {
		return pipeline.WriteResult{}, fmt.Errorf("create output directory: %w", err)
	}

	data, err := s.renderer.EncodeImage(input.Image, ports.FormatJPEG, s.quality)
	if err != nil {
		return pipeline.WriteResult{}, fmt.Errorf("encode JPEG: %w", err)
	}

	path := filepath.Join(input.Dir, Filename(input.Prefix, input.TimestampSeconds))
	tmp := path + ".tmp"
	if err := s.fs.WriteFile(tmp, data); err != nil {
		return pipeline.WriteResult{}, fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return pipeline.WriteResult{}, fmt.Errorf("rename %s: %w", path, err)
	}

	s.mu.Lock()
	s.saved++
	s.paths[path]++
	overwritten := s.paths[path] > 1
	saved := s.saved
	s.mu.Unlock()

	if overwritten {
		s.logger.Debug("Overwrote %s", path)
	}
	s.metrics.FrameWritten()

	return pipeline.WriteResult{Path: path, Saved: saved}, nil
}

// Saved returns the number of successful writes, including overwrites.
func (s *Stage) Saved() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

// Paths returns the distinct files written, sorted.
func (s *Stage) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.paths))
	for p := range s.paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

var _ pipeline.Stage[pipeline.WriteInput, pipeline.WriteResult] = (*Stage)(nil)
