// Package filesink provides a file-based debug sink implementation.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/user/frame2prompt/pkg/ports"
)

// Sink saves debug output under a base directory:
//
//	probe.json
//	frames/raw/frame-<index>.png
//	detections/frame-<index>.json
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer
}

// New creates a new file sink.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer) *Sink {
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveProbeJSON saves the probed video metadata.
func (s *Sink) SaveProbeJSON(data []byte) error {
	return s.fs.WriteFile(filepath.Join(s.baseDir, "probe.json"), data)
}

// SaveRawFrame saves a decoded frame as PNG.
func (s *Sink) SaveRawFrame(index int, img image.Image) error {
	dir := filepath.Join(s.baseDir, "frames", "raw")
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode raw frame: %w", err)
	}
	return s.fs.WriteFile(filepath.Join(dir, fmt.Sprintf("frame-%06d.png", index)), data)
}

// SaveDetectionsJSON saves the model output for one frame.
func (s *Sink) SaveDetectionsJSON(index int, data []byte) error {
	dir := filepath.Join(s.baseDir, "detections")
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	return s.fs.WriteFile(filepath.Join(dir, fmt.Sprintf("frame-%06d.json", index)), data)
}

var _ ports.DebugSink = (*Sink)(nil)
