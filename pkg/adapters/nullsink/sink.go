// Package nullsink provides a no-op debug sink implementation.
package nullsink

import (
	"image"

	"github.com/user/frame2prompt/pkg/ports"
)

// Sink discards all debug output.
type Sink struct{}

// New creates a new null sink.
func New() *Sink {
	return &Sink{}
}

// Enabled returns false so callers can skip building debug payloads.
func (s *Sink) Enabled() bool {
	return false
}

func (s *Sink) SaveProbeJSON(data []byte) error                 { return nil }
func (s *Sink) SaveRawFrame(index int, img image.Image) error   { return nil }
func (s *Sink) SaveDetectionsJSON(index int, data []byte) error { return nil }

var _ ports.DebugSink = (*Sink)(nil)
