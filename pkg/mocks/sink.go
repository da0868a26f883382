package mocks

import (
	"image"
	"sync"

	"github.com/user/frame2prompt/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	ProbeJSON      []byte
	RawFrames      map[int]image.Image
	DetectionsJSON map[int][]byte
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled:        enabled,
		RawFrames:      make(map[int]image.Image),
		DetectionsJSON: make(map[int][]byte),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveProbeJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProbeJSON = data
	return nil
}

func (m *DebugSink) SaveRawFrame(index int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RawFrames[index] = img
	return nil
}

func (m *DebugSink) SaveDetectionsJSON(index int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DetectionsJSON[index] = data
	return nil
}

var _ ports.DebugSink = (*DebugSink)(nil)
