package mocks

import (
	"context"
	"image"
	"sync"

	"github.com/user/frame2prompt/pkg/ports"
)

// Detector is a mock implementation of ports.Detector.
type Detector struct {
	InferFunc func(ctx context.Context, img image.Image) ([]ports.Detection, error)

	// Detections is returned for every frame when InferFunc is nil.
	Detections []ports.Detection

	mu         sync.Mutex
	InferCalls int
	Closed     bool
}

func (m *Detector) Infer(ctx context.Context, img image.Image) ([]ports.Detection, error) {
	m.mu.Lock()
	m.InferCalls++
	m.mu.Unlock()

	if m.InferFunc != nil {
		return m.InferFunc(ctx, img)
	}
	return m.Detections, nil
}

func (m *Detector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

var _ ports.Detector = (*Detector)(nil)
