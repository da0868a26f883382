package mocks

import (
	"sync"

	"github.com/user/frame2prompt/pkg/ports"
)

// Metrics records calls to ports.Metrics.
type Metrics struct {
	mu sync.Mutex

	Requested   int
	Written     int
	Gaps        int
	Detected    int
	Inferences  int
	ChatResults map[string]int
}

// NewMetrics creates a new mock Metrics.
func NewMetrics() *Metrics {
	return &Metrics{ChatResults: make(map[string]int)}
}

func (m *Metrics) FramesRequested(n int) { m.mu.Lock(); m.Requested += n; m.mu.Unlock() }
func (m *Metrics) FrameWritten()         { m.mu.Lock(); m.Written++; m.mu.Unlock() }
func (m *Metrics) DecodeGap()            { m.mu.Lock(); m.Gaps++; m.mu.Unlock() }
func (m *Metrics) Detections(n int)      { m.mu.Lock(); m.Detected += n; m.mu.Unlock() }

func (m *Metrics) ObserveInference(seconds float64) {
	m.mu.Lock()
	m.Inferences++
	m.mu.Unlock()
}

func (m *Metrics) ChatRequest(status string) {
	m.mu.Lock()
	m.ChatResults[status]++
	m.mu.Unlock()
}

var _ ports.Metrics = (*Metrics)(nil)

// Progress records calls to ports.Progress.
type Progress struct {
	Total    int
	Advanced int
	Finished bool
}

func (m *Progress) Start(total int) { m.Total = total }
func (m *Progress) Advance()        { m.Advanced++ }
func (m *Progress) Finish()         { m.Finished = true }

var _ ports.Progress = (*Progress)(nil)
