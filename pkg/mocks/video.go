package mocks

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/user/frame2prompt/pkg/ports"
)

// VideoSource is a mock implementation of ports.VideoSource.
type VideoSource struct {
	OpenFunc func(ctx context.Context, path string) (ports.VideoHandle, error)

	// Handles maps a path to the handle Open returns for it.
	Handles map[string]*VideoHandle

	mu        sync.Mutex
	OpenCalls []string
}

func (m *VideoSource) Open(ctx context.Context, path string) (ports.VideoHandle, error) {
	m.mu.Lock()
	m.OpenCalls = append(m.OpenCalls, path)
	m.mu.Unlock()

	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, path)
	}
	if h, ok := m.Handles[path]; ok {
		return h, nil
	}
	return nil, fmt.Errorf("%w: %s", ports.ErrVideoOpen, path)
}

var _ ports.VideoSource = (*VideoSource)(nil)

// VideoHandle is a mock implementation of ports.VideoHandle.
// By default it decodes solid frames whose red channel encodes index%256 and
// reports ErrDecodeGap for indices at or past Info.FrameCount or in GapAt.
type VideoHandle struct {
	PathValue string
	Info      ports.VideoInfo
	GapAt     map[int]bool

	ProbeFunc       func(ctx context.Context) (ports.VideoInfo, error)
	DecodeFrameFunc func(ctx context.Context, index int) (image.Image, error)

	mu          sync.Mutex
	DecodeCalls []int
	Closed      bool
}

func (m *VideoHandle) Path() string {
	return m.PathValue
}

func (m *VideoHandle) Probe(ctx context.Context) (ports.VideoInfo, error) {
	if m.ProbeFunc != nil {
		return m.ProbeFunc(ctx)
	}
	return m.Info, nil
}

func (m *VideoHandle) DecodeFrame(ctx context.Context, index int) (image.Image, error) {
	m.mu.Lock()
	m.DecodeCalls = append(m.DecodeCalls, index)
	m.mu.Unlock()

	if m.DecodeFrameFunc != nil {
		return m.DecodeFrameFunc(ctx, index)
	}
	if index >= m.Info.FrameCount || m.GapAt[index] {
		return nil, fmt.Errorf("%w: frame %d", ports.ErrDecodeGap, index)
	}
	return SolidFrame(m.Info.Width, m.Info.Height, color.RGBA{R: uint8(index % 256), G: 128, B: 64, A: 255}), nil
}

func (m *VideoHandle) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

var _ ports.VideoHandle = (*VideoHandle)(nil)

// SolidFrame returns a w×h image filled with c.
func SolidFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

// TranscodeCall records a call to Transcode.
type TranscodeCall struct {
	Src string
	Dst string
}

// Transcoder is a mock implementation of ports.Transcoder.
type Transcoder struct {
	TranscodeFunc func(ctx context.Context, src, dst string) error

	mu    sync.Mutex
	Calls []TranscodeCall
}

func (m *Transcoder) Transcode(ctx context.Context, src, dst string) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, TranscodeCall{Src: src, Dst: dst})
	m.mu.Unlock()

	if m.TranscodeFunc != nil {
		return m.TranscodeFunc(ctx, src, dst)
	}
	return nil
}

var _ ports.Transcoder = (*Transcoder)(nil)
