// Package ffmpegsource implements ports.VideoSource on top of the ffmpeg
// command line tools. Metadata comes from the MP4 container when possible
// and from ffprobe otherwise; frames are decoded one at a time with an
// input-side seek.
package ffmpegsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/user/frame2prompt/pkg/adapters/ffmpegbin"
	"github.com/user/frame2prompt/pkg/adapters/logger"
	"github.com/user/frame2prompt/pkg/adapters/mp4probe"
	"github.com/user/frame2prompt/pkg/ports"
)

// ErrClosed is returned when a closed handle is used.
var ErrClosed = errors.New("ffmpegsource: handle closed")

// Options configures binary lookup.
type Options struct {
	FFmpegPath  string // Explicit ffmpeg path; empty searches env, PATH and common locations
	FFprobePath string // Explicit ffprobe path; empty searches the same way
}

// Source opens videos for frame access.
type Source struct {
	opts   Options
	logger ports.Logger
}

// New creates a Source. A nil logger discards output.
func New(opts Options, log ports.Logger) *Source {
	if log == nil {
		log = logger.NewNoop()
	}
	return &Source{opts: opts, logger: log.WithComponent("video")}
}

// Open checks that path exists and that ffmpeg can be found.
func (s *Source) Open(ctx context.Context, path string) (ports.VideoHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrVideoOpen, err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ports.ErrVideoOpen, path)
	}

	ffmpegPath, err := ffmpegbin.Find(ffmpegbin.FFmpeg, s.opts.FFmpegPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrVideoOpen, err)
	}

	// ffprobe is optional; without it only container metadata is available.
	ffprobePath, err := ffmpegbin.Find(ffmpegbin.FFprobe, s.opts.FFprobePath)
	if err != nil {
		s.logger.Debug("ffprobe unavailable: %v", err)
		ffprobePath = ""
	}

	s.logger.Debug("Opened %s", path)
	return &Handle{
		path:    path,
		ffmpeg:  ffmpegPath,
		ffprobe: ffprobePath,
		logger:  s.logger,
	}, nil
}

// Handle is an opened video. It is not safe for concurrent decoding.
type Handle struct {
	path    string
	ffmpeg  string
	ffprobe string
	logger  ports.Logger

	mu     sync.Mutex
	info   ports.VideoInfo
	probed bool
	closed bool
}

// Path returns the file path.
func (h *Handle) Path() string {
	return h.path
}

// Probe returns stream metadata. Results are cached after the first success.
func (h *Handle) Probe(ctx context.Context) (ports.VideoInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ports.VideoInfo{}, ErrClosed
	}
	if h.probed {
		return h.info, nil
	}

	info, err := mp4probe.ProbeFile(h.path)
	if err == nil && info.Valid() {
		h.logger.Debug("Container probe: %.3f fps, %d frames, %dx%d", info.FrameRate, info.FrameCount, info.Width, info.Height)
		h.info, h.probed = info, true
		return info, nil
	}
	h.logger.Debug("Container probe failed: %v", err)

	if h.ffprobe == "" {
		return ports.VideoInfo{}, nil
	}

	info, err = runFFprobe(ctx, h.ffprobe, h.path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ports.VideoInfo{}, ctxErr
		}
		h.logger.Debug("ffprobe failed: %v", err)
		return ports.VideoInfo{}, nil
	}
	h.logger.Debug("ffprobe: %.3f fps, %d frames, %dx%d", info.FrameRate, info.FrameCount, info.Width, info.Height)

	if info.Valid() {
		h.info, h.probed = info, true
	}
	return info, nil
}

// DecodeFrame decodes the frame at index using the probed frame rate.
func (h *Handle) DecodeFrame(ctx context.Context, index int) (image.Image, error) {
	h.mu.Lock()
	closed, info := h.closed, h.info
	h.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}
	if info.FrameRate <= 0 {
		return nil, fmt.Errorf("%w: frame %d: frame rate unknown", ports.ErrDecodeGap, index)
	}

	seconds := float64(index) / info.FrameRate
	args := []string{
		"-v", "error",
		"-ss", strconv.FormatFloat(seconds, 'f', 6, 64), // Input-side seek
		"-i", h.path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-c:v", "png",
		"pipe:1",
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, h.ffmpeg, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: frame %d: %v: %s", ports.ErrDecodeGap, index, err, bytes.TrimSpace(stderr.Bytes()))
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%w: frame %d: no output at %.3fs", ports.ErrDecodeGap, index, seconds)
	}

	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("%w: frame %d: %v", ports.ErrDecodeGap, index, err)
	}
	return img, nil
}

// Close releases the handle.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

var (
	_ ports.VideoSource = (*Source)(nil)
	_ ports.VideoHandle = (*Handle)(nil)
)
