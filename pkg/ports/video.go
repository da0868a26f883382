package ports

import (
	"context"
	"image"
)

// VideoInfo describes the stream metadata of an opened video.
type VideoInfo struct {
	FrameRate  float64 // Nominal frames per second
	FrameCount int     // Total number of video frames
	Width      int
	Height     int
}

// Valid reports whether the metadata is usable for sampling.
// A handle whose probe is not valid must be replaced (re-encode) or the run aborts.
func (i VideoInfo) Valid() bool {
	return i.FrameRate > 0 && i.FrameCount > 0 && i.Width > 0 && i.Height > 0
}

// DurationSeconds returns the nominal duration derived from frame count and rate.
func (i VideoInfo) DurationSeconds() float64 {
	if i.FrameRate <= 0 {
		return 0
	}
	return float64(i.FrameCount) / i.FrameRate
}

// VideoSource abstracts opening video files for frame access.
type VideoSource interface {
	// Open prepares the file at path for decoding.
	// Returns an error wrapping ErrVideoOpen when the file cannot be decoded at all.
	Open(ctx context.Context, path string) (VideoHandle, error)
}

// VideoHandle owns an open decode context for a single video file.
// Handles are serially owned: callers must not decode concurrently.
type VideoHandle interface {
	// Path returns the file path the handle was opened with.
	Path() string

	// Probe reads stream metadata. Unreadable metadata is reported as zero
	// values rather than an error so the caller can decide to re-encode.
	Probe(ctx context.Context) (VideoInfo, error)

	// DecodeFrame positions the decode cursor at the frame index and decodes it.
	// Failures other than context cancellation wrap ErrDecodeGap.
	DecodeFrame(ctx context.Context, index int) (image.Image, error)

	// Close releases the decode context. Safe to call more than once.
	Close() error
}

// Transcoder re-encodes a video into a normalized container.
type Transcoder interface {
	// Transcode converts src into dst (H.264 video, AAC audio).
	// Failures are returned as *TranscodeError.
	Transcode(ctx context.Context, src, dst string) error
}
