package ports

import (
	"errors"
	"fmt"
)

var (
	// ErrVideoOpen is returned when a video cannot be opened for decoding.
	ErrVideoOpen = errors.New("video cannot be opened")

	// ErrVideoUnreadable is returned when video metadata is still invalid after re-encoding.
	ErrVideoUnreadable = errors.New("video metadata unreadable after re-encode")

	// ErrTranscodeFailed is matched by every *TranscodeError.
	ErrTranscodeFailed = errors.New("transcode failed")

	// ErrDecodeGap marks a recoverable single-frame decode failure.
	// Sampling stops at the first gap and keeps the frames produced so far.
	ErrDecodeGap = errors.New("frame could not be decoded")

	// ErrEmptyOutputDirectory is returned by consumers of the frame directory
	// when it holds no images.
	ErrEmptyOutputDirectory = errors.New("no image files in output directory")
)

// TranscodeError reports a failed external transcoder run.
type TranscodeError struct {
	Source string
	Target string
	Stderr string
	Err    error
}

func (e *TranscodeError) Error() string {
	msg := fmt.Sprintf("transcode %s -> %s: %v", e.Source, e.Target, e.Err)
	if e.Stderr != "" {
		msg += "\nstderr: " + e.Stderr
	}
	return msg
}

func (e *TranscodeError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrTranscodeFailed) match any TranscodeError.
func (e *TranscodeError) Is(target error) bool {
	return target == ErrTranscodeFailed
}
