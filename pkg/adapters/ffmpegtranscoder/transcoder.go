// Package ffmpegtranscoder re-encodes videos into H.264/AAC MP4 with ffmpeg.
package ffmpegtranscoder

import (
	"bytes"
	"context"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"github.com/user/frame2prompt/pkg/adapters/ffmpegbin"
	"github.com/user/frame2prompt/pkg/adapters/logger"
	"github.com/user/frame2prompt/pkg/ports"
)

// Default encoder settings.
const (
	DefaultVideoCodec = "libx264"
	DefaultCRF        = 23
	DefaultAudioCodec = "aac"
)

// Transcoder runs `ffmpeg -y -i src -c:v libx264 -crf 23 -c:a aac dst`.
type Transcoder struct {
	ffmpegPath string
	logger     ports.Logger
}

// New creates a Transcoder. An empty ffmpegPath is resolved at transcode time.
func New(ffmpegPath string, log ports.Logger) *Transcoder {
	if log == nil {
		log = logger.NewNoop()
	}
	return &Transcoder{ffmpegPath: ffmpegPath, logger: log.WithComponent("transcode")}
}

// Transcode converts src into dst, overwriting dst.
func (t *Transcoder) Transcode(ctx context.Context, src, dst string) error {
	bin, err := ffmpegbin.Find(ffmpegbin.FFmpeg, t.ffmpegPath)
	if err != nil {
		return &ports.TranscodeError{Source: src, Target: dst, Err: err}
	}

	var stderr bytes.Buffer
	cmd := Command(src, dst).
		SetFfmpegPath(bin).
		WithErrorOutput(&stderr).
		Compile()

	t.logger.Debug("Running %s", strings.Join(cmd.Args, " "))

	if err := cmd.Start(); err != nil {
		return &ports.TranscodeError{Source: src, Target: dst, Err: err}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return ctx.Err()
	}

	if err != nil {
		return &ports.TranscodeError{
			Source: src,
			Target: dst,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return nil
}

// Command builds the ffmpeg stream for a re-encode of src into dst.
func Command(src, dst string) *ffmpeg.Stream {
	return ffmpeg.
		Input(src).
		Output(dst, ffmpeg.KwArgs{
			"c:v": DefaultVideoCodec,
			"crf": DefaultCRF,
			"c:a": DefaultAudioCodec,
		}).
		OverWriteOutput()
}

var _ ports.Transcoder = (*Transcoder)(nil)
