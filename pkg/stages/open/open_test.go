package open

import (
	"context"
	"errors"
	"testing"

	"github.com/user/frame2prompt/pkg/adapters/logger"
	"github.com/user/frame2prompt/pkg/mocks"
	"github.com/user/frame2prompt/pkg/pipeline"
	"github.com/user/frame2prompt/pkg/ports"
)

var goodInfo = ports.VideoInfo{FrameRate: 30, FrameCount: 300, Width: 64, Height: 48}

func TestConvertedPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"videos/sample.mov", "videos/sample_converted.mp4"},
		{"clip.mp4", "clip_converted.mp4"},
		{"noext", "noext_converted.mp4"},
	}
	for _, tt := range tests {
		if got := ConvertedPath(tt.in); got != tt.want {
			t.Errorf("ConvertedPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStage_OpensValidVideo(t *testing.T) {
	handle := &mocks.VideoHandle{PathValue: "clip.mp4", Info: goodInfo}
	source := &mocks.VideoSource{Handles: map[string]*mocks.VideoHandle{"clip.mp4": handle}}
	transcoder := &mocks.Transcoder{}

	stage := NewStage(source, transcoder, logger.NewNoop())
	result, err := stage.Execute(context.Background(), pipeline.OpenInput{Path: "clip.mp4"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Converted {
		t.Error("expected no re-encode")
	}
	if len(transcoder.Calls) != 0 {
		t.Errorf("expected no transcode calls, got %d", len(transcoder.Calls))
	}
	if result.Info != goodInfo || result.Handle != handle {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestStage_ReencodesInvalidMetadata(t *testing.T) {
	bad := &mocks.VideoHandle{PathValue: "clip.mov", Info: ports.VideoInfo{}}
	good := &mocks.VideoHandle{PathValue: "clip_converted.mp4", Info: goodInfo}
	source := &mocks.VideoSource{Handles: map[string]*mocks.VideoHandle{
		"clip.mov":           bad,
		"clip_converted.mp4": good,
	}}
	transcoder := &mocks.Transcoder{}

	stage := NewStage(source, transcoder, logger.NewNoop())
	result, err := stage.Execute(context.Background(), pipeline.OpenInput{Path: "clip.mov"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !result.Converted || result.Path != "clip_converted.mp4" || result.SourcePath != "clip.mov" {
		t.Errorf("unexpected result paths %+v", result)
	}
	if len(transcoder.Calls) != 1 || transcoder.Calls[0] != (mocks.TranscodeCall{Src: "clip.mov", Dst: "clip_converted.mp4"}) {
		t.Errorf("expected one transcode call, got %+v", transcoder.Calls)
	}
	if !bad.Closed {
		t.Error("expected invalid handle to be closed")
	}
}

func TestStage_ReencodesUnopenableVideo(t *testing.T) {
	good := &mocks.VideoHandle{PathValue: "clip_converted.mp4", Info: goodInfo}
	source := &mocks.VideoSource{Handles: map[string]*mocks.VideoHandle{"clip_converted.mp4": good}}
	transcoder := &mocks.Transcoder{}

	stage := NewStage(source, transcoder, logger.NewNoop())
	result, err := stage.Execute(context.Background(), pipeline.OpenInput{Path: "clip.avi"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Converted {
		t.Error("expected re-encode")
	}
}

func TestStage_CorruptVideoReencodesExactlyOnce(t *testing.T) {
	// Both the original and the converted file probe as zeros.
	source := &mocks.VideoSource{Handles: map[string]*mocks.VideoHandle{
		"corrupt.mp4":           {PathValue: "corrupt.mp4"},
		"corrupt_converted.mp4": {PathValue: "corrupt_converted.mp4"},
	}}
	transcoder := &mocks.Transcoder{}

	stage := NewStage(source, transcoder, logger.NewNoop())
	_, err := stage.Execute(context.Background(), pipeline.OpenInput{Path: "corrupt.mp4"})
	if !errors.Is(err, ports.ErrVideoUnreadable) {
		t.Fatalf("expected ErrVideoUnreadable, got %v", err)
	}
	if len(transcoder.Calls) != 1 {
		t.Errorf("expected exactly one transcode, got %d", len(transcoder.Calls))
	}
	if len(source.OpenCalls) != 2 {
		t.Errorf("expected two open attempts, got %v", source.OpenCalls)
	}
}

func TestStage_ConvertedFileCannotBeOpened(t *testing.T) {
	source := &mocks.VideoSource{}
	stage := NewStage(source, &mocks.Transcoder{}, logger.NewNoop())

	_, err := stage.Execute(context.Background(), pipeline.OpenInput{Path: "missing.mp4"})
	if !errors.Is(err, ports.ErrVideoOpen) {
		t.Errorf("expected ErrVideoOpen, got %v", err)
	}
}

func TestStage_TranscodeFailure(t *testing.T) {
	source := &mocks.VideoSource{}
	transcoder := &mocks.Transcoder{
		TranscodeFunc: func(ctx context.Context, src, dst string) error {
			return &ports.TranscodeError{Source: src, Target: dst, Stderr: "Invalid data found", Err: errors.New("exit status 1")}
		},
	}

	stage := NewStage(source, transcoder, logger.NewNoop())
	_, err := stage.Execute(context.Background(), pipeline.OpenInput{Path: "bad.mp4"})
	if !errors.Is(err, ports.ErrTranscodeFailed) {
		t.Fatalf("expected ErrTranscodeFailed, got %v", err)
	}

	var te *ports.TranscodeError
	if !errors.As(err, &te) || te.Stderr != "Invalid data found" {
		t.Errorf("expected stderr to be carried, got %v", err)
	}
	if len(source.OpenCalls) != 1 {
		t.Errorf("expected no second open after failed transcode, got %v", source.OpenCalls)
	}
}

func TestStage_CancelledBeforeReencode(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	transcoder := &mocks.Transcoder{}
	stage := NewStage(&mocks.VideoSource{}, transcoder, logger.NewNoop())

	if _, err := stage.Execute(ctx, pipeline.OpenInput{Path: "clip.mp4"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(transcoder.Calls) != 0 {
		t.Error("expected no transcode after cancellation")
	}
}
