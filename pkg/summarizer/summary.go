package summarizer

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/user/frame2prompt/pkg/stages/write"
)

// Summary contains all data collected during a run.
type Summary struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string
	Trial       string

	Video        VideoInfo
	Sampling     SamplingInfo
	Annotation   AnnotationInfo
	Conversation *ConversationInfo // nil when the frames were not analyzed
}

// VideoInfo describes the input video.
type VideoInfo struct {
	SourcePath    string
	ConvertedPath string // Empty unless the source was re-encoded
	FrameRate     float64
	FrameCount    int
	Width         int
	Height        int
}

// SamplingInfo contains the sampling settings and frame counts.
type SamplingInfo struct {
	IntervalSeconds float64
	Stride          int
	OutputDir       string
	Requested       int
	Produced        int
	Written         int
	Files           int
	Gap             string // Decode gap message, empty when sampling finished
	Interrupted     bool
}

// AnnotationInfo contains the detection settings.
type AnnotationInfo struct {
	Enabled    bool
	Mode       string
	Classes    []int
	Detections int
}

// ConversationInfo is the chat transcript.
type ConversationInfo struct {
	Model       string
	GroupSize   int
	Prompt      string
	Groups      []GroupInfo
	FollowUp    string
	FinalAnswer string
}

// GroupInfo is the reply for one group of images.
type GroupInfo struct {
	Index  int
	Images []string
	Reply  string
}

// NewSummary creates a new Summary with the current timestamp and a fresh run id.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
		RunID:       uuid.NewString(),
	}
}

// LogPath returns <dir>/<trial>_<interval>s_<run-id>.md.
func (s *Summary) LogPath(dir string) string {
	name := s.Trial + "_" + write.FormatInterval(s.Sampling.IntervalSeconds) + "s_" + s.RunID + ".md"
	return filepath.Join(dir, name)
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithTrial sets the trial name.
func (b *Builder) WithTrial(trial string) *Builder {
	b.summary.Trial = trial
	return b
}

// WithVideo sets video information.
func (b *Builder) WithVideo(video VideoInfo) *Builder {
	b.summary.Video = video
	return b
}

// WithSampling sets sampling settings and results.
func (b *Builder) WithSampling(sampling SamplingInfo) *Builder {
	b.summary.Sampling = sampling
	return b
}

// WithAnnotation sets detection settings.
func (b *Builder) WithAnnotation(annotation AnnotationInfo) *Builder {
	b.summary.Annotation = annotation
	return b
}

// WithConversation sets the chat transcript.
func (b *Builder) WithConversation(conversation ConversationInfo) *Builder {
	b.summary.Conversation = &conversation
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
