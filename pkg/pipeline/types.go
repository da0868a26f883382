package pipeline

import (
	"image"
	"image/color"
	"sort"
	"time"

	"github.com/user/frame2prompt/pkg/ports"
)

// =============================================================================
// Open Stage Types
// =============================================================================

// OpenInput names the video to open.
type OpenInput struct {
	Path string
}

// OpenResult carries the usable handle after an optional re-encode.
type OpenResult struct {
	Handle     ports.VideoHandle
	Info       ports.VideoInfo
	SourcePath string // Path requested by the caller
	Path       string // Path actually opened (the converted file after re-encode)
	Converted  bool
}

// =============================================================================
// Sample Stage Types
// =============================================================================

// DecodedFrame is a sampled frame, owned by the iteration that produced it.
type DecodedFrame struct {
	Index     int         // Frame offset into the video
	Timestamp float64     // Index / frame rate, in seconds
	Image     image.Image // Full-resolution pixels
}

// WholeSeconds returns the timestamp truncated to whole seconds, as used in filenames.
func (f DecodedFrame) WholeSeconds() int {
	return int(f.Timestamp)
}

// FrameHandler consumes one decoded frame. A returned error aborts sampling.
type FrameHandler func(frame DecodedFrame) error

// SampleInput contains parameters for a sampling run.
type SampleInput struct {
	Handle          ports.VideoHandle
	Info            ports.VideoInfo
	IntervalSeconds float64
	OnFrame         FrameHandler
}

// SampleResult reports how many frames were produced versus requested.
type SampleResult struct {
	Stride      int
	Indices     []int
	Requested   int
	Produced    int
	Gap         error // Decode gap that stopped sampling early, if any
	Interrupted bool  // Context was cancelled before all frames were produced
}

// Shortfall returns the number of requested frames that were not produced.
func (r SampleResult) Shortfall() int {
	return r.Requested - r.Produced
}

// =============================================================================
// Annotate Stage Types
// =============================================================================

// AnnotateInput is a frame to run through the detector.
type AnnotateInput struct {
	Frame DecodedFrame
}

// AnnotateResult contains the model output for one frame.
type AnnotateResult struct {
	Detections []ports.Detection
	Elapsed    time.Duration
}

// =============================================================================
// Composite Stage Types
// =============================================================================

// CompositeMode selects which overlays are drawn.
type CompositeMode string

const (
	ModeBoxes CompositeMode = "boxes"
	ModeMasks CompositeMode = "masks"
	ModeBoth  CompositeMode = "both"
)

// ParseCompositeMode parses a mode name. ok is false for unknown names.
func ParseCompositeMode(s string) (CompositeMode, bool) {
	switch CompositeMode(s) {
	case ModeBoxes, ModeMasks, ModeBoth:
		return CompositeMode(s), true
	default:
		return "", false
	}
}

// Masks reports whether the mode composites segmentation masks.
func (m CompositeMode) Masks() bool {
	return m == ModeMasks || m == ModeBoth
}

// Boxes reports whether the mode draws bounding boxes.
func (m CompositeMode) Boxes() bool {
	return m == ModeBoxes || m == ModeBoth
}

// ClassFilter is a set of class ids. A nil filter lets every detection pass.
type ClassFilter map[int]struct{}

// NewClassFilter builds a filter from ids. No ids yields nil (all pass).
func NewClassFilter(ids ...int) ClassFilter {
	if len(ids) == 0 {
		return nil
	}
	f := make(ClassFilter, len(ids))
	for _, id := range ids {
		f[id] = struct{}{}
	}
	return f
}

// Allows reports whether label passes the filter.
func (f ClassFilter) Allows(label int) bool {
	if f == nil {
		return true
	}
	_, ok := f[label]
	return ok
}

// IDs returns the filter members in ascending order.
func (f ClassFilter) IDs() []int {
	ids := make([]int, 0, len(f))
	for id := range f {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// CompositeOptions controls overlay rendering.
type CompositeOptions struct {
	Mode        CompositeMode
	ClassFilter ClassFilter
	// DarkenEmpty darkens the whole frame in boxes-only mode when no detection is kept.
	// Mask modes always darken the background.
	DarkenEmpty bool
	BoxColor    color.Color
	BoxWidth    float64
	ShowLabels  bool
	Labels      map[int]string // Class names for label text; ids are used when absent
}

// DefaultCompositeOptions returns the default overlay settings.
func DefaultCompositeOptions() CompositeOptions {
	return CompositeOptions{
		Mode:        ModeBoth,
		DarkenEmpty: true,
		BoxColor:    color.RGBA{R: 0, G: 255, B: 0, A: 255},
		BoxWidth:    2,
		ShowLabels:  true,
	}
}

// CompositeInput is a frame plus the detections to overlay.
type CompositeInput struct {
	Frame      DecodedFrame
	Detections []ports.Detection
	Options    CompositeOptions
}

// CompositeResult is the annotated frame.
type CompositeResult struct {
	Image    *image.RGBA
	Kept     int  // Detections that passed the class filter
	Darkened bool // Background layer was darkened
}

// =============================================================================
// Write Stage Types
// =============================================================================

// WriteInput describes one frame to persist.
type WriteInput struct {
	Image            image.Image
	Dir              string
	Prefix           string
	TimestampSeconds int
}

// WriteResult contains the final path and the running saved-frame count.
type WriteResult struct {
	Path  string
	Saved int
}

// =============================================================================
// Converse Stage Types
// =============================================================================

// ConverseInput contains parameters for the grouped image conversation.
type ConverseInput struct {
	Dir         string
	GroupSize   int
	Prompt      string
	FollowUp    string // Optional final text-only question
	Model       string
	Temperature float64
	MaxTokens   int
}

// GroupReply is the model's answer for one group of images.
type GroupReply struct {
	Index  int      // 1-based group number
	Images []string // File names, in send order
	Reply  string
}

// ConverseResult is the transcript of a conversation.
type ConverseResult struct {
	Groups      []GroupReply
	FollowUp    string
	FinalAnswer string
	Messages    []ports.ChatMessage // Full history, including image parts
}
