package ports

import (
	"image"
)

// DebugSink abstracts debug output for intermediate results.
// It allows saving intermediate processing results for debugging purposes.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveProbeJSON saves the probed video metadata as JSON.
	SaveProbeJSON(data []byte) error

	// SaveRawFrame saves a decoded frame before annotation.
	SaveRawFrame(index int, img image.Image) error

	// SaveDetectionsJSON saves the model output for a frame as JSON.
	SaveDetectionsJSON(index int, data []byte) error
}
