package ports

import (
	"context"
	"image"
)

// Detection is one object instance reported by a detection/segmentation model.
type Detection struct {
	Box        image.Rectangle // Pixel coordinates (x1,y1)-(x2,y2) in frame space
	Confidence float64         // Score in [0,1]
	Label      int             // Class id
	Mask       *Mask           // Optional instance mask at model resolution
}

// Mask is a binary instance mask in the model's internal resolution.
// Bits is row-major with Width*Height entries; any non-zero entry is set.
type Mask struct {
	Width  int
	Height int
	Bits   []uint8
}

// NewMask allocates an empty mask.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Bits: make([]uint8, width*height)}
}

// At reports whether the mask is set at (x, y). Out-of-range coordinates are unset.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Bits[y*m.Width+x] != 0
}

// Set marks (x, y) as set.
func (m *Mask) Set(x, y int) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Bits[y*m.Width+x] = 1
}

// Valid reports whether the dimensions match the bit buffer.
func (m *Mask) Valid() bool {
	return m != nil && m.Width > 0 && m.Height > 0 && len(m.Bits) == m.Width*m.Height
}

// Detector runs a pre-trained model over a single image.
// Implementations are loaded once per run and reused for every frame.
type Detector interface {
	// Infer returns the detections for img. An empty scene yields an empty slice, not an error.
	Infer(ctx context.Context, img image.Image) ([]Detection, error)

	// Close releases the model.
	Close() error
}
