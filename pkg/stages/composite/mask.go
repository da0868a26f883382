package composite

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/user/frame2prompt/pkg/ports"
)

// UnionMasks ORs masks together at the resolution of the first valid mask.
// Masks of a different resolution are nearest-neighbour scaled first.
// Returns nil when no mask is valid.
func UnionMasks(masks []*ports.Mask) *ports.Mask {
	var union *ports.Mask
	for _, m := range masks {
		if !m.Valid() {
			continue
		}
		if union == nil {
			union = ports.NewMask(m.Width, m.Height)
		}
		if m.Width != union.Width || m.Height != union.Height {
			m = ResizeMask(m, union.Width, union.Height)
		}
		for i, b := range m.Bits {
			if b != 0 {
				union.Bits[i] = 1
			}
		}
	}
	return union
}

// ResizeMask scales m to width×height with nearest-neighbour sampling.
func ResizeMask(m *ports.Mask, width, height int) *ports.Mask {
	if m.Width == width && m.Height == height {
		out := ports.NewMask(width, height)
		copy(out.Bits, m.Bits)
		return out
	}

	src := &image.Gray{Pix: make([]uint8, len(m.Bits)), Stride: m.Width, Rect: image.Rect(0, 0, m.Width, m.Height)}
	for i, b := range m.Bits {
		if b != 0 {
			src.Pix[i] = 0xFF
		}
	}

	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := ports.NewMask(width, height)
	for i, v := range dst.Pix {
		if v != 0 {
			out.Bits[i] = 1
		}
	}
	return out
}

// DarkPixel returns the darkened background value for c: half its luminance.
func DarkPixel(c color.Color) color.RGBA {
	y := color.GrayModel.Convert(c).(color.Gray).Y / 2
	return color.RGBA{R: y, G: y, B: y, A: 0xFF}
}

// toRGBA copies img into a new opaque RGBA image with origin (0,0).
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xFF
	}
	return out
}

// Darken returns a copy of img where every pixel is its halved grayscale value.
func Darken(img image.Image) *image.RGBA {
	return ApplyMask(img, nil)
}

// ApplyMask keeps the original colour where mask is set and the darkened
// grayscale value elsewhere. mask must match the image size or be nil (all unset).
func ApplyMask(img image.Image, mask *ports.Mask) *image.RGBA {
	out := toRGBA(img)
	w, h := out.Bounds().Dx(), out.Bounds().Dy()

	for y := 0; y < h; y++ {
		row := y * out.Stride
		for x := 0; x < w; x++ {
			if mask != nil && mask.Bits[y*w+x] != 0 {
				continue
			}
			i := row + x*4
			d := DarkPixel(color.RGBA{R: out.Pix[i], G: out.Pix[i+1], B: out.Pix[i+2], A: 0xFF})
			out.Pix[i], out.Pix[i+1], out.Pix[i+2] = d.R, d.G, d.B
		}
	}
	return out
}
