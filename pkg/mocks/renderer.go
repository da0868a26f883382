package mocks

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/user/frame2prompt/pkg/ports"
)

// Renderer is a mock implementation of ports.Renderer.
// Canvases copy their source image and record draw calls without rasterizing.
type Renderer struct {
	CanvasFromFunc  func(img image.Image) ports.Canvas
	EncodeImageFunc func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error)

	// Canvases created by CanvasFrom, for verification
	Canvases []*Canvas
}

func (m *Renderer) CanvasFrom(img image.Image) ports.Canvas {
	if m.CanvasFromFunc != nil {
		return m.CanvasFromFunc(img)
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	c := &Canvas{img: rgba}
	m.Canvases = append(m.Canvases, c)
	return c
}

func (m *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	if m.EncodeImageFunc != nil {
		return m.EncodeImageFunc(img, format, quality)
	}
	return []byte{0xFF, 0xD8}, nil
}

var _ ports.Renderer = (*Renderer)(nil)

// StrokeCall records a DrawRectStroke call.
type StrokeCall struct {
	Rect  image.Rectangle
	Color color.Color
	Width float64
}

// TextCall records a DrawText call.
type TextCall struct {
	Text string
	X, Y int
}

// Canvas is a mock implementation of ports.Canvas.
type Canvas struct {
	img *image.RGBA

	Strokes []StrokeCall
	Texts   []TextCall
}

func (m *Canvas) DrawRect(x, y, w, h int, c color.Color) {}

func (m *Canvas) DrawRectStroke(x, y, w, h int, c color.Color, strokeWidth float64) {
	m.Strokes = append(m.Strokes, StrokeCall{Rect: image.Rect(x, y, x+w, y+h), Color: c, Width: strokeWidth})
}

func (m *Canvas) DrawText(text string, x, y int, style ports.TextStyle) {
	m.Texts = append(m.Texts, TextCall{Text: text, X: x, Y: y})
}

func (m *Canvas) MeasureText(text string, style ports.TextStyle) (float64, float64) {
	return float64(7 * len(text)), 13
}

func (m *Canvas) ToImage() *image.RGBA {
	if m.img != nil {
		return m.img
	}
	return image.NewRGBA(image.Rect(0, 0, 0, 0))
}

var _ ports.Canvas = (*Canvas)(nil)
