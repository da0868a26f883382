// Package composite overlays detection results onto a frame.
package composite

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strconv"

	"github.com/user/frame2prompt/pkg/pipeline"
	"github.com/user/frame2prompt/pkg/ports"
)

// Stage composites detections onto frames.
type Stage struct {
	renderer ports.Renderer
	logger   ports.Logger
}

// NewStage creates a new composite stage.
func NewStage(renderer ports.Renderer, logger ports.Logger) *Stage {
	return &Stage{
		renderer: renderer,
		logger:   logger.WithComponent("composite"),
	}
}

// Execute composites one frame.
func (s *Stage) Execute(ctx context.Context, input pipeline.CompositeInput) (pipeline.CompositeResult, error) {
	if input.Frame.Image == nil {
		return pipeline.CompositeResult{}, fmt.Errorf("frame %d has no image", input.Frame.Index)
	}
	result := Composite(s.renderer, input.Frame.Image, input.Detections, input.Options)
	s.logger.Debug("Frame %d: kept %d of %d detections (darkened=%v)", input.Frame.Index, result.Kept, len(input.Detections), result.Darkened)
	return result, nil
}

// FilterDetections returns the detections whose label passes filter.
func FilterDetections(detections []ports.Detection, filter pipeline.ClassFilter) []ports.Detection {
	kept := make([]ports.Detection, 0, len(detections))
	for _, d := range detections {
		if filter.Allows(d.Label) {
			kept = append(kept, d)
		}
	}
	return kept
}

// Composite renders detections onto frame according to opts.
//
// Mask modes union the kept masks, resize the union to the frame and keep the
// original colour inside it; everything else becomes the darkened grayscale
// layer. With no kept mask the whole frame is dark. Boxes-only mode leaves the
// frame in colour unless nothing was kept and opts.DarkenEmpty is set.
// The input frame is never modified.
func Composite(r ports.Renderer, frame image.Image, detections []ports.Detection, opts pipeline.CompositeOptions) pipeline.CompositeResult {
	kept := FilterDetections(detections, opts.ClassFilter)
	bounds := frame.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	var out *image.RGBA
	darkened := false

	switch {
	case opts.Mode.Masks():
		masks := make([]*ports.Mask, 0, len(kept))
		for _, d := range kept {
			masks = append(masks, d.Mask)
		}
		var frameMask *ports.Mask
		if union := UnionMasks(masks); union != nil {
			frameMask = ResizeMask(union, w, h)
		}
		out = ApplyMask(frame, frameMask)
		darkened = true
	case len(kept) == 0 && opts.DarkenEmpty:
		out = Darken(frame)
		darkened = true
	default:
		out = toRGBA(frame)
	}

	if opts.Mode.Boxes() && len(kept) > 0 {
		out = drawBoxes(r, out, kept, opts)
	}

	return pipeline.CompositeResult{Image: out, Kept: len(kept), Darkened: darkened}
}

func drawBoxes(r ports.Renderer, base *image.RGBA, detections []ports.Detection, opts pipeline.CompositeOptions) *image.RGBA {
	boxColor := opts.BoxColor
	if boxColor == nil {
		boxColor = color.RGBA{G: 0xFF, A: 0xFF}
	}
	width := opts.BoxWidth
	if width <= 0 {
		width = 2
	}

	canvas := r.CanvasFrom(base)
	frameRect := base.Bounds()

	for _, d := range detections {
		box := d.Box.Canon().Intersect(frameRect)
		if box.Empty() {
			continue
		}
		canvas.DrawRectStroke(box.Min.X, box.Min.Y, box.Dx(), box.Dy(), boxColor, width)

		if opts.ShowLabels {
			drawLabel(canvas, box, labelText(d, opts.Labels), boxColor)
		}
	}

	return canvas.ToImage()
}

// labelText formats "<name> 0.87", falling back to the class id.
func labelText(d ports.Detection, names map[int]string) string {
	name, ok := names[d.Label]
	if !ok {
		name = strconv.Itoa(d.Label)
	}
	return fmt.Sprintf("%s %.2f", name, d.Confidence)
}

// drawLabel places text on a filled tag above the box, or just inside its top
// edge when there is no room above.
func drawLabel(canvas ports.Canvas, box image.Rectangle, text string, tag color.Color) {
	style := ports.TextStyle{Color: color.Black, Align: ports.AlignLeft}
	tw, th := canvas.MeasureText(text, style)
	padding := 2
	tagW := int(tw) + padding*2
	tagH := int(th) + padding*2

	top := box.Min.Y - tagH
	if top < 0 {
		top = box.Min.Y
	}

	canvas.DrawRect(box.Min.X, top, tagW, tagH, tag)
	canvas.DrawText(text, box.Min.X+padding, top+tagH/2, style)
}

var _ pipeline.Stage[pipeline.CompositeInput, pipeline.CompositeResult] = (*Stage)(nil)
