package redaction

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/pagesafe/pagesafe-backend/internal/ocr"
	"github.com/pagesafe/pagesafe-backend/pkg/enums"
)

// obscure applies the method's transform to each region on a copy of img.
func (e *Engine) obscure(img image.Image, regions []ocr.Box, method enums.RedactionMethod) *image.NRGBA {
	canvas := imaging.Clone(img)
	bounds := canvas.Bounds()

	for _, region := range regions {
		rect := image.Rect(
			region.X-e.padding,
			region.Y-e.padding,
			region.X+region.Width+e.padding,
			region.Y+region.Height+e.padding,
		).Intersect(bounds)
		if rect.Empty() {
			continue
		}

		switch method {
		case enums.RedactionMethodBlack:
			draw.Draw(canvas, rect, image.NewUniform(color.Black), image.Point{}, draw.Src)
		case enums.RedactionMethodBlur:
			blurred := imaging.Blur(imaging.Crop(canvas, rect), e.blurSigma)
			canvas = imaging.Paste(canvas, blurred, rect.Min)
		}
	}
	return canvas
}
