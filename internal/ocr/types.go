package ocr

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrDecode indicates the input bytes could not be decoded as an image.
var ErrDecode = errors.New("image could not be decoded")

// ErrRecognition indicates the underlying OCR engine failed.
var ErrRecognition = errors.New("ocr recognition failed")

// Point is a pixel coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Box is an axis-aligned rectangle in image pixel coordinates.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type regionKind int

const (
	regionInvalid regionKind = iota
	regionBox
	regionQuad
)

// Region is a tagged bounding-geometry variant: either an axis-aligned box
// or a four-point polygon. Malformed wire entries decode to an invalid
// region that callers skip.
type Region struct {
	kind regionKind
	box  Box
	quad [4]Point
}

// RegionFromBox wraps an axis-aligned box.
func RegionFromBox(b Box) Region {
	return Region{kind: regionBox, box: b}
}

// RegionFromQuad wraps a four-point polygon.
func RegionFromQuad(q [4]Point) Region {
	return Region{kind: regionQuad, quad: q}
}

// Bounds normalizes the region to an axis-aligned box. The second return is
// false for invalid or degenerate regions.
func (r Region) Bounds() (Box, bool) {
	switch r.kind {
	case regionBox:
		if r.box.Width <= 0 || r.box.Height <= 0 {
			return Box{}, false
		}
		return r.box, true
	case regionQuad:
		minX, minY := r.quad[0].X, r.quad[0].Y
		maxX, maxY := minX, minY
		for _, p := range r.quad[1:] {
			if p.X < minX {
				minX = p.X
			}
			if p.X > maxX {
				maxX = p.X
			}
			if p.Y < minY {
				minY = p.Y
			}
			if p.Y > maxY {
				maxY = p.Y
			}
		}
		if maxX <= minX || maxY <= minY {
			return Box{}, false
		}
		return Box{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
	default:
		return Box{}, false
	}
}

// UnmarshalJSON accepts the two wire forms emitted by detection engines:
// [x, y, w, h] or [[x, y], [x, y], [x, y], [x, y]]. Entries with the wrong
// arity or element type decode to an invalid region rather than failing the
// surrounding document; callers drop them via Bounds.
func (r *Region) UnmarshalJSON(data []byte) error {
	var flat [4]float64
	if err := json.Unmarshal(data, &flat); err == nil {
		*r = RegionFromBox(Box{
			X:      int(flat[0]),
			Y:      int(flat[1]),
			Width:  int(flat[2]),
			Height: int(flat[3]),
		})
		return nil
	}

	var points [][2]float64
	if err := json.Unmarshal(data, &points); err == nil && len(points) == 4 {
		var quad [4]Point
		for i, p := range points {
			quad[i] = Point{X: int(p[0]), Y: int(p[1])}
		}
		*r = RegionFromQuad(quad)
		return nil
	}

	*r = Region{}
	return nil
}

// MarshalJSON emits the axis-aligned form.
func (r Region) MarshalJSON() ([]byte, error) {
	b, ok := r.Bounds()
	if !ok {
		return []byte("null"), nil
	}
	return json.Marshal([4]int{b.X, b.Y, b.Width, b.Height})
}

// Fragment is one localized text unit: a grouped line of recognized words
// with one region per constituent word, so downstream redaction stays
// word-granular.
type Fragment struct {
	Text       string
	Regions    []Region
	Confidence float64
}

// Localizer detects text fragments in a raster image.
type Localizer interface {
	Locate(ctx context.Context, imageBytes []byte) ([]Fragment, error)
}
