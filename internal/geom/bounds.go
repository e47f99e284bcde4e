package geom

import (
	"github.com/kerfcraft/kerfcraft/backend-go/internal/document"
)

// textWidthFactor is the character-count heuristic used when no shaped
// bounds are cached: averaged glyph advance as a fraction of font size.
const textWidthFactor = 0.6

// ElementBounds computes an element's axis-aligned bounds in world mm
// space: local bounds by kind, then ScaleX/ScaleY (which may be negative,
// flipping the box; min/max are taken after scaling), then translation.
//
// Rotation is not applied: selection overlays and marquee
// hits use the unrotated scaled box at the translated position, which is
// the behavior these tools have always had. Callers needing the true
// rotated footprint must go through Matrix2D.TransformRect themselves.
func ElementBounds(el *document.Element) (Rect, bool) {
	local, ok := localBounds(el)
	if !ok {
		return Rect{}, false
	}

	t := el.Transform
	x0 := local.X * t.ScaleX
	x1 := (local.X + local.Width) * t.ScaleX
	y0 := local.Y * t.ScaleY
	y1 := (local.Y + local.Height) * t.ScaleY

	r := FromCorners(x0, y0, x1, y1)
	r.X += t.XMm
	r.Y += t.YMm
	return r, true
}

func localBounds(el *document.Element) (Rect, bool) {
	if el == nil {
		return Rect{}, false
	}
	switch el.Kind {
	case document.KindText:
		if el.Text == nil {
			return Rect{}, false
		}
		if b := el.Text.ShapedBounds; b != nil {
			return Rect{X: b.XMm, Y: b.YMm, Width: b.WidthMm, Height: b.HeightMm}, true
		}
		w := float64(len([]rune(el.Text.Value))) * el.Text.SizeMm * textWidthFactor
		h := el.Text.SizeMm
		// Text anchors at its center point.
		return Rect{X: -w / 2, Y: -h / 2, Width: w, Height: h}, true

	case document.KindTracedPathGroup:
		if el.Group == nil {
			return Rect{}, false
		}
		var out Rect
		found := false
		for _, d := range el.Group.Paths {
			if b, ok := PathDataBounds(d); ok {
				if !found {
					out = b
					found = true
				} else {
					out = out.Union(b)
				}
			}
		}
		return out, found

	case document.KindEngraveImage, document.KindEngraveSketch:
		if el.Image == nil {
			return Rect{}, false
		}
		return Rect{Width: el.Image.WidthMm, Height: el.Image.HeightMm}, true

	case document.KindLogo:
		if el.Logo == nil {
			return Rect{}, false
		}
		return PathDataBounds(el.Logo.D)

	default:
		// shape, border, ornament, basicShape, tracedPath, icon
		if el.Path == nil {
			return Rect{}, false
		}
		return PathDataBounds(el.Path.D)
	}
}

// UnionBounds unions the bounds of several elements; elements with no
// resolvable bounds are skipped.
func UnionBounds(els []*document.Element) (Rect, bool) {
	var out Rect
	found := false
	for _, el := range els {
		b, ok := ElementBounds(el)
		if !ok {
			continue
		}
		if !found {
			out = b
			found = true
		} else {
			out = out.Union(b)
		}
	}
	return out, found
}
