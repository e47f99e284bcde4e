package document

import (
	"fmt"
	"math"
	"strings"
)

// kappa is the cubic-arc approximation constant for a quarter circle.
const kappa = 0.5522847498307936

func num(v float64) string {
	s := fmt.Sprintf("%.3f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}

// BasePath builds the artboard outline path for a shape, in local mm
// coordinates with the origin at the top-left of the w×h bounding box.
func BasePath(shape ArtboardShape, w, h float64) string {
	switch shape {
	case ArtboardCircle:
		return circlePath(w/2, h/2, math.Min(w, h)/2)
	case ArtboardHexagon:
		return polygonPath(w/2, h/2, math.Min(w, h)/2, 6, -90)
	case ArtboardOctagon:
		return polygonPath(w/2, h/2, math.Min(w, h)/2, 8, -90+22.5)
	case ArtboardScalloped:
		return scallopPath(w/2, h/2, math.Min(w, h)/2, 12)
	case ArtboardShield:
		return shieldPath(w, h)
	default:
		return rectPath(w, h)
	}
}

func rectPath(w, h float64) string {
	return fmt.Sprintf("M 0 0 L %s 0 L %s %s L 0 %s Z", num(w), num(w), num(h), num(h))
}

// circlePath approximates a circle with four cubic segments.
func circlePath(cx, cy, r float64) string {
	k := r * kappa
	var b strings.Builder
	fmt.Fprintf(&b, "M %s %s ", num(cx), num(cy-r))
	fmt.Fprintf(&b, "C %s %s %s %s %s %s ", num(cx+k), num(cy-r), num(cx+r), num(cy-k), num(cx+r), num(cy))
	fmt.Fprintf(&b, "C %s %s %s %s %s %s ", num(cx+r), num(cy+k), num(cx+k), num(cy+r), num(cx), num(cy+r))
	fmt.Fprintf(&b, "C %s %s %s %s %s %s ", num(cx-k), num(cy+r), num(cx-r), num(cy+k), num(cx-r), num(cy))
	fmt.Fprintf(&b, "C %s %s %s %s %s %s ", num(cx-r), num(cy-k), num(cx-k), num(cy-r), num(cx), num(cy-r))
	b.WriteString("Z")
	return b.String()
}

func polygonPath(cx, cy, r float64, sides int, startDeg float64) string {
	var b strings.Builder
	for i := 0; i < sides; i++ {
		a := (startDeg + float64(i)*360/float64(sides)) * math.Pi / 180
		x := cx + r*math.Cos(a)
		y := cy + r*math.Sin(a)
		if i == 0 {
			fmt.Fprintf(&b, "M %s %s", num(x), num(y))
		} else {
			fmt.Fprintf(&b, " L %s %s", num(x), num(y))
		}
	}
	b.WriteString(" Z")
	return b.String()
}

// scallopPath draws a ring of outward bumps, one cubic per scallop.
func scallopPath(cx, cy, r float64, scallops int) string {
	inner := r * 0.88
	var b strings.Builder
	for i := 0; i < scallops; i++ {
		a0 := (float64(i)*360/float64(scallops) - 90) * math.Pi / 180
		a1 := (float64(i+1)*360/float64(scallops) - 90) * math.Pi / 180
		mid := (a0 + a1) / 2
		x0, y0 := cx+inner*math.Cos(a0), cy+inner*math.Sin(a0)
		x1, y1 := cx+inner*math.Cos(a1), cy+inner*math.Sin(a1)
		// Control points sit on the outer radius at the scallop midpoint.
		mx, my := cx+r*1.08*math.Cos(mid), cy+r*1.08*math.Sin(mid)
		if i == 0 {
			fmt.Fprintf(&b, "M %s %s", num(x0), num(y0))
		}
		fmt.Fprintf(&b, " C %s %s %s %s %s %s", num(mx), num(my), num(mx), num(my), num(x1), num(y1))
	}
	b.WriteString(" Z")
	return b.String()
}

// shieldPath draws a heraldic shield: flat top, curved sides meeting in a
// bottom point.
func shieldPath(w, h float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "M 0 0 L %s 0 ", num(w))
	fmt.Fprintf(&b, "L %s %s ", num(w), num(h*0.45))
	fmt.Fprintf(&b, "C %s %s %s %s %s %s ", num(w), num(h*0.75), num(w*0.8), num(h*0.92), num(w/2), num(h))
	fmt.Fprintf(&b, "C %s %s %s %s 0 %s ", num(w*0.2), num(h*0.92), num(0), num(h*0.75), num(h*0.45))
	b.WriteString("Z")
	return b.String()
}

// InsetPath builds an outline concentric with the base shape, used for
// border elements. The inset is a uniform margin in mm; the path is
// regenerated from shape parameters rather than offset numerically.
func InsetPath(shape ArtboardShape, w, h, inset float64) string {
	iw := w - 2*inset
	ih := h - 2*inset
	if iw <= 0 || ih <= 0 {
		return ""
	}
	inner := BasePath(shape, iw, ih)
	return translatePathTokens(inner, inset, inset)
}

// translatePathTokens shifts every coordinate pair in a path built by this
// package. Only safe for paths containing M/L/C commands with absolute
// pairs, which is all this package emits.
func translatePathTokens(d string, dx, dy float64) string {
	fields := strings.Fields(d)
	var b strings.Builder
	idx := 0
	for _, f := range fields {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		var v float64
		if _, err := fmt.Sscanf(f, "%f", &v); err != nil {
			b.WriteString(f)
			idx = 0
			continue
		}
		if idx%2 == 0 {
			b.WriteString(num(v + dx))
		} else {
			b.WriteString(num(v + dy))
		}
		idx++
	}
	return b.String()
}

// HolePath builds a hanging-hole circle for keychains, centered near the
// top of the artboard.
func HolePath(diameter float64) string {
	return circlePath(diameter/2, diameter/2, diameter/2)
}
