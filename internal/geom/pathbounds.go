package geom

import (
	"math"
	"strconv"
)

// PathDataBounds estimates the bounding box of SVG path data by scanning
// its numeric tokens pairwise as (x, y) points and taking min/max.
//
// This is an approximation, not a true path bounding box: cubic control
// points outside the visual curve extent are counted as if on it, and
// tokens are paired positionally rather than parsed per command (so H/V
// and arc flags would mispair). It matches the behavior the editor has
// always shipped with; the margin of error is a slightly generous box for
// curvy paths, which is acceptable for selection overlays.
func PathDataBounds(d string) (Rect, bool) {
	var (
		minX, minY = 0.0, 0.0
		maxX, maxY = 0.0, 0.0
		haveX      bool
		haveY      bool
		isX        = true
	)

	update := func(v float64) {
		if isX {
			if !haveX || v < minX {
				minX = v
			}
			if !haveX || v > maxX {
				maxX = v
			}
			haveX = true
		} else {
			if !haveY || v < minY {
				minY = v
			}
			if !haveY || v > maxY {
				maxY = v
			}
			haveY = true
		}
		isX = !isX
	}

	for _, v := range scanNumbers(d) {
		update(v)
	}

	if !haveX || !haveY {
		return Rect{}, false
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// scanNumbers extracts every float token from path data. A '-' or '+'
// begins a new token unless it follows an exponent marker, matching SVG's
// compressed number syntax ("10-5" is two numbers).
func scanNumbers(d string) []float64 {
	var nums []float64
	var tok []byte

	flush := func() {
		if len(tok) == 0 {
			return
		}
		if v, ok := parseFloat(string(tok)); ok {
			nums = append(nums, v)
		}
		tok = tok[:0]
	}

	for i := 0; i < len(d); i++ {
		c := d[i]
		switch {
		case c >= '0' && c <= '9' || c == '.':
			tok = append(tok, c)
		case c == 'e' || c == 'E':
			if len(tok) > 0 {
				tok = append(tok, c)
			}
		case c == '-' || c == '+':
			if len(tok) > 0 && (tok[len(tok)-1] == 'e' || tok[len(tok)-1] == 'E') {
				tok = append(tok, c)
			} else {
				flush()
				tok = append(tok, c)
			}
		default:
			flush()
		}
	}
	flush()
	return nums
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
