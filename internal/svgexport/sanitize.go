package svgexport

import (
	"math"
	"strconv"
	"strings"
)

// InfinitySentinel replaces non-finite coordinates: laser-cutter control
// software rejects files containing NaN or Infinity tokens outright, so a
// large finite value is the lesser evil.
const InfinitySentinel = 100000.0

// SanitizePathData makes path data safe for laser consumers: NaN tokens
// become "0", infinities become the finite sentinel, and non-ASCII bytes
// are stripped. Running it on already-clean input returns the input
// unchanged.
func SanitizePathData(d string) string {
	if isCleanPath(d) {
		return d
	}
	d = strings.ReplaceAll(d, "-Infinity", strconv.FormatFloat(-InfinitySentinel, 'f', -1, 64))
	d = strings.ReplaceAll(d, "Infinity", strconv.FormatFloat(InfinitySentinel, 'f', -1, 64))
	d = strings.ReplaceAll(d, "NaN", "0")

	var b strings.Builder
	b.Grow(len(d))
	for i := 0; i < len(d); i++ {
		if d[i] < 128 {
			b.WriteByte(d[i])
		}
	}
	return b.String()
}

func isCleanPath(d string) bool {
	if strings.Contains(d, "NaN") || strings.Contains(d, "Infinity") {
		return false
	}
	for i := 0; i < len(d); i++ {
		if d[i] >= 128 {
			return false
		}
	}
	return true
}

// fnum formats a coordinate for output, mapping non-finite values to
// safe tokens.
func fnum(v float64) string {
	if math.IsNaN(v) {
		return "0"
	}
	if math.IsInf(v, 1) {
		return strconv.FormatFloat(InfinitySentinel, 'f', -1, 64)
	}
	if math.IsInf(v, -1) {
		return strconv.FormatFloat(-InfinitySentinel, 'f', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-0" {
		return "0"
	}
	return s
}
