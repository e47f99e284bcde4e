package svgexport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeCleanInputUnchanged(t *testing.T) {
	d := "M 0 0 L 10.5 20 C 1 2 3 4 5 6 Z"
	assert.Equal(t, d, SanitizePathData(d))
}

func TestSanitizeReplacesNaN(t *testing.T) {
	assert.Equal(t, "M 0 0 L 10 20", SanitizePathData("M NaN 0 L 10 20"))
}

func TestSanitizeReplacesInfinity(t *testing.T) {
	out := SanitizePathData("M Infinity 0 L -Infinity 5")
	assert.Equal(t, "M 100000 0 L -100000 5", out)
}

func TestSanitizeStripsNonASCII(t *testing.T) {
	assert.Equal(t, "M 0 0 L 5 5", SanitizePathData("M 0 0 L  5 5"))
}

func TestSanitizeIdempotent(t *testing.T) {
	once := SanitizePathData("M NaN Infinity L ☃ 3 4")
	assert.Equal(t, once, SanitizePathData(once))
}

func TestFnum(t *testing.T) {
	assert.Equal(t, "1.5", fnum(1.5))
	assert.Equal(t, "2", fnum(2))
	assert.Equal(t, "0.333", fnum(1.0/3.0))
	assert.Equal(t, "0", fnum(-0.00001))
}
