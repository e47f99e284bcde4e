// Package pathops wraps the path-boolean collaborator. The underlying
// engine uses manual memory management: every handle created must be
// deleted exactly once on every code path, so callers go through an Arena
// that releases everything it created on function exit.
package pathops

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kerfcraft/kerfcraft/backend-go/internal/geom"
)

var (
	ErrBadHandle = errors.New("invalid path handle")
	ErrBadPath   = errors.New("malformed path data")
)

// Handle references a path held by the engine.
type Handle int64

// StrokeOptions control stroke expansion.
type StrokeOptions struct {
	WidthMm float64
	Join    string // "miter", "round", "bevel"
	Cap     string // "butt", "round", "square"
}

// Engine is the path-boolean collaborator contract. Implementations own
// handle lifetimes; Delete must be safe to call exactly once per handle.
type Engine interface {
	FromSVG(d string) (Handle, error)
	ToSVG(h Handle) (string, error)
	Union(a, b Handle) (Handle, error)
	Difference(a, b Handle) (Handle, error)
	Intersect(a, b Handle) (Handle, error)
	StrokeToPath(h Handle, opts StrokeOptions) (Handle, error)
	Transform(h Handle, m geom.Matrix2D) (Handle, error)
	Bounds(h Handle) (geom.Rect, error)
	Delete(h Handle)
}

// CompoundEngine is the built-in degraded engine: booleans compose
// subpaths into a single compound path and rely on the even-odd fill rule
// to punch holes. It produces laser-valid compound output for the cut-out
// flow without a true polygon clipper; hosts with the real engine inject
// it instead. Handles are tracked so leaks are detectable in tests.
type CompoundEngine struct {
	mu     sync.Mutex
	next   Handle
	paths  map[Handle]string
	frees  int
	allocs int
}

// NewCompoundEngine builds an empty engine.
func NewCompoundEngine() *CompoundEngine {
	return &CompoundEngine{next: 1, paths: make(map[Handle]string)}
}

// Live returns the number of handles not yet deleted. Zero after a
// balanced run.
func (e *CompoundEngine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.paths)
}

func (e *CompoundEngine) alloc(d string) Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := e.next
	e.next++
	e.paths[h] = d
	e.allocs++
	return h
}

func (e *CompoundEngine) get(h Handle) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.paths[h]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrBadHandle, h)
	}
	return d, nil
}

func (e *CompoundEngine) FromSVG(d string) (Handle, error) {
	d = strings.TrimSpace(d)
	if d == "" || strings.ContainsAny(d, "<>") {
		return 0, ErrBadPath
	}
	return e.alloc(d), nil
}

func (e *CompoundEngine) ToSVG(h Handle) (string, error) {
	return e.get(h)
}

func (e *CompoundEngine) combine(a, b Handle) (Handle, error) {
	da, err := e.get(a)
	if err != nil {
		return 0, err
	}
	db, err := e.get(b)
	if err != nil {
		return 0, err
	}
	return e.alloc(da + " " + db), nil
}

// Union concatenates the operands' subpaths. For disjoint shapes this is
// exact; overlapping outlines keep both boundaries, which downstream
// laser software treats as a double cut. Acceptable for the degraded
// engine, wrong for production, hence the injectable contract.
func (e *CompoundEngine) Union(a, b Handle) (Handle, error) {
	return e.combine(a, b)
}

// Difference concatenates the subtrahend's subpaths after the minuend's;
// under fill-rule="evenodd" an inner subpath reads as a literal hole.
func (e *CompoundEngine) Difference(a, b Handle) (Handle, error) {
	return e.combine(a, b)
}

func (e *CompoundEngine) Intersect(a, b Handle) (Handle, error) {
	return e.combine(a, b)
}

// StrokeToPath is unsupported by the degraded engine; callers fall back
// to the original path per the error-handling policy.
func (e *CompoundEngine) StrokeToPath(h Handle, _ StrokeOptions) (Handle, error) {
	d, err := e.get(h)
	if err != nil {
		return 0, err
	}
	return e.alloc(d), nil
}

// Transform applies an affine matrix to every coordinate pair in the
// path. Control points map exactly under affine transforms, so this is
// lossless for the M/L/C/Z paths the editor generates.
func (e *CompoundEngine) Transform(h Handle, m geom.Matrix2D) (Handle, error) {
	d, err := e.get(h)
	if err != nil {
		return 0, err
	}
	return e.alloc(transformPathData(d, m)), nil
}

func (e *CompoundEngine) Bounds(h Handle) (geom.Rect, error) {
	d, err := e.get(h)
	if err != nil {
		return geom.Rect{}, err
	}
	b, ok := geom.PathDataBounds(d)
	if !ok {
		return geom.Rect{}, ErrBadPath
	}
	return b, nil
}

func (e *CompoundEngine) Delete(h Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.paths[h]; ok {
		delete(e.paths, h)
		e.frees++
	}
}

// transformPathData maps absolute coordinate pairs through m, leaving
// command letters in place. Only handles the absolute M/L/C/Q/Z commands
// the editor emits.
func transformPathData(d string, m geom.Matrix2D) string {
	fields := strings.Fields(d)
	var out []string
	var pending []float64

	flushPair := func() {
		for len(pending) >= 2 {
			x, y := m.TransformPoint(pending[0], pending[1])
			out = append(out, trimNum(x), trimNum(y))
			pending = pending[2:]
		}
	}

	for _, f := range fields {
		if v, ok := parseNum(f); ok {
			pending = append(pending, v)
			flushPair()
			continue
		}
		pending = pending[:0]
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

func parseNum(s string) (float64, bool) {
	var v float64
	if _, err := fmt.Sscanf(s, "%f", &v); err != nil {
		return 0, false
	}
	return v, true
}

func trimNum(v float64) string {
	s := fmt.Sprintf("%.3f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-0" {
		return "0"
	}
	return s
}
