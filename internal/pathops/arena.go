package pathops

import "github.com/kerfcraft/kerfcraft/backend-go/internal/geom"

// Arena tracks every handle created through it and releases all of them
// in one call, so a function can `defer arena.Release()` and be leak-free
// on every exit path, error paths included.
type Arena struct {
	eng     Engine
	handles []Handle
}

// NewArena wraps an engine.
func NewArena(eng Engine) *Arena {
	return &Arena{eng: eng}
}

func (a *Arena) track(h Handle, err error) (Handle, error) {
	if err != nil {
		return 0, err
	}
	a.handles = append(a.handles, h)
	return h, nil
}

// Release deletes every handle created through the arena. Safe to call
// multiple times.
func (a *Arena) Release() {
	for _, h := range a.handles {
		a.eng.Delete(h)
	}
	a.handles = nil
}

// Adopt registers an externally created handle for release.
func (a *Arena) Adopt(h Handle) {
	a.handles = append(a.handles, h)
}

func (a *Arena) FromSVG(d string) (Handle, error) {
	return a.track(a.eng.FromSVG(d))
}

func (a *Arena) ToSVG(h Handle) (string, error) {
	return a.eng.ToSVG(h)
}

func (a *Arena) Union(x, y Handle) (Handle, error) {
	return a.track(a.eng.Union(x, y))
}

func (a *Arena) Difference(x, y Handle) (Handle, error) {
	return a.track(a.eng.Difference(x, y))
}

func (a *Arena) Intersect(x, y Handle) (Handle, error) {
	return a.track(a.eng.Intersect(x, y))
}

func (a *Arena) StrokeToPath(h Handle, opts StrokeOptions) (Handle, error) {
	return a.track(a.eng.StrokeToPath(h, opts))
}

func (a *Arena) Transform(h Handle, m geom.Matrix2D) (Handle, error) {
	return a.track(a.eng.Transform(h, m))
}

func (a *Arena) Bounds(h Handle) (geom.Rect, error) {
	return a.eng.Bounds(h)
}
