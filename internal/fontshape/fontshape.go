// Package fontshape wraps the font-shaping collaborator behind an
// explicitly constructed service: fonts load once per id, concurrent
// requests for the same id share a single in-flight load, and a load
// failure falls back to the default font so text export degrades instead
// of failing outright.
package fontshape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/kerfcraft/kerfcraft/backend-go/internal/geom"
)

// ErrUnknownFont is returned by shapers for font ids they cannot load.
var ErrUnknownFont = errors.New("unknown font")

// Font is a loaded, shaping-ready font handle.
type Font struct {
	ID         string
	UnitsPerEm float64
	// AdvanceEm is the averaged glyph advance as a fraction of the em
	// size, used by shapers without per-glyph metrics.
	AdvanceEm float64
}

// PathResult is the outlined form of a shaped text run.
type PathResult struct {
	PathD  string
	Width  float64
	Height float64
	Bounds geom.Rect
}

// Shaper loads fonts and converts text runs to outline paths. The real
// implementation wraps the external shaping library; tests inject fakes.
type Shaper interface {
	Load(ctx context.Context, fontID string) (*Font, error)
	TextToPath(ctx context.Context, font *Font, text string, sizeMm, letterSpacingMm float64) (PathResult, error)
}

type loadCall struct {
	done chan struct{}
	font *Font
	err  error
}

// Service memoizes font loads process-wide with one in-flight load per
// font id. Construct it explicitly and inject it; there is no package
// singleton.
type Service struct {
	shaper        Shaper
	defaultFontID string

	mu       sync.Mutex
	fonts    map[string]*Font
	inflight map[string]*loadCall
}

// NewService builds a font service around a shaper. defaultFontID is the
// designated fallback used whenever a requested font fails to load.
func NewService(shaper Shaper, defaultFontID string) *Service {
	return &Service{
		shaper:        shaper,
		defaultFontID: defaultFontID,
		fonts:         make(map[string]*Font),
		inflight:      make(map[string]*loadCall),
	}
}

// LoadFont returns the memoized font for an id, loading it at most once.
// On failure it logs and falls back to the default font id; only a
// failure of the fallback itself surfaces as an error.
func (s *Service) LoadFont(ctx context.Context, fontID string) (*Font, error) {
	if fontID == "" {
		fontID = s.defaultFontID
	}

	font, err := s.loadOnce(ctx, fontID)
	if err == nil {
		return font, nil
	}
	if fontID == s.defaultFontID {
		return nil, fmt.Errorf("load fallback font %q: %w", fontID, err)
	}

	slog.Warn("font load failed, using fallback", "font", fontID, "fallback", s.defaultFontID, "error", err)
	font, err = s.loadOnce(ctx, s.defaultFontID)
	if err != nil {
		return nil, fmt.Errorf("load fallback font %q: %w", s.defaultFontID, err)
	}
	return font, nil
}

func (s *Service) loadOnce(ctx context.Context, fontID string) (*Font, error) {
	s.mu.Lock()
	if font, ok := s.fonts[fontID]; ok {
		s.mu.Unlock()
		return font, nil
	}
	if call, ok := s.inflight[fontID]; ok {
		s.mu.Unlock()
		select {
		case <-call.done:
			return call.font, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &loadCall{done: make(chan struct{})}
	s.inflight[fontID] = call
	s.mu.Unlock()

	font, err := s.shaper.Load(ctx, fontID)

	s.mu.Lock()
	delete(s.inflight, fontID)
	if err == nil {
		s.fonts[fontID] = font
	}
	s.mu.Unlock()

	call.font = font
	call.err = err
	close(call.done)
	return font, err
}

// TextToPath shapes a text run into an outlined path in local mm space.
func (s *Service) TextToPath(ctx context.Context, fontID, text string, sizeMm, letterSpacingMm float64) (PathResult, error) {
	font, err := s.LoadFont(ctx, fontID)
	if err != nil {
		return PathResult{}, err
	}
	return s.shaper.TextToPath(ctx, font, text, sizeMm, letterSpacingMm)
}

// MeasureTextWidth returns the advance width of a text run in mm.
func (s *Service) MeasureTextWidth(ctx context.Context, fontID, text string, sizeMm float64) (float64, error) {
	font, err := s.LoadFont(ctx, fontID)
	if err != nil {
		return 0, err
	}
	return float64(len([]rune(text))) * sizeMm * font.AdvanceEm, nil
}

// BoxShaper is the built-in degraded shaper: every glyph outlines to a
// monospaced rectangle. It keeps previews and tests working when the real
// shaping library is not wired in; production hosts inject their own
// Shaper.
type BoxShaper struct {
	// Known lists loadable font ids; empty means any id loads.
	Known []string
}

func (b *BoxShaper) Load(_ context.Context, fontID string) (*Font, error) {
	if len(b.Known) > 0 {
		found := false
		for _, id := range b.Known {
			if id == fontID {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFont, fontID)
		}
	}
	return &Font{ID: fontID, UnitsPerEm: 1000, AdvanceEm: 0.6}, nil
}

func (b *BoxShaper) TextToPath(_ context.Context, font *Font, text string, sizeMm, letterSpacingMm float64) (PathResult, error) {
	runes := []rune(text)
	adv := sizeMm * font.AdvanceEm
	var sb strings.Builder
	x := 0.0
	for i, r := range runes {
		if r != ' ' {
			// Glyph box with a small side bearing.
			x0 := x + adv*0.08
			x1 := x + adv*0.92
			fmt.Fprintf(&sb, "M %.3f %.3f L %.3f %.3f L %.3f %.3f L %.3f %.3f Z ",
				x0, 0.0, x1, 0.0, x1, sizeMm, x0, sizeMm)
		}
		x += adv
		if i < len(runes)-1 {
			x += letterSpacingMm
		}
	}
	width := x
	return PathResult{
		PathD:  strings.TrimSpace(sb.String()),
		Width:  width,
		Height: sizeMm,
		Bounds: geom.Rect{X: 0, Y: 0, Width: width, Height: sizeMm},
	}, nil
}
