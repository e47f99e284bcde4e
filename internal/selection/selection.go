// Package selection holds the selected-element set and hit-testing logic.
package selection

import (
	"sort"

	"github.com/kerfcraft/kerfcraft/backend-go/internal/document"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/geom"
)

// Mode is the current interaction mode.
type Mode string

const (
	ModeIdle     Mode = "idle"
	ModeMarquee  Mode = "marquee"
	ModeDragging Mode = "dragging"
	ModeResizing Mode = "resizing"
	ModeRotating Mode = "rotating"
)

// State is the selection state. ActiveID is always a member of
// SelectedIDs or empty; it identifies which element drives single-element
// property panels. SelectedIDs preserves insertion order.
type State struct {
	SelectedIDs []string `json:"selectedIds"`
	ActiveID    string   `json:"activeId,omitempty"`
	Mode        Mode     `json:"mode"`
}

// Empty returns a cleared selection.
func Empty() State {
	return State{Mode: ModeIdle}
}

// Contains reports membership.
func (s State) Contains(id string) bool {
	for _, v := range s.SelectedIDs {
		if v == id {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slice storage.
func (s State) Clone() State {
	out := s
	out.SelectedIDs = append([]string(nil), s.SelectedIDs...)
	return out
}

// Select replaces the selection with a single element.
func (s State) Select(id string) State {
	return State{SelectedIDs: []string{id}, ActiveID: id, Mode: s.Mode}
}

// SelectMany replaces the selection with the given ids; the last id
// becomes active.
func (s State) SelectMany(ids []string) State {
	out := State{SelectedIDs: append([]string(nil), ids...), Mode: s.Mode}
	if len(out.SelectedIDs) > 0 {
		out.ActiveID = out.SelectedIDs[len(out.SelectedIDs)-1]
	}
	return out
}

// Toggle implements shift-click semantics: a present id is removed and the
// active id moves to the new last-remaining element (or clears); an absent
// id is appended and becomes active.
func (s State) Toggle(id string) State {
	out := s.Clone()
	for i, v := range out.SelectedIDs {
		if v == id {
			out.SelectedIDs = append(out.SelectedIDs[:i], out.SelectedIDs[i+1:]...)
			if len(out.SelectedIDs) > 0 {
				out.ActiveID = out.SelectedIDs[len(out.SelectedIDs)-1]
			} else {
				out.ActiveID = ""
			}
			return out
		}
	}
	out.SelectedIDs = append(out.SelectedIDs, id)
	out.ActiveID = id
	return out
}

// Add appends an id to the selection; no-op if already present.
func (s State) Add(id string) State {
	if s.Contains(id) {
		return s
	}
	out := s.Clone()
	out.SelectedIDs = append(out.SelectedIDs, id)
	out.ActiveID = id
	return out
}

// Clear empties the selection, preserving mode.
func (s State) Clear() State {
	return State{Mode: s.Mode}
}

// WithMode returns the state with a new interaction mode.
func (s State) WithMode(m Mode) State {
	out := s
	out.Mode = m
	return out
}

// Hit identifies the element (and its layer) found under a point.
type Hit struct {
	ElementID string
	LayerID   string
}

// HitTest finds the topmost element under a world-space point, expanding
// each element's bounds by tolerance (mm). Layers are walked from the
// topmost visual order down, skipping invisible ones; within a layer,
// elements are tested last-drawn first. The first match wins.
func HitTest(pt geom.Point, doc *document.Document, tolerance float64) (Hit, bool) {
	if doc == nil {
		return Hit{}, false
	}

	for _, layer := range layersTopDown(doc) {
		if !layer.Visible {
			continue
		}
		for i := len(doc.Elements) - 1; i >= 0; i-- {
			el := &doc.Elements[i]
			if el.LayerID != layer.ID || !el.Visible {
				continue
			}
			b, ok := geom.ElementBounds(el)
			if !ok {
				continue
			}
			if b.Expand(tolerance).Contains(pt.X, pt.Y) {
				return Hit{ElementID: el.ID, LayerID: layer.ID}, true
			}
		}
	}
	return Hit{}, false
}

// Bounds unions the bounds of every currently-resolvable selected
// element. Ids that no longer resolve (deleted elements) are silently
// skipped.
func Bounds(ids []string, doc *document.Document) (geom.Rect, bool) {
	if doc == nil {
		return geom.Rect{}, false
	}
	var els []*document.Element
	for _, id := range ids {
		if el := doc.ElementByID(id); el != nil {
			els = append(els, el)
		}
	}
	return geom.UnionBounds(els)
}

// InRect collects the ids of visible elements whose bounds overlap the
// marquee rect. Overlap is sufficient; full containment is not required.
// Elements on invisible layers are skipped; order follows layer stacking
// from topmost down.
func InRect(r geom.Rect, doc *document.Document) []string {
	if doc == nil {
		return nil
	}
	var out []string
	for _, layer := range layersTopDown(doc) {
		if !layer.Visible {
			continue
		}
		for i := len(doc.Elements) - 1; i >= 0; i-- {
			el := &doc.Elements[i]
			if el.LayerID != layer.ID || !el.Visible {
				continue
			}
			if b, ok := geom.ElementBounds(el); ok && b.Intersects(r) {
				out = append(out, el.ID)
			}
		}
	}
	return out
}

func layersTopDown(doc *document.Document) []document.Layer {
	layers := append([]document.Layer(nil), doc.Layers...)
	sort.SliceStable(layers, func(i, j int) bool {
		return layers[i].Order > layers[j].Order
	})
	return layers
}
