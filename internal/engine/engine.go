// Package engine is the embeddable editor core: it owns the document
// history, selection, view transform and pointer controller, and exposes
// the command/query surface the browser frontend (or a live session room)
// drives. All geometry work is synchronous; only text outlining and
// boolean composition, both reached via export, suspend.
package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kerfcraft/kerfcraft/backend-go/internal/canvas"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/document"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/fontshape"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/geom"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/history"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/pathops"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/selection"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/svgexport"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/view"
)

// PxPerMm is the CSS reference pixel density (96 dpi) the frontend canvas
// is laid out at.
const PxPerMm = 96.0 / 25.4

// Engine is a single-user editor session. It is driven from one event
// loop and is not safe for concurrent use.
type Engine struct {
	hist history.State
	view view.State
	ctrl *canvas.Controller

	exporter *svgexport.Exporter

	// Live-drag preview side channel: visual-only transforms the render
	// pass applies on top of the committed snapshot. The reducer never
	// sees these.
	previewTransforms map[string]document.Transform
	marquee           *geom.Rect

	warnings []string
}

// New builds an engine with its collaborator services injected.
func New(fonts *fontshape.Service, paths pathops.Engine) *Engine {
	e := &Engine{
		view:     view.Default(),
		exporter: &svgexport.Exporter{Fonts: fonts, Paths: paths},
	}
	e.ctrl = canvas.New(e.Dispatch, e.Present, &e.view, e, PxPerMm)
	e.ctrl.OnWarn = func(msg string) {
		e.warnings = append(e.warnings, msg)
	}
	e.hist = history.New(&document.Document{}, selection.Empty())
	return e
}

// --- Commands (frontend → engine) ---

// LoadDocument replaces the session document from JSON and resets all
// undo history.
func (e *Engine) LoadDocument(jsonData string) error {
	var doc document.Document
	if err := json.Unmarshal([]byte(jsonData), &doc); err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	e.hist = history.New(&doc, selection.Empty())
	e.clearPreview()
	return nil
}

// BuildDesign constructs a fresh parametric document and resets history.
func (e *Engine) BuildDesign(paramsJSON string) error {
	var p document.Params
	if err := json.Unmarshal([]byte(paramsJSON), &p); err != nil {
		return fmt.Errorf("build design: %w", err)
	}
	e.hist = history.New(document.Build(p), selection.Empty())
	e.clearPreview()
	return nil
}

// RebuildDesign regenerates system elements from changed parameters,
// preserving user-placed elements, and discards undo history: parameter
// rebuilds are not undoable across the rebuild boundary.
func (e *Engine) RebuildDesign(paramsJSON string) error {
	var p document.Params
	if err := json.Unmarshal([]byte(paramsJSON), &p); err != nil {
		return fmt.Errorf("rebuild design: %w", err)
	}
	rebuilt := document.Rebuild(e.hist.Present.Doc, p)
	e.Dispatch(history.Action{Type: history.Reset, Document: rebuilt})
	e.clearPreview()
	return nil
}

// Dispatch routes one reducer action.
func (e *Engine) Dispatch(a history.Action) {
	e.hist = history.Reduce(e.hist, a)
}

// Present returns the committed present snapshot.
func (e *Engine) Present() history.Snapshot {
	return e.hist.Present
}

// Undo steps the history back once.
func (e *Engine) Undo() { e.Dispatch(history.Action{Type: history.Undo}) }

// Redo steps the history forward once.
func (e *Engine) Redo() { e.Dispatch(history.Action{Type: history.Redo}) }

// CanUndo reports whether undo is available.
func (e *Engine) CanUndo() bool { return e.hist.CanUndo() }

// CanRedo reports whether redo is available.
func (e *Engine) CanRedo() bool { return e.hist.CanRedo() }

// PointerDown forwards a pointer-down sample to the controller.
func (e *Engine) PointerDown(x, y float64, mods canvas.Modifiers) {
	e.ctrl.PointerDown(canvas.PointerEvent{X: x, Y: y, Mods: mods})
}

// PointerMove forwards a pointer-move sample; samples coalesce until the
// next Frame call.
func (e *Engine) PointerMove(x, y float64, mods canvas.Modifiers) {
	e.ctrl.PointerMove(canvas.PointerEvent{X: x, Y: y, Mods: mods})
}

// PointerUp forwards a pointer-up sample, committing or discarding the
// interaction.
func (e *Engine) PointerUp(x, y float64, mods canvas.Modifiers) {
	e.ctrl.PointerUp(canvas.PointerEvent{X: x, Y: y, Mods: mods})
}

// KeyDown forwards a keyboard event. Returns whether it was handled.
func (e *Engine) KeyDown(key string, mods canvas.Modifiers) bool {
	return e.ctrl.KeyDown(key, mods)
}

// BeginResize arms a resize drag from a named handle.
func (e *Engine) BeginResize(handle string, x, y float64, mods canvas.Modifiers) {
	e.ctrl.BeginResize(canvas.Handle(handle), canvas.PointerEvent{X: x, Y: y, Mods: mods})
}

// BeginRotate arms a rotate drag.
func (e *Engine) BeginRotate(x, y float64, mods canvas.Modifiers) {
	e.ctrl.BeginRotate(canvas.PointerEvent{X: x, Y: y, Mods: mods})
}

// SetTool switches the canvas tool ("select" or "pan").
func (e *Engine) SetTool(tool string) {
	e.ctrl.SetTool(canvas.Tool(tool))
}

// ZoomAtPoint zooms keeping the world point under the cursor fixed.
func (e *Engine) ZoomAtPoint(newZoom, screenX, screenY float64) {
	e.view = view.ZoomAtPoint(e.view, newZoom, screenX, screenY, PxPerMm)
}

// FitView recenters the artboard inside the container.
func (e *Engine) FitView(containerW, containerH, padding float64) {
	ab := e.hist.Present.Doc.Artboard
	e.view = view.FitToContainer(ab.WidthMm, ab.HeightMm, containerW, containerH, padding, PxPerMm)
}

// View returns the current view transform.
func (e *Engine) View() view.State { return e.view }

// Frame advances the interaction one animation frame and returns the
// draw-command buffer as JSON.
func (e *Engine) Frame() string {
	e.ctrl.Frame()
	return e.RenderJSON()
}

// --- Queries (frontend ← engine) ---

// HitTest returns the id of the topmost element at a world point, or "".
func (e *Engine) HitTest(xMm, yMm float64) string {
	tol := 4.0 / (e.view.Zoom * PxPerMm)
	hit, ok := selection.HitTest(geom.Point{X: xMm, Y: yMm}, e.hist.Present.Doc, tol)
	if !ok {
		return ""
	}
	return hit.ElementID
}

// SelectionBounds returns the union bounds of the selection as JSON.
func (e *Engine) SelectionBounds() string {
	b, ok := selection.Bounds(e.hist.Present.Selection.SelectedIDs, e.hist.Present.Doc)
	if !ok {
		return "null"
	}
	data, _ := json.Marshal(b)
	return string(data)
}

// GetDocument returns the committed document as JSON.
func (e *Engine) GetDocument() string {
	data, _ := json.Marshal(e.hist.Present.Doc)
	return string(data)
}

// GetSelection returns the selection state as JSON.
func (e *Engine) GetSelection() string {
	data, _ := json.Marshal(e.hist.Present.Selection)
	return string(data)
}

// ExportSVG serializes the committed document to laser-safe SVG. Export
// never reads drag state, so a failed export leaves nothing to clean up.
func (e *Engine) ExportSVG(ctx context.Context) (string, error) {
	return e.exporter.Build(ctx, e.hist.Present.Doc)
}

// ExportPayload returns the full download payload.
func (e *Engine) ExportPayload(ctx context.Context) (svgexport.Payload, error) {
	return e.exporter.BuildPayload(ctx, e.hist.Present.Doc)
}

// DrainWarnings returns and clears accumulated non-fatal warnings.
func (e *Engine) DrainWarnings() []string {
	w := e.warnings
	e.warnings = nil
	return w
}

// --- canvas.PreviewSink ---

// ApplyPreview stores visual-only drag transforms for the next render.
func (e *Engine) ApplyPreview(transforms map[string]document.Transform) {
	e.previewTransforms = transforms
}

// ClearPreview drops all drag-preview state.
func (e *Engine) ClearPreview() {
	e.previewTransforms = nil
}

// ShowMarquee stores the marquee rect overlay.
func (e *Engine) ShowMarquee(r geom.Rect) {
	e.marquee = &r
}

// HideMarquee clears the marquee overlay.
func (e *Engine) HideMarquee() {
	e.marquee = nil
}

func (e *Engine) clearPreview() {
	e.previewTransforms = nil
	e.marquee = nil
}
