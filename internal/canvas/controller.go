// Package canvas is the pointer-event state machine driving pan, marquee
// selection, element move, resize and rotate. It accumulates all drag
// progress in local renderer-only state, streams live feedback through a
// preview sink the reducer knows nothing about, and commits exactly once
// on pointer-up.
package canvas

import (
	"math"

	"github.com/kerfcraft/kerfcraft/backend-go/internal/document"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/geom"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/history"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/selection"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/view"
)

// Interaction constants. The squared 3px drag threshold is the
// click-vs-drag disambiguator: a pointer that never crosses it must not
// mutate the document or create a history entry.
const (
	dragThresholdSq = 9.0
	gridSnapMm      = 5.0
	rotateSnapDeg   = 15.0
	minScaleFactor  = 0.05
	maxScaleFactor  = 20.0
	hitTolerancePx  = 4.0

	NudgeMm       = 1.0
	NudgeFineMm   = 0.1
	NudgeCoarseMm = 5.0
)

// Tool is the active canvas tool.
type Tool string

const (
	ToolSelect Tool = "select"
	ToolPan    Tool = "pan"
)

// Handle names the eight resize handles by compass direction.
type Handle string

const (
	HandleNW Handle = "nw"
	HandleN  Handle = "n"
	HandleNE Handle = "ne"
	HandleE  Handle = "e"
	HandleSE Handle = "se"
	HandleS  Handle = "s"
	HandleSW Handle = "sw"
	HandleW  Handle = "w"
)

// Modifiers are the pointer-event modifier keys. Shift is additive for
// selection, aspect-lock for resize and angle-snap for rotate; Alt
// resizes from center; Ctrl snaps moves to the grid.
type Modifiers struct {
	Shift bool
	Alt   bool
	Ctrl  bool
}

// PointerEvent is a container-relative pointer sample in screen pixels.
type PointerEvent struct {
	X    float64
	Y    float64
	Mods Modifiers
}

// PreviewSink is the live-drag side channel: visual-only transforms the
// render layer applies directly, bypassing the reducer. It must be fully
// cleared before or atomically with the next committed state.
type PreviewSink interface {
	ApplyPreview(transforms map[string]document.Transform)
	ClearPreview()
	ShowMarquee(r geom.Rect)
	HideMarquee()
}

// NopPreview discards preview updates.
type NopPreview struct{}

func (NopPreview) ApplyPreview(map[string]document.Transform) {}
func (NopPreview) ClearPreview()                              {}
func (NopPreview) ShowMarquee(geom.Rect)                      {}
func (NopPreview) HideMarquee()                               {}

type dragState int

const (
	stateNone dragState = iota
	statePan
	statePendingMove
	stateMove
	stateResize
	stateRotate
)

// Controller owns one interaction session. It is not persisted and not
// safe for concurrent use; the surrounding event loop serializes calls.
type Controller struct {
	dispatch func(history.Action)
	present  func() history.Snapshot
	view     *view.State
	preview  PreviewSink
	pxPerMm  float64

	// OnWarn receives non-fatal interaction warnings, e.g. when locked
	// elements were skipped during a drag.
	OnWarn func(string)

	tool  Tool
	state dragState

	startX, startY float64
	lastX, lastY   float64
	startWorld     geom.Point

	marqueePending bool
	marqueeActive  bool
	marqueeAdd     bool

	dragIDs         []string
	startTransforms map[string]document.Transform
	lastPreview     map[string]document.Transform
	skippedLocked   bool

	handle      Handle
	anchor      geom.Point
	grabCorner  geom.Point
	fromCenter  bool
	startBounds geom.Rect

	rotateCenter geom.Point

	pendingMove  *PointerEvent
	framePending bool
}

// New wires a controller to its dispatch target, snapshot source, view
// state and preview sink.
func New(dispatch func(history.Action), present func() history.Snapshot, v *view.State, preview PreviewSink, pxPerMm float64) *Controller {
	if preview == nil {
		preview = NopPreview{}
	}
	return &Controller{
		dispatch: dispatch,
		present:  present,
		view:     v,
		preview:  preview,
		pxPerMm:  pxPerMm,
		tool:     ToolSelect,
	}
}

// SetTool switches the active tool; any in-flight drag is cancelled.
func (c *Controller) SetTool(t Tool) {
	c.Cancel()
	c.tool = t
}

// Tool returns the active tool.
func (c *Controller) Tool() Tool { return c.tool }

func (c *Controller) warn(msg string) {
	if c.OnWarn != nil {
		c.OnWarn(msg)
	}
}

func (c *Controller) worldAt(ev PointerEvent) geom.Point {
	return view.ScreenToWorld(ev.X, ev.Y, 0, 0, *c.view, c.pxPerMm)
}

// PointerDown starts an interaction. On an element it selects (respecting
// the additive modifier) and arms a potential move; on empty canvas it
// records a potential marquee, which only becomes real once the drag
// threshold is crossed.
func (c *Controller) PointerDown(ev PointerEvent) {
	c.startX, c.startY = ev.X, ev.Y
	c.lastX, c.lastY = ev.X, ev.Y
	c.startWorld = c.worldAt(ev)
	c.skippedLocked = false

	if c.tool == ToolPan {
		c.state = statePan
		return
	}

	snap := c.present()
	tol := hitTolerancePx / (c.view.Zoom * c.pxPerMm)
	hit, ok := selection.HitTest(c.startWorld, snap.Doc, tol)
	if !ok {
		c.marqueePending = true
		c.marqueeAdd = ev.Mods.Shift
		c.state = stateNone
		return
	}

	sel := snap.Selection
	if ev.Mods.Shift {
		sel = sel.Toggle(hit.ElementID)
	} else if !sel.Contains(hit.ElementID) {
		sel = sel.Select(hit.ElementID)
	} else {
		sel = sel.Clone()
		sel.ActiveID = hit.ElementID
	}
	c.dispatch(history.Action{Type: history.Select, Selection: &sel})

	// A shift-click that removed the element from the selection does not
	// arm a move.
	if !sel.Contains(hit.ElementID) {
		c.state = stateNone
		return
	}

	c.armMove(snap.Doc, sel)
}

// armMove records the pre-drag transform of every selected element that
// can move; locked elements are excluded and flagged.
func (c *Controller) armMove(doc *document.Document, sel selection.State) {
	c.dragIDs = nil
	c.startTransforms = make(map[string]document.Transform)
	for _, id := range sel.SelectedIDs {
		el := doc.ElementByID(id)
		if el == nil {
			continue
		}
		if doc.ElementLocked(el) {
			c.skippedLocked = true
			continue
		}
		c.dragIDs = append(c.dragIDs, id)
		c.startTransforms[id] = el.Transform
	}
	if len(c.dragIDs) == 0 {
		c.state = stateNone
		return
	}
	c.state = statePendingMove
}

// BeginResize arms a resize drag from one of the eight handles. The
// anchor is the point opposite the handle, or the selection bounds center
// when the from-center modifier is held.
func (c *Controller) BeginResize(handle Handle, ev PointerEvent) {
	snap := c.present()
	bounds, ok := selection.Bounds(snap.Selection.SelectedIDs, snap.Doc)
	if !ok {
		return
	}
	c.armMove(snap.Doc, snap.Selection)
	if c.state != statePendingMove {
		return
	}
	c.startX, c.startY = ev.X, ev.Y
	c.lastX, c.lastY = ev.X, ev.Y
	c.handle = handle
	c.startBounds = bounds
	c.fromCenter = ev.Mods.Alt
	c.grabCorner = handlePoint(bounds, handle)
	if c.fromCenter {
		cx, cy := bounds.Center()
		c.anchor = geom.Point{X: cx, Y: cy}
	} else {
		c.anchor = handlePoint(bounds, oppositeHandle(handle))
	}
	c.state = stateResize
	c.setMode(selection.ModeResizing)
}

// BeginRotate arms a rotate drag around the selection bounds center.
func (c *Controller) BeginRotate(ev PointerEvent) {
	snap := c.present()
	bounds, ok := selection.Bounds(snap.Selection.SelectedIDs, snap.Doc)
	if !ok {
		return
	}
	c.armMove(snap.Doc, snap.Selection)
	if c.state != statePendingMove {
		return
	}
	c.startX, c.startY = ev.X, ev.Y
	cx, cy := bounds.Center()
	c.rotateCenter = geom.Point{X: cx, Y: cy}
	c.state = stateRotate
	c.setMode(selection.ModeRotating)
}

// PointerMove coalesces samples into at most one preview update per
// animation frame: a second move arriving before Frame fires replaces the
// pending one rather than scheduling more work.
func (c *Controller) PointerMove(ev PointerEvent) {
	e := ev
	c.pendingMove = &e
	c.framePending = true
}

// Frame flushes the pending pointer sample. The host calls it once per
// animation frame.
func (c *Controller) Frame() {
	if !c.framePending || c.pendingMove == nil {
		return
	}
	ev := *c.pendingMove
	c.pendingMove = nil
	c.framePending = false
	c.processMove(ev)
}

func (c *Controller) processMove(ev PointerEvent) {
	dx := ev.X - c.startX
	dy := ev.Y - c.startY

	switch c.state {
	case statePan:
		*c.view = view.Pan(*c.view, ev.X-c.lastX, ev.Y-c.lastY)
		c.lastX, c.lastY = ev.X, ev.Y
		return

	case statePendingMove:
		if dx*dx+dy*dy < dragThresholdSq {
			return
		}
		c.state = stateMove
		c.setMode(selection.ModeDragging)
		c.updateMovePreview(ev)
		return

	case stateMove:
		c.updateMovePreview(ev)
		return

	case stateResize:
		c.updateResizePreview(ev)
		return

	case stateRotate:
		c.updateRotatePreview(ev)
		return
	}

	if c.marqueePending && !c.marqueeActive {
		if dx*dx+dy*dy < dragThresholdSq {
			return
		}
		c.marqueeActive = true
		c.setMode(selection.ModeMarquee)
	}
	if c.marqueeActive {
		c.preview.ShowMarquee(c.marqueeRect(ev))
	}
	c.lastX, c.lastY = ev.X, ev.Y
}

func (c *Controller) marqueeRect(ev PointerEvent) geom.Rect {
	p := c.worldAt(ev)
	return geom.FromCorners(c.startWorld.X, c.startWorld.Y, p.X, p.Y)
}

func (c *Controller) updateMovePreview(ev PointerEvent) {
	scale := c.view.Zoom * c.pxPerMm
	dxMm := (ev.X - c.startX) / scale
	dyMm := (ev.Y - c.startY) / scale

	out := make(map[string]document.Transform, len(c.dragIDs))
	for _, id := range c.dragIDs {
		t := c.startTransforms[id]
		t.XMm += dxMm
		t.YMm += dyMm
		if ev.Mods.Ctrl {
			t.XMm = math.Round(t.XMm/gridSnapMm) * gridSnapMm
			t.YMm = math.Round(t.YMm/gridSnapMm) * gridSnapMm
		}
		out[id] = t
	}
	c.lastPreview = out
	c.preview.ApplyPreview(out)
}

func (c *Controller) updateResizePreview(ev PointerEvent) {
	p := c.worldAt(ev)

	fx, fy := 1.0, 1.0
	horiz := c.handle != HandleN && c.handle != HandleS
	vert := c.handle != HandleE && c.handle != HandleW

	if horiz {
		fx = scaleFactor(p.X, c.anchor.X, c.grabCorner.X)
	}
	if vert {
		fy = scaleFactor(p.Y, c.anchor.Y, c.grabCorner.Y)
	}

	if ev.Mods.Shift && horiz && vert {
		// Aspect lock: the axis with the larger pointer displacement
		// drives both dimensions.
		if math.Abs(p.X-c.grabCorner.X) >= math.Abs(p.Y-c.grabCorner.Y) {
			fy = fx
		} else {
			fx = fy
		}
	} else if ev.Mods.Shift && horiz && !vert {
		fy = fx
	} else if ev.Mods.Shift && vert && !horiz {
		fx = fy
	}

	out := make(map[string]document.Transform, len(c.dragIDs))
	for _, id := range c.dragIDs {
		t := c.startTransforms[id]
		t.ScaleX *= fx
		t.ScaleY *= fy
		// Re-derive position from the pre-drag offset to the shared
		// anchor so the group scales rigidly, not per-element.
		t.XMm = c.anchor.X + (c.startTransforms[id].XMm-c.anchor.X)*fx
		t.YMm = c.anchor.Y + (c.startTransforms[id].YMm-c.anchor.Y)*fy
		out[id] = t
	}
	c.lastPreview = out
	c.preview.ApplyPreview(out)
}

func scaleFactor(pointer, anchor, grab float64) float64 {
	base := grab - anchor
	if math.Abs(base) < 1e-9 {
		return 1
	}
	f := (pointer - anchor) / base
	if f < minScaleFactor {
		return minScaleFactor
	}
	if f > maxScaleFactor {
		return maxScaleFactor
	}
	return f
}

func (c *Controller) updateRotatePreview(ev PointerEvent) {
	p := c.worldAt(ev)
	// +90 so that pointer-straight-up reads as no visible rotation.
	deg := math.Atan2(p.Y-c.rotateCenter.Y, p.X-c.rotateCenter.X)*180/math.Pi + 90
	if ev.Mods.Shift {
		deg = math.Round(deg/rotateSnapDeg) * rotateSnapDeg
	}

	out := make(map[string]document.Transform, len(c.dragIDs))
	for _, id := range c.dragIDs {
		t := c.startTransforms[id]
		t.RotateDeg = deg
		out[id] = t
	}
	c.lastPreview = out
	c.preview.ApplyPreview(out)
}

// PointerUp ends the interaction: a completed drag commits its net effect
// as a single batched update plus COMMIT; a pure click commits nothing.
func (c *Controller) PointerUp(ev PointerEvent) {
	// Flush any coalesced move so the release position is accounted for.
	c.Frame()

	defer c.resetDrag()

	switch c.state {
	case stateMove, stateResize, stateRotate:
		c.preview.ClearPreview()
		if c.commitPreview() && c.skippedLocked {
			c.warn("locked elements were not moved")
		}
		c.setMode(selection.ModeIdle)
		return

	case statePendingMove:
		// Threshold never crossed: selection already happened on
		// pointer-down, and a no-op click leaves history untouched.
		return

	case statePan, stateNone:
	}

	if c.marqueeActive {
		c.preview.HideMarquee()
		c.finishMarquee(ev)
		c.setMode(selection.ModeIdle)
		return
	}
	if c.marqueePending && !ev.Mods.Shift {
		// Click on empty canvas clears the selection.
		c.dispatch(history.Action{Type: history.ClearSelection})
	}
}

// commitPreview dispatches the final transforms once, then commits.
// Returns whether anything was dispatched.
func (c *Controller) commitPreview() bool {
	if len(c.lastPreview) == 0 {
		return false
	}
	changed := false
	for id, t := range c.lastPreview {
		if t != c.startTransforms[id] {
			changed = true
			break
		}
	}
	if !changed {
		return false
	}
	c.dispatch(history.Action{Type: history.UpdateTransform, Transforms: c.lastPreview})
	c.dispatch(history.Action{Type: history.Commit})
	return true
}

func (c *Controller) finishMarquee(ev PointerEvent) {
	snap := c.present()
	r := c.marqueeRect(ev)
	ids := selection.InRect(r, snap.Doc)

	sel := snap.Selection
	if c.marqueeAdd {
		for _, id := range ids {
			sel = sel.Add(id)
		}
	} else {
		sel = sel.SelectMany(ids)
	}
	c.dispatch(history.Action{Type: history.Select, Selection: &sel})
}

// Cancel abandons any in-flight drag without dispatching, clearing all
// preview state.
func (c *Controller) Cancel() {
	if c.state != stateNone || c.marqueeActive {
		c.preview.ClearPreview()
		c.preview.HideMarquee()
		c.setMode(selection.ModeIdle)
	}
	c.resetDrag()
}

func (c *Controller) resetDrag() {
	c.state = stateNone
	c.marqueePending = false
	c.marqueeActive = false
	c.marqueeAdd = false
	c.dragIDs = nil
	c.startTransforms = nil
	c.lastPreview = nil
	c.pendingMove = nil
	c.framePending = false
}

func (c *Controller) setMode(m selection.Mode) {
	c.dispatch(history.Action{Type: history.SetSelectionMode, Mode: m})
}

func handlePoint(b geom.Rect, h Handle) geom.Point {
	cx, cy := b.Center()
	switch h {
	case HandleNW:
		return geom.Point{X: b.X, Y: b.Y}
	case HandleN:
		return geom.Point{X: cx, Y: b.Y}
	case HandleNE:
		return geom.Point{X: b.X + b.Width, Y: b.Y}
	case HandleE:
		return geom.Point{X: b.X + b.Width, Y: cy}
	case HandleSE:
		return geom.Point{X: b.X + b.Width, Y: b.Y + b.Height}
	case HandleS:
		return geom.Point{X: cx, Y: b.Y + b.Height}
	case HandleSW:
		return geom.Point{X: b.X, Y: b.Y + b.Height}
	default:
		return geom.Point{X: b.X, Y: cy}
	}
}

func oppositeHandle(h Handle) Handle {
	switch h {
	case HandleNW:
		return HandleSE
	case HandleN:
		return HandleS
	case HandleNE:
		return HandleSW
	case HandleE:
		return HandleW
	case HandleSE:
		return HandleNW
	case HandleS:
		return HandleN
	case HandleSW:
		return HandleNE
	default:
		return HandleE
	}
}
