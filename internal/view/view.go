// Package view converts between screen pixel coordinates and world
// millimeter coordinates for a pan/zoom canvas. The view transform is a
// presentation-layer value only: it is never persisted into the document
// and never affects exported geometry.
package view

import (
	"github.com/kerfcraft/kerfcraft/backend-go/internal/geom"
)

// Zoom clamp policy. FitToContainer separately caps its computed zoom at
// MaxFitZoom so small artboards don't open absurdly magnified.
const (
	MinZoom    = 0.1
	MaxZoom    = 10.0
	MaxFitZoom = 2.0
)

// State is the pan/zoom view transform. Pan is in screen pixels, zoom is
// a unitless ratio on top of the pixels-per-millimeter base scale.
type State struct {
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
	Zoom float64 `json:"zoom"`
}

// Default returns a neutral view.
func Default() State {
	return State{Zoom: 1}
}

// ClampZoom bounds a zoom ratio to the supported range.
func ClampZoom(z float64) float64 {
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}

// ScreenToWorld maps container-relative pointer coordinates to world mm.
// originX/originY is the canvas container's offset inside the pointer
// event's coordinate space (zero when events are already
// container-relative).
func ScreenToWorld(pointerX, pointerY, originX, originY float64, v State, pxPerMm float64) geom.Point {
	s := v.Zoom * pxPerMm
	return geom.Point{
		X: (pointerX - originX - v.PanX) / s,
		Y: (pointerY - originY - v.PanY) / s,
	}
}

// WorldToScreen is the exact inverse of ScreenToWorld for any zoom > 0.
func WorldToScreen(p geom.Point, originX, originY float64, v State, pxPerMm float64) (float64, float64) {
	s := v.Zoom * pxPerMm
	return p.X*s + v.PanX + originX, p.Y*s + v.PanY + originY
}

// ZoomAtPoint changes zoom while keeping the world point currently under
// (screenX, screenY) fixed on screen, the standard zoom-to-cursor
// invariant. The new zoom is clamped to [MinZoom, MaxZoom].
func ZoomAtPoint(v State, newZoom, screenX, screenY, pxPerMm float64) State {
	newZoom = ClampZoom(newZoom)
	oldScale := v.Zoom * pxPerMm
	newScale := newZoom * pxPerMm
	if oldScale == 0 {
		return State{PanX: v.PanX, PanY: v.PanY, Zoom: newZoom}
	}

	worldX := (screenX - v.PanX) / oldScale
	worldY := (screenY - v.PanY) / oldScale

	return State{
		PanX: screenX - worldX*newScale,
		PanY: screenY - worldY*newScale,
		Zoom: newZoom,
	}
}

// FitToContainer computes a view that centers the artboard inside the
// container with symmetric padding, preserving aspect ratio (the minimum
// of the width-fit and height-fit scales, never cropping), with the
// resulting zoom capped at MaxFitZoom.
func FitToContainer(artboardW, artboardH, containerW, containerH, padding, pxPerMm float64) State {
	availW := containerW - 2*padding
	availH := containerH - 2*padding
	if artboardW <= 0 || artboardH <= 0 || availW <= 0 || availH <= 0 {
		return Default()
	}

	zoomW := availW / (artboardW * pxPerMm)
	zoomH := availH / (artboardH * pxPerMm)
	zoom := min(zoomW, zoomH)
	if zoom > MaxFitZoom {
		zoom = MaxFitZoom
	}

	scale := zoom * pxPerMm
	return State{
		PanX: (containerW - artboardW*scale) / 2,
		PanY: (containerH - artboardH*scale) / 2,
		Zoom: zoom,
	}
}

// Pan returns the view shifted by a screen-pixel delta.
func Pan(v State, dx, dy float64) State {
	return State{PanX: v.PanX + dx, PanY: v.PanY + dy, Zoom: v.Zoom}
}
