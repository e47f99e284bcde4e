package engine

import (
	"encoding/json"
	"sort"

	"github.com/kerfcraft/kerfcraft/backend-go/internal/document"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/geom"
)

// Layer render colors. CUT renders as a hairline stroke, ENGRAVE as
// solid fill, GUIDE as a light dashed outline that never exports.
const (
	cutStroke    = "#ff0000"
	engraveFill  = "#000000"
	guideStroke  = "#3b82f6"
	selectStroke = "#2563eb"
	marqueeFill  = "rgba(37,99,235,0.08)"
)

// DrawCommand is a single drawing operation for the frontend to execute
// on a Canvas2D context. Commands arrive in painter's order.
type DrawCommand struct {
	Op          string    `json:"op"` // "path", "image", "text", "rect"
	ObjectID    string    `json:"objectId,omitempty"`
	Transform   []float64 `json:"transform,omitempty"` // [a, b, c, d, e, f]
	PathD       string    `json:"pathD,omitempty"`
	Fill        string    `json:"fill,omitempty"`
	Stroke      string    `json:"stroke,omitempty"`
	StrokeWidth float64   `json:"strokeWidth,omitempty"`
	Dashed      bool      `json:"dashed,omitempty"`

	// "image" payload.
	ImageDataURL string  `json:"imageDataUrl,omitempty"`
	ImageWidth   float64 `json:"imageWidth,omitempty"`
	ImageHeight  float64 `json:"imageHeight,omitempty"`

	// "text" payload for elements whose glyphs have not been outlined yet.
	Text     string  `json:"text,omitempty"`
	FontID   string  `json:"fontId,omitempty"`
	FontSize float64 `json:"fontSize,omitempty"`

	// "rect" payload for overlays, in world mm.
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Render compiles the committed document plus live drag state into a
// draw-command buffer, back to front: layers by ascending order, elements
// in document order, then selection and marquee overlays on top.
func (e *Engine) Render() []DrawCommand {
	doc := e.hist.Present.Doc
	if doc == nil {
		return nil
	}

	layers := make([]document.Layer, len(doc.Layers))
	copy(layers, doc.Layers)
	sort.SliceStable(layers, func(i, j int) bool { return layers[i].Order < layers[j].Order })

	var commands []DrawCommand
	for _, layer := range layers {
		if !layer.Visible {
			continue
		}
		for i := range doc.Elements {
			el := &doc.Elements[i]
			if el.LayerID != layer.ID || !el.Visible {
				continue
			}
			e.compileElement(el, layer.Type, &commands)
		}
	}

	e.compileOverlays(doc, &commands)
	return commands
}

// RenderJSON returns the draw-command buffer serialized for the frontend.
func (e *Engine) RenderJSON() string {
	data, err := json.Marshal(e.Render())
	if err != nil || data == nil {
		return "[]"
	}
	return string(data)
}

// elementTransform resolves an element's render transform, preferring the
// live drag preview over the committed value.
func (e *Engine) elementTransform(el *document.Element) document.Transform {
	if t, ok := e.previewTransforms[el.ID]; ok {
		return t
	}
	return el.Transform
}

func (e *Engine) compileElement(el *document.Element, lt document.LayerType, commands *[]DrawCommand) {
	t := e.elementTransform(el)
	m := geom.Compose(t.XMm, t.YMm, t.RotateDeg, t.ScaleX, t.ScaleY).ToSlice()

	base := DrawCommand{ObjectID: el.ID, Transform: m}
	switch lt {
	case document.LayerCut:
		base.Stroke = cutStroke
		base.StrokeWidth = 0.1
	case document.LayerEngrave:
		base.Fill = engraveFill
	case document.LayerGuide:
		base.Stroke = guideStroke
		base.StrokeWidth = 0.1
		base.Dashed = true
	}

	switch el.Kind {
	case document.KindTracedPathGroup:
		if el.Group == nil {
			return
		}
		for _, d := range el.Group.Paths {
			cmd := base
			cmd.Op = "path"
			cmd.PathD = d
			*commands = append(*commands, cmd)
		}

	case document.KindText:
		if el.Text == nil {
			return
		}
		if el.Text.PathD != "" {
			cmd := base
			cmd.Op = "path"
			cmd.PathD = el.Text.PathD
			*commands = append(*commands, cmd)
			return
		}
		cmd := base
		cmd.Op = "text"
		cmd.Text = el.Text.Value
		cmd.FontID = el.Text.FontID
		cmd.FontSize = el.Text.SizeMm
		*commands = append(*commands, cmd)

	case document.KindEngraveImage, document.KindEngraveSketch:
		if el.Image == nil {
			return
		}
		cmd := base
		cmd.Op = "image"
		cmd.ImageDataURL = el.Image.DataURL
		cmd.ImageWidth = el.Image.WidthMm
		cmd.ImageHeight = el.Image.HeightMm
		*commands = append(*commands, cmd)

	case document.KindLogo:
		if el.Logo == nil {
			return
		}
		cmd := base
		cmd.Op = "path"
		cmd.PathD = el.Logo.D
		*commands = append(*commands, cmd)

	default:
		if el.Path == nil {
			return
		}
		cmd := base
		cmd.Op = "path"
		cmd.PathD = el.Path.D
		*commands = append(*commands, cmd)
	}
}

// compileOverlays appends the selection outline and marquee rect, both in
// world coordinates so the frontend scales them with the view.
func (e *Engine) compileOverlays(doc *document.Document, commands *[]DrawCommand) {
	sel := e.hist.Present.Selection
	if len(sel.SelectedIDs) > 0 {
		if b, ok := e.selectionRenderBounds(doc, sel.SelectedIDs); ok {
			*commands = append(*commands, DrawCommand{
				Op:          "rect",
				Stroke:      selectStroke,
				StrokeWidth: 0.25,
				X:           b.X,
				Y:           b.Y,
				Width:       b.Width,
				Height:      b.Height,
			})
		}
	}
	if e.marquee != nil {
		*commands = append(*commands, DrawCommand{
			Op:          "rect",
			Fill:        marqueeFill,
			Stroke:      selectStroke,
			StrokeWidth: 0.25,
			Dashed:      true,
			X:           e.marquee.X,
			Y:           e.marquee.Y,
			Width:       e.marquee.Width,
			Height:      e.marquee.Height,
		})
	}
}

// selectionRenderBounds unions selection bounds using preview transforms,
// so the outline tracks the drag instead of the committed positions.
func (e *Engine) selectionRenderBounds(doc *document.Document, ids []string) (geom.Rect, bool) {
	var out geom.Rect
	found := false
	for _, id := range ids {
		el := doc.ElementByID(id)
		if el == nil {
			continue
		}
		probe := *el
		probe.Transform = e.elementTransform(el)
		b, ok := geom.ElementBounds(&probe)
		if !ok {
			continue
		}
		if !found {
			out = b
			found = true
		} else {
			out = out.Union(b)
		}
	}
	return out, found
}
