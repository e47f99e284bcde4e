// Package svgexport serializes a committed document to layer-tagged,
// laser-safe SVG. It reads only committed snapshots, never ephemeral
// drag state, so a failed export is always safely retryable.
package svgexport

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kerfcraft/kerfcraft/backend-go/internal/document"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/fontshape"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/geom"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/pathops"
)

// Render styles per export group. Cut lines are hairline strokes; engrave
// content is filled.
const (
	cutStroke     = "#ff0000"
	cutStrokeWide = "0.1"
	engraveFill   = "#000000"
)

// Payload is what the surrounding application receives for download.
type Payload struct {
	SVG  string `json:"svg"`
	Name string `json:"name"`
	Meta Meta   `json:"meta"`
}

// Meta describes the exported artwork.
type Meta struct {
	WidthMm      float64 `json:"widthMm"`
	HeightMm     float64 `json:"heightMm"`
	CutCount     int     `json:"cutCount"`
	EngraveCount int     `json:"engraveCount"`
}

// Exporter walks the committed document and serializes it. Collaborators
// are injected; a nil Paths engine disables cut-out composition and a nil
// Fonts service leaves text as live <text> nodes (the degraded variant).
type Exporter struct {
	Fonts *fontshape.Service
	Paths pathops.Engine
}

// BuildPayload exports the document with a download name.
func (e *Exporter) BuildPayload(ctx context.Context, doc *document.Document) (Payload, error) {
	svg, meta, err := e.build(ctx, doc)
	if err != nil {
		return Payload{}, err
	}
	name := doc.Name
	if name == "" {
		name = string(doc.Tool)
	}
	if name == "" {
		name = "design"
	}
	return Payload{SVG: svg, Name: name, Meta: meta}, nil
}

// Build exports the document to an SVG string.
func (e *Exporter) Build(ctx context.Context, doc *document.Document) (string, error) {
	svg, _, err := e.build(ctx, doc)
	return svg, err
}

func (e *Exporter) build(ctx context.Context, doc *document.Document) (string, Meta, error) {
	if doc == nil {
		return "", Meta{}, fmt.Errorf("export: nil document")
	}

	cut, engrave := partition(doc)
	meta := Meta{
		WidthMm:      doc.Artboard.WidthMm,
		HeightMm:     doc.Artboard.HeightMm,
		CutCount:     len(cut),
		EngraveCount: len(engrave),
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%smm" height="%smm" viewBox="0 0 %s %s">`,
		fnum(doc.Artboard.WidthMm), fnum(doc.Artboard.HeightMm),
		fnum(doc.Artboard.WidthMm), fnum(doc.Artboard.HeightMm))
	b.WriteString("\n")

	b.WriteString(`<g id="CUT" fill="none" stroke="` + cutStroke + `" stroke-width="` + cutStrokeWide + `">` + "\n")
	composed := e.writeCutGroup(ctx, &b, doc, cut)
	b.WriteString("</g>\n")

	b.WriteString(`<g id="ENGRAVE" fill="` + engraveFill + `" stroke="none">` + "\n")
	for _, el := range engrave {
		// A composed cut-out logo is already a hole in the compound cut
		// path; engraving it as well would mark material that falls out.
		if composed[el.ID] {
			continue
		}
		e.writeElement(ctx, &b, el)
	}
	b.WriteString("</g>\n")

	b.WriteString("</svg>\n")
	return b.String(), meta, nil
}

// partition splits visible elements into CUT and ENGRAVE render lists in
// layer paint order. GUIDE layers are never exported.
func partition(doc *document.Document) (cut, engrave []*document.Element) {
	layers := append([]document.Layer(nil), doc.Layers...)
	sort.SliceStable(layers, func(i, j int) bool {
		return layers[i].Order < layers[j].Order
	})
	for _, layer := range layers {
		if !layer.Visible || layer.Type == document.LayerGuide {
			continue
		}
		for i := range doc.Elements {
			el := &doc.Elements[i]
			if el.LayerID != layer.ID || !el.Visible {
				continue
			}
			switch layer.Type {
			case document.LayerCut:
				cut = append(cut, el)
			case document.LayerEngrave:
				engrave = append(engrave, el)
			}
		}
	}
	return cut, engrave
}

// writeCutGroup emits the CUT elements, composing cut-out logos into the
// base path when a boolean engine is available. The returned set holds the
// ids absorbed into the compound path; the caller must not render them
// again in any group.
func (e *Exporter) writeCutGroup(ctx context.Context, b *strings.Builder, doc *document.Document, cut []*document.Element) map[string]bool {
	base := findBase(cut)
	cutouts := findCutouts(doc)

	if base != nil && len(cutouts) > 0 && e.Paths != nil {
		if d, ok := e.composeCutout(base, cutouts); ok {
			fmt.Fprintf(b, `<path d="%s" fill-rule="evenodd"%s/>`+"\n",
				SanitizePathData(d), transformAttr(base.Transform))
			composed := make(map[string]bool, len(cutouts)+1)
			composed[base.ID] = true
			for _, el := range cutouts {
				composed[el.ID] = true
			}
			for _, el := range cut {
				if !composed[el.ID] {
					e.writeElement(ctx, b, el)
				}
			}
			return composed
		}
		// Composition failed: fall through and export the original,
		// un-composed paths rather than aborting the export.
	}

	written := make(map[string]bool, len(cut))
	for _, el := range cut {
		e.writeElement(ctx, b, el)
		written[el.ID] = true
	}
	// Cut-out logos parked on other layers still cut as independent
	// outlines, and are claimed by the CUT group so they are not also
	// engraved.
	var absorbed map[string]bool
	for _, el := range cutouts {
		if !written[el.ID] {
			e.writeElement(ctx, b, el)
			if absorbed == nil {
				absorbed = make(map[string]bool)
			}
			absorbed[el.ID] = true
		}
	}
	return absorbed
}

func findBase(cut []*document.Element) *document.Element {
	for _, el := range cut {
		if el.System && el.Kind == document.KindShape && el.Path != nil {
			return el
		}
	}
	return nil
}

func findCutouts(doc *document.Document) []*document.Element {
	var out []*document.Element
	for i := range doc.Elements {
		el := &doc.Elements[i]
		if el.Visible && el.Kind == document.KindLogo && el.Logo != nil && el.Logo.CutOut {
			out = append(out, el)
		}
	}
	return out
}

// composeCutout unions the cut-out logos in the base element's local
// frame and subtracts them from the base path, producing one compound
// path with literal holes. Every engine handle is released through the
// arena on every exit path.
func (e *Exporter) composeCutout(base *document.Element, cutouts []*document.Element) (string, bool) {
	arena := pathops.NewArena(e.Paths)
	defer arena.Release()

	baseMatrix := composeMatrix(base.Transform)
	baseInv := baseMatrix.Invert()

	var union pathops.Handle
	have := false
	for _, logo := range cutouts {
		h, err := arena.FromSVG(logo.Logo.D)
		if err != nil {
			slog.Warn("cutout: bad logo path, skipping", "element", logo.ID, "error", err)
			continue
		}
		// Move the logo into the base element's local coordinate space.
		toBase := baseInv.Multiply(composeMatrix(logo.Transform))
		h, err = arena.Transform(h, toBase)
		if err != nil {
			slog.Warn("cutout: transform failed, skipping", "element", logo.ID, "error", err)
			continue
		}
		if !have {
			union, have = h, true
			continue
		}
		u, err := arena.Union(union, h)
		if err != nil {
			slog.Warn("cutout: union failed, skipping", "element", logo.ID, "error", err)
			continue
		}
		union = u
	}
	if !have {
		return "", false
	}

	baseHandle, err := arena.FromSVG(base.Path.D)
	if err != nil {
		slog.Warn("cutout: bad base path", "error", err)
		return "", false
	}
	diff, err := arena.Difference(baseHandle, union)
	if err != nil {
		slog.Warn("cutout: difference failed", "error", err)
		return "", false
	}
	d, err := arena.ToSVG(diff)
	if err != nil {
		slog.Warn("cutout: serialize failed", "error", err)
		return "", false
	}
	return d, true
}

// writeElement serializes one element. Faults are absorbed per element:
// a single bad path must never abort the rest of the export.
func (e *Exporter) writeElement(ctx context.Context, b *strings.Builder, el *document.Element) {
	attr := transformAttr(el.Transform)

	switch el.Kind {
	case document.KindText:
		e.writeText(ctx, b, el, attr)

	case document.KindTracedPathGroup:
		if el.Group == nil {
			return
		}
		fmt.Fprintf(b, "<g%s>\n", attr)
		for _, d := range el.Group.Paths {
			fmt.Fprintf(b, `<path d="%s"/>`+"\n", SanitizePathData(d))
		}
		b.WriteString("</g>\n")

	case document.KindEngraveImage, document.KindEngraveSketch:
		if el.Image == nil {
			return
		}
		fmt.Fprintf(b, `<image href="%s" width="%s" height="%s"%s/>`+"\n",
			el.Image.DataURL, fnum(el.Image.WidthMm), fnum(el.Image.HeightMm), attr)

	case document.KindLogo:
		if el.Logo == nil {
			return
		}
		fmt.Fprintf(b, `<path d="%s"%s/>`+"\n", SanitizePathData(el.Logo.D), attr)

	default:
		if el.Path == nil {
			return
		}
		fmt.Fprintf(b, `<path d="%s"%s/>`+"\n", SanitizePathData(el.Path.D), attr)
	}
}

// writeText outlines text through the font collaborator so the exported
// file needs no embedded fonts. Shaping failure degrades to the cached
// outline if present, then to a live <text> node.
func (e *Exporter) writeText(ctx context.Context, b *strings.Builder, el *document.Element, attr string) {
	t := el.Text
	if t == nil {
		return
	}

	if e.Fonts != nil {
		res, err := e.Fonts.TextToPath(ctx, t.FontID, t.Value, t.SizeMm, t.LetterSpacingMm)
		if err == nil && res.PathD != "" {
			// Shaped runs start at the origin; text elements anchor at
			// their center.
			inner := fmt.Sprintf(" translate(%s %s)", fnum(-res.Width/2), fnum(-res.Height/2))
			fmt.Fprintf(b, `<path d="%s" transform="%s"/>`+"\n",
				SanitizePathData(res.PathD), strings.TrimSpace(transformValue(el.Transform)+inner))
			return
		}
		if err != nil {
			slog.Warn("text outline failed, falling back", "font", t.FontID, "error", err)
		}
	}

	if t.PathD != "" {
		fmt.Fprintf(b, `<path d="%s"%s/>`+"\n", SanitizePathData(t.PathD), attr)
		return
	}

	fmt.Fprintf(b, `<text font-size="%s" text-anchor="middle" dominant-baseline="central"%s>%s</text>`+"\n",
		fnum(t.SizeMm), attr, escapeText(t.Value))
}

func escapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

func composeMatrix(t document.Transform) geom.Matrix2D {
	return geom.Compose(t.XMm, t.YMm, t.RotateDeg, t.ScaleX, t.ScaleY)
}

// transformValue renders a transform as an SVG transform list, omitting
// every identity component to keep output minimal.
func transformValue(t document.Transform) string {
	var parts []string
	if t.XMm != 0 || t.YMm != 0 {
		parts = append(parts, fmt.Sprintf("translate(%s %s)", fnum(t.XMm), fnum(t.YMm)))
	}
	if t.RotateDeg != 0 {
		parts = append(parts, fmt.Sprintf("rotate(%s)", fnum(t.RotateDeg)))
	}
	if t.ScaleX != 1 || t.ScaleY != 1 {
		parts = append(parts, fmt.Sprintf("scale(%s %s)", fnum(t.ScaleX), fnum(t.ScaleY)))
	}
	return strings.Join(parts, " ")
}

func transformAttr(t document.Transform) string {
	v := transformValue(t)
	if v == "" {
		return ""
	}
	return ` transform="` + v + `"`
}
