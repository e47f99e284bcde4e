package document

import (
	"github.com/kerfcraft/kerfcraft/backend-go/internal/typeid"
)

// TextLine is one line of user-facing text in the tool parameters.
type TextLine struct {
	Value           string  `json:"value"`
	FontID          string  `json:"fontId"`
	SizeMm          float64 `json:"sizeMm"`
	LetterSpacingMm float64 `json:"letterSpacingMm"`
	Curved          bool    `json:"curved"`
}

// BorderOptions describe the optional engraved border ring.
type BorderOptions struct {
	InsetMm float64 `json:"insetMm"`
}

// Params are the user-facing parameters a tool variant exposes. Any change
// to them triggers a full document rebuild.
type Params struct {
	Tool           ToolVariant    `json:"tool"`
	Name           string         `json:"name"`
	Shape          ArtboardShape  `json:"shape"`
	WidthMm        float64        `json:"widthMm"`
	HeightMm       float64        `json:"heightMm"`
	TextLines      []TextLine     `json:"textLines"`
	Border         *BorderOptions `json:"border,omitempty"`
	HoleDiameterMm float64        `json:"holeDiameterMm,omitempty"` // keychain only
}

// Build constructs a fresh document from tool parameters. Every element it
// creates is system-tagged: parameter rebuilds discard and regenerate them.
func Build(p Params) *Document {
	w, h := p.WidthMm, p.HeightMm
	if w <= 0 {
		w = 100
	}
	if h <= 0 {
		h = w
	}
	shape := p.Shape
	if shape == "" {
		shape = ArtboardRect
	}

	doc := &Document{
		ID:   typeid.NewDesignID(),
		Name: p.Name,
		Tool: p.Tool,
		Artboard: Artboard{
			WidthMm:  w,
			HeightMm: h,
			Shape:    shape,
			BasePath: BasePath(shape, w, h),
		},
		Layers: []Layer{
			{ID: typeid.NewLayerID(), Name: "Cut", Type: LayerCut, Order: 0, Visible: true, Opacity: 1},
			{ID: typeid.NewLayerID(), Name: "Engrave", Type: LayerEngrave, Order: 1, Visible: true, Opacity: 1},
			{ID: typeid.NewLayerID(), Name: "Guides", Type: LayerGuide, Order: 2, Visible: true, Opacity: 0.5},
		},
	}

	cutLayer := doc.Layers[0].ID
	engraveLayer := doc.Layers[1].ID

	// Base outline: the cut boundary of the piece.
	doc.Elements = append(doc.Elements, Element{
		ID:        typeid.NewElementID(),
		Kind:      KindShape,
		LayerID:   cutLayer,
		Transform: IdentityTransform(),
		Name:      "Base",
		Visible:   true,
		System:    true,
		Path:      &PathPayload{D: doc.Artboard.BasePath},
	})

	if p.Tool == ToolKeychain && p.HoleDiameterMm > 0 {
		d := p.HoleDiameterMm
		doc.Elements = append(doc.Elements, Element{
			ID:      typeid.NewElementID(),
			Kind:    KindBasicShape,
			LayerID: cutLayer,
			Transform: Transform{
				XMm: w/2 - d/2, YMm: d / 2, ScaleX: 1, ScaleY: 1,
			},
			Name:    "Hole",
			Visible: true,
			System:  true,
			Path:    &PathPayload{D: HolePath(d)},
		})
	}

	if p.Border != nil && p.Border.InsetMm > 0 {
		if d := InsetPath(shape, w, h, p.Border.InsetMm); d != "" {
			doc.Elements = append(doc.Elements, Element{
				ID:        typeid.NewElementID(),
				Kind:      KindBorder,
				LayerID:   engraveLayer,
				Transform: IdentityTransform(),
				Name:      "Border",
				Visible:   true,
				System:    true,
				Path:      &PathPayload{D: d},
			})
		}
	}

	// Text lines stack vertically around the artboard center.
	lineGap := 4.0
	totalH := 0.0
	for _, line := range p.TextLines {
		totalH += line.SizeMm + lineGap
	}
	y := h/2 - totalH/2
	for _, line := range p.TextLines {
		size := line.SizeMm
		if size <= 0 {
			size = 10
		}
		el := Element{
			ID:      typeid.NewElementID(),
			Kind:    KindText,
			LayerID: engraveLayer,
			Transform: Transform{
				XMm: w / 2, YMm: y + size/2, ScaleX: 1, ScaleY: 1,
			},
			Name:    line.Value,
			Visible: true,
			System:  true,
			Text: &TextPayload{
				Value:           line.Value,
				FontID:          line.FontID,
				SizeMm:          size,
				LetterSpacingMm: line.LetterSpacingMm,
			},
		}
		if line.Curved {
			el.Text.CurveRadiusMm = w / 2 * 0.7
		}
		doc.Elements = append(doc.Elements, el)
		y += size + lineGap
	}

	return doc
}

// Rebuild regenerates all system-tagged elements from new parameters while
// splicing back every user-placed (non-system) element, keeping its id,
// layer assignment and transform. Interaction and export both depend on
// this preservation: a diameter change must not lose an imported logo.
func Rebuild(old *Document, p Params) *Document {
	doc := Build(p)
	if old == nil {
		return doc
	}
	doc.ID = old.ID
	if p.Name == "" {
		doc.Name = old.Name
	}

	// Map old layer ids to new ones by layer type so preserved elements
	// land on the matching layer of the rebuilt document.
	layerByType := make(map[LayerType]string, len(doc.Layers))
	for _, l := range doc.Layers {
		layerByType[l.Type] = l.ID
	}
	oldLayerType := make(map[string]LayerType, len(old.Layers))
	for _, l := range old.Layers {
		oldLayerType[l.ID] = l.Type
	}

	for i := range old.Elements {
		el := &old.Elements[i]
		if el.System {
			continue
		}
		kept := cloneElement(el)
		if t, ok := oldLayerType[el.LayerID]; ok {
			if newID, ok := layerByType[t]; ok {
				kept.LayerID = newID
			}
		}
		doc.Elements = append(doc.Elements, kept)
	}
	return doc
}
