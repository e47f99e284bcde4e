package document

// ToolVariant identifies which design tool produced the document.
type ToolVariant string

const (
	ToolSign     ToolVariant = "sign"
	ToolCoaster  ToolVariant = "coaster"
	ToolKeychain ToolVariant = "keychain"
)

// ArtboardShape is the outline shape of the work surface.
type ArtboardShape string

const (
	ArtboardRect      ArtboardShape = "rect"
	ArtboardCircle    ArtboardShape = "circle"
	ArtboardHexagon   ArtboardShape = "hexagon"
	ArtboardOctagon   ArtboardShape = "octagon"
	ArtboardScalloped ArtboardShape = "scalloped"
	ArtboardShield    ArtboardShape = "shield"
)

// Artboard is the fixed-size laser work surface in millimeters.
// BasePath is the outline path for non-rectangular shapes, in local mm
// coordinates with the origin at the top-left of the bounding box.
// The artboard is immutable except via a full document rebuild.
type Artboard struct {
	WidthMm  float64       `json:"widthMm"`
	HeightMm float64       `json:"heightMm"`
	Shape    ArtboardShape `json:"shape"`
	BasePath string        `json:"basePath"`
}

// LayerType determines default render color and export grouping.
type LayerType string

const (
	LayerCut     LayerType = "CUT"
	LayerEngrave LayerType = "ENGRAVE"
	LayerGuide   LayerType = "GUIDE"
)

// Layer is an ordered, named container of elements. Rendering and
// hit-testing iterate layers top-to-bottom by descending Order.
type Layer struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Type    LayerType `json:"type"`
	Order   int       `json:"order"`
	Visible bool      `json:"visible"`
	Locked  bool      `json:"locked"`
	Opacity float64   `json:"opacity"`
}

// ElementKind tags the element union.
type ElementKind string

const (
	KindShape           ElementKind = "shape"
	KindBorder          ElementKind = "border"
	KindText            ElementKind = "text"
	KindOrnament        ElementKind = "ornament"
	KindBasicShape      ElementKind = "basicShape"
	KindTracedPath      ElementKind = "tracedPath"
	KindTracedPathGroup ElementKind = "tracedPathGroup"
	KindEngraveImage    ElementKind = "engraveImage"
	KindEngraveSketch   ElementKind = "engraveSketch"
	KindLogo            ElementKind = "logo"
	KindIcon            ElementKind = "icon"
)

// Transform is a 2D affine transform applied about the element's local
// origin: translation in mm, rotation in degrees, non-uniform scale.
type Transform struct {
	XMm       float64 `json:"xMm"`
	YMm       float64 `json:"yMm"`
	RotateDeg float64 `json:"rotateDeg"`
	ScaleX    float64 `json:"scaleX"`
	ScaleY    float64 `json:"scaleY"`
}

// IdentityTransform returns a transform with no effect.
func IdentityTransform() Transform {
	return Transform{ScaleX: 1, ScaleY: 1}
}

// PathPayload holds raw SVG path data in local mm coordinates.
// Used by shape, border, basicShape, ornament, icon and tracedPath kinds.
type PathPayload struct {
	D string `json:"d"`
}

// GroupPayload holds the subpaths of a tracedPathGroup.
type GroupPayload struct {
	Paths []string `json:"paths"`
}

// TextBounds is a cached shaped-glyph bounding box in local mm space.
type TextBounds struct {
	XMm      float64 `json:"xMm"`
	YMm      float64 `json:"yMm"`
	WidthMm  float64 `json:"widthMm"`
	HeightMm float64 `json:"heightMm"`
}

// TextPayload describes a text element. PathD caches the outlined glyph
// path once shaping has run; ShapedBounds caches the shaped bounds. Both
// may be empty, in which case bounds fall back to a character-count
// heuristic and export falls back to a live <text> node.
type TextPayload struct {
	Value           string      `json:"value"`
	FontID          string      `json:"fontId"`
	SizeMm          float64     `json:"sizeMm"`
	LetterSpacingMm float64     `json:"letterSpacingMm"`
	CurveRadiusMm   float64     `json:"curveRadiusMm,omitempty"`
	PathD           string      `json:"pathD,omitempty"`
	ShapedBounds    *TextBounds `json:"shapedBounds,omitempty"`
}

// ImagePayload describes a raster element (engraveImage, engraveSketch).
type ImagePayload struct {
	DataURL  string  `json:"dataUrl"`
	WidthMm  float64 `json:"widthMm"`
	HeightMm float64 `json:"heightMm"`
}

// LogoPayload describes an imported logo path. CutOut marks the logo for
// subtraction from the base CUT path at export time.
type LogoPayload struct {
	D      string `json:"d"`
	CutOut bool   `json:"cutOut"`
}

// Element is the tagged union over all element kinds. Exactly one payload
// pointer is non-nil, matching Kind. An element's on-screen bounds are
// always derivable from its local geometry plus Transform; no cached
// absolute coordinates are authoritative.
type Element struct {
	ID        string      `json:"id"`
	Kind      ElementKind `json:"kind"`
	LayerID   string      `json:"layerId"`
	Transform Transform   `json:"transform"`
	Name      string      `json:"name,omitempty"`
	Locked    bool        `json:"locked,omitempty"`
	Visible   bool        `json:"visible"`
	System    bool        `json:"system,omitempty"`

	Path  *PathPayload  `json:"path,omitempty"`
	Group *GroupPayload `json:"group,omitempty"`
	Text  *TextPayload  `json:"text,omitempty"`
	Image *ImagePayload `json:"image,omitempty"`
	Logo  *LogoPayload  `json:"logo,omitempty"`
}

// Document is the canonical in-memory design document.
type Document struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Tool     ToolVariant `json:"tool"`
	Artboard Artboard    `json:"artboard"`
	Layers   []Layer     `json:"layers"`
	Elements []Element   `json:"elements"`
}

// ElementByID returns a pointer into the document's element slice, or nil.
func (d *Document) ElementByID(id string) *Element {
	for i := range d.Elements {
		if d.Elements[i].ID == id {
			return &d.Elements[i]
		}
	}
	return nil
}

// LayerByID returns a pointer into the document's layer slice, or nil.
func (d *Document) LayerByID(id string) *Layer {
	for i := range d.Layers {
		if d.Layers[i].ID == id {
			return &d.Layers[i]
		}
	}
	return nil
}

// LayerOf resolves the layer an element belongs to, or nil.
func (d *Document) LayerOf(el *Element) *Layer {
	if el == nil {
		return nil
	}
	return d.LayerByID(el.LayerID)
}

// ElementLocked reports whether an element is immune to mutation, either
// directly or through its layer.
func (d *Document) ElementLocked(el *Element) bool {
	if el == nil {
		return false
	}
	if el.Locked {
		return true
	}
	if layer := d.LayerOf(el); layer != nil && layer.Locked {
		return true
	}
	return false
}

// Clone returns a deep copy. Snapshots in the history stack must never
// alias element payloads with the live document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		ID:       d.ID,
		Name:     d.Name,
		Tool:     d.Tool,
		Artboard: d.Artboard,
		Layers:   make([]Layer, len(d.Layers)),
		Elements: make([]Element, len(d.Elements)),
	}
	copy(out.Layers, d.Layers)
	for i := range d.Elements {
		out.Elements[i] = cloneElement(&d.Elements[i])
	}
	return out
}

func cloneElement(el *Element) Element {
	out := *el
	if el.Path != nil {
		p := *el.Path
		out.Path = &p
	}
	if el.Group != nil {
		g := GroupPayload{Paths: make([]string, len(el.Group.Paths))}
		copy(g.Paths, el.Group.Paths)
		out.Group = &g
	}
	if el.Text != nil {
		t := *el.Text
		if el.Text.ShapedBounds != nil {
			b := *el.Text.ShapedBounds
			t.ShapedBounds = &b
		}
		out.Text = &t
	}
	if el.Image != nil {
		img := *el.Image
		out.Image = &img
	}
	if el.Logo != nil {
		l := *el.Logo
		out.Logo = &l
	}
	return out
}
