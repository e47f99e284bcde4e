package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDefaults(t *testing.T) {
	doc := Build(Params{Tool: ToolCoaster, Name: "Round one"})

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "Round one", doc.Name)
	assert.Equal(t, 100.0, doc.Artboard.WidthMm)
	assert.Equal(t, 100.0, doc.Artboard.HeightMm)
	assert.Equal(t, ArtboardRect, doc.Artboard.Shape)
	assert.NotEmpty(t, doc.Artboard.BasePath)
}

func TestBuildLayerStack(t *testing.T) {
	doc := Build(Params{Tool: ToolSign, WidthMm: 200, HeightMm: 100})

	require.Len(t, doc.Layers, 3)
	assert.Equal(t, LayerCut, doc.Layers[0].Type)
	assert.Equal(t, LayerEngrave, doc.Layers[1].Type)
	assert.Equal(t, LayerGuide, doc.Layers[2].Type)
	for i, l := range doc.Layers {
		assert.Equal(t, i, l.Order)
		assert.True(t, l.Visible)
		assert.NotEmpty(t, l.ID)
	}
}

func TestBuildBaseOutline(t *testing.T) {
	doc := Build(Params{Tool: ToolSign, WidthMm: 120, HeightMm: 80})

	require.NotEmpty(t, doc.Elements)
	base := &doc.Elements[0]
	assert.Equal(t, KindShape, base.Kind)
	assert.True(t, base.System)
	assert.Equal(t, doc.Layers[0].ID, base.LayerID)
	assert.Equal(t, doc.Artboard.BasePath, base.Path.D)
}

func TestBuildKeychainHole(t *testing.T) {
	doc := Build(Params{Tool: ToolKeychain, WidthMm: 60, HeightMm: 30, HoleDiameterMm: 4})

	var hole *Element
	for i := range doc.Elements {
		if doc.Elements[i].Name == "Hole" {
			hole = &doc.Elements[i]
		}
	}
	require.NotNil(t, hole)
	assert.Equal(t, KindBasicShape, hole.Kind)
	assert.True(t, hole.System)
	// Horizontally centered near the top edge.
	assert.InDelta(t, 28, hole.Transform.XMm, 1e-9)
	assert.InDelta(t, 2, hole.Transform.YMm, 1e-9)

	// No hole without a diameter, and none for other tools.
	assert.Len(t, Build(Params{Tool: ToolKeychain, WidthMm: 60}).Elements, 1)
	assert.Len(t, Build(Params{Tool: ToolSign, HoleDiameterMm: 4}).Elements, 1)
}

func TestBuildBorder(t *testing.T) {
	doc := Build(Params{
		Tool: ToolSign, WidthMm: 100, HeightMm: 50,
		Border: &BorderOptions{InsetMm: 5},
	})

	var border *Element
	for i := range doc.Elements {
		if doc.Elements[i].Kind == KindBorder {
			border = &doc.Elements[i]
		}
	}
	require.NotNil(t, border)
	assert.True(t, border.System)
	assert.Equal(t, doc.Layers[1].ID, border.LayerID)
	assert.NotEmpty(t, border.Path.D)
}

func TestBuildTextLinesStackAroundCenter(t *testing.T) {
	doc := Build(Params{
		Tool: ToolSign, WidthMm: 100, HeightMm: 60,
		TextLines: []TextLine{
			{Value: "Hello", FontID: "font_inter", SizeMm: 10},
			{Value: "World", FontID: "font_inter", SizeMm: 10},
		},
	})

	var lines []*Element
	for i := range doc.Elements {
		if doc.Elements[i].Kind == KindText {
			lines = append(lines, &doc.Elements[i])
		}
	}
	require.Len(t, lines, 2)

	// Both centered horizontally, stacked with the configured gap.
	assert.InDelta(t, 50, lines[0].Transform.XMm, 1e-9)
	assert.InDelta(t, 50, lines[1].Transform.XMm, 1e-9)
	assert.InDelta(t, 14, lines[1].Transform.YMm-lines[0].Transform.YMm, 1e-9)

	// The block sits around the artboard center, offset by the trailing
	// line gap the stacker counts after the last line.
	mid := (lines[0].Transform.YMm + lines[1].Transform.YMm) / 2
	assert.InDelta(t, 28, mid, 1e-9)

	assert.Equal(t, "Hello", lines[0].Text.Value)
	assert.True(t, lines[0].System)
}

func TestBuildCurvedTextRadius(t *testing.T) {
	doc := Build(Params{
		Tool: ToolCoaster, WidthMm: 90, HeightMm: 90, Shape: ArtboardCircle,
		TextLines: []TextLine{{Value: "Cheers", SizeMm: 8, Curved: true}},
	})

	var txt *Element
	for i := range doc.Elements {
		if doc.Elements[i].Kind == KindText {
			txt = &doc.Elements[i]
		}
	}
	require.NotNil(t, txt)
	assert.InDelta(t, 31.5, txt.Text.CurveRadiusMm, 1e-9)
}

func TestRebuildPreservesUserElements(t *testing.T) {
	old := Build(Params{Tool: ToolKeychain, WidthMm: 60, HeightMm: 30, HoleDiameterMm: 4})

	logo := Element{
		ID:        "el_userlogo",
		Kind:      KindLogo,
		LayerID:   old.Layers[0].ID,
		Transform: Transform{XMm: 12, YMm: 8, RotateDeg: 30, ScaleX: 1.5, ScaleY: 1.5},
		Visible:   true,
		Logo:      &LogoPayload{D: "M 0 0 L 10 10 Z", CutOut: true},
	}
	old.Elements = append(old.Elements, logo)

	doc := Rebuild(old, Params{Tool: ToolKeychain, WidthMm: 80, HeightMm: 40, HoleDiameterMm: 6})

	assert.Equal(t, old.ID, doc.ID)

	kept := doc.ElementByID("el_userlogo")
	require.NotNil(t, kept)
	assert.Equal(t, logo.Transform, kept.Transform)
	assert.True(t, kept.Logo.CutOut)
	// Remapped onto the rebuilt cut layer, which has a fresh id.
	assert.Equal(t, doc.Layers[0].ID, kept.LayerID)
	assert.NotEqual(t, old.Layers[0].ID, kept.LayerID)

	// Payloads must not alias the old document.
	kept.Logo.D = "mutated"
	assert.Equal(t, "M 0 0 L 10 10 Z", old.ElementByID("el_userlogo").Logo.D)
}

func TestRebuildRegeneratesSystemElements(t *testing.T) {
	old := Build(Params{Tool: ToolSign, WidthMm: 100, HeightMm: 50})
	oldBaseID := old.Elements[0].ID

	doc := Rebuild(old, Params{Tool: ToolSign, WidthMm: 200, HeightMm: 100})

	require.NotEmpty(t, doc.Elements)
	assert.NotEqual(t, oldBaseID, doc.Elements[0].ID)
	assert.Equal(t, 200.0, doc.Artboard.WidthMm)
	// No stale system elements survive the rebuild.
	for i := range doc.Elements {
		assert.NotEqual(t, oldBaseID, doc.Elements[i].ID)
	}
}

func TestRebuildKeepsNameWhenParamsOmitIt(t *testing.T) {
	old := Build(Params{Tool: ToolSign, Name: "My sign", WidthMm: 100, HeightMm: 50})

	doc := Rebuild(old, Params{Tool: ToolSign, WidthMm: 100, HeightMm: 50})
	assert.Equal(t, "My sign", doc.Name)

	doc = Rebuild(old, Params{Tool: ToolSign, Name: "Renamed", WidthMm: 100, HeightMm: 50})
	assert.Equal(t, "Renamed", doc.Name)

	assert.NotNil(t, Rebuild(nil, Params{Tool: ToolSign}))
}

func TestBasePathShapes(t *testing.T) {
	for _, shape := range []ArtboardShape{
		ArtboardRect, ArtboardCircle, ArtboardHexagon,
		ArtboardOctagon, ArtboardScalloped, ArtboardShield,
	} {
		d := BasePath(shape, 100, 60)
		assert.NotEmpty(t, d, "shape %s", shape)
		assert.True(t, strings.HasPrefix(d, "M"), "shape %s", shape)
	}
}
