package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerfcraft/kerfcraft/backend-go/internal/document"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/geom"
)

func testDoc() *document.Document {
	return &document.Document{
		Layers: []document.Layer{
			{ID: "cut", Type: document.LayerCut, Order: 0, Visible: true},
			{ID: "engrave", Type: document.LayerEngrave, Order: 1, Visible: true},
		},
		Elements: []document.Element{
			{
				ID: "bottom", Kind: document.KindShape, LayerID: "cut", Visible: true,
				Transform: document.IdentityTransform(),
				Path:      &document.PathPayload{D: "M 0 0 L 100 100 Z"},
			},
			{
				ID: "top", Kind: document.KindShape, LayerID: "engrave", Visible: true,
				Transform: document.IdentityTransform(),
				Path:      &document.PathPayload{D: "M 40 40 L 60 60 Z"},
			},
		},
	}
}

func TestToggleAddsAndRemoves(t *testing.T) {
	s := Empty().Toggle("a")
	assert.Equal(t, []string{"a"}, s.SelectedIDs)
	assert.Equal(t, "a", s.ActiveID)

	s = s.Toggle("b")
	assert.Equal(t, []string{"a", "b"}, s.SelectedIDs)
	assert.Equal(t, "b", s.ActiveID)

	// Removing the active id promotes the last remaining.
	s = s.Toggle("b")
	assert.Equal(t, []string{"a"}, s.SelectedIDs)
	assert.Equal(t, "a", s.ActiveID)

	s = s.Toggle("a")
	assert.Empty(t, s.SelectedIDs)
	assert.Empty(t, s.ActiveID)
}

func TestSelectReplaces(t *testing.T) {
	s := Empty().SelectMany([]string{"a", "b"})
	assert.Equal(t, "b", s.ActiveID)

	s = s.Select("c")
	assert.Equal(t, []string{"c"}, s.SelectedIDs)
	assert.Equal(t, "c", s.ActiveID)
}

func TestAddIsIdempotent(t *testing.T) {
	s := Empty().Add("a").Add("b").Add("a")
	assert.Equal(t, []string{"a", "b"}, s.SelectedIDs)
}

func TestCloneSharesNoStorage(t *testing.T) {
	s := Empty().SelectMany([]string{"a", "b"})
	c := s.Clone()
	c.SelectedIDs[0] = "mutated"
	assert.Equal(t, "a", s.SelectedIDs[0])
}

func TestClearPreservesMode(t *testing.T) {
	s := Empty().Select("a").WithMode(ModeDragging).Clear()
	assert.Empty(t, s.SelectedIDs)
	assert.Equal(t, ModeDragging, s.Mode)
}

func TestHitTestTopmostWins(t *testing.T) {
	doc := testDoc()

	// Point inside both elements; the engrave layer sits above cut.
	hit, ok := HitTest(geom.Point{X: 50, Y: 50}, doc, 0)
	require.True(t, ok)
	assert.Equal(t, "top", hit.ElementID)
	assert.Equal(t, "engrave", hit.LayerID)

	// Outside the top element but inside the bottom one.
	hit, ok = HitTest(geom.Point{X: 10, Y: 10}, doc, 0)
	require.True(t, ok)
	assert.Equal(t, "bottom", hit.ElementID)
}

func TestHitTestSkipsInvisibleLayer(t *testing.T) {
	doc := testDoc()
	doc.Layers[1].Visible = false

	hit, ok := HitTest(geom.Point{X: 50, Y: 50}, doc, 0)
	require.True(t, ok)
	assert.Equal(t, "bottom", hit.ElementID)
}

func TestHitTestSkipsInvisibleElement(t *testing.T) {
	doc := testDoc()
	doc.Elements[1].Visible = false

	hit, ok := HitTest(geom.Point{X: 50, Y: 50}, doc, 0)
	require.True(t, ok)
	assert.Equal(t, "bottom", hit.ElementID)
}

func TestHitTestTolerance(t *testing.T) {
	doc := testDoc()

	_, ok := HitTest(geom.Point{X: 102, Y: 50}, doc, 0)
	assert.False(t, ok)

	hit, ok := HitTest(geom.Point{X: 102, Y: 50}, doc, 3)
	require.True(t, ok)
	assert.Equal(t, "bottom", hit.ElementID)
}

func TestHitTestMiss(t *testing.T) {
	_, ok := HitTest(geom.Point{X: 500, Y: 500}, testDoc(), 0)
	assert.False(t, ok)

	_, ok = HitTest(geom.Point{}, nil, 0)
	assert.False(t, ok)
}

func TestInRectOverlapSuffices(t *testing.T) {
	doc := &document.Document{
		Layers: []document.Layer{{ID: "cut", Order: 0, Visible: true}},
		Elements: []document.Element{{
			ID: "el", Kind: document.KindShape, LayerID: "cut", Visible: true,
			Transform: document.Transform{XMm: 40, YMm: 40, ScaleX: 1, ScaleY: 1},
			Path:      &document.PathPayload{D: "M 0 0 L 30 30 Z"},
		}},
	}

	// Marquee covers only part of the element; overlap is enough.
	ids := InRect(geom.Rect{X: 50, Y: 50, Width: 10, Height: 10}, doc)
	assert.Equal(t, []string{"el"}, ids)

	ids = InRect(geom.Rect{X: 200, Y: 200, Width: 10, Height: 10}, doc)
	assert.Empty(t, ids)
}

func TestInRectSkipsInvisible(t *testing.T) {
	doc := testDoc()
	doc.Layers[0].Visible = false

	ids := InRect(geom.Rect{X: 0, Y: 0, Width: 100, Height: 100}, doc)
	assert.Equal(t, []string{"top"}, ids)
}

func TestBoundsSkipsStaleIDs(t *testing.T) {
	doc := testDoc()

	r, ok := Bounds([]string{"bottom", "deleted-long-ago"}, doc)
	require.True(t, ok)
	assert.Equal(t, geom.Rect{X: 0, Y: 0, Width: 100, Height: 100}, r)

	_, ok = Bounds([]string{"deleted-long-ago"}, doc)
	assert.False(t, ok)
}
