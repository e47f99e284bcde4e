package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerfcraft/kerfcraft/backend-go/internal/document"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/selection"
)

func newElement(id string) document.Element {
	return document.Element{
		ID:        id,
		Kind:      document.KindShape,
		LayerID:   "cut",
		Transform: document.IdentityTransform(),
		Visible:   true,
		Path:      &document.PathPayload{D: "M 0 0 L 10 10 Z"},
	}
}

func newState() State {
	doc := &document.Document{
		Layers: []document.Layer{
			{ID: "cut", Type: document.LayerCut, Order: 0, Visible: true},
			{ID: "engrave", Type: document.LayerEngrave, Order: 1, Visible: true},
		},
	}
	return New(doc, selection.Empty())
}

func TestAddElementCheckpoints(t *testing.T) {
	s := newState()
	assert.False(t, s.CanUndo())

	el := newElement("a")
	s = Reduce(s, Action{Type: AddElement, Element: &el})

	require.Len(t, s.Present.Doc.Elements, 1)
	assert.True(t, s.CanUndo())
	assert.False(t, s.CanRedo())
}

func TestUndoRedoSymmetry(t *testing.T) {
	s := newState()
	a, b := newElement("a"), newElement("b")
	s = Reduce(s, Action{Type: AddElement, Element: &a})
	s = Reduce(s, Action{Type: AddElement, Element: &b})

	s = Reduce(s, Action{Type: Undo})
	require.Len(t, s.Present.Doc.Elements, 1)
	assert.Equal(t, "a", s.Present.Doc.Elements[0].ID)
	assert.True(t, s.CanRedo())

	s = Reduce(s, Action{Type: Redo})
	require.Len(t, s.Present.Doc.Elements, 2)
	assert.False(t, s.CanRedo())
}

func TestUndoOnEmptyPastIsNoop(t *testing.T) {
	s := newState()
	assert.Equal(t, s.Present, Reduce(s, Action{Type: Undo}).Present)
	assert.Equal(t, s.Present, Reduce(s, Action{Type: Redo}).Present)
}

func TestTransientUpdatesFoldIntoOneUndoStep(t *testing.T) {
	s := newState()
	el := newElement("a")
	s = Reduce(s, Action{Type: AddElement, Element: &el})

	// Stream several transform updates, as a live drag does, then commit.
	for i := 1; i <= 5; i++ {
		s = Reduce(s, Action{Type: UpdateTransform, Transforms: map[string]document.Transform{
			"a": {XMm: float64(i * 10), ScaleX: 1, ScaleY: 1},
		}})
	}
	s = Reduce(s, Action{Type: Commit})

	assert.InDelta(t, 50, s.Present.Doc.ElementByID("a").Transform.XMm, 1e-9)

	// One undo jumps all the way back to the pre-drag position.
	s = Reduce(s, Action{Type: Undo})
	assert.InDelta(t, 0, s.Present.Doc.ElementByID("a").Transform.XMm, 1e-9)

	// One redo restores the final position.
	s = Reduce(s, Action{Type: Redo})
	assert.InDelta(t, 50, s.Present.Doc.ElementByID("a").Transform.XMm, 1e-9)
}

func TestCommitWithoutChangesIsNoop(t *testing.T) {
	s := newState()
	el := newElement("a")
	s = Reduce(s, Action{Type: AddElement, Element: &el})
	depth := len(s.Past)

	s = Reduce(s, Action{Type: Commit})
	assert.Len(t, s.Past, depth)
}

func TestCheckpointClearsRedo(t *testing.T) {
	s := newState()
	a, b, c := newElement("a"), newElement("b"), newElement("c")
	s = Reduce(s, Action{Type: AddElement, Element: &a})
	s = Reduce(s, Action{Type: AddElement, Element: &b})
	s = Reduce(s, Action{Type: Undo})
	require.True(t, s.CanRedo())

	s = Reduce(s, Action{Type: AddElement, Element: &c})
	assert.False(t, s.CanRedo())
}

func TestUndoDepthIsCapped(t *testing.T) {
	s := newState()
	for i := 0; i < Cap+10; i++ {
		el := newElement(fmt.Sprintf("el-%d", i))
		s = Reduce(s, Action{Type: AddElement, Element: &el})
	}
	assert.Len(t, s.Past, Cap)
}

func TestRemoveElementsSkipsSystemAndLocked(t *testing.T) {
	s := newState()
	sys := newElement("base")
	sys.System = true
	locked := newElement("locked")
	locked.Locked = true
	plain := newElement("plain")
	for _, el := range []document.Element{sys, locked, plain} {
		e := el
		s = Reduce(s, Action{Type: AddElement, Element: &e})
	}

	s = Reduce(s, Action{Type: Select, ElementIDs: []string{"base", "locked", "plain"}})
	s = Reduce(s, Action{Type: RemoveElements, ElementIDs: []string{"base", "locked", "plain"}})

	assert.NotNil(t, s.Present.Doc.ElementByID("base"))
	assert.NotNil(t, s.Present.Doc.ElementByID("locked"))
	assert.Nil(t, s.Present.Doc.ElementByID("plain"))

	// The deleted id is pruned from the selection; survivors remain.
	assert.Equal(t, []string{"base", "locked"}, s.Present.Selection.SelectedIDs)
}

func TestRemoveNothingRemovableIsNoop(t *testing.T) {
	s := newState()
	sys := newElement("base")
	sys.System = true
	s = Reduce(s, Action{Type: AddElement, Element: &sys})
	depth := len(s.Past)

	s = Reduce(s, Action{Type: RemoveElements, ElementIDs: []string{"base", "ghost"}})
	assert.Len(t, s.Past, depth)
	assert.NotNil(t, s.Present.Doc.ElementByID("base"))
}

func TestUpdateTransformSkipsLocked(t *testing.T) {
	s := newState()
	locked := newElement("locked")
	locked.Locked = true
	s = Reduce(s, Action{Type: AddElement, Element: &locked})
	snap := s.Present

	s = Reduce(s, Action{Type: UpdateTransform, Transforms: map[string]document.Transform{
		"locked": {XMm: 99, ScaleX: 1, ScaleY: 1},
	}})
	assert.Equal(t, snap, s.Present)
}

func TestUpdateTransformLayerLock(t *testing.T) {
	s := newState()
	el := newElement("a")
	s = Reduce(s, Action{Type: AddElement, Element: &el})
	s.Present.Doc.Layers[0].Locked = true

	s = Reduce(s, Action{Type: UpdateTransform, Transforms: map[string]document.Transform{
		"a": {XMm: 99, ScaleX: 1, ScaleY: 1},
	}})
	assert.InDelta(t, 0, s.Present.Doc.ElementByID("a").Transform.XMm, 1e-9)
}

func TestUpdateElementReplacesByID(t *testing.T) {
	s := newState()
	el := newElement("a")
	s = Reduce(s, Action{Type: AddElement, Element: &el})

	repl := newElement("a")
	repl.Name = "renamed"
	s = Reduce(s, Action{Type: UpdateElement, Replacement: &repl})
	assert.Equal(t, "renamed", s.Present.Doc.ElementByID("a").Name)

	ghost := newElement("ghost")
	before := s.Present
	s = Reduce(s, Action{Type: UpdateElement, Replacement: &ghost})
	assert.Equal(t, before, s.Present)
}

func TestSetLayer(t *testing.T) {
	s := newState()
	el := newElement("a")
	s = Reduce(s, Action{Type: AddElement, Element: &el})

	s = Reduce(s, Action{Type: SetLayer, ElementIDs: []string{"a"}, LayerID: "engrave"})
	assert.Equal(t, "engrave", s.Present.Doc.ElementByID("a").LayerID)

	// Unknown target layer is a no-op.
	before := s.Present
	s = Reduce(s, Action{Type: SetLayer, ElementIDs: []string{"a"}, LayerID: "nope"})
	assert.Equal(t, before, s.Present)
}

func TestReorderElements(t *testing.T) {
	s := newState()
	for _, id := range []string{"a", "b", "c"} {
		el := newElement(id)
		s = Reduce(s, Action{Type: AddElement, Element: &el})
	}

	s = Reduce(s, Action{Type: ReorderElements, ElementIDs: []string{"c", "a"}})
	ids := make([]string, 0, 3)
	for i := range s.Present.Doc.Elements {
		ids = append(ids, s.Present.Doc.Elements[i].ID)
	}
	// Listed ids first in the given order, the rest keep relative order.
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestSelectionActionsAreTransient(t *testing.T) {
	s := newState()
	el := newElement("a")
	s = Reduce(s, Action{Type: AddElement, Element: &el})
	depth := len(s.Past)

	s = Reduce(s, Action{Type: Select, ElementIDs: []string{"a"}})
	assert.Equal(t, []string{"a"}, s.Present.Selection.SelectedIDs)
	assert.Len(t, s.Past, depth)

	s = Reduce(s, Action{Type: ClearSelection})
	assert.Empty(t, s.Present.Selection.SelectedIDs)
	assert.Len(t, s.Past, depth)

	s = Reduce(s, Action{Type: SetSelectionMode, Mode: selection.ModeMarquee})
	assert.Equal(t, selection.ModeMarquee, s.Present.Selection.Mode)
}

func TestSelectAllSkipsInvisible(t *testing.T) {
	s := newState()
	a, b := newElement("a"), newElement("b")
	b.Visible = false
	s = Reduce(s, Action{Type: AddElement, Element: &a})
	s = Reduce(s, Action{Type: AddElement, Element: &b})

	s = Reduce(s, Action{Type: SelectAll})
	assert.Equal(t, []string{"a"}, s.Present.Selection.SelectedIDs)
}

func TestUpdateArtboard(t *testing.T) {
	s := newState()
	s = Reduce(s, Action{Type: UpdateArtboard, Artboard: &document.Artboard{
		WidthMm: 120, HeightMm: 80, Shape: document.ArtboardRect,
	}})
	assert.Equal(t, 120.0, s.Present.Doc.Artboard.WidthMm)
	assert.True(t, s.CanUndo())
}

func TestResetDiscardsHistory(t *testing.T) {
	s := newState()
	el := newElement("a")
	s = Reduce(s, Action{Type: AddElement, Element: &el})

	fresh := &document.Document{ID: "fresh"}
	s = Reduce(s, Action{Type: Reset, Document: fresh})

	assert.Equal(t, "fresh", s.Present.Doc.ID)
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())

	// Reset with no document is ignored.
	before := s.Present
	s = Reduce(s, Action{Type: Reset})
	assert.Equal(t, before, s.Present)
}

func TestMalformedActionsDegradeToNoops(t *testing.T) {
	s := newState()
	before := s.Present

	s = Reduce(s, Action{Type: AddElement})
	s = Reduce(s, Action{Type: RemoveElements})
	s = Reduce(s, Action{Type: UpdateElement})
	s = Reduce(s, Action{Type: UpdateTransform})
	s = Reduce(s, Action{Type: UpdateArtboard})
	s = Reduce(s, Action{Type: "BOGUS"})

	assert.Equal(t, before, s.Present)
	assert.False(t, s.CanUndo())
}

func TestUndoAfterUncommittedTransient(t *testing.T) {
	s := newState()
	el := newElement("a")
	s = Reduce(s, Action{Type: AddElement, Element: &el})
	s = Reduce(s, Action{Type: UpdateTransform, Transforms: map[string]document.Transform{
		"a": {XMm: 30, ScaleX: 1, ScaleY: 1},
	}})

	// Undo without a commit abandons the transient edit entirely.
	s = Reduce(s, Action{Type: Undo})
	assert.Nil(t, s.Present.Doc.ElementByID("a"))
}
