// Package history is the command-style reducer over the versioned design
// document. Checkpointed actions create undo boundaries; transient actions
// fold into the present snapshot so a live drag can stream fine-grained
// updates and become a single undo step when COMMIT lands.
package history

import (
	"time"

	"github.com/kerfcraft/kerfcraft/backend-go/internal/document"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/selection"
)

// Cap on undo depth. Oldest entries are dropped silently; very long
// sessions lose early undo history.
const Cap = 50

// ActionType enumerates the closed action set.
type ActionType string

const (
	AddElement       ActionType = "ADD_ELEMENT"
	RemoveElements   ActionType = "REMOVE_ELEMENTS"
	UpdateElement    ActionType = "UPDATE_ELEMENT"
	UpdateTransform  ActionType = "UPDATE_TRANSFORM"
	SetLayer         ActionType = "SET_LAYER"
	ReorderElements  ActionType = "REORDER_ELEMENTS"
	Select           ActionType = "SELECT"
	SelectAll        ActionType = "SELECT_ALL"
	ClearSelection   ActionType = "CLEAR_SELECTION"
	SetSelectionMode ActionType = "SET_SELECTION_MODE"
	UpdateArtboard   ActionType = "UPDATE_ARTBOARD"
	Undo             ActionType = "UNDO"
	Redo             ActionType = "REDO"
	Commit           ActionType = "COMMIT"
	Reset            ActionType = "RESET"
)

// Action carries one dispatch. Only the fields relevant to Type are read.
type Action struct {
	Type        ActionType
	Element     *document.Element               // AddElement
	Replacement *document.Element               // UpdateElement (matched by ID)
	ElementIDs  []string                        // RemoveElements, ReorderElements, SetLayer, Select
	Transforms  map[string]document.Transform   // UpdateTransform (batched)
	LayerID     string                          // SetLayer
	Artboard    *document.Artboard              // UpdateArtboard
	Selection   *selection.State                // Select override, Reset
	Mode        selection.Mode                  // SetSelectionMode
	Document    *document.Document              // Reset
	At          time.Time
}

// Snapshot is one undoable point-in-time of the editor.
type Snapshot struct {
	Doc       *document.Document
	Selection selection.State
	At        time.Time
}

// State is the bounded past/present/future stack. committed tracks the
// snapshot as of the last undo boundary so transient updates between
// boundaries fold into a single step.
type State struct {
	Past    []Snapshot
	Present Snapshot
	Future  []Snapshot

	committed Snapshot
	dirty     bool
}

// New builds a single-snapshot history around a document.
func New(doc *document.Document, sel selection.State) State {
	snap := Snapshot{Doc: doc, Selection: sel, At: time.Now()}
	return State{Present: snap, committed: snap}
}

// CanUndo reports whether an undo step exists.
func (s State) CanUndo() bool { return len(s.Past) > 0 }

// CanRedo reports whether a redo step exists.
func (s State) CanRedo() bool { return len(s.Future) > 0 }

// Reduce applies one action and returns the new state. It never panics
// across this boundary: malformed actions (nil payloads, stale ids)
// degrade to a no-op or skip-and-continue so a single bad dispatch cannot
// corrupt the committed document.
func Reduce(s State, a Action) State {
	switch a.Type {
	case AddElement:
		if a.Element == nil {
			return s
		}
		doc := s.Present.Doc.Clone()
		doc.Elements = append(doc.Elements, *a.Element)
		return checkpoint(s, Snapshot{Doc: doc, Selection: s.Present.Selection.Clone(), At: at(a)})

	case RemoveElements:
		if len(a.ElementIDs) == 0 {
			return s
		}
		doc := s.Present.Doc.Clone()
		removed := removeElements(doc, a.ElementIDs)
		if !removed {
			return s
		}
		sel := pruneSelection(s.Present.Selection, doc)
		return checkpoint(s, Snapshot{Doc: doc, Selection: sel, At: at(a)})

	case UpdateElement:
		if a.Replacement == nil {
			return s
		}
		doc := s.Present.Doc.Clone()
		el := doc.ElementByID(a.Replacement.ID)
		if el == nil {
			return s
		}
		*el = *a.Replacement
		return transientDoc(s, doc, at(a))

	case UpdateTransform:
		if len(a.Transforms) == 0 {
			return s
		}
		doc := s.Present.Doc.Clone()
		changed := false
		for id, t := range a.Transforms {
			el := doc.ElementByID(id)
			if el == nil || doc.ElementLocked(el) {
				continue
			}
			el.Transform = t
			changed = true
		}
		if !changed {
			return s
		}
		return transientDoc(s, doc, at(a))

	case SetLayer:
		if len(a.ElementIDs) == 0 || a.LayerID == "" {
			return s
		}
		doc := s.Present.Doc.Clone()
		if doc.LayerByID(a.LayerID) == nil {
			return s
		}
		changed := false
		for _, id := range a.ElementIDs {
			if el := doc.ElementByID(id); el != nil && !doc.ElementLocked(el) {
				el.LayerID = a.LayerID
				changed = true
			}
		}
		if !changed {
			return s
		}
		return checkpoint(s, Snapshot{Doc: doc, Selection: s.Present.Selection.Clone(), At: at(a)})

	case ReorderElements:
		if len(a.ElementIDs) == 0 {
			return s
		}
		doc := s.Present.Doc.Clone()
		reorderElements(doc, a.ElementIDs)
		return checkpoint(s, Snapshot{Doc: doc, Selection: s.Present.Selection.Clone(), At: at(a)})

	case UpdateArtboard:
		if a.Artboard == nil {
			return s
		}
		doc := s.Present.Doc.Clone()
		doc.Artboard = *a.Artboard
		return checkpoint(s, Snapshot{Doc: doc, Selection: s.Present.Selection.Clone(), At: at(a)})

	case Select:
		sel := s.Present.Selection
		if a.Selection != nil {
			sel = a.Selection.Clone()
		} else {
			sel = sel.SelectMany(a.ElementIDs)
		}
		return transientSelection(s, sel)

	case SelectAll:
		var ids []string
		for i := range s.Present.Doc.Elements {
			if s.Present.Doc.Elements[i].Visible {
				ids = append(ids, s.Present.Doc.Elements[i].ID)
			}
		}
		return transientSelection(s, s.Present.Selection.SelectMany(ids))

	case ClearSelection:
		return transientSelection(s, s.Present.Selection.Clear())

	case SetSelectionMode:
		return transientSelection(s, s.Present.Selection.WithMode(a.Mode))

	case Undo:
		if len(s.Past) == 0 {
			return s
		}
		out := s
		last := len(s.Past) - 1
		out.Future = append([]Snapshot{s.Present}, s.Future...)
		out.Present = s.Past[last]
		out.Past = append([]Snapshot(nil), s.Past[:last]...)
		out.committed = out.Present
		out.dirty = false
		return out

	case Redo:
		if len(s.Future) == 0 {
			return s
		}
		out := s
		out.Past = appendCapped(s.Past, s.Present)
		out.Present = s.Future[0]
		out.Future = append([]Snapshot(nil), s.Future[1:]...)
		out.committed = out.Present
		out.dirty = false
		return out

	case Commit:
		if !s.dirty {
			return s
		}
		out := s
		out.Past = appendCapped(s.Past, s.committed)
		out.Future = nil
		out.committed = s.Present
		out.dirty = false
		return out

	case Reset:
		if a.Document == nil {
			return s
		}
		sel := selection.Empty()
		if a.Selection != nil {
			sel = a.Selection.Clone()
		}
		return New(a.Document, sel)

	default:
		return s
	}
}

func at(a Action) time.Time {
	if a.At.IsZero() {
		return time.Now()
	}
	return a.At
}

// checkpoint pushes the pre-action present onto past (capped), installs
// the new snapshot, and clears future: no redo after a branch.
func checkpoint(s State, snap Snapshot) State {
	out := s
	out.Past = appendCapped(s.Past, s.Present)
	out.Present = snap
	out.Future = nil
	out.committed = snap
	out.dirty = false
	return out
}

// transientDoc replaces present in place without touching past or future.
func transientDoc(s State, doc *document.Document, t time.Time) State {
	out := s
	out.Present = Snapshot{Doc: doc, Selection: s.Present.Selection, At: t}
	out.dirty = true
	return out
}

func transientSelection(s State, sel selection.State) State {
	out := s
	out.Present = Snapshot{Doc: s.Present.Doc, Selection: sel, At: s.Present.At}
	return out
}

func appendCapped(past []Snapshot, snap Snapshot) []Snapshot {
	out := append(append([]Snapshot(nil), past...), snap)
	if len(out) > Cap {
		out = out[len(out)-Cap:]
	}
	return out
}

// removeElements deletes the given ids, skipping system-tagged and locked
// elements. Returns whether anything was removed.
func removeElements(doc *document.Document, ids []string) bool {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		el := doc.ElementByID(id)
		if el == nil || el.System || doc.ElementLocked(el) {
			continue
		}
		drop[id] = true
	}
	if len(drop) == 0 {
		return false
	}
	kept := doc.Elements[:0]
	for _, el := range doc.Elements {
		if !drop[el.ID] {
			kept = append(kept, el)
		}
	}
	doc.Elements = kept
	return true
}

// reorderElements applies a new id order; ids not listed keep their
// relative order after the listed ones.
func reorderElements(doc *document.Document, order []string) {
	index := make(map[string]int, len(order))
	for i, id := range order {
		index[id] = i
	}
	listed := make([]document.Element, 0, len(order))
	var rest []document.Element
	for _, id := range order {
		if el := doc.ElementByID(id); el != nil {
			listed = append(listed, *el)
		}
	}
	for _, el := range doc.Elements {
		if _, ok := index[el.ID]; !ok {
			rest = append(rest, el)
		}
	}
	doc.Elements = append(listed, rest...)
}

func pruneSelection(sel selection.State, doc *document.Document) selection.State {
	out := selection.State{Mode: sel.Mode}
	for _, id := range sel.SelectedIDs {
		if doc.ElementByID(id) != nil {
			out.SelectedIDs = append(out.SelectedIDs, id)
		}
	}
	if sel.ActiveID != "" && doc.ElementByID(sel.ActiveID) != nil {
		out.ActiveID = sel.ActiveID
	} else if len(out.SelectedIDs) > 0 {
		out.ActiveID = out.SelectedIDs[len(out.SelectedIDs)-1]
	}
	return out
}
