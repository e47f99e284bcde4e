package canvas

import (
	"github.com/kerfcraft/kerfcraft/backend-go/internal/document"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/history"
)

// Key names follow the DOM KeyboardEvent.key convention the frontend
// forwards.
const (
	KeyArrowUp    = "ArrowUp"
	KeyArrowDown  = "ArrowDown"
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeyDelete     = "Delete"
	KeyBackspace  = "Backspace"
	KeyEscape     = "Escape"
	KeyA          = "a"
)

// KeyDown routes a keyboard event. Returns whether the key was handled.
func (c *Controller) KeyDown(key string, mods Modifiers) bool {
	switch key {
	case KeyArrowUp:
		c.Nudge(0, -1, mods)
	case KeyArrowDown:
		c.Nudge(0, 1, mods)
	case KeyArrowLeft:
		c.Nudge(-1, 0, mods)
	case KeyArrowRight:
		c.Nudge(1, 0, mods)
	case KeyDelete, KeyBackspace:
		c.DeleteSelection()
	case KeyEscape:
		if c.state != stateNone || c.marqueeActive {
			c.Cancel()
		} else {
			c.dispatch(history.Action{Type: history.ClearSelection})
		}
	case KeyA:
		if !mods.Ctrl {
			return false
		}
		c.dispatch(history.Action{Type: history.SelectAll})
	default:
		return false
	}
	return true
}

// Nudge moves the selection by whole steps of the nudge distance: 1mm,
// 0.1mm with the fine modifier (Alt), 5mm with the coarse modifier
// (Shift). Locked elements are skipped; each nudge is one undo step.
func (c *Controller) Nudge(stepX, stepY float64, mods Modifiers) {
	amount := NudgeMm
	if mods.Alt {
		amount = NudgeFineMm
	} else if mods.Shift {
		amount = NudgeCoarseMm
	}

	snap := c.present()
	transforms := make(map[string]document.Transform)
	skipped := false
	for _, id := range snap.Selection.SelectedIDs {
		el := snap.Doc.ElementByID(id)
		if el == nil {
			continue
		}
		if snap.Doc.ElementLocked(el) {
			skipped = true
			continue
		}
		t := el.Transform
		t.XMm += stepX * amount
		t.YMm += stepY * amount
		transforms[id] = t
	}
	if len(transforms) == 0 {
		if skipped {
			c.warn("locked elements were not moved")
		}
		return
	}
	c.dispatch(history.Action{Type: history.UpdateTransform, Transforms: transforms})
	c.dispatch(history.Action{Type: history.Commit})
	if skipped {
		c.warn("locked elements were not moved")
	}
}

// DeleteSelection removes selected elements that are not system-tagged.
// System elements are regenerated by parameter rebuilds and cannot be
// deleted directly.
func (c *Controller) DeleteSelection() {
	snap := c.present()
	var ids []string
	for _, id := range snap.Selection.SelectedIDs {
		el := snap.Doc.ElementByID(id)
		if el == nil || el.System || snap.Doc.ElementLocked(el) {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return
	}
	c.dispatch(history.Action{Type: history.RemoveElements, ElementIDs: ids})
}
