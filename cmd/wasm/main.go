//go:build js && wasm

package main

import (
	"context"
	"syscall/js"

	"github.com/kerfcraft/kerfcraft/backend-go/internal/canvas"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/engine"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/fontshape"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/pathops"
)

var eng *engine.Engine

func main() {
	fonts := fontshape.NewService(&fontshape.BoxShaper{}, "inter-regular")
	paths := pathops.NewCompoundEngine()
	eng = engine.New(fonts, paths)

	api := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	api.Set("loadDocument", js.FuncOf(loadDocument))
	api.Set("buildDesign", js.FuncOf(buildDesign))
	api.Set("rebuildDesign", js.FuncOf(rebuildDesign))
	api.Set("pointerDown", js.FuncOf(pointerDown))
	api.Set("pointerMove", js.FuncOf(pointerMove))
	api.Set("pointerUp", js.FuncOf(pointerUp))
	api.Set("keyDown", js.FuncOf(keyDown))
	api.Set("beginResize", js.FuncOf(beginResize))
	api.Set("beginRotate", js.FuncOf(beginRotate))
	api.Set("setTool", js.FuncOf(setTool))
	api.Set("undo", js.FuncOf(undo))
	api.Set("redo", js.FuncOf(redo))
	api.Set("zoomAtPoint", js.FuncOf(zoomAtPoint))
	api.Set("fitView", js.FuncOf(fitView))
	api.Set("frame", js.FuncOf(frame))

	// --- Queries (frontend ← engine) ---
	api.Set("render", js.FuncOf(render))
	api.Set("hitTest", js.FuncOf(hitTest))
	api.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	api.Set("getDocument", js.FuncOf(getDocument))
	api.Set("getSelection", js.FuncOf(getSelection))
	api.Set("getView", js.FuncOf(getView))
	api.Set("canUndo", js.FuncOf(canUndo))
	api.Set("canRedo", js.FuncOf(canRedo))
	api.Set("exportSVG", js.FuncOf(exportSVG))

	js.Global().Set("kerfcraftEngine", api)
	js.Global().Set("kerfcraftWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func modsFrom(v js.Value) canvas.Modifiers {
	if v.Type() != js.TypeObject {
		return canvas.Modifiers{}
	}
	return canvas.Modifiers{
		Shift: v.Get("shift").Truthy(),
		Alt:   v.Get("alt").Truthy(),
		Ctrl:  v.Get("ctrl").Truthy(),
	}
}

func argMods(args []js.Value, i int) canvas.Modifiers {
	if len(args) <= i {
		return canvas.Modifiers{}
	}
	return modsFrom(args[i])
}

// --- Command handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing document JSON"})
	}
	if err := eng.LoadDocument(args[0].String()); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func buildDesign(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing params JSON"})
	}
	if err := eng.BuildDesign(args[0].String()); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func rebuildDesign(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing params JSON"})
	}
	if err := eng.RebuildDesign(args[0].String()); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.PointerDown(args[0].Float(), args[1].Float(), argMods(args, 2))
	return nil
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.PointerMove(args[0].Float(), args[1].Float(), argMods(args, 2))
	return nil
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.PointerUp(args[0].Float(), args[1].Float(), argMods(args, 2))
	return nil
}

func keyDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	handled := eng.KeyDown(args[0].String(), argMods(args, 1))
	return js.ValueOf(handled)
}

func beginResize(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return nil
	}
	eng.BeginResize(args[0].String(), args[1].Float(), args[2].Float(), argMods(args, 3))
	return nil
}

func beginRotate(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.BeginRotate(args[0].Float(), args[1].Float(), argMods(args, 2))
	return nil
}

func setTool(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.SetTool(args[0].String())
	return nil
}

func undo(this js.Value, args []js.Value) interface{} {
	eng.Undo()
	return nil
}

func redo(this js.Value, args []js.Value) interface{} {
	eng.Redo()
	return nil
}

func zoomAtPoint(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return nil
	}
	eng.ZoomAtPoint(args[0].Float(), args[1].Float(), args[2].Float())
	return nil
}

func fitView(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	padding := 40.0
	if len(args) > 2 {
		padding = args[2].Float()
	}
	eng.FitView(args[0].Float(), args[1].Float(), padding)
	return nil
}

// frame advances one animation frame and returns the draw commands.
func frame(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Frame())
}

// --- Query handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.RenderJSON())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	return js.ValueOf(eng.HitTest(args[0].Float(), args[1].Float()))
}

func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.SelectionBounds())
}

func getDocument(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetDocument())
}

func getSelection(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetSelection())
}

func getView(this js.Value, args []js.Value) interface{} {
	v := eng.View()
	return js.ValueOf(map[string]interface{}{
		"panX": v.PanX,
		"panY": v.PanY,
		"zoom": v.Zoom,
	})
}

func canUndo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.CanUndo())
}

func canRedo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.CanRedo())
}

func exportSVG(this js.Value, args []js.Value) interface{} {
	svg, err := eng.ExportSVG(context.Background())
	if err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(svg)
}
