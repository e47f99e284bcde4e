package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kerfcraft/kerfcraft/backend-go/internal/canvas"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/engine"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/history"
)

// Room hosts the authoritative engine for one design document. All input
// from every participant funnels through the room mutex, so the engine
// itself never sees concurrent calls. Clients are thin views: they send
// input events and receive rendered frames.
type Room struct {
	designID string

	mu       sync.Mutex
	eng      *engine.Engine
	clients  map[string]*Client // clientID -> client
	presence map[string]*PresencePayload
	dirty    bool
}

func newRoom(designID string, eng *engine.Engine) *Room {
	return &Room{
		designID: designID,
		eng:      eng,
		clients:  make(map[string]*Client),
		presence: make(map[string]*PresencePayload),
	}
}

// handleInput applies one client message to the room engine and fans the
// resulting frame out to every participant.
func (r *Room) handleInput(sender *Client, msg *Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	syncDoc := false
	switch msg.Type {
	case TypePointerDown:
		p, ok := decodePointer(msg.Payload)
		if !ok {
			r.reject(sender, "invalid pointer payload")
			return
		}
		r.eng.PointerDown(p.X, p.Y, mods(p))
	case TypePointerMove:
		p, ok := decodePointer(msg.Payload)
		if !ok {
			return
		}
		r.eng.PointerMove(p.X, p.Y, mods(p))
	case TypePointerUp:
		p, ok := decodePointer(msg.Payload)
		if !ok {
			r.reject(sender, "invalid pointer payload")
			return
		}
		r.eng.PointerUp(p.X, p.Y, mods(p))
		r.dirty = true
	case TypeResizeStart:
		p, ok := decodePointer(msg.Payload)
		if !ok || p.Handle == "" {
			r.reject(sender, "invalid resize payload")
			return
		}
		r.eng.BeginResize(p.Handle, p.X, p.Y, mods(p))
	case TypeRotateStart:
		p, ok := decodePointer(msg.Payload)
		if !ok {
			r.reject(sender, "invalid rotate payload")
			return
		}
		r.eng.BeginRotate(p.X, p.Y, mods(p))
	case TypeKeyDown:
		var k KeyPayload
		if err := json.Unmarshal(msg.Payload, &k); err != nil {
			r.reject(sender, "invalid key payload")
			return
		}
		r.eng.KeyDown(k.Key, canvas.Modifiers{Shift: k.Shift, Alt: k.Alt, Ctrl: k.Ctrl})
		r.dirty = true
	case TypeToolSet:
		var t ToolPayload
		if err := json.Unmarshal(msg.Payload, &t); err != nil {
			r.reject(sender, "invalid tool payload")
			return
		}
		r.eng.SetTool(t.Tool)
	case TypeAction:
		var a history.Action
		if err := json.Unmarshal(msg.Payload, &a); err != nil {
			r.reject(sender, "invalid action payload")
			return
		}
		r.eng.Dispatch(a)
		r.dirty = true
	case TypeUndo:
		r.eng.Undo()
		r.dirty = true
	case TypeRedo:
		r.eng.Redo()
		r.dirty = true
	case TypeViewZoom:
		var z ZoomPayload
		if err := json.Unmarshal(msg.Payload, &z); err != nil {
			return
		}
		r.eng.ZoomAtPoint(z.Zoom, z.ScreenX, z.ScreenY)
	case TypeViewFit:
		var f FitPayload
		if err := json.Unmarshal(msg.Payload, &f); err != nil {
			return
		}
		r.eng.FitView(f.Width, f.Height, f.Padding)
	case TypeDesignBuild:
		if err := r.eng.BuildDesign(string(msg.Payload)); err != nil {
			r.reject(sender, err.Error())
			return
		}
		r.dirty = true
		syncDoc = true
	case TypeDesignRebld:
		if err := r.eng.RebuildDesign(string(msg.Payload)); err != nil {
			r.reject(sender, err.Error())
			return
		}
		r.dirty = true
		syncDoc = true
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
		return
	}

	if syncDoc {
		r.broadcastDocLocked()
	}
	r.broadcastFrameLocked()
}

// broadcastFrameLocked advances one animation frame and sends the
// draw-command buffer to every client. Caller holds r.mu.
func (r *Room) broadcastFrameLocked() {
	commands := r.eng.Frame()
	payload, err := json.Marshal(FramePayload{
		Commands:  json.RawMessage(commands),
		Selection: json.RawMessage(r.eng.GetSelection()),
		CanUndo:   r.eng.CanUndo(),
		CanRedo:   r.eng.CanRedo(),
		Warnings:  r.eng.DrainWarnings(),
	})
	if err != nil {
		slog.Error("marshal frame", "error", err)
		return
	}
	msg := &Message{Type: TypeFrame, DesignID: r.designID, Payload: payload}
	for _, c := range r.clients {
		c.Send(msg)
	}
}

func (r *Room) broadcastDocLocked() {
	payload, err := json.Marshal(DocSyncPayload{
		Document: json.RawMessage(r.eng.GetDocument()),
	})
	if err != nil {
		slog.Error("marshal doc sync", "error", err)
		return
	}
	msg := &Message{Type: TypeDocSync, DesignID: r.designID, Payload: payload}
	for _, c := range r.clients {
		c.Send(msg)
	}
}

func (r *Room) reject(c *Client, reason string) {
	payload, _ := json.Marshal(ErrorPayload{Reason: reason})
	c.Send(&Message{Type: TypeError, Payload: payload})
}

// handlePresence records and rebroadcasts one user's cursor/selection.
func (r *Room) handlePresence(sender *Client, msg *Message) {
	var p PresencePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}
	p.DisplayName = sender.DisplayName

	r.mu.Lock()
	r.presence[sender.UserID] = &p
	out, _ := json.Marshal(p)
	outMsg := &Message{
		Type:    TypePresenceUpdate,
		UserID:  sender.UserID,
		Payload: out,
	}
	for _, c := range r.clients {
		if c.ClientID != sender.ClientID {
			c.Send(outMsg)
		}
	}
	r.mu.Unlock()
}

// presenceState snapshots the room's presence map for a joining client.
func (r *Room) presenceState() *Message {
	r.mu.Lock()
	all := make(map[string]*PresencePayload, len(r.presence))
	for k, v := range r.presence {
		all[k] = v
	}
	r.mu.Unlock()

	payload, err := json.Marshal(PresenceStatePayload{Presences: all})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return &Message{Type: TypePresenceState, Payload: payload}
}

// welcome builds the initial state message for a joining client.
func (r *Room) welcome(c *Client) (*Message, error) {
	r.mu.Lock()
	doc := r.eng.GetDocument()
	canUndo, canRedo := r.eng.CanUndo(), r.eng.CanRedo()
	r.mu.Unlock()

	payload, err := json.Marshal(WelcomePayload{
		ClientID: c.ClientID,
		Document: json.RawMessage(doc),
		CanUndo:  canUndo,
		CanRedo:  canRedo,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal welcome: %w", err)
	}
	return &Message{Type: TypeWelcome, DesignID: r.designID, Payload: payload}, nil
}

// snapshotIfDirty returns the document JSON when unsaved edits exist.
func (r *Room) snapshotIfDirty() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.dirty {
		return "", false
	}
	r.dirty = false
	return r.eng.GetDocument(), true
}

func decodePointer(raw json.RawMessage) (PointerPayload, bool) {
	var p PointerPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, false
	}
	return p, true
}

func mods(p PointerPayload) canvas.Modifiers {
	return canvas.Modifiers{Shift: p.Shift, Alt: p.Alt, Ctrl: p.Ctrl}
}
