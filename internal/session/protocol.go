package session

import "encoding/json"

// Message is the websocket envelope for both directions.
type Message struct {
	Type     string          `json:"type"`
	DesignID string          `json:"designId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

const (
	// Connection
	TypeWelcome = "welcome"
	TypeError   = "error"

	// Presence
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"

	// Input (client -> room)
	TypePointerDown = "pointer.down"
	TypePointerMove = "pointer.move"
	TypePointerUp   = "pointer.up"
	TypeKeyDown     = "key.down"
	TypeResizeStart = "resize.start"
	TypeRotateStart = "rotate.start"
	TypeToolSet     = "tool.set"
	TypeAction      = "action"
	TypeUndo        = "undo"
	TypeRedo        = "redo"
	TypeViewZoom    = "view.zoom"
	TypeViewFit     = "view.fit"
	TypeDesignBuild = "design.build"
	TypeDesignRebld = "design.rebuild"
	TypeSave        = "doc.save"

	// Output (room -> clients)
	TypeFrame   = "frame"
	TypeDocSync = "doc.sync"
)

// PointerPayload carries one pointer sample plus modifier state, in
// container-relative screen pixels.
type PointerPayload struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Shift  bool    `json:"shift,omitempty"`
	Alt    bool    `json:"alt,omitempty"`
	Ctrl   bool    `json:"ctrl,omitempty"`
	Handle string  `json:"handle,omitempty"` // resize.start only
}

// KeyPayload carries one keyboard event.
type KeyPayload struct {
	Key   string `json:"key"`
	Shift bool   `json:"shift,omitempty"`
	Alt   bool   `json:"alt,omitempty"`
	Ctrl  bool   `json:"ctrl,omitempty"`
}

// ToolPayload switches the canvas tool.
type ToolPayload struct {
	Tool string `json:"tool"`
}

// ZoomPayload zooms keeping the cursor-anchored world point fixed.
type ZoomPayload struct {
	Zoom    float64 `json:"zoom"`
	ScreenX float64 `json:"screenX"`
	ScreenY float64 `json:"screenY"`
}

// FitPayload recenters the artboard in the client's container.
type FitPayload struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Padding float64 `json:"padding"`
}

// WelcomePayload is the first frame a joining client receives.
type WelcomePayload struct {
	ClientID string          `json:"clientId"`
	Document json.RawMessage `json:"document"`
	CanUndo  bool            `json:"canUndo"`
	CanRedo  bool            `json:"canRedo"`
}

// FramePayload is one rendered frame: the draw-command buffer plus the
// state flags the toolbar needs.
type FramePayload struct {
	Commands  json.RawMessage `json:"commands"`
	Selection json.RawMessage `json:"selection"`
	CanUndo   bool            `json:"canUndo"`
	CanRedo   bool            `json:"canRedo"`
	Warnings  []string        `json:"warnings,omitempty"`
}

// DocSyncPayload replaces the client's document after a structural
// change (build, rebuild, load).
type DocSyncPayload struct {
	Document json.RawMessage `json:"document"`
}

// ErrorPayload reports a rejected message.
type ErrorPayload struct {
	Reason string `json:"reason"`
}

// PresencePayload is one user's live cursor and selection.
type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Selection   []string   `json:"selection,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

// CursorPos is a cursor position in world mm.
type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PresenceStatePayload snapshots all presences for a joining client.
type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

// PresenceJoinPayload announces a new participant.
type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// PresenceLeavePayload announces a departure.
type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}
