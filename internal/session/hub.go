package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/kerfcraft/kerfcraft/backend-go/internal/engine"
)

// EngineFactory builds a fresh engine for a newly opened room.
type EngineFactory func() *engine.Engine

// Loader fetches the persisted document JSON for a design, or "" when
// the design has no snapshot yet.
type Loader func(ctx context.Context, designID string) (string, error)

// Saver persists a document snapshot for a design.
type Saver func(ctx context.Context, designID, docJSON string) error

// Hub routes clients into per-design rooms. A room opens when its first
// client joins and closes, saving a final snapshot, when its last client
// leaves.
type Hub struct {
	newEngine EngineFactory
	load      Loader
	save      Saver

	mu         sync.RWMutex
	rooms      map[string]*Room // designID -> room
	register   chan *Client
	unregister chan *Client
}

func NewHub(newEngine EngineFactory, load Loader, save Saver) *Hub {
	return &Hub{
		newEngine:  newEngine,
		load:       load,
		save:       save,
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.addClient(ctx, client)
		case client := <-h.unregister:
			h.removeClient(ctx, client)
		case <-ctx.Done():
			h.saveAll(ctx)
			return
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) addClient(ctx context.Context, client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.DesignID]
	if !ok {
		room = h.openRoom(ctx, client.DesignID)
		h.rooms[client.DesignID] = room
	}
	room.mu.Lock()
	room.clients[client.ClientID] = client
	room.mu.Unlock()
	h.mu.Unlock()
	client.room = room

	// Current document and history flags first, then presence.
	if welcome, err := room.welcome(client); err == nil {
		client.Send(welcome)
	} else {
		slog.Error("welcome client", "error", err, "user", client.UserID)
	}
	if state := room.presenceState(); state != nil {
		client.Send(state)
	}

	joinPayload, _ := json.Marshal(PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg := &Message{
		Type:    TypePresenceJoin,
		UserID:  client.UserID,
		Payload: joinPayload,
	}
	h.broadcastToRoom(client.DesignID, joinMsg, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "design", client.DesignID)
}

// openRoom builds a room around a fresh engine, seeded from the persisted
// snapshot when one exists. A failed load opens an empty room rather than
// refusing the connection.
func (h *Hub) openRoom(ctx context.Context, designID string) *Room {
	eng := h.newEngine()
	if h.load != nil {
		docJSON, err := h.load(ctx, designID)
		switch {
		case err != nil:
			slog.Error("load design snapshot", "error", err, "design", designID)
		case docJSON != "":
			if err := eng.LoadDocument(docJSON); err != nil {
				slog.Error("decode design snapshot", "error", err, "design", designID)
			}
		}
	}
	return newRoom(designID, eng)
}

func (h *Hub) removeClient(ctx context.Context, client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.DesignID]
	if !ok {
		h.mu.Unlock()
		return
	}

	room.mu.Lock()
	delete(room.clients, client.ClientID)
	close(client.send)
	delete(room.presence, client.UserID)
	empty := len(room.clients) == 0
	room.mu.Unlock()

	if empty {
		delete(h.rooms, client.DesignID)
	}
	h.mu.Unlock()

	if empty {
		h.saveRoom(ctx, room)
	} else {
		leavePayload, _ := json.Marshal(PresenceLeavePayload{UserID: client.UserID})
		h.broadcastToRoom(client.DesignID, &Message{
			Type:    TypePresenceLeave,
			UserID:  client.UserID,
			Payload: leavePayload,
		}, "")
	}

	slog.Info("client left", "user", client.UserID, "design", client.DesignID)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	room := sender.room
	if room == nil {
		return
	}
	switch msg.Type {
	case TypePresenceUpdate:
		room.handlePresence(sender, msg)
	case TypeSave:
		h.saveRoom(context.Background(), room)
	default:
		room.handleInput(sender, msg)
	}
}

func (h *Hub) saveRoom(ctx context.Context, room *Room) {
	if h.save == nil {
		return
	}
	docJSON, dirty := room.snapshotIfDirty()
	if !dirty {
		return
	}
	if err := h.save(ctx, room.designID, docJSON); err != nil {
		slog.Error("save design snapshot", "error", err, "design", room.designID)
	}
}

func (h *Hub) saveAll(ctx context.Context) {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.RUnlock()

	for _, r := range rooms {
		h.saveRoom(ctx, r)
	}
}

func (h *Hub) broadcastToRoom(designID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[designID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	room.mu.Lock()
	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	room.mu.Unlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
