package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerfcraft/kerfcraft/backend-go/internal/document"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/engine"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/fontshape"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/pathops"
)

func testEngine() *engine.Engine {
	fonts := fontshape.NewService(&fontshape.BoxShaper{}, "font_default")
	return engine.New(fonts, pathops.NewCompoundEngine())
}

func testClient(userID, clientID string) *Client {
	return &Client{
		send:        make(chan []byte, 64),
		UserID:      userID,
		DisplayName: userID,
		ClientID:    clientID,
		DesignID:    "dsgn_test",
	}
}

// recv drains one queued message from a client, failing if none arrived.
func recv(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	default:
		t.Fatal("no message queued")
		return nil
	}
}

func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func buildMsg(t *testing.T, msgType string, payload any) *Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return &Message{Type: msgType, Payload: data}
}

func testRoom(t *testing.T, clients ...*Client) *Room {
	t.Helper()
	r := newRoom("dsgn_test", testEngine())
	params, err := json.Marshal(document.Params{
		Tool: document.ToolSign, WidthMm: 100, HeightMm: 50,
	})
	require.NoError(t, err)
	require.NoError(t, r.eng.BuildDesign(string(params)))
	for _, c := range clients {
		c.room = r
		r.clients[c.ClientID] = c
	}
	return r
}

func TestHandleInputBroadcastsFrameToAllClients(t *testing.T) {
	a, b := testClient("user_a", "c1"), testClient("user_b", "c2")
	r := testRoom(t, a, b)

	r.handleInput(a, buildMsg(t, TypePointerDown, PointerPayload{X: 10, Y: 10}))

	for _, c := range []*Client{a, b} {
		msg := recv(t, c)
		assert.Equal(t, TypeFrame, msg.Type)
		assert.Equal(t, "dsgn_test", msg.DesignID)

		var frame FramePayload
		require.NoError(t, json.Unmarshal(msg.Payload, &frame))
		assert.NotEmpty(t, frame.Commands)
	}
}

func TestPointerUpMarksRoomDirty(t *testing.T) {
	a := testClient("user_a", "c1")
	r := testRoom(t, a)

	_, dirty := r.snapshotIfDirty()
	assert.False(t, dirty)

	r.handleInput(a, buildMsg(t, TypePointerDown, PointerPayload{X: 10, Y: 10}))
	r.handleInput(a, buildMsg(t, TypePointerUp, PointerPayload{X: 10, Y: 10}))

	doc, dirty := r.snapshotIfDirty()
	assert.True(t, dirty)
	assert.NotEmpty(t, doc)

	// Snapshot clears the flag until the next edit.
	_, dirty = r.snapshotIfDirty()
	assert.False(t, dirty)
}

func TestInvalidPayloadIsRejected(t *testing.T) {
	a := testClient("user_a", "c1")
	r := testRoom(t, a)

	r.handleInput(a, &Message{Type: TypePointerDown, Payload: json.RawMessage(`"nope"`)})

	msg := recv(t, a)
	assert.Equal(t, TypeError, msg.Type)

	var e ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &e))
	assert.NotEmpty(t, e.Reason)
}

func TestResizeStartRequiresHandle(t *testing.T) {
	a := testClient("user_a", "c1")
	r := testRoom(t, a)

	r.handleInput(a, buildMsg(t, TypeResizeStart, PointerPayload{X: 10, Y: 10}))
	assert.Equal(t, TypeError, recv(t, a).Type)
}

func TestUnknownMessageTypeIsIgnored(t *testing.T) {
	a := testClient("user_a", "c1")
	r := testRoom(t, a)

	r.handleInput(a, &Message{Type: "bogus"})

	select {
	case <-a.send:
		t.Fatal("unexpected message for unknown type")
	default:
	}
}

func TestDesignBuildSyncsDocumentBeforeFrame(t *testing.T) {
	a := testClient("user_a", "c1")
	r := testRoom(t, a)

	r.handleInput(a, buildMsg(t, TypeDesignBuild, document.Params{
		Tool: document.ToolCoaster, WidthMm: 90, HeightMm: 90, Shape: document.ArtboardCircle,
	}))

	first := recv(t, a)
	require.Equal(t, TypeDocSync, first.Type)

	var sync DocSyncPayload
	require.NoError(t, json.Unmarshal(first.Payload, &sync))
	var doc document.Document
	require.NoError(t, json.Unmarshal(sync.Document, &doc))
	assert.Equal(t, document.ToolCoaster, doc.Tool)

	assert.Equal(t, TypeFrame, recv(t, a).Type)

	_, dirty := r.snapshotIfDirty()
	assert.True(t, dirty)
}

func TestUndoRedoFlagsRideTheFrame(t *testing.T) {
	a := testClient("user_a", "c1")
	r := testRoom(t, a)

	// Drag the base outline to create an undo step.
	r.handleInput(a, buildMsg(t, TypePointerDown, PointerPayload{X: 100, Y: 50}))
	r.handleInput(a, buildMsg(t, TypePointerMove, PointerPayload{X: 200, Y: 100}))
	r.handleInput(a, buildMsg(t, TypePointerUp, PointerPayload{X: 200, Y: 100}))
	drain(a)

	r.handleInput(a, buildMsg(t, TypeUndo, struct{}{}))

	var frame FramePayload
	require.NoError(t, json.Unmarshal(recv(t, a).Payload, &frame))
	assert.False(t, frame.CanUndo)
	assert.True(t, frame.CanRedo)
}

func TestPresenceRebroadcastExcludesSender(t *testing.T) {
	a, b := testClient("user_a", "c1"), testClient("user_b", "c2")
	r := testRoom(t, a, b)

	r.handlePresence(a, buildMsg(t, TypePresenceUpdate, PresencePayload{
		Cursor: &CursorPos{X: 5, Y: 5},
	}))

	msg := recv(t, b)
	assert.Equal(t, TypePresenceUpdate, msg.Type)
	assert.Equal(t, "user_a", msg.UserID)

	var p PresencePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	// The room stamps the sender's display name; clients cannot spoof it.
	assert.Equal(t, "user_a", p.DisplayName)

	select {
	case <-a.send:
		t.Fatal("presence echoed back to sender")
	default:
	}
}

func TestPresenceStateSnapshot(t *testing.T) {
	a := testClient("user_a", "c1")
	r := testRoom(t, a)

	r.handlePresence(a, buildMsg(t, TypePresenceUpdate, PresencePayload{
		Cursor: &CursorPos{X: 1, Y: 2},
	}))

	state := r.presenceState()
	require.NotNil(t, state)
	assert.Equal(t, TypePresenceState, state.Type)

	var payload PresenceStatePayload
	require.NoError(t, json.Unmarshal(state.Payload, &payload))
	require.Contains(t, payload.Presences, "user_a")
	assert.InDelta(t, 1, payload.Presences["user_a"].Cursor.X, 1e-9)
}

func TestWelcomeCarriesDocument(t *testing.T) {
	a := testClient("user_a", "c1")
	r := testRoom(t, a)

	msg, err := r.welcome(a)
	require.NoError(t, err)
	assert.Equal(t, TypeWelcome, msg.Type)

	var w WelcomePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &w))
	assert.Equal(t, "c1", w.ClientID)
	assert.False(t, w.CanUndo)

	var doc document.Document
	require.NoError(t, json.Unmarshal(w.Document, &doc))
	assert.Equal(t, 100.0, doc.Artboard.WidthMm)
}

func TestSlowClientDropsInsteadOfBlocking(t *testing.T) {
	a := testClient("user_a", "c1")
	a.send = make(chan []byte, 1)
	r := testRoom(t, a)

	// The second frame overflows the one-slot buffer; handleInput must
	// still return promptly.
	r.handleInput(a, buildMsg(t, TypePointerDown, PointerPayload{X: 10, Y: 10}))
	r.handleInput(a, buildMsg(t, TypePointerUp, PointerPayload{X: 10, Y: 10}))

	assert.Len(t, a.send, 1)
}
