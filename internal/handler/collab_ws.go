package handler

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"

	"canvas-backend/internal/presence"
	"canvas-backend/internal/session"
)

// CollabWSHandler is the session gateway for the live canvas: it terminates
// collaborator connections, relays cursor and mutation events within a room,
// and drives the presence registry. It never persists anything — clients
// push documents through the project handler on their own cadence.
type CollabWSHandler struct {
	registry *presence.Registry

	mu    sync.RWMutex
	rooms map[string]map[string]*session.Participant // roomID -> connID -> participant
}

// WSMessage collab WebSocket envelope
type WSMessage struct {
	Type    string          `json:"type"` // join-project, cursor-move, canvas-update
	Payload json.RawMessage `json:"payload,omitempty"`
}

// outMessage is the server-side envelope; payload is marshaled as-is.
type outMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// JoinPayload join-project payload
type JoinPayload struct {
	ProjectID string `json:"projectId"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
}

// CursorPayload cursor-move payload
type CursorPayload struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	ProjectID string  `json:"projectId"`
}

// CursorUpdate cursor-update broadcast payload
type CursorUpdate struct {
	UserID   string  `json:"userId"`
	UserName string  `json:"userName"`
	Color    string  `json:"color"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// UserJoinedPayload user-joined broadcast payload
type UserJoinedPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Color    string `json:"color"`
}

// UserLeftPayload user-left broadcast payload
type UserLeftPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// NewCollabWSHandler creates the gateway around a presence registry.
func NewCollabWSHandler(registry *presence.Registry) *CollabWSHandler {
	return &CollabWSHandler{
		registry: registry,
		rooms:    make(map[string]map[string]*session.Participant),
	}
}

// HandleWebSocket runs the read loop for one collaborator connection. A
// transport drop and an orderly close take the same path: the deferred
// cleanup broadcasts user-left and releases presence, so abnormal
// termination never leaks room membership.
func (h *CollabWSHandler) HandleWebSocket(c *websocket.Conn) {
	p := session.New(c)
	log.Printf("[CollabHub] Connected: conn=%s", p.ID)

	defer func() {
		h.handleDisconnect(p)
		c.Close()
		log.Printf("[CollabHub] Disconnected: conn=%s (alive %s)", p.ID, p.Duration())
	}()

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "join-project":
			var jp JoinPayload
			if err := json.Unmarshal(msg.Payload, &jp); err != nil {
				continue
			}
			h.handleJoin(p, jp)
		case "cursor-move":
			var cp CursorPayload
			if err := json.Unmarshal(msg.Payload, &cp); err != nil {
				continue
			}
			h.handleCursor(p, cp)
		case "canvas-update":
			h.handleCanvasUpdate(p, msg.Payload)
		}
	}
}

// handleJoin puts the connection into a room: assign the user's color, add
// the connection to the room's transport group and the presence registry,
// announce it to the existing members, then send the joiner the full
// current-users snapshot (itself included).
//
// One room per connection: joining a second project leaves the first, with
// the usual user-left broadcast to the old room.
func (h *CollabWSHandler) handleJoin(p *session.Participant, jp JoinPayload) {
	if jp.ProjectID == "" || jp.UserID == "" {
		return
	}

	if current := p.Room(); current != "" {
		if current == jp.ProjectID {
			// re-join of the same room: refresh the snapshot, no re-announce
			p.SendJSON(outMessage{Type: "current-users", Payload: h.registry.ListRoom(current)})
			return
		}
		h.leaveRoom(p)
	}

	color := h.registry.AssignColor(jp.UserID)

	h.mu.Lock()
	room := h.rooms[jp.ProjectID]
	if room == nil {
		room = make(map[string]*session.Participant)
		h.rooms[jp.ProjectID] = room
	}
	room[p.ID] = p
	h.mu.Unlock()

	snapshot := h.registry.Join(jp.ProjectID, p.ID, jp.UserID, jp.UserName)
	p.JoinRoom(jp.ProjectID, jp.UserID, jp.UserName, color)

	log.Printf("[CollabHub] Joined: conn=%s user=%s room=%s members=%d",
		p.ID, jp.UserID, jp.ProjectID, len(snapshot))

	h.broadcast(jp.ProjectID, p.ID, outMessage{
		Type:    "user-joined",
		Payload: UserJoinedPayload{UserID: jp.UserID, UserName: jp.UserName, Color: color},
	})

	p.SendJSON(outMessage{Type: "current-users", Payload: snapshot})
}

// handleCursor relays a cursor position to every other member of the room.
// A cursor event before join-project, or for a room this connection is not
// in, is dropped silently: clients race their first events against join
// during connection setup and must not be torn down for it. Coordinates are
// not range-checked.
func (h *CollabWSHandler) handleCursor(p *session.Participant, cp CursorPayload) {
	if p.Room() != cp.ProjectID || cp.ProjectID == "" {
		return
	}

	userID, userName, color := p.Identity()
	h.broadcast(cp.ProjectID, p.ID, outMessage{
		Type:    "cursor-update",
		Payload: CursorUpdate{UserID: userID, UserName: userName, Color: color, X: cp.X, Y: cp.Y},
	})
}

// handleCanvasUpdate relays a mutation payload verbatim to the other members
// of the room named inside the payload. The gateway does no schema
// validation here: document shape is the canvas model's business, checked at
// the persistence boundary, never at the broadcast layer.
func (h *CollabWSHandler) handleCanvasUpdate(p *session.Participant, payload json.RawMessage) {
	var target struct {
		ProjectID string `json:"projectId"`
	}
	if err := json.Unmarshal(payload, &target); err != nil {
		return
	}

	if target.ProjectID == "" || p.Room() != target.ProjectID {
		return
	}

	h.broadcast(target.ProjectID, p.ID, outMessage{
		Type:    "canvas-updated",
		Payload: payload,
	})
}

// handleDisconnect announces user-left to the remaining members and releases
// the connection's presence. Safe to call more than once, and a no-op for a
// connection that never joined a room.
func (h *CollabWSHandler) handleDisconnect(p *session.Participant) {
	h.leaveRoom(p)
}

func (h *CollabWSHandler) leaveRoom(p *session.Participant) {
	roomID, userID, userName, ok := p.ClearRoom()
	if !ok {
		return
	}

	h.mu.Lock()
	if room := h.rooms[roomID]; room != nil {
		delete(room, p.ID)
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()

	h.registry.Leave(roomID, p.ID)

	h.broadcast(roomID, p.ID, outMessage{
		Type:    "user-left",
		Payload: UserLeftPayload{UserID: userID, UserName: userName},
	})

	log.Printf("[CollabHub] Left: conn=%s user=%s room=%s", p.ID, userID, roomID)
}

// broadcast sends msg to every member of the room except the sender. The
// payload is marshaled once; each write goes through the recipient's write
// lock. A failed write is logged and skipped — there is no redelivery.
func (h *CollabWSHandler) broadcast(roomID, excludeConnID string, msg outMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[CollabHub] Failed to marshal %s: %v", msg.Type, err)
		return
	}

	h.mu.RLock()
	recipients := make([]*session.Participant, 0, len(h.rooms[roomID]))
	for connID, member := range h.rooms[roomID] {
		if connID == excludeConnID {
			continue
		}
		recipients = append(recipients, member)
	}
	h.mu.RUnlock()

	for _, member := range recipients {
		if err := member.SendText(data); err != nil {
			log.Printf("[CollabHub] Failed to send %s to conn=%s: %v", msg.Type, member.ID, err)
		}
	}
}

// RoomSize returns the number of connections currently in a room.
func (h *CollabWSHandler) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms[roomID])
}
