package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// Conn is the write surface of a websocket connection the gateway needs.
// *websocket.Conn satisfies it; tests substitute a capture fake.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
}

// Participant is one live collaborator connection (thread-safe). A user id
// may own several participants at once (multiple tabs); each connection is
// its own participant with its own uuid.
type Participant struct {
	ID          string
	Conn        Conn
	ConnectedAt time.Time

	// identity and room, set on join-project
	mu       sync.RWMutex
	userID   string
	userName string
	color    string
	roomID   string

	// writes are serialized per connection, which is what preserves
	// per-sender event ordering for recipients
	writeMu sync.Mutex
}

// New creates a participant for a freshly accepted connection. No room
// membership yet.
func New(conn Conn) *Participant {
	return &Participant{
		ID:          uuid.New().String(),
		Conn:        conn,
		ConnectedAt: time.Now(),
	}
}

// JoinRoom stores the identity and room on the connection state.
func (p *Participant) JoinRoom(roomID, userID, userName, color string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.roomID = roomID
	p.userID = userID
	p.userName = userName
	p.color = color
}

// ClearRoom clears the room membership and returns what it was. ok is false
// if the participant never joined or was already cleared, which makes
// disconnect cleanup idempotent.
func (p *Participant) ClearRoom() (roomID, userID, userName string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.roomID == "" {
		return "", "", "", false
	}

	roomID, userID, userName = p.roomID, p.userID, p.userName
	p.roomID = ""
	return roomID, userID, userName, true
}

// Room returns the joined room id, empty before join-project.
func (p *Participant) Room() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.roomID
}

// Identity returns the user id, display name and assigned color.
func (p *Participant) Identity() (userID, userName, color string) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.userID, p.userName, p.color
}

// Duration time since the connection was accepted
func (p *Participant) Duration() time.Duration {
	return time.Since(p.ConnectedAt)
}

// SendJSON marshals v and writes it as one text frame.
func (p *Participant) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.SendText(data)
}

// SendText writes a prepared text frame under the connection's write lock.
func (p *Participant) SendText(data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	return p.Conn.WriteMessage(websocket.TextMessage, data)
}
