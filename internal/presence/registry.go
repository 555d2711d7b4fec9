package presence

import (
	"sync"
)

// Palette of collaborator display colors, in assignment order.
var Palette = [...]string{
	"#ef4444", // red
	"#f97316", // orange
	"#eab308", // yellow
	"#22c55e", // green
	"#06b6d4", // cyan
	"#3b82f6", // blue
	"#8b5cf6", // violet
	"#ec4899", // pink
}

// Member is one entry in a room's presence snapshot.
type Member struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Color    string `json:"color"`
}

// Registry tracks per-room membership and the process-wide user color map.
// The color map is never evicted: once a user id has a color it keeps it for
// the process lifetime, so reconnects and extra tabs render consistently.
// The map therefore grows with the number of distinct user ids seen since
// start (cleared only on restart).
//
// The source runtime was single-threaded; here every connection runs its own
// goroutine, so all state is guarded by one mutex.
type Registry struct {
	mu     sync.Mutex
	colors map[string]string            // userID -> color
	next   int                          // palette cursor, only ever advances
	rooms  map[string]map[string]Member // roomID -> connID -> member
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		colors: make(map[string]string),
		rooms:  make(map[string]map[string]Member),
	}
}

// AssignColor returns the display color for userID, assigning the next
// palette entry on first sight. Never fails.
func (r *Registry) AssignColor(userID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.assignColorLocked(userID)
}

func (r *Registry) assignColorLocked(userID string) string {
	if color, ok := r.colors[userID]; ok {
		return color
	}
	color := Palette[r.next%len(Palette)]
	r.next++
	r.colors[userID] = color
	return color
}

// Join adds a connection to a room, creating the room on first join, and
// returns the full membership snapshot including the joiner.
func (r *Registry) Join(roomID, connID, userID, userName string) []Member {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.rooms[roomID]
	if room == nil {
		room = make(map[string]Member)
		r.rooms[roomID] = room
	}

	room[connID] = Member{
		UserID:   userID,
		UserName: userName,
		Color:    r.assignColorLocked(userID),
	}

	return snapshot(room)
}

// Leave removes a connection from a room. Leaving twice, or leaving a room
// never joined, is a no-op. A room with no members left is discarded.
func (r *Registry) Leave(roomID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.rooms[roomID]
	if room == nil {
		return
	}

	delete(room, connID)
	if len(room) == 0 {
		delete(r.rooms, roomID)
	}
}

// ListRoom returns the current membership snapshot, empty if the room is
// unknown.
func (r *Registry) ListRoom(roomID string) []Member {
	r.mu.Lock()
	defer r.mu.Unlock()

	return snapshot(r.rooms[roomID])
}

// Stats returns the number of live rooms and tracked user colors.
func (r *Registry) Stats() (rooms, trackedUsers int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.rooms), len(r.colors)
}

func snapshot(room map[string]Member) []Member {
	members := make([]Member, 0, len(room))
	for _, m := range room {
		members = append(members, m)
	}
	return members
}
