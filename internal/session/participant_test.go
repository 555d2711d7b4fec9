package session

import (
	"encoding/json"
	"testing"
)

type captureConn struct {
	frames [][]byte
}

func (c *captureConn) WriteMessage(_ int, data []byte) error {
	c.frames = append(c.frames, data)
	return nil
}

func TestClearRoomIdempotent(t *testing.T) {
	p := New(&captureConn{})

	if _, _, _, ok := p.ClearRoom(); ok {
		t.Fatal("ClearRoom reported ok before any join")
	}

	p.JoinRoom("proj", "u1", "Alice", "#ef4444")

	roomID, userID, userName, ok := p.ClearRoom()
	if !ok || roomID != "proj" || userID != "u1" || userName != "Alice" {
		t.Fatalf("ClearRoom = %q %q %q %v", roomID, userID, userName, ok)
	}

	if _, _, _, ok := p.ClearRoom(); ok {
		t.Fatal("second ClearRoom reported ok")
	}
	if p.Room() != "" {
		t.Fatalf("room still %q after clear", p.Room())
	}
}

func TestIdentitySurvivesClear(t *testing.T) {
	p := New(&captureConn{})
	p.JoinRoom("proj", "u1", "Alice", "#ef4444")
	p.ClearRoom()

	// identity stays for logging; only room membership is cleared
	userID, userName, color := p.Identity()
	if userID != "u1" || userName != "Alice" || color != "#ef4444" {
		t.Errorf("Identity after clear = %q %q %q", userID, userName, color)
	}
}

func TestSendJSON(t *testing.T) {
	conn := &captureConn{}
	p := New(conn)

	if err := p.SendJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatal(err)
	}
	if len(conn.frames) != 1 {
		t.Fatalf("wrote %d frames, want 1", len(conn.frames))
	}

	var got map[string]string
	if err := json.Unmarshal(conn.frames[0], &got); err != nil {
		t.Fatal(err)
	}
	if got["type"] != "ping" {
		t.Errorf("frame = %v", got)
	}
}

func TestParticipantIDsUnique(t *testing.T) {
	a := New(&captureConn{})
	b := New(&captureConn{})
	if a.ID == b.ID {
		t.Error("two participants share an id")
	}
}
