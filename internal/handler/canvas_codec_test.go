package handler

import (
	"encoding/json"
	"testing"
	"time"

	"canvas-backend/internal/model"
)

func TestMarshalDocumentPassesGate(t *testing.T) {
	raw, err := marshalDocument(model.DefaultDocument("p"))
	if err != nil {
		t.Fatal(err)
	}
	if !model.ValidateDocument(raw) {
		t.Error("marshaled default document fails the storage gate")
	}
}

func TestCanvasResponseStampsVersion(t *testing.T) {
	stored := []byte(`{"elements":[{"id":"e1","type":"text"}],"canvasStack":[],"version":3}`)
	saved := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	body, err := canvasResponse(stored, 7, &saved)
	if err != nil {
		t.Fatal(err)
	}

	var got struct {
		Elements  []json.RawMessage `json:"elements"`
		Version   int64             `json:"version"`
		LastSaved string            `json:"lastSaved"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}

	// the row is authoritative over whatever version the blob carries
	if got.Version != 7 {
		t.Errorf("version = %d, want 7 from the row", got.Version)
	}
	if got.LastSaved != "2026-08-01T12:00:00Z" {
		t.Errorf("lastSaved = %q", got.LastSaved)
	}
	if len(got.Elements) != 1 {
		t.Errorf("elements length = %d, want 1", len(got.Elements))
	}
}

func TestCanvasResponseNoLastSaved(t *testing.T) {
	body, err := canvasResponse([]byte(`{"elements":[],"canvasStack":[]}`), 0, nil)
	if err != nil {
		t.Fatal(err)
	}

	var got map[string]json.RawMessage
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if _, ok := got["lastSaved"]; ok {
		t.Error("never-saved document carries a lastSaved stamp")
	}
}

func TestCanvasResponseRejectsGarbage(t *testing.T) {
	if _, err := canvasResponse([]byte(`[]`), 1, nil); err == nil {
		t.Error("non-object document did not error")
	}
}
