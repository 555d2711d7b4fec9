package handler

import (
	"encoding/json"
	"time"

	"canvas-backend/internal/model"
)

// marshalDocument encodes a document for the jsonb column.
func marshalDocument(doc *model.CanvasDocument) ([]byte, error) {
	return json.Marshal(doc)
}

// canvasResponse stamps the row-level version and lastSaved onto the stored
// document JSON without decoding the full element tree.
func canvasResponse(raw []byte, version int64, lastSaved *time.Time) ([]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	versionRaw, err := json.Marshal(version)
	if err != nil {
		return nil, err
	}
	doc["version"] = versionRaw

	if lastSaved != nil {
		savedRaw, err := json.Marshal(lastSaved.Format(time.RFC3339))
		if err != nil {
			return nil, err
		}
		doc["lastSaved"] = savedRaw
	}

	return json.Marshal(doc)
}
