package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RootCanvasID is the id of the synthetic root sub-canvas every document has.
const RootCanvasID = "root"

// Element type tags understood by the canvas. The set is open: unknown types
// still pass the storage gate as long as they carry id and type.
const (
	ElementTypeText       = "text"
	ElementTypeShape      = "shape"
	ElementTypeBoard      = "board"
	ElementTypeUploaded   = "uploaded"
	ElementTypeGenerated  = "generated"
	ElementTypeTable      = "table"
	ElementTypeStickyNote = "sticky-note"
)

// ErrNoImageLoader is returned by Rehydrate when an image-bearing element is
// passed without a loader to resolve it.
var ErrNoImageLoader = errors.New("no image loader configured")

// LiveImage is a loaded, in-memory image resource.
type LiveImage struct {
	Data   []byte
	Width  int
	Height int
}

// ImageLoader resolves an image source (URL or data URI) into a live resource.
// Implementations live outside this package; the model only waits on them.
type ImageLoader interface {
	Load(ctx context.Context, src string) (*LiveImage, error)
}

// ImageData is the storage-safe descriptor of an image resource. The live
// resource itself is runtime-only and never serialized.
type ImageData struct {
	Src           string  `json:"src"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	NaturalWidth  float64 `json:"naturalWidth,omitempty"`
	NaturalHeight float64 `json:"naturalHeight,omitempty"`

	live *LiveImage
}

// Live returns the attached runtime resource, nil for a stored descriptor
// that has not been rehydrated.
func (d *ImageData) Live() *LiveImage {
	return d.live
}

// Element is one placeable object on the canvas. Variants share position and
// size; variant-specific fields ride along untyped in Extra so the model does
// not need to know every client-side shape.
type Element struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Width    *float64       `json:"width,omitempty"`
	Height   *float64       `json:"height,omitempty"`
	Rotation float64        `json:"rotation,omitempty"`
	CanvasID string         `json:"canvasId"`
	Name     string         `json:"name,omitempty"` // board elements carry the sub-canvas name
	Image    *ImageData     `json:"image,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// SubCanvas is a named, nestable container of elements. ParentID is nil for
// the root node only.
type SubCanvas struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Elements []string `json:"elements"`
	ParentID *string  `json:"parentId,omitempty"`
}

// CanvasDocument is the durable design state of one project.
type CanvasDocument struct {
	Elements    []Element   `json:"elements"`
	CanvasStack []SubCanvas `json:"canvasStack"`
	Version     int64       `json:"version,omitempty"`
	LastSaved   *time.Time  `json:"lastSaved,omitempty"`
}

// DefaultDocument is the canonical empty document: no elements and a single
// root sub-canvas named after the project. It is substituted whenever a
// stored document fails the gate.
func DefaultDocument(projectName string) *CanvasDocument {
	return &CanvasDocument{
		Elements: []Element{},
		CanvasStack: []SubCanvas{
			{ID: RootCanvasID, Name: projectName, Elements: []string{}},
		},
	}
}

// ValidateDocument is the shallow storage gate: the candidate must be a JSON
// object whose "elements" member is an array of objects, each carrying string
// "id" and "type" fields. It deliberately does not check cross-references
// (owning sub-canvas existence, id uniqueness, stack acyclicity); documents
// violating those are still accepted because stored data and clients depend
// on exactly this permissiveness. Use ValidateInvariants for diagnostics.
func ValidateDocument(raw []byte) bool {
	var candidate map[string]json.RawMessage
	if err := json.Unmarshal(raw, &candidate); err != nil {
		return false
	}

	elemsRaw, ok := candidate["elements"]
	if !ok || !isJSONArray(elemsRaw) {
		return false
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(elemsRaw, &elems); err != nil {
		return false
	}

	for _, e := range elems {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(e, &obj); err != nil || obj == nil {
			return false
		}
		if !isJSONString(obj["id"]) || !isJSONString(obj["type"]) {
			return false
		}
	}

	return true
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isJSONString(raw json.RawMessage) bool {
	if raw == nil {
		return false
	}
	var s string
	return json.Unmarshal(raw, &s) == nil
}

// ValidateInvariants runs the deep structural checks the storage gate skips:
// every element must reference an existing sub-canvas (or "root"), element
// ids must be unique, and sub-canvas parent references must form an acyclic
// tree. Diagnostics only; load/save never call this.
func ValidateInvariants(doc *CanvasDocument) []error {
	var errs []error

	canvasIDs := make(map[string]bool, len(doc.CanvasStack)+1)
	canvasIDs[RootCanvasID] = true
	parents := make(map[string]*string, len(doc.CanvasStack))
	for _, sc := range doc.CanvasStack {
		if canvasIDs[sc.ID] && sc.ID != RootCanvasID {
			errs = append(errs, fmt.Errorf("duplicate sub-canvas id %q", sc.ID))
		}
		canvasIDs[sc.ID] = true
		parents[sc.ID] = sc.ParentID
	}

	seen := make(map[string]bool, len(doc.Elements))
	for _, el := range doc.Elements {
		if seen[el.ID] {
			errs = append(errs, fmt.Errorf("duplicate element id %q", el.ID))
		}
		seen[el.ID] = true

		if !canvasIDs[el.CanvasID] {
			errs = append(errs, fmt.Errorf("element %q references unknown sub-canvas %q", el.ID, el.CanvasID))
		}
	}

	for _, sc := range doc.CanvasStack {
		if sc.ParentID != nil && !canvasIDs[*sc.ParentID] {
			errs = append(errs, fmt.Errorf("sub-canvas %q references unknown parent %q", sc.ID, *sc.ParentID))
			continue
		}
		visited := map[string]bool{sc.ID: true}
		for p := sc.ParentID; p != nil; p = parents[*p] {
			if visited[*p] {
				errs = append(errs, fmt.Errorf("sub-canvas %q is part of a parent cycle", sc.ID))
				break
			}
			visited[*p] = true
		}
	}

	return errs
}

// SanitizeForStorage returns a copy of el that is safe to persist: the live
// image resource is dropped and its dimensions are flattened into the plain
// descriptor. Elements without a live resource pass through unchanged.
func SanitizeForStorage(el Element) Element {
	if el.Image == nil || el.Image.live == nil {
		return el
	}

	img := *el.Image
	if img.NaturalWidth == 0 {
		img.NaturalWidth = float64(img.live.Width)
	}
	if img.NaturalHeight == 0 {
		img.NaturalHeight = float64(img.live.Height)
	}
	if img.Width == 0 {
		img.Width = img.NaturalWidth
	}
	if img.Height == 0 {
		img.Height = img.NaturalHeight
	}
	img.live = nil

	el.Image = &img
	return el
}

// Rehydrate resolves a stored image descriptor back into a live resource and
// returns the element with the resource attached. This is the only operation
// in the model that suspends: it blocks until the loader finishes or ctx is
// done. Elements without an image descriptor are returned unchanged. A load
// failure is returned to the caller; there is no retry here.
func Rehydrate(ctx context.Context, el Element, loader ImageLoader) (Element, error) {
	if el.Image == nil || el.Image.Src == "" {
		return el, nil
	}
	if loader == nil {
		return el, ErrNoImageLoader
	}

	live, err := loader.Load(ctx, el.Image.Src)
	if err != nil {
		return el, fmt.Errorf("rehydrate element %s: %w", el.ID, err)
	}

	img := *el.Image
	img.live = live
	if img.NaturalWidth == 0 {
		img.NaturalWidth = float64(live.Width)
	}
	if img.NaturalHeight == 0 {
		img.NaturalHeight = float64(live.Height)
	}

	el.Image = &img
	return el, nil
}
