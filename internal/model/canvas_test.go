package model

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"empty document", `{"elements":[],"canvasStack":[]}`, true},
		{"valid elements", `{"elements":[{"id":"e1","type":"text","x":0,"y":0,"canvasId":"root"}]}`, true},
		{"unknown element type passes", `{"elements":[{"id":"e1","type":"hologram"}]}`, true},
		{"dangling canvasId still passes shallow gate", `{"elements":[{"id":"e1","type":"text","canvasId":"ghost"}]}`, true},
		{"extra top-level members ignored", `{"elements":[],"canvasStack":[],"theme":"dark"}`, true},
		{"not json", `{{{`, false},
		{"empty input", ``, false},
		{"top-level array", `[]`, false},
		{"top-level null", `null`, false},
		{"missing elements", `{"canvasStack":[]}`, false},
		{"elements not an array", `{"elements":"not-an-array"}`, false},
		{"elements null", `{"elements":null}`, false},
		{"element not an object", `{"elements":[42]}`, false},
		{"element null", `{"elements":[null]}`, false},
		{"element missing id", `{"elements":[{"type":"text"}]}`, false},
		{"element missing type", `{"elements":[{"id":"e1"}]}`, false},
		{"element id not a string", `{"elements":[{"id":7,"type":"text"}]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateDocument([]byte(tt.raw)); got != tt.want {
				t.Errorf("ValidateDocument(%s) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDefaultDocument(t *testing.T) {
	doc := DefaultDocument("My Project")

	if len(doc.Elements) != 0 {
		t.Errorf("default document has %d elements, want 0", len(doc.Elements))
	}
	if len(doc.CanvasStack) != 1 {
		t.Fatalf("default document has %d sub-canvases, want 1", len(doc.CanvasStack))
	}

	root := doc.CanvasStack[0]
	if root.ID != RootCanvasID {
		t.Errorf("root id = %q, want %q", root.ID, RootCanvasID)
	}
	if root.Name != "My Project" {
		t.Errorf("root name = %q, want project name", root.Name)
	}
	if root.ParentID != nil {
		t.Errorf("root has parent %q, want none", *root.ParentID)
	}

	// the default must round-trip through its own gate
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal default document: %v", err)
	}
	if !ValidateDocument(raw) {
		t.Error("default document fails the storage gate")
	}
}

func TestValidateInvariants(t *testing.T) {
	parent := func(id string) *string { return &id }

	t.Run("clean document", func(t *testing.T) {
		doc := &CanvasDocument{
			Elements: []Element{
				{ID: "e1", Type: ElementTypeText, CanvasID: RootCanvasID},
				{ID: "e2", Type: ElementTypeShape, CanvasID: "sub1"},
			},
			CanvasStack: []SubCanvas{
				{ID: RootCanvasID, Name: "root", Elements: []string{"e1"}},
				{ID: "sub1", Name: "Board", Elements: []string{"e2"}, ParentID: parent(RootCanvasID)},
			},
		}
		if errs := ValidateInvariants(doc); len(errs) != 0 {
			t.Errorf("clean document reported %v", errs)
		}
	})

	t.Run("dangling canvas reference", func(t *testing.T) {
		doc := &CanvasDocument{
			Elements:    []Element{{ID: "e1", Type: ElementTypeText, CanvasID: "ghost"}},
			CanvasStack: []SubCanvas{{ID: RootCanvasID, Name: "root"}},
		}
		if errs := ValidateInvariants(doc); len(errs) != 1 {
			t.Errorf("want 1 error, got %v", errs)
		}
	})

	t.Run("duplicate element ids", func(t *testing.T) {
		doc := &CanvasDocument{
			Elements: []Element{
				{ID: "e1", Type: ElementTypeText, CanvasID: RootCanvasID},
				{ID: "e1", Type: ElementTypeShape, CanvasID: RootCanvasID},
			},
			CanvasStack: []SubCanvas{{ID: RootCanvasID, Name: "root"}},
		}
		if errs := ValidateInvariants(doc); len(errs) != 1 {
			t.Errorf("want 1 error, got %v", errs)
		}
	})

	t.Run("parent cycle", func(t *testing.T) {
		doc := &CanvasDocument{
			CanvasStack: []SubCanvas{
				{ID: "a", Name: "A", ParentID: parent("b")},
				{ID: "b", Name: "B", ParentID: parent("a")},
			},
		}
		if errs := ValidateInvariants(doc); len(errs) == 0 {
			t.Error("parent cycle not reported")
		}
	})
}

type fakeLoader struct {
	img  *LiveImage
	err  error
	seen []string
}

func (f *fakeLoader) Load(_ context.Context, src string) (*LiveImage, error) {
	f.seen = append(f.seen, src)
	if f.err != nil {
		return nil, f.err
	}
	return f.img, nil
}

func TestRehydrateAndSanitizeRoundTrip(t *testing.T) {
	loader := &fakeLoader{img: &LiveImage{Data: []byte("png"), Width: 100, Height: 50}}

	el := Element{
		ID:       "img1",
		Type:     ElementTypeUploaded,
		CanvasID: RootCanvasID,
		Image:    &ImageData{Src: "https://cdn.example.com/a.png"},
	}

	live, err := Rehydrate(context.Background(), el, loader)
	if err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}
	if live.Image.Live() == nil {
		t.Fatal("rehydrated element has no live resource")
	}
	if live.Image.NaturalWidth != 100 || live.Image.NaturalHeight != 50 {
		t.Errorf("natural dims = %v x %v, want 100 x 50", live.Image.NaturalWidth, live.Image.NaturalHeight)
	}
	if len(loader.seen) != 1 || loader.seen[0] != "https://cdn.example.com/a.png" {
		t.Errorf("loader saw %v", loader.seen)
	}

	stored := SanitizeForStorage(live)
	if stored.Image.Live() != nil {
		t.Error("sanitized element still carries live resource")
	}
	if stored.Image.Src != "https://cdn.example.com/a.png" {
		t.Errorf("src lost in sanitize: %q", stored.Image.Src)
	}
	if stored.Image.Width != 100 || stored.Image.Height != 50 {
		t.Errorf("display dims = %v x %v, want filled from natural 100 x 50", stored.Image.Width, stored.Image.Height)
	}

	// sanitize must not mutate its input
	if live.Image.Live() == nil {
		t.Error("SanitizeForStorage mutated the input element")
	}
}

func TestRehydrateNoImage(t *testing.T) {
	el := Element{ID: "t1", Type: ElementTypeText, CanvasID: RootCanvasID}

	got, err := Rehydrate(context.Background(), el, nil)
	if err != nil {
		t.Fatalf("Rehydrate on plain element: %v", err)
	}
	if got.Image != nil {
		t.Error("plain element grew an image")
	}
}

func TestRehydrateMissingLoader(t *testing.T) {
	el := Element{ID: "img1", Type: ElementTypeUploaded, Image: &ImageData{Src: "x.png"}}

	if _, err := Rehydrate(context.Background(), el, nil); !errors.Is(err, ErrNoImageLoader) {
		t.Fatalf("err = %v, want ErrNoImageLoader", err)
	}
}

func TestRehydrateLoadFailure(t *testing.T) {
	loadErr := errors.New("404")
	loader := &fakeLoader{err: loadErr}
	el := Element{ID: "img1", Type: ElementTypeUploaded, Image: &ImageData{Src: "x.png"}}

	got, err := Rehydrate(context.Background(), el, loader)
	if !errors.Is(err, loadErr) {
		t.Fatalf("err = %v, want wrapped load error", err)
	}
	// the descriptor survives a failed load untouched
	if got.Image.Live() != nil {
		t.Error("failed load attached a live resource")
	}
}

func TestSanitizePassThrough(t *testing.T) {
	el := Element{ID: "t1", Type: ElementTypeText, CanvasID: RootCanvasID}
	if got := SanitizeForStorage(el); got.ID != "t1" || got.Image != nil {
		t.Errorf("plain element changed by sanitize: %+v", got)
	}

	stored := Element{
		ID:    "img1",
		Type:  ElementTypeUploaded,
		Image: &ImageData{Src: "x.png", Width: 10, Height: 20},
	}
	got := SanitizeForStorage(stored)
	if got.Image.Width != 10 || got.Image.Height != 20 {
		t.Errorf("already-sanitized descriptor changed: %+v", got.Image)
	}
}
