package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLoadURL(t *testing.T) {
	img := pngBytes(t, 3, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(img)
	}))
	defer srv.Close()

	loader := NewHTTPImageLoader(5*time.Second, 1<<20)
	live, err := loader.Load(context.Background(), srv.URL+"/a.png")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if live.Width != 3 || live.Height != 2 {
		t.Errorf("dims = %dx%d, want 3x2", live.Width, live.Height)
	}
	if len(live.Data) != len(img) {
		t.Errorf("data length = %d, want %d", len(live.Data), len(img))
	}
}

func TestLoadURLNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	loader := NewHTTPImageLoader(5*time.Second, 1<<20)
	if _, err := loader.Load(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Fatal("404 response did not error")
	}
}

func TestLoadDataURI(t *testing.T) {
	img := pngBytes(t, 4, 4)
	src := "data:image/png;base64," + base64.StdEncoding.EncodeToString(img)

	loader := NewHTTPImageLoader(5*time.Second, 1<<20)
	live, err := loader.Load(context.Background(), src)
	if err != nil {
		t.Fatalf("Load data URI: %v", err)
	}
	if live.Width != 4 || live.Height != 4 {
		t.Errorf("dims = %dx%d, want 4x4", live.Width, live.Height)
	}
}

func TestLoadDataURIMalformed(t *testing.T) {
	loader := NewHTTPImageLoader(5*time.Second, 1<<20)
	if _, err := loader.Load(context.Background(), "data:image/png;base64"); err == nil {
		t.Fatal("malformed data URI did not error")
	}
}

func TestLoadTooLarge(t *testing.T) {
	img := pngBytes(t, 16, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(img)
	}))
	defer srv.Close()

	loader := NewHTTPImageLoader(5*time.Second, 8)
	if _, err := loader.Load(context.Background(), srv.URL); err == nil {
		t.Fatal("oversized image did not error")
	}
}
