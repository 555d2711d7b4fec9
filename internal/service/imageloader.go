package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"canvas-backend/internal/model"
)

// HTTPImageLoader resolves element image sources into live resources. It
// handles http(s) URLs and base64 data URIs, the two forms clients store.
type HTTPImageLoader struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPImageLoader creates a loader with a per-request timeout.
func NewHTTPImageLoader(timeout time.Duration, maxBytes int64) *HTTPImageLoader {
	return &HTTPImageLoader{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Load implements model.ImageLoader.
func (l *HTTPImageLoader) Load(ctx context.Context, src string) (*model.LiveImage, error) {
	if strings.HasPrefix(src, "data:") {
		return l.loadDataURI(src)
	}
	return l.loadURL(ctx, src)
}

func (l *HTTPImageLoader) loadURL(ctx context.Context, src string) (*model.LiveImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("image request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("image read: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", l.maxBytes)
	}

	return decode(data)
}

func (l *HTTPImageLoader) loadDataURI(src string) (*model.LiveImage, error) {
	// data:image/png;base64,<payload>
	comma := strings.IndexByte(src, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data URI")
	}
	meta, payload := src[5:comma], src[comma+1:]

	var data []byte
	var err error
	if strings.HasSuffix(meta, ";base64") {
		data, err = base64.StdEncoding.DecodeString(payload)
	} else {
		data = []byte(payload)
	}
	if err != nil {
		return nil, fmt.Errorf("decode data URI: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", l.maxBytes)
	}

	return decode(data)
}

func decode(data []byte) (*model.LiveImage, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	return &model.LiveImage{
		Data:   data,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}
