// Package trace is the client for the raster trace endpoint that turns a
// bitmap into vector paths. The endpoint is opaque to the editor; every
// returned path string is sanitized before it can become an element.
package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kerfcraft/kerfcraft/backend-go/internal/geom"
)

// Mode selects the tracing strategy.
type Mode string

const (
	ModeSilhouette Mode = "silhouette"
	ModeLineart    Mode = "lineart"
)

// ErrRejected is returned when the endpoint reports a non-ok result.
var ErrRejected = errors.New("trace rejected")

// Request describes one trace job.
type Request struct {
	ImageData    string  `json:"imageData"` // data URL
	Mode         Mode    `json:"mode"`
	TargetSizeMm float64 `json:"targetSizeMm"`
	Threshold    int     `json:"threshold"`
	Denoise      bool    `json:"denoise"`
	AutoInvert   bool    `json:"autoInvert"`
}

// Stats carries geometry metadata the endpoint computed.
type Stats struct {
	LocalBounds geom.Rect `json:"localBounds"`
}

// Result is a successful trace response with sanitized paths.
type Result struct {
	OK           bool     `json:"ok"`
	Paths        []string `json:"paths"`
	CombinedPath string   `json:"combinedPath"`
	Stats        Stats    `json:"stats"`
	Error        string   `json:"error,omitempty"`
}

// Client calls the trace endpoint.
type Client struct {
	url  string
	http *http.Client
}

// NewClient builds a trace client for the given endpoint URL.
func NewClient(url string) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

// Trace submits a job. In-flight jobs are cancellable through ctx. Paths
// in the result have already passed ValidPathData; a response containing
// any rejected path fails as a whole rather than inserting partial
// geometry.
func (c *Client) Trace(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal trace request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build trace request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("trace request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trace endpoint returned %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, 32<<20)).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode trace response: %w", err)
	}
	if !result.OK {
		if result.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrRejected, result.Error)
		}
		return nil, ErrRejected
	}

	for _, d := range append(append([]string(nil), result.Paths...), result.CombinedPath) {
		if d == "" {
			continue
		}
		if !ValidPathData(d) {
			return nil, fmt.Errorf("%w: unsafe path data in response", ErrRejected)
		}
	}
	return &result, nil
}

// ValidPathData reports whether a path string is safe to insert into the
// document: no markup-like tokens, no NaN/Infinity, only characters legal
// in SVG path data.
func ValidPathData(d string) bool {
	if d == "" {
		return false
	}
	if strings.Contains(d, "NaN") || strings.Contains(d, "Infinity") {
		return false
	}
	for _, r := range d {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r == ' ' || r == ',' || r == '.' || r == '-' || r == '+':
		default:
			return false
		}
	}
	return true
}
