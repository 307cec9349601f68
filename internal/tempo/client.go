// Package tempo enriches audio files with detected BPM.
package tempo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ErrInference reports a model or decode failure for one file. Callers skip
// BPM enrichment for that file and keep going.
var ErrInference = errors.New("tempo inference failed")

// Detector is the tempo-detection capability the analyzer consumes.
type Detector interface {
	DetermineTempo(ctx context.Context, path string) (float64, error)
}

// Client calls a remote tempo-detection service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the service at baseURL. The timeout bounds
// each inference call so a stalled model never stalls the batch.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// DetermineTempo uploads the audio file and returns the detected BPM.
func (c *Client) DetermineTempo(ctx context.Context, path string) (float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInference, err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInference, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInference, err)
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInference, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tempo", &body)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInference, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInference, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: service returned %s", ErrInference, resp.Status)
	}

	var result struct {
		BPM float64 `json:"bpm"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInference, err)
	}
	return result.BPM, nil
}
