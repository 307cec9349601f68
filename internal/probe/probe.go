// Package probe inspects media containers with ffprobe.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ErrProbe reports an unsupported or unreadable container.
var ErrProbe = errors.New("probe failed")

// Result holds what the pipeline needs from a container probe. A nil
// VideoDurationSeconds means the container carried no video stream with a
// parseable duration.
type Result struct {
	VideoDurationSeconds *float64
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Prober runs ffprobe as an external tool.
type Prober struct {
	// Binary overrides the ffprobe executable; empty means "ffprobe".
	Binary string
}

// NewProber returns a Prober using the default ffprobe binary.
func NewProber() *Prober {
	return &Prober{}
}

// Probe inspects path and extracts the first video stream's duration,
// falling back to the container duration when the stream carries none.
func (p *Prober) Probe(ctx context.Context, path string) (Result, error) {
	binary := p.Binary
	if binary == "" {
		binary = "ffprobe"
	}

	cmd := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-show_format", "-show_streams",
		"-of", "json",
		"--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %s", ErrProbe, path, strings.TrimSpace(string(output)))
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrProbe, path, err)
	}

	var result Result
	for _, stream := range parsed.Streams {
		if stream.CodecType != "video" {
			continue
		}
		duration := stream.Duration
		if duration == "" {
			duration = parsed.Format.Duration
		}
		if seconds, err := strconv.ParseFloat(duration, 64); err == nil {
			result.VideoDurationSeconds = &seconds
		}
		break
	}
	return result, nil
}
