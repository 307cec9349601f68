package catalog

import (
	"fmt"
	"math"
)

// Sentinel values shared by both catalog partitions. The audio and video
// pipelines use distinct "no duration" sentinels; published catalogs depend
// on the exact strings, so they must not be unified.
const (
	UnknownTitle    = "Unknown"
	UnknownArtist   = "Unknown Artist"
	UnknownDuration = "Unknown" // audio partition
	NoDuration      = "N/A"     // video partition
	NoCoverImage    = "nocoverfound.jpg"
)

// Record is one catalog entry. Audio records carry title/artist/duration at
// the top level plus an optional bpm; video records carry a nested metadata
// block instead. A single type serves both partitions so the merge engine
// and the JSON layer stay partition-agnostic.
type Record struct {
	ID       string     `json:"id"`
	Title    string     `json:"title,omitempty"`
	Artist   string     `json:"artist,omitempty"`
	Duration string     `json:"duration,omitempty"`
	URL      string     `json:"url,omitempty"`
	Image    string     `json:"image,omitempty"`
	BPM      *float64   `json:"bpm,omitempty"`
	Metadata *VideoMeta `json:"metadata,omitempty"`
}

// VideoMeta is the nested metadata block of a video record.
type VideoMeta struct {
	Title    string `json:"title"`
	Image    string `json:"image"`
	Duration string `json:"duration"`
}

// FormatDuration renders a duration in seconds as zero-padded MM:SS.
func FormatDuration(seconds float64) string {
	minutes := int(math.Floor(seconds / 60))
	secs := int(math.Floor(math.Mod(seconds, 60)))
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}
