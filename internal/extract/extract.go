// Package extract turns raw media files into catalog records, renaming
// them into their canonical library locations as a side effect.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"mediasync/internal/catalog"
	"mediasync/internal/probe"
	"mediasync/internal/tags"
	"mediasync/pkg/utils"
)

// ErrSourceMissing reports that a file vanished between scan and rename.
// The file is skipped; the batch continues.
var ErrSourceMissing = errors.New("source file missing")

// Canonical names of the batch and merged catalog files.
const (
	NewAudioCatalogFile = "new_audioMetadata.json"
	NewVideoCatalogFile = "new_videoMetadata.json"
	AudioCatalogFile    = "audioMetadata.json"
	VideoCatalogFile    = "videoMetadata.json"
)

var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".flac": true,
	".wav":  true,
}

var videoExtensions = map[string]bool{
	".mp4": true,
}

// TagReader is the audio tag capability (see internal/tags).
type TagReader interface {
	Read(path string) (tags.Data, error)
}

// MediaProbe is the container probe capability (see internal/probe).
type MediaProbe interface {
	Probe(ctx context.Context, path string) (probe.Result, error)
}

// SidecarReader consumes a one-shot tempo sidecar for an audio file.
// A (nil, nil) return means no sidecar existed.
type SidecarReader func(audioPath string) (*float64, error)

// Extractor runs the local extraction stage over a batch directory.
type Extractor struct {
	tags    TagReader
	probe   MediaProbe
	sidecar SidecarReader
	log     *zap.Logger

	// MusicDir and VideosDir are the canonical library locations files are
	// renamed into.
	MusicDir  string
	VideosDir string
}

// New builds an extractor. sidecar may be nil when tempo enrichment is
// disabled.
func New(tagReader TagReader, mediaProbe MediaProbe, sidecar SidecarReader, musicDir, videosDir string, log *zap.Logger) *Extractor {
	return &Extractor{
		tags:      tagReader,
		probe:     mediaProbe,
		sidecar:   sidecar,
		log:       log,
		MusicDir:  musicDir,
		VideosDir: videosDir,
	}
}

// Batch converts every media file under srcDir into a record, split into
// the audio and video catalog partitions, keyed by the original filename.
// Any single file's failure is logged and skipped; extraction never aborts
// the batch.
func (e *Extractor) Batch(ctx context.Context, srcDir string) (audio, video *catalog.Catalog, err error) {
	audio = catalog.New()
	video = catalog.New()

	walkErr := filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}

		name := filepath.Base(path)
		ext := strings.ToLower(filepath.Ext(path))
		switch {
		case audioExtensions[ext]:
			rec, err := e.Audio(path)
			if err != nil {
				e.log.Warn("skipping audio file", zap.String("file", name), zap.Error(err))
				return nil
			}
			audio.Set(name, rec)
		case videoExtensions[ext]:
			rec, err := e.Video(ctx, path)
			if err != nil {
				e.log.Warn("skipping video file", zap.String("file", name), zap.Error(err))
				return nil
			}
			video.Set(name, rec)
		}
		return nil
	})
	if walkErr != nil {
		return nil, nil, fmt.Errorf("failed to scan %s: %w", srcDir, walkErr)
	}
	return audio, video, nil
}

// Audio extracts one audio file: reads tags, consumes the tempo sidecar,
// renames the file to {id}{ext} under MusicDir and saves flattened cover
// art as {id}.jpg. Missing tags fall back to the Unknown sentinels; only an
// unreadable container or a vanished source fails.
func (e *Extractor) Audio(path string) (catalog.Record, error) {
	data, err := e.tags.Read(path)
	if err != nil {
		return catalog.Record{}, err
	}

	title, artist := normalizeTags(data.Title, data.Artist)
	if title == "" {
		title = catalog.UnknownTitle
	}
	if artist == "" {
		artist = catalog.UnknownArtist
	}

	duration := catalog.UnknownDuration
	if data.DurationSeconds > 0 {
		duration = catalog.FormatDuration(data.DurationSeconds)
	}

	id := catalog.MakeID(artist, title)
	ext := strings.ToLower(filepath.Ext(path))

	// Sidecar is keyed on the source filename, so consume it before the
	// rename. Its absence is not an error.
	var bpm *float64
	if e.sidecar != nil {
		bpm, err = e.sidecar(path)
		if err != nil {
			e.log.Warn("failed to consume tempo sidecar", zap.String("file", path), zap.Error(err))
		}
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return catalog.Record{}, fmt.Errorf("%w: %s", ErrSourceMissing, path)
		}
		return catalog.Record{}, err
	}
	newName := id + ext
	if err := utils.MoveFile(path, filepath.Join(e.MusicDir, newName)); err != nil {
		return catalog.Record{}, err
	}

	image := catalog.NoCoverImage
	if len(data.Cover) > 0 {
		coverName := id + ".jpg"
		if err := saveCover(data.Cover, filepath.Join(e.MusicDir, coverName)); err != nil {
			e.log.Warn("failed to save cover art", zap.String("file", path), zap.Error(err))
		} else {
			image = "music/" + coverName
		}
	}

	return catalog.Record{
		ID:       id,
		Title:    title,
		Artist:   artist,
		Duration: duration,
		URL:      "music/" + newName,
		Image:    image,
		BPM:      bpm,
	}, nil
}

// Video extracts one video file: probes the container for the video
// stream's duration and relocates the file under its original name. Video
// ids derive from the filename, since no universal artist/title tag set
// exists for video containers.
func (e *Extractor) Video(ctx context.Context, path string) (catalog.Record, error) {
	result, err := e.probe.Probe(ctx, path)
	if err != nil {
		return catalog.Record{}, err
	}

	name := filepath.Base(path)
	title := strings.TrimSuffix(name, filepath.Ext(name))
	id := catalog.Sanitize(title)

	duration := catalog.NoDuration
	if result.VideoDurationSeconds != nil {
		duration = catalog.FormatDuration(*result.VideoDurationSeconds)
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return catalog.Record{}, fmt.Errorf("%w: %s", ErrSourceMissing, path)
		}
		return catalog.Record{}, err
	}
	if err := utils.MoveFile(path, filepath.Join(e.VideosDir, name)); err != nil {
		return catalog.Record{}, err
	}

	return catalog.Record{
		ID:    id,
		Title: title,
		URL:   "videos/" + name,
		Metadata: &catalog.VideoMeta{
			Title:    title,
			Image:    "videos/" + id + ".jpg",
			Duration: duration,
		},
	}, nil
}
