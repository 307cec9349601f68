package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"mediasync/internal/catalog"
	"mediasync/internal/config"
	"mediasync/internal/extract"
	"mediasync/internal/probe"
	"mediasync/internal/tags"
)

type staticTagReader struct {
	data map[string]tags.Data
}

func (s *staticTagReader) Read(path string) (tags.Data, error) {
	return s.data[filepath.Base(path)], nil
}

type noProbe struct{}

func (noProbe) Probe(context.Context, string) (probe.Result, error) {
	return probe.Result{}, nil
}

func newTestPipeline(t *testing.T, reader extract.TagReader) (*Pipeline, config.Config) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.LibraryDir = t.TempDir()

	log := zap.NewNop()
	extractor := extract.New(reader, noProbe{}, nil, cfg.MusicDir(), cfg.VideosDir(), log)
	return New(cfg, log, nil, extractor, nil), cfg
}

func TestRunEmptyBatchIsNoOp(t *testing.T) {
	p, cfg := newTestPipeline(t, &staticTagReader{})

	if err := p.Run(context.Background(), t.TempDir(), Hooks{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// Nothing was written: the run short-circuited before any stage.
	if _, err := os.Stat(filepath.Join(cfg.LibraryDir, extract.NewAudioCatalogFile)); !os.IsNotExist(err) {
		t.Error("batch catalog written for empty input set")
	}
}

func TestRunMissingBatchDirFails(t *testing.T) {
	p, _ := newTestPipeline(t, &staticTagReader{})
	if err := p.Run(context.Background(), "/nonexistent/batch", Hooks{}); err == nil {
		t.Error("expected error for unreadable input set")
	}
}

func TestRunLocalMode(t *testing.T) {
	reader := &staticTagReader{data: map[string]tags.Data{
		"song.mp3": {Title: "Song", Artist: "Artist", DurationSeconds: 200},
	}}
	p, cfg := newTestPipeline(t, reader)

	batchDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(batchDir, "song.mp3"), []byte("audio"), 0644); err != nil {
		t.Fatal(err)
	}

	var stages []string
	hooks := Hooks{OnStage: func(name string) { stages = append(stages, name) }}

	if err := p.Run(context.Background(), batchDir, hooks); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(stages) != StageCount {
		t.Errorf("saw %d stages (%v), want %d", len(stages), stages, StageCount)
	}

	// Batch catalog and merged canonical catalog both written.
	batch, err := catalog.Load(filepath.Join(cfg.LibraryDir, extract.NewAudioCatalogFile))
	if err != nil || batch.Len() != 1 {
		t.Fatalf("batch catalog = (%v, %v), want 1 entry", batch, err)
	}
	merged, err := catalog.Load(filepath.Join(cfg.LibraryDir, extract.AudioCatalogFile))
	if err != nil || merged.Len() != 1 {
		t.Fatalf("merged catalog = (%v, %v), want 1 entry", merged, err)
	}
	rec, _ := merged.Get("song.mp3")
	if rec.ID != "Artist - Song" || rec.Duration != "03:20" {
		t.Errorf("merged record = %+v", rec)
	}

	// The file landed in the music library under its canonical name.
	if _, err := os.Stat(filepath.Join(cfg.MusicDir(), "Artist - Song.mp3")); err != nil {
		t.Error("canonical audio file missing")
	}
}

// A second batch with the same id replaces the record under its original
// key instead of growing the catalog.
func TestRunMergesAcrossBatches(t *testing.T) {
	reader := &staticTagReader{data: map[string]tags.Data{
		"first.mp3":  {Title: "Song", Artist: "Artist", DurationSeconds: 180},
		"second.mp3": {Title: "Song", Artist: "Artist", DurationSeconds: 200},
	}}
	p, cfg := newTestPipeline(t, reader)

	for _, name := range []string{"first.mp3", "second.mp3"} {
		batchDir := t.TempDir()
		if err := os.WriteFile(filepath.Join(batchDir, name), []byte("audio"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := p.Run(context.Background(), batchDir, Hooks{}); err != nil {
			t.Fatalf("Run(%s) failed: %v", name, err)
		}
	}

	merged, err := catalog.Load(filepath.Join(cfg.LibraryDir, extract.AudioCatalogFile))
	if err != nil {
		t.Fatal(err)
	}
	if merged.Len() != 1 {
		t.Fatalf("catalog has %d entries, want 1", merged.Len())
	}
	rec, ok := merged.Get("first.mp3")
	if !ok {
		t.Fatal("original batch-local key not preserved")
	}
	if rec.Duration != "03:20" {
		t.Errorf("duration = %q, want updated 03:20", rec.Duration)
	}
}
