// Package pipeline orchestrates the ingestion stages: tempo analysis,
// extraction, catalog merge and blob sync. The run is at-least-once and
// best-effort: a failed stage is logged and the remaining stages still
// execute.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"mediasync/internal/catalog"
	"mediasync/internal/config"
	"mediasync/internal/extract"
	"mediasync/internal/store"
	"mediasync/internal/tempo"
)

// Hooks lets callers observe stage transitions without coupling the
// pipeline to any UI.
type Hooks struct {
	OnStage   func(name string)
	OnWarning func(msg string)
}

// StageCount is the number of stages a full run walks through.
const StageCount = 4

// Pipeline runs the ingestion stages over one batch directory.
type Pipeline struct {
	cfg       config.Config
	log       *zap.Logger
	analyzer  *tempo.Analyzer // nil disables tempo analysis
	extractor *extract.Extractor
	syncer    *store.Syncer // nil runs in local-only mode
}

// New assembles a pipeline. analyzer and syncer may be nil: without an
// analyzer the tempo stage is skipped, without a syncer catalogs merge
// against the local canonical files and nothing is uploaded.
func New(cfg config.Config, log *zap.Logger, analyzer *tempo.Analyzer, extractor *extract.Extractor, syncer *store.Syncer) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		log:       log,
		analyzer:  analyzer,
		extractor: extractor,
		syncer:    syncer,
	}
}

// Run processes the batch under batchDir. Only a totally unreadable or
// empty input set short-circuits; every other failure is contained to its
// stage and the run completes best-effort.
func (p *Pipeline) Run(ctx context.Context, batchDir string, hooks Hooks) error {
	entries, err := os.ReadDir(batchDir)
	if err != nil {
		return fmt.Errorf("failed to read batch directory %s: %w", batchDir, err)
	}
	if len(entries) == 0 {
		p.log.Info("no files in batch directory, skipping run", zap.String("dir", batchDir))
		return nil
	}

	for _, dir := range []string{p.cfg.MusicDir(), p.cfg.VideosDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create library directory %s: %w", dir, err)
		}
	}

	p.stage(hooks, "tempo analysis")
	if p.analyzer != nil {
		if stats, err := p.analyzer.Run(ctx, batchDir); err != nil {
			p.warn(hooks, fmt.Sprintf("tempo analysis failed: %v", err))
		} else {
			p.log.Info("tempo analysis done",
				zap.Int("analyzed", stats.Analyzed),
				zap.Int("skipped", stats.Skipped),
				zap.Int("failed", stats.Failed))
		}
	} else {
		p.log.Debug("tempo analysis disabled")
	}

	p.stage(hooks, "extraction")
	audio, video, err := p.extractor.Batch(ctx, batchDir)
	if err != nil {
		p.warn(hooks, fmt.Sprintf("extraction failed: %v", err))
		audio, video = catalog.New(), catalog.New()
	}
	p.log.Info("extraction done",
		zap.Int("audio", audio.Len()), zap.Int("video", video.Len()))

	if err := audio.Save(filepath.Join(p.cfg.LibraryDir, extract.NewAudioCatalogFile)); err != nil {
		p.warn(hooks, fmt.Sprintf("failed to save audio batch catalog: %v", err))
	}
	if err := video.Save(filepath.Join(p.cfg.LibraryDir, extract.NewVideoCatalogFile)); err != nil {
		p.warn(hooks, fmt.Sprintf("failed to save video batch catalog: %v", err))
	}

	p.stage(hooks, "catalog merge")
	p.mergeCatalog(ctx, hooks, audio, extract.AudioCatalogFile)
	p.mergeCatalog(ctx, hooks, video, extract.VideoCatalogFile)

	p.stage(hooks, "asset sync")
	if p.syncer != nil {
		p.syncAssets(ctx, hooks)
	} else {
		p.log.Debug("no object store configured, skipping asset sync")
	}

	p.log.Info("pipeline run complete")
	return nil
}

// mergeCatalog reconciles one partition. With a syncer the canonical
// catalog is downloaded, merged and re-uploaded; otherwise the merge runs
// against the local canonical file only.
func (p *Pipeline) mergeCatalog(ctx context.Context, hooks Hooks, incoming *catalog.Catalog, name string) {
	localPath := filepath.Join(p.cfg.LibraryDir, name)

	if p.syncer != nil {
		if _, err := p.syncer.SyncCatalog(ctx, incoming, localPath, name); err != nil {
			p.warn(hooks, fmt.Sprintf("failed to sync catalog %s: %v", name, err))
		}
		return
	}

	existing, err := catalog.Load(localPath)
	if err != nil {
		p.warn(hooks, fmt.Sprintf("failed to load catalog %s: %v", name, err))
		return
	}
	merged, report := catalog.Merge(existing, incoming)
	if report.DuplicateIDs > 0 {
		p.log.Warn("incoming batch carries duplicate ids",
			zap.String("catalog", name), zap.Int("duplicates", report.DuplicateIDs))
	}
	if err := merged.Save(localPath); err != nil {
		p.warn(hooks, fmt.Sprintf("failed to save catalog %s: %v", name, err))
	}
}

func (p *Pipeline) syncAssets(ctx context.Context, hooks Hooks) {
	namespaces := []struct {
		dir    string
		prefix string
	}{
		{p.cfg.MusicDir(), config.MusicSubdir + "/"},
		{p.cfg.VideosDir(), config.VideosSubdir + "/"},
	}

	for _, ns := range namespaces {
		if p.cfg.PruneRemote {
			if _, err := p.syncer.PruneRemote(ctx, ns.dir, ns.prefix); err != nil {
				p.warn(hooks, fmt.Sprintf("failed to prune %s: %v", ns.prefix, err))
			}
		}
		stats, err := p.syncer.SyncDir(ctx, ns.dir, ns.prefix)
		if err != nil {
			p.warn(hooks, fmt.Sprintf("failed to sync %s: %v", ns.prefix, err))
			continue
		}
		p.log.Info("asset sync done",
			zap.String("prefix", ns.prefix),
			zap.Int("uploaded", stats.Uploaded),
			zap.Int("skipped", stats.Skipped),
			zap.Int("failed", stats.Failed))
	}
}

func (p *Pipeline) stage(hooks Hooks, name string) {
	p.log.Info("starting stage", zap.String("stage", name))
	if hooks.OnStage != nil {
		hooks.OnStage(name)
	}
}

func (p *Pipeline) warn(hooks Hooks, msg string) {
	p.log.Warn(msg)
	if hooks.OnWarning != nil {
		hooks.OnWarning(msg)
	}
}
