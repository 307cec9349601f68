package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mediasync/internal/catalog"
	"mediasync/internal/config"
	"mediasync/internal/extract"
	"mediasync/internal/pipeline"
	"mediasync/internal/shutdown"
	"mediasync/internal/store"
)

// newAnalyzeCmd runs tempo analysis by itself. Sidecars are left in place
// for a later extract run.
func newAnalyzeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <batch-dir>",
		Short: "Run tempo analysis over a batch directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if cfg.TempoServiceURL == "" {
				return fmt.Errorf("tempo_service_url is not configured")
			}

			log, err := buildLogger(cfg)
			if err != nil {
				return fmt.Errorf("failed to set up logging: %w", err)
			}
			defer log.Sync()

			sh := shutdown.New()
			sh.Listen()
			defer sh.Shutdown()

			stats, err := buildAnalyzer(cfg, log).Run(sh.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Analyzed: %d  Skipped: %d  Failed: %d\n",
				stats.Analyzed, stats.Skipped, stats.Failed)
			return nil
		},
	}
}

// newExtractCmd runs extraction and the local catalog merge without
// touching the object store.
func newExtractCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <batch-dir>",
		Short: "Extract metadata and merge catalogs locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			log, err := buildLogger(cfg)
			if err != nil {
				return fmt.Errorf("failed to set up logging: %w", err)
			}
			defer log.Sync()

			sh := shutdown.New()
			sh.Listen()
			defer sh.Shutdown()

			pipe := pipeline.New(cfg, log, nil, buildExtractor(cfg, log), nil)
			return pipe.Run(sh.Context(), args[0], pipeline.Hooks{})
		},
	}
}

// newSyncCmd pushes the local library to the object store: catalogs are
// merged with their remote copies, assets upload only when local is newer.
func newSyncCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync the local library to the object store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			log, err := buildLogger(cfg)
			if err != nil {
				return fmt.Errorf("failed to set up logging: %w", err)
			}
			defer log.Sync()

			syncer, err := buildSyncer(cfg, log)
			if err != nil {
				return err
			}
			if syncer == nil {
				return fmt.Errorf("store_endpoint is not configured")
			}

			sh := shutdown.New()
			sh.Listen()
			defer sh.Shutdown()
			ctx := sh.Context()

			for _, name := range []string{extract.AudioCatalogFile, extract.VideoCatalogFile} {
				localPath := filepath.Join(cfg.LibraryDir, name)
				local, err := catalog.Load(localPath)
				if err != nil {
					return fmt.Errorf("failed to load catalog %s: %w", name, err)
				}
				if _, err := syncer.SyncCatalog(ctx, local, localPath, name); err != nil {
					return fmt.Errorf("failed to sync catalog %s: %w", name, err)
				}
			}

			namespaces := []struct {
				dir    string
				prefix string
			}{
				{cfg.MusicDir(), config.MusicSubdir + "/"},
				{cfg.VideosDir(), config.VideosSubdir + "/"},
			}
			var total store.SyncStats
			for _, ns := range namespaces {
				if cfg.PruneRemote {
					pruned, err := syncer.PruneRemote(ctx, ns.dir, ns.prefix)
					if err != nil {
						log.Warn("prune failed",
							zap.String("prefix", ns.prefix), zap.Error(err))
					} else if pruned > 0 {
						log.Info("pruned remote objects",
							zap.String("prefix", ns.prefix), zap.Int("count", pruned))
					}
				}
				stats, err := syncer.SyncDir(ctx, ns.dir, ns.prefix)
				if err != nil {
					log.Warn("asset sync failed",
						zap.String("prefix", ns.prefix), zap.Error(err))
					continue
				}
				total.Uploaded += stats.Uploaded
				total.Skipped += stats.Skipped
				total.Failed += stats.Failed
			}

			fmt.Printf("Uploaded: %d  Skipped: %d  Failed: %d\n",
				total.Uploaded, total.Skipped, total.Failed)
			return nil
		},
	}
}
