package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mediasync/internal/config"
	"mediasync/internal/extract"
	"mediasync/internal/logger"
	"mediasync/internal/pipeline"
	"mediasync/internal/probe"
	"mediasync/internal/store"
	"mediasync/internal/tags"
	"mediasync/internal/tempo"
)

// Environment keys for object store credentials. Secrets never live in the
// config file.
const (
	envAccessKey = "MINIO_ACCESS_KEY"
	envSecretKey = "MINIO_SECRET_KEY"
)

type rootFlags struct {
	configPath string
	verbose    bool
	parallel   int
	libraryDir string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "mediasync",
		Short:         "Ingest media batches into a synced library",
		Long:          "mediasync analyzes, catalogs and uploads batches of audio and video files:\ntempo detection, metadata extraction with canonical renaming, catalog merging\nand staleness-aware upload to an S3-compatible object store.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "path to config file")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "show detailed output")
	pf.IntVarP(&flags.parallel, "parallel", "p", 0, "number of parallel tempo jobs (1-10)")
	pf.StringVarP(&flags.libraryDir, "library", "l", "", "library directory")

	root.AddCommand(
		newRunCmd(flags),
		newAnalyzeCmd(flags),
		newExtractCmd(flags),
		newSyncCmd(flags),
		newServeCmd(flags),
	)

	return root
}

// loadConfig builds the effective configuration.
// Priority: CLI flags > config file > defaults.
func loadConfig(flags *rootFlags) (config.Config, error) {
	// Optional .env for local development; missing file is fine.
	godotenv.Load()

	cfg, err := config.LoadConfigFile(flags.configPath)
	if err != nil {
		return cfg, err
	}

	if flags.verbose {
		cfg.Verbose = true
	}
	if flags.parallel > 0 {
		cfg.ParallelJobs = flags.parallel
	}
	if flags.libraryDir != "" {
		cfg.LibraryDir = config.ExpandHome(flags.libraryDir)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

func buildLogger(cfg config.Config) (*zap.Logger, error) {
	opts := logger.Options{Verbose: cfg.Verbose}
	if !cfg.Verbose {
		opts.FilePath = filepath.Join(config.GetDefaultLogPath(),
			fmt.Sprintf("mediasync_%s.log", time.Now().Format("2006-01-02")))
	}
	return logger.New(opts)
}

func buildAnalyzer(cfg config.Config, log *zap.Logger) *tempo.Analyzer {
	if cfg.TempoServiceURL == "" {
		return nil
	}
	client := tempo.NewClient(cfg.TempoServiceURL,
		time.Duration(cfg.TempoTimeoutSeconds)*time.Second)
	return tempo.NewAnalyzer(client, cfg.ParallelJobs, log)
}

func buildExtractor(cfg config.Config, log *zap.Logger) *extract.Extractor {
	sidecar := func(audioPath string) (*float64, error) {
		sc, err := tempo.ReadSidecar(audioPath)
		if err != nil || sc == nil {
			return nil, err
		}
		return &sc.BPM, nil
	}
	return extract.New(tags.NewReader(), probe.NewProber(), sidecar,
		cfg.MusicDir(), cfg.VideosDir(), log)
}

// buildSyncer returns nil when no object store is configured, which puts
// the pipeline in local-only mode.
func buildSyncer(cfg config.Config, log *zap.Logger) (*store.Syncer, error) {
	if cfg.StoreEndpoint == "" {
		return nil, nil
	}

	creds := store.Credentials{
		Endpoint:  cfg.StoreEndpoint,
		AccessKey: os.Getenv(envAccessKey),
		SecretKey: os.Getenv(envSecretKey),
		Bucket:    cfg.StoreBucket,
		Region:    cfg.StoreRegion,
		UseSSL:    cfg.StoreUseSSL,
	}
	ms, err := store.NewMinioStore(creds)
	if err != nil {
		return nil, err
	}
	return store.NewSyncer(ms, log), nil
}

func buildPipeline(cfg config.Config, log *zap.Logger) (*pipeline.Pipeline, error) {
	syncer, err := buildSyncer(cfg, log)
	if err != nil {
		return nil, err
	}
	return pipeline.New(cfg, log,
		buildAnalyzer(cfg, log),
		buildExtractor(cfg, log),
		syncer), nil
}
