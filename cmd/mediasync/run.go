package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediasync/internal/pipeline"
	"mediasync/internal/progress"
	"mediasync/internal/shutdown"
	"mediasync/pkg/utils"
)

func newRunCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run <batch-dir>",
		Short: "Run the full ingestion pipeline over a batch directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			if err := utils.CheckDependencies(); err != nil {
				return fmt.Errorf("dependency check failed: %w", err)
			}

			log, err := buildLogger(cfg)
			if err != nil {
				return fmt.Errorf("failed to set up logging: %w", err)
			}
			defer log.Sync()

			pipe, err := buildPipeline(cfg, log)
			if err != nil {
				return err
			}

			sh := shutdown.New()
			sh.Listen()
			defer sh.Shutdown()

			var bar *progress.Bar
			if !cfg.Verbose {
				bar = progress.New(pipeline.StageCount)
				defer bar.Finish()
			}

			hooks := pipeline.Hooks{
				OnStage: func(name string) {
					if bar != nil {
						bar.Step(name)
					}
				},
			}

			if err := pipe.Run(sh.Context(), args[0], hooks); err != nil {
				return err
			}

			if bar != nil {
				bar.Finish()
			}
			log.Info("ingestion run completed")
			return nil
		},
	}
}
