package main

import (
	"github.com/spf13/cobra"

	"digifeeds/internal/alma"
	"digifeeds/internal/config"
	"digifeeds/internal/dbclient"
	"digifeeds/internal/hathifiles"
	"digifeeds/internal/pipeline"
	"digifeeds/internal/rclone"
	"digifeeds/internal/zephir"
)

var rootCmd = &cobra.Command{
	Use:   "digifeeds",
	Short: "Track and move library volumes through the digifeeds pipeline",
	Long: `digifeeds tracks scanned volumes from the moment a barcode lands in the
input bucket until HathiTrust confirms ingest, and runs the file moves and
external checks in between.`,
	SilenceUsage: true,
}

func newPipeline(cfg config.Config) *pipeline.Pipeline {
	return pipeline.New(
		dbclient.New(cfg.DigifeedsAPIURL),
		alma.NewClient(cfg.AlmaAPIKey, cfg.AlmaAPIURL, cfg.DigifeedsSetID),
		zephir.NewClient(cfg.ZephirAPIURL),
		hathifiles.NewClient(cfg.HathifilesAPIURL),
		rclone.New(),
		pipeline.Remotes{
			S3Remote:      cfg.S3RcloneRemote,
			InputPath:     cfg.S3InputPath,
			ProcessedPath: cfg.S3ProcessedPath,
			PickupRemote:  cfg.PickupRcloneRemote,
			ReportsRemote: cfg.ReportsRcloneRemote,
		},
	)
}
