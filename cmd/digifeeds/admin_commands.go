package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"digifeeds/internal/config"
	"digifeeds/internal/pipeline"
	"digifeeds/internal/storage"
)

func init() {
	rootCmd.AddCommand(loadStatusesCmd)
	rootCmd.AddCommand(listBarcodesCmd)
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportLastTwoWeeksCmd)
	rootCmd.AddCommand(pruneCmd)
}

var loadStatusesCmd = &cobra.Command{
	Use:   "load-statuses",
	Short: "Load the status catalog into the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAPI()
		if err != nil {
			return err
		}

		store, err := storage.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Migrate(cmd.Context()); err != nil {
			return err
		}
		return store.LoadStatuses(cmd.Context())
	},
}

var listBarcodesCmd = &cobra.Command{
	Use:   "list-barcodes-in-input-bucket",
	Short: "List the barcodes currently in the input directory of the S3 bucket",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		bucket, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.S3Bucket)
		if err != nil {
			return err
		}
		barcodes, err := bucket.ListBarcodesInInputPath(cmd.Context(), cfg.S3InputPath)
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(barcodes)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate digifeeds reports",
}

var reportLastTwoWeeksCmd = &cobra.Command{
	Use:   "added-in-last-two-weeks",
	Short: "Report the barcodes delivered in the last fourteen days",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		name, err := newPipeline(cfg).GenerateReport(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("wrote %s to the reports remote\n", name)
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune {s3|filesystem}",
	Short: "Delete delivered files whose items are confirmed in the hathifiles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		pruned, err := newPipeline(cfg).PruneProcessed(cmd.Context(), pipeline.PruneTarget(args[0]))
		if err != nil {
			return err
		}
		fmt.Printf("pruned %d files\n", len(pruned))
		return nil
	},
}
