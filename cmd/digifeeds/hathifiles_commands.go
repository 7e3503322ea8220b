package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"digifeeds/internal/config"
	"digifeeds/internal/hathifiles"
)

func init() {
	rootCmd.AddCommand(hathifilesCmd)
	hathifilesCmd.AddCommand(createStoreFileCmd)
	hathifilesCmd.AddCommand(checkForNewUpdateFilesCmd)
}

var hathifilesCmd = &cobra.Command{
	Use:   "hathifiles",
	Short: "Watch hathitrust.org for new update files",
}

func newPoller(cfg config.Config) *hathifiles.Poller {
	return hathifiles.NewPoller(cfg.HathiFileListURL, cfg.HathifilesStorePath, cfg.HathifilesWebhookURL)
}

var createStoreFileCmd = &cobra.Command{
	Use:   "create-store-file",
	Short: "Seed the update-file store from the current upstream list",
	Long: `Generates a new store file if one does not already exist, based on the
latest hathi_file_list.json from hathitrust.org. An existing store is left
alone.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return newPoller(cfg).CreateStoreFile(cmd.Context())
	},
}

var checkForNewUpdateFilesCmd = &cobra.Command{
	Use:   "check-for-new-update-files",
	Short: "Diff the upstream update-file list against the store and notify the webhook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		newFiles, err := newPoller(cfg).CheckForNewUpdateFiles(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%d new update files\n", len(newFiles))
		return nil
	},
}
