package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"digifeeds/internal/config"
	"digifeeds/internal/domain"
	"digifeeds/internal/storage"
	appTemporal "digifeeds/internal/temporal"
)

func init() {
	rootCmd.AddCommand(addToDigifeedsSetCmd)
	rootCmd.AddCommand(checkZephirCmd)
	rootCmd.AddCommand(moveToPickupCmd)
	rootCmd.AddCommand(processBarcodeCmd)
	rootCmd.AddCommand(processBarcodesCmd)
	rootCmd.AddCommand(checkHathifilesCmd)
	rootCmd.AddCommand(confirmHathifilesCmd)
}

var addToDigifeedsSetCmd = &cobra.Command{
	Use:   "add-to-digifeeds-set BARCODE",
	Short: "Add a barcode to the database and to the digifeeds set in Alma",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		barcode := args[0]

		fmt.Printf("Adding barcode %q to database\n", barcode)
		item, err := newPipeline(cfg).AddToDigifeedsSet(cmd.Context(), barcode)
		if err != nil {
			return err
		}
		if item.HasStatus(domain.StatusNotFoundInAlma) {
			fmt.Println("Item not found in alma.")
		}
		if item.HasStatus(domain.StatusAddedToDigifeedsSet) {
			fmt.Println("Item added to digifeeds set")
		} else {
			fmt.Println("Item NOT added to digifeeds set")
		}
		return nil
	},
}

var checkZephirCmd = &cobra.Command{
	Use:   "check-zephir BARCODE",
	Short: "Check whether a barcode has metadata in Zephir",
	Long: `Check whether a barcode has metadata in Zephir. The barcode should NOT
have the mdp prefix and must already exist in the digifeeds database.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		barcode := args[0]

		fmt.Printf("Checking Zephir for %s\n", barcode)
		_, found, err := newPipeline(cfg).CheckZephir(cmd.Context(), barcode)
		if err != nil {
			return err
		}
		if found {
			fmt.Printf("%s is in Zephir\n", barcode)
		} else {
			fmt.Printf("%s is NOT in Zephir\n", barcode)
		}
		return nil
	},
}

var moveToPickupCmd = &cobra.Command{
	Use:   "move-to-pickup BARCODE",
	Short: "Move a zipped volume from the bucket to the pickup remote",
	Long: `Moves the zipped volume from the s3 bucket to the pickup remote. When it's
finished, the volume is moved to the processed folder in the bucket and
prefixed with the date and time.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		barcode := args[0]

		fmt.Printf("Moving barcode %q from the s3 bucket to pickup\n", barcode)
		_, moved, err := newPipeline(cfg).MoveToPickup(cmd.Context(), barcode)
		if err != nil {
			return err
		}
		if !moved {
			fmt.Println("Item has not been in zephir long enough")
		} else {
			fmt.Println("Item has been successfully moved to pickup")
		}
		return nil
	},
}

var processBarcodeCmd = &cobra.Command{
	Use:   "process-barcode BARCODE",
	Short: "Run a barcode as far through the pipeline as it can go",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		outcome, err := newPipeline(cfg).ProcessBarcode(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(outcome)
		return nil
	},
}

var processBarcodesCmd = &cobra.Command{
	Use:   "process-barcodes",
	Short: "Start a pipeline workflow for every barcode in the input bucket",
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

		temporalClient, err := client.Dial(client.Options{
			HostPort:  cfg.TemporalAddress,
			Namespace: cfg.TemporalNamespace,
		})
		if err != nil {
			return err
		}
		defer temporalClient.Close()

		for _, barcode := range barcodes {
			run, err := temporalClient.ExecuteWorkflow(cmd.Context(), client.StartWorkflowOptions{
				ID:        fmt.Sprintf("%s-%s", cfg.WorkflowIDPrefix, barcode),
				TaskQueue: cfg.TemporalTaskQueue,
			}, appTemporal.ProcessBarcodeWorkflowName, appTemporal.WorkflowInput{Barcode: barcode})
			if err != nil {
				return err
			}
			fmt.Printf("started workflow %s for barcode %s\n", run.GetID(), barcode)
		}
		fmt.Printf("started %d workflows\n", len(barcodes))
		return nil
	},
}

var checkHathifilesCmd = &cobra.Command{
	Use:   "check-hathifiles BARCODE",
	Short: "Check whether a delivered barcode has landed in the hathifiles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		barcode := args[0]

		_, found, err := newPipeline(cfg).CheckHathifiles(cmd.Context(), barcode)
		if err != nil {
			return err
		}
		if found {
			fmt.Printf("%s is in the hathifiles\n", barcode)
		} else {
			fmt.Printf("%s is NOT in the hathifiles yet\n", barcode)
		}
		return nil
	},
}

var confirmHathifilesCmd = &cobra.Command{
	Use:   "confirm-hathifiles",
	Short: "Run the hathifiles check over every delivered, unconfirmed item",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		confirmed, err := newPipeline(cfg).ConfirmPendingHathifiles(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("confirmed %d items\n", len(confirmed))
		return nil
	},
}
