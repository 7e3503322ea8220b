package main

import (
	"log"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"digifeeds/internal/alma"
	"digifeeds/internal/config"
	"digifeeds/internal/dbclient"
	"digifeeds/internal/hathifiles"
	"digifeeds/internal/pipeline"
	"digifeeds/internal/rclone"
	appTemporal "digifeeds/internal/temporal"
	"digifeeds/internal/zephir"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pipe := pipeline.New(
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

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
	})
	if err != nil {
		log.Fatalf("connect temporal: %v", err)
	}
	defer temporalClient.Close()

	activities := &appTemporal.Activities{Pipeline: pipe}

	w := worker.New(temporalClient, cfg.TemporalTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(appTemporal.ProcessBarcodeWorkflow, workflow.RegisterOptions{Name: appTemporal.ProcessBarcodeWorkflowName})
	w.RegisterActivity(activities.AddToDigifeedsSetActivity)
	w.RegisterActivity(activities.CheckZephirActivity)
	w.RegisterActivity(activities.MoveToPickupActivity)

	log.Printf("worker running on task queue %s", cfg.TemporalTaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker stopped with error: %v", err)
	}
}
