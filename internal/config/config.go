package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	defaultHTTPPort         = "8080"
	defaultTemporalAddress  = "localhost:7233"
	defaultTemporalNS       = "default"
	defaultTaskQueue        = "digifeeds-task-queue"
	defaultDigifeedsAPIURL  = "http://localhost:8080"
	defaultAlmaAPIURL       = "https://api-na.hosted.exlibrisgroup.com/almaws/v1"
	defaultZephirAPIURL     = "http://zephir.cdlib.org/api/item"
	defaultHathifilesAPIURL = "http://localhost:8081"
	defaultHathiFileListURL = "https://www.hathitrust.org/files/hathifiles/hathi_file_list.json"
	defaultMinioEndpoint    = "localhost:9000"
	defaultBucket           = "digifeeds"
	defaultInputPath        = "input_barcodes"
	defaultProcessedPath    = "processed_barcodes"
	defaultS3Remote         = "digifeeds_bucket"
	defaultPickupRemote     = "digifeeds_pickup"
	defaultReportsRemote    = "digifeeds_reports"
	defaultStorePath        = "hathi_file_list_store.json"
	defaultWorkflowIDPrefix = "digifeeds"
	defaultExternalCallSecs = 30
)

type Config struct {
	HTTPPort          string
	PostgresDSN       string
	TemporalAddress   string
	TemporalNamespace string
	TemporalTaskQueue string

	DigifeedsAPIURL string

	AlmaAPIKey       string
	AlmaAPIURL       string
	DigifeedsSetID   string
	ZephirAPIURL     string
	HathifilesAPIURL string

	HathiFileListURL     string
	HathifilesStorePath  string
	HathifilesWebhookURL string

	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioUseSSL     bool
	S3Bucket        string
	S3InputPath     string
	S3ProcessedPath string

	S3RcloneRemote      string
	PickupRcloneRemote  string
	ReportsRcloneRemote string

	WorkflowIDPrefix    string
	ExternalCallTimeout int
}

func Load() (Config, error) {
	cfg := Config{
		HTTPPort:          getenv("HTTP_PORT", defaultHTTPPort),
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		TemporalAddress:   getenv("TEMPORAL_ADDRESS", defaultTemporalAddress),
		TemporalNamespace: getenv("TEMPORAL_NAMESPACE", defaultTemporalNS),
		TemporalTaskQueue: getenv("TEMPORAL_TASK_QUEUE", defaultTaskQueue),

		DigifeedsAPIURL: getenv("DIGIFEEDS_API_URL", defaultDigifeedsAPIURL),

		AlmaAPIKey:       os.Getenv("ALMA_API_KEY"),
		AlmaAPIURL:       getenv("ALMA_API_URL", defaultAlmaAPIURL),
		DigifeedsSetID:   getenv("DIGIFEEDS_SET_ID", "digifeeds_set_id"),
		ZephirAPIURL:     getenv("ZEPHIR_BIB_API_URL", defaultZephirAPIURL),
		HathifilesAPIURL: getenv("HATHIFILES_API_URL", defaultHathifilesAPIURL),

		HathiFileListURL:     getenv("HATHI_FILE_LIST_URL", defaultHathiFileListURL),
		HathifilesStorePath:  getenv("HATHIFILES_STORE_PATH", defaultStorePath),
		HathifilesWebhookURL: os.Getenv("HATHIFILES_WEBHOOK_URL"),

		MinioEndpoint:   getenv("DIGIFEEDS_S3_ENDPOINT", defaultMinioEndpoint),
		MinioAccessKey:  os.Getenv("DIGIFEEDS_S3_ACCESS_KEY"),
		MinioSecretKey:  os.Getenv("DIGIFEEDS_S3_SECRET_ACCESS_KEY"),
		MinioUseSSL:     getenvBool("DIGIFEEDS_S3_USE_SSL", false),
		S3Bucket:        getenv("DIGIFEEDS_S3_BUCKET", defaultBucket),
		S3InputPath:     getenv("DIGIFEEDS_S3_INPUT_PATH", defaultInputPath),
		S3ProcessedPath: getenv("DIGIFEEDS_S3_PROCESSED_PATH", defaultProcessedPath),

		S3RcloneRemote:      getenv("DIGIFEEDS_S3_RCLONE_REMOTE", defaultS3Remote),
		PickupRcloneRemote:  getenv("DIGIFEEDS_PICKUP_RCLONE_REMOTE", defaultPickupRemote),
		ReportsRcloneRemote: getenv("DIGIFEEDS_REPORTS_RCLONE_REMOTE", defaultReportsRemote),

		WorkflowIDPrefix:    getenv("WORKFLOW_ID_PREFIX", defaultWorkflowIDPrefix),
		ExternalCallTimeout: getenvInt("EXTERNAL_CALL_TIMEOUT_SEC", defaultExternalCallSecs),
	}

	return cfg, nil
}

// LoadAPI is Load plus the checks only the database-backed API server needs.
func LoadAPI() (Config, error) {
	cfg, err := Load()
	if err != nil {
		return Config{}, err
	}
	if cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("POSTGRES_DSN is required")
	}
	return cfg, nil
}

func getenv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
