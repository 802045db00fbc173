// Package config loads the upload workflow configuration from
// environment variables. Load reads and validates everything once at
// startup; the rest of the codebase receives the typed Config and never
// touches the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/phash"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultWorkerCount    = 8
	DefaultMinBatchFiles  = 2
	DefaultBatchByteLimit = 100 * 1024 * 1024
	DefaultHashThreshold  = 5
	DefaultCombineMode    = "sum"
	DefaultMaxEdgePx      = 3000
)

// Config is the validated workflow configuration.
type Config struct {
	// PipelineEnabled selects the batch pipeline; when false every
	// session runs through the sequential path.
	PipelineEnabled bool
	// MinBatchFiles is the smallest file count routed to the batch
	// pipeline. Sessions below it run sequentially.
	MinBatchFiles int
	// WorkerCount is the fixed size of the batch worker pool.
	WorkerCount int
	// BatchByteLimit caps the cumulative raw size of one batch.
	BatchByteLimit int64
	// HashThreshold is the maximum combined signature distance at which
	// two images count as near-duplicates.
	HashThreshold int
	// CombineMode is how the two signature components combine into one
	// distance: "sum" or "max".
	CombineMode phash.CombineMode
	// MaxEdgePx is the canonical size envelope. Images whose longer
	// edge exceeds it are shrunk to fit; smaller images are left alone.
	MaxEdgePx int

	// Backend settings. Empty values are allowed here so local and
	// test runs can wire in-memory implementations; the CLI checks the
	// ones it needs for the selected mode.
	StorageBucket string
	StorageRoot   string
	CatalogTable  string
	EventBus      string
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		StorageBucket: getenv("UPLOAD_STORAGE_BUCKET", ""),
		StorageRoot:   getenv("UPLOAD_STORAGE_ROOT", "./data/designs"),
		CatalogTable:  getenv("UPLOAD_CATALOG_TABLE", ""),
		EventBus:      getenv("UPLOAD_EVENT_BUS", ""),
	}

	var err error
	if cfg.PipelineEnabled, err = getenvBool("UPLOAD_PIPELINE_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.WorkerCount, err = parsePositiveInt(getenv("UPLOAD_WORKER_COUNT", strconv.Itoa(DefaultWorkerCount)), "UPLOAD_WORKER_COUNT"); err != nil {
		return nil, err
	}
	if cfg.MinBatchFiles, err = parsePositiveInt(getenv("UPLOAD_MIN_BATCH_FILES", strconv.Itoa(DefaultMinBatchFiles)), "UPLOAD_MIN_BATCH_FILES"); err != nil {
		return nil, err
	}
	if cfg.MaxEdgePx, err = parsePositiveInt(getenv("UPLOAD_MAX_EDGE_PX", strconv.Itoa(DefaultMaxEdgePx)), "UPLOAD_MAX_EDGE_PX"); err != nil {
		return nil, err
	}

	limit := getenv("UPLOAD_BATCH_BYTE_LIMIT", strconv.Itoa(DefaultBatchByteLimit))
	cfg.BatchByteLimit, err = strconv.ParseInt(limit, 10, 64)
	if err != nil || cfg.BatchByteLimit <= 0 {
		return nil, fmt.Errorf("UPLOAD_BATCH_BYTE_LIMIT must be a positive byte count, got %q", limit)
	}

	threshold := getenv("UPLOAD_PHASH_THRESHOLD", strconv.Itoa(DefaultHashThreshold))
	cfg.HashThreshold, err = strconv.Atoi(threshold)
	if err != nil || cfg.HashThreshold < 0 {
		return nil, fmt.Errorf("UPLOAD_PHASH_THRESHOLD must be a non-negative integer, got %q", threshold)
	}

	if cfg.CombineMode, err = phash.ParseCombineMode(getenv("UPLOAD_PHASH_COMBINE", DefaultCombineMode)); err != nil {
		return nil, fmt.Errorf("UPLOAD_PHASH_COMBINE: %w", err)
	}

	return cfg, nil
}

func getenv(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getenvBool(key string, defaultValue bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, val)
	}
	return b, nil
}

func parsePositiveInt(val, name string) (int, error) {
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, val)
	}
	return n, nil
}
