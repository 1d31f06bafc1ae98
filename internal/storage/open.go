package storage

import (
	"fmt"

	"github.com/spec-kit/fleet-helpdesk/internal/config"
)

// Open builds the bucket driver selected in configuration.
func Open(cfg config.StorageConfig) (Bucket, error) {
	switch cfg.Driver {
	case "", "fs":
		return NewFSBucket(cfg.FSRoot), nil
	case "s3":
		return NewS3Bucket(cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
