package blob

import (
	"context"
	"fmt"
	"os"
	"strings"

	fsstore "breedcore/internal/infra/blob/fs"
	memorystore "breedcore/internal/infra/blob/memory"
	s3store "breedcore/internal/infra/blob/s3"
)

// S3Config re-exports the S3 backend configuration.
type S3Config = s3store.Config

// Config selects a backend and carries its settings.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// ConfigFromEnv reads the blob selection from the environment.
//
//	BREEDCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	BREEDCORE_BLOB_FS_ROOT: directory root when driver=fs (default ./blobdata)
//	BREEDCORE_BLOB_S3_BUCKET: bucket when driver=s3 (required)
//	BREEDCORE_BLOB_S3_REGION: region (default us-east-1)
//	BREEDCORE_BLOB_S3_ENDPOINT: custom endpoint, e.g. MinIO
//	BREEDCORE_BLOB_S3_PATH_STYLE: true|false (default false)
//	BREEDCORE_BLOB_S3_ACCESS_KEY_ID / BREEDCORE_BLOB_S3_SECRET_ACCESS_KEY: static credentials
func ConfigFromEnv() Config {
	return Config{
		Driver: Driver(os.Getenv("BREEDCORE_BLOB_DRIVER")),
		FSRoot: os.Getenv("BREEDCORE_BLOB_FS_ROOT"),
		S3: S3Config{
			Bucket:          os.Getenv("BREEDCORE_BLOB_S3_BUCKET"),
			Region:          os.Getenv("BREEDCORE_BLOB_S3_REGION"),
			Endpoint:        os.Getenv("BREEDCORE_BLOB_S3_ENDPOINT"),
			PathStyle:       strings.EqualFold(os.Getenv("BREEDCORE_BLOB_S3_PATH_STYLE"), "true"),
			AccessKeyID:     os.Getenv("BREEDCORE_BLOB_S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("BREEDCORE_BLOB_S3_SECRET_ACCESS_KEY"),
		},
	}
}

// Open constructs the blob.Store named by cfg. Defaults to the filesystem driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return fsstore.New(cfg.FSRoot)
	case DriverS3:
		return s3store.New(ctx, cfg.S3)
	case DriverMemory:
		return memorystore.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
