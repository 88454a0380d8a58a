package blob

import (
	"context"
	"fmt"
	"os"

	fsstore "agritrace/internal/infra/blob/fs"
	memorystore "agritrace/internal/infra/blob/memory"
	s3store "agritrace/internal/infra/blob/s3"
)

// NewMemory returns an in-memory document store suitable for tests.
func NewMemory() Store { return memorystore.New() }

// NewFilesystem returns a filesystem-backed document store rooted at root.
func NewFilesystem(root string) (Store, error) { return fsstore.New(root) }

// Open selects a Store implementation using environment variables.
//
//	AGRITRACE_BLOB_DRIVER: fs|s3|memory (default fs)
//	AGRITRACE_BLOB_FS_ROOT: directory root when driver=fs (default ./docdata)
//	(S3 specific variables documented in the s3 package)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("AGRITRACE_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("AGRITRACE_BLOB_FS_ROOT"))
	case DriverS3:
		return s3store.OpenFromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
