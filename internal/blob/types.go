// Package blob re-exports the document store abstractions for stable imports.
// Only this package wraps the infra-backed implementations; everything else
// depends on the Store interface.
package blob

import (
	"agritrace/internal/blob/core"
)

type (
	// Driver identifies a document store backend driver.
	Driver = core.Driver
	// PutOptions configures a document write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored document metadata.
	Info = core.Info
	// Store is the interface for document storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// ErrUnsupported indicates an operation isn't supported by a driver.
var ErrUnsupported = core.ErrUnsupported

// ContentKey returns the content-addressed (sha256) key for a payload.
func ContentKey(payload []byte) string { return core.ContentKey(payload) }
