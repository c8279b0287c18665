// Package storage defines the object-storage capability surface the sync
// engine consumes, and provides a minio-backed implementation of it.
package storage

import "io"

// ObjectInfo describes a remote object's metadata.
type ObjectInfo struct {
	Key  string
	Size int64
	// ETag is the provider's content fingerprint with any surrounding
	// quote characters already stripped.
	ETag string
}

// ObserveFunc receives the number of bytes just transferred (a delta,
// not a cumulative count). A nil ObserveFunc means no observation.
type ObserveFunc func(delta int64)

// Credentials is the explicit credential pair handed to a client
// constructor. There is no ambient process-wide credential state.
type Credentials struct {
	AccessKey string
	SecretKey string
}

// Bucket is the capability interface over one named bucket. The engine
// consumes this; only the minio client implements it in production.
type Bucket interface {
	// List returns the keys of all objects under prefix.
	List(prefix string) ([]string, error)

	// Stat fetches an object's metadata without its content.
	Stat(key string) (ObjectInfo, error)

	// Fetch opens the object's full content for reading. The caller
	// must close the returned stream.
	Fetch(key string) (io.ReadCloser, error)

	// Download streams the object's bytes into w, invoking observe with
	// each transferred chunk's size when observe is non-nil. Returns the
	// number of bytes written.
	Download(key string, w io.Writer, observe ObserveFunc) (int64, error)
}
