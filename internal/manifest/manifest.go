// Package manifest reads per-prefix export status documents from object
// storage. A manifest is a JSON object whose "successful" field lists the
// export file names that completed on the remote side.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/labtools/expsync/internal/storage"
)

// Suffix is the fixed name ending that marks an object as a manifest.
const Suffix = "status.json"

// field is the manifest key holding the successful export names.
const field = "successful"

// FetchError reports that a manifest object could not be read from storage.
type FetchError struct {
	Key string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching manifest %s: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports that a fetched manifest is not valid JSON or lacks
// the successful-exports field.
type ParseError struct {
	Key string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing manifest %s: %v", e.Key, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsManifest reports whether key names a manifest object.
func IsManifest(key string) bool {
	return strings.HasSuffix(key, Suffix)
}

// Read fetches the manifest at key and returns the successful export file
// names it lists. The content stream is closed on every exit path.
func Read(b storage.Bucket, key string) ([]string, error) {
	rc, err := b.Fetch(key)
	if err != nil {
		return nil, &FetchError{Key: key, Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &FetchError{Key: key, Err: err}
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Key: key, Err: err}
	}

	raw, ok := doc[field]
	if !ok {
		return nil, &ParseError{Key: key, Err: errors.New(`missing "successful" field`)}
	}

	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, &ParseError{Key: key, Err: err}
	}
	return names, nil
}
