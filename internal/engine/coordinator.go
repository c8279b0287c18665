// Package engine orchestrates the verify-or-download cycle for exported
// files listed in remote manifests.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/labtools/expsync/internal/checksum"
	"github.com/labtools/expsync/internal/storage"
)

// Outcome is the terminal state reported for one handled entry.
type Outcome string

const (
	OutcomeVerified   Outcome = "verified"
	OutcomeDownloaded Outcome = "downloaded"
	OutcomeSkipped    Outcome = "skipped"
)

// IntegrityError reports a checksum mismatch after a fresh download. It is
// always fatal: a mismatch on content we just wrote means transfer
// corruption or a changed remote object, both needing operator attention.
type IntegrityError struct {
	Key      string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity failure on %s: expected checksum %s, got %s", e.Key, e.Expected, e.Actual)
}

// ObserverFactory builds a byte-delta observer for a transfer of the given
// total size. A nil factory disables progress observation entirely, so no
// progress state is constructed when nobody can see it.
type ObserverFactory func(total int64) storage.ObserveFunc

// Coordinator decides per entry whether the local copy is already valid
// and, when it is not, performs and verifies the transfer.
type Coordinator struct {
	bucket  storage.Bucket
	logger  *slog.Logger
	observe ObserverFactory
}

// NewCoordinator creates a coordinator over bucket. observe may be nil.
func NewCoordinator(bucket storage.Bucket, logger *slog.Logger, observe ObserverFactory) *Coordinator {
	return &Coordinator{bucket: bucket, logger: logger, observe: observe}
}

// Sync brings the local file for one export entry to a verified state.
// The remote key is the manifest's directory joined with the entry name;
// the local file carries the entry name in the working directory.
//
// An existing file whose checksum matches the remote fingerprint is left
// untouched. A missing file is created exclusively and downloaded. A stale
// file is truncated in place and redownloaded. Every download is flushed
// to durable storage, reread and rechecksummed; a mismatch at that point
// is an IntegrityError and ends the run.
func (c *Coordinator) Sync(manifestKey, name string) (Outcome, error) {
	key := path.Join(path.Dir(manifestKey), name)

	info, err := c.bucket.Stat(key)
	if err != nil {
		return "", err
	}
	expected := strings.Trim(info.ETag, `"`)

	f, created, err := openExclusive(name)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if !created {
		actual, err := checksum.Sum(f)
		if err != nil {
			return "", fmt.Errorf("checksumming %s: %w", name, err)
		}
		if actual == expected {
			return OutcomeVerified, nil
		}
		c.logger.Info("local copy is stale, redownloading",
			"name", name, "expected", expected, "actual", actual)
		if err := f.Truncate(0); err != nil {
			return "", fmt.Errorf("truncating %s: %w", name, err)
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("rewinding %s: %w", name, err)
		}
	} else {
		c.logger.Info("downloading", "key", key, "size", humanize.IBytes(uint64(info.Size)))
	}

	if err := c.transfer(key, info.Size, f); err != nil {
		return "", err
	}

	// Verify what actually reached the disk, not what passed through memory.
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewinding %s: %w", name, err)
	}
	actual, err := checksum.Sum(f)
	if err != nil {
		return "", fmt.Errorf("checksumming %s: %w", name, err)
	}
	if actual != expected {
		return "", &IntegrityError{Key: key, Expected: expected, Actual: actual}
	}
	return OutcomeDownloaded, nil
}

// transfer streams the object into f and forces a durable sync.
func (c *Coordinator) transfer(key string, size int64, f *os.File) error {
	var observe storage.ObserveFunc
	if c.observe != nil {
		observe = c.observe(size)
	}
	if _, err := c.bucket.Download(key, f, observe); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", f.Name(), err)
	}
	return nil
}

// openExclusive attempts atomic exclusive creation of name and falls back
// to opening the existing file for update in place. The boolean tags the
// outcome: true for Created, false for AlreadyExists.
func openExclusive(name string) (*os.File, bool, error) {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err == nil {
		return f, true, nil
	}
	if !errors.Is(err, os.ErrExist) {
		return nil, false, fmt.Errorf("creating %s: %w", name, err)
	}
	f, err = os.OpenFile(name, os.O_RDWR, 0644)
	if err != nil {
		return nil, false, fmt.Errorf("opening %s: %w", name, err)
	}
	return f, false, nil
}
