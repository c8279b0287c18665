package engine

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/labtools/expsync/internal/manifest"
	"github.com/labtools/expsync/internal/storage"
)

// Filter scopes a run to an account, optionally narrowed by project (at
// the listing prefix) and experiment (at the manifest-entry level).
type Filter struct {
	Account    int
	Project    *int
	Experiment *int
}

// Prefix builds the storage key prefix the run lists under. The experiment
// filter never narrows the prefix; it only filters manifest entries.
func (f Filter) Prefix() string {
	p := strconv.Itoa(f.Account) + "/"
	if f.Project != nil {
		p += strconv.Itoa(*f.Project) + "/"
	}
	return p
}

// Driver enumerates manifests under the filter's prefix and hands each
// passing entry to the coordinator, or reports it in dry-run mode. Each
// entry is handled independently and idempotently, in listing order.
type Driver struct {
	bucket storage.Bucket
	coord  *Coordinator
	out    io.Writer
	logger *slog.Logger
	dryRun bool
	filter Filter
}

// NewDriver wires a driver. out receives the one status line per entry.
func NewDriver(bucket storage.Bucket, coord *Coordinator, out io.Writer, logger *slog.Logger, dryRun bool, filter Filter) *Driver {
	return &Driver{
		bucket: bucket,
		coord:  coord,
		out:    out,
		logger: logger,
		dryRun: dryRun,
		filter: filter,
	}
}

// Run lists manifests, filters entries and syncs them. Any manifest or
// entry failure stops the whole run: silent partial completion would
// misrepresent the sync as successful.
func (d *Driver) Run() error {
	prefix := d.filter.Prefix()
	d.logger.Info("listing exports", "prefix", prefix, "dry_run", d.dryRun)

	keys, err := d.bucket.List(prefix)
	if err != nil {
		return err
	}

	var verified, downloaded, skipped int
	for _, key := range keys {
		if !manifest.IsManifest(key) {
			continue
		}
		names, err := manifest.Read(d.bucket, key)
		if err != nil {
			return err
		}
		d.logger.Debug("read manifest", "key", key, "entries", len(names))

		for _, name := range names {
			if d.filter.Experiment != nil {
				id, ok := experimentID(name)
				if !ok || id != *d.filter.Experiment {
					d.logger.Info("ignoring entry outside experiment filter",
						"name", name, "experiment", *d.filter.Experiment)
					continue
				}
			}

			if d.dryRun {
				fmt.Fprintf(d.out, "%s %s\n", OutcomeSkipped, name)
				skipped++
				continue
			}

			outcome, err := d.coord.Sync(key, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(d.out, "%s %s\n", outcome, name)
			switch outcome {
			case OutcomeVerified:
				verified++
			case OutcomeDownloaded:
				downloaded++
			}
		}
	}

	d.logger.Info("run complete",
		"verified", verified, "downloaded", downloaded, "skipped", skipped)
	return nil
}

// experimentID parses the leading run of ASCII digits of an export file
// name as its experiment identifier. By convention export names start
// with the experiment id followed by a separator; nothing stricter is
// validated.
func experimentID(name string) (int, bool) {
	i := 0
	for i < len(name) && name[i] >= '0' && name[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, false
	}
	id, err := strconv.Atoi(name[:i])
	if err != nil {
		return 0, false
	}
	return id, true
}
