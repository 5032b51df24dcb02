// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/abstract-miner/internal/blob"
	"github.com/pdiddy/abstract-miner/internal/ledger"
	"github.com/pdiddy/abstract-miner/internal/recordio"
	"github.com/pdiddy/abstract-miner/pkg/types"
)

// ErrBatchIncomplete is returned by Run when one or more batches failed.
// Re-running fetches only those batches.
var ErrBatchIncomplete = errors.New("batch incomplete")

const rawDir = "raw"

// UIDPath returns the identifier list path for a year range.
func UIDPath(dataDir string, begin, end int) string {
	return filepath.Join(dataDir, fmt.Sprintf("uid_%d_%d.txt", begin, end))
}

// RawPath returns the raw record file for a year range.
func RawPath(dataDir string, begin, end int) string {
	return filepath.Join(dataDir, rawDir, fmt.Sprintf("abstracts_%d_%d.jsonl", begin, end))
}

// BatchID names batch index of a year range, e.g. "2020-2023/0004".
func BatchID(begin, end, index int) string {
	return fmt.Sprintf("%d-%d/%04d", begin, end, index)
}

// ValidateConfig checks the settings Run depends on.
func ValidateConfig(cfg types.FetchConfig) error {
	if cfg.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}
	if blob.IsRemote(cfg.DataDir) {
		return fmt.Errorf("data directory %s must be local: the ledger and raw batch files are appended in place", cfg.DataDir)
	}
	if cfg.BeginYear <= 0 || cfg.EndYear <= 0 {
		return fmt.Errorf("begin and end year are required")
	}
	if cfg.BeginYear > cfg.EndYear {
		return fmt.Errorf("begin year %d is after end year %d", cfg.BeginYear, cfg.EndYear)
	}
	if cfg.BatchSize < 1 || cfg.BatchSize > types.MaxBatchSize {
		return fmt.Errorf("batch size %d outside 1..%d", cfg.BatchSize, types.MaxBatchSize)
	}
	return nil
}

// Summary holds counts from a fetch run.
type Summary struct {
	IDs       int
	Batches   int
	Completed int
	Skipped   int
	Failed    int
	Records   int
}

// HasFailures reports whether any batch failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// LoadOrSearchIDs returns the identifier list for the configured range,
// reading the uid file when it exists and otherwise searching and writing it.
func LoadOrSearchIDs(ctx context.Context, c *Client, store *blob.Store, cfg types.FetchConfig, w io.Writer) ([]string, error) {
	path := UIDPath(cfg.DataDir, cfg.BeginYear, cfg.EndYear)
	if ids, err := readIDs(path); err == nil {
		fmt.Fprintf(w, "uid file %s already exists (%d ids)\n", path, len(ids))
		return ids, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	fmt.Fprintf(w, "searching ids %d-%d\n", cfg.BeginYear, cfg.EndYear)
	ids, err := c.SearchIDs(ctx, cfg.BeginYear, cfg.EndYear)
	if err != nil {
		return nil, err
	}

	out, err := store.Create(ctx, path, "text/plain")
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriter(out)
	for _, id := range ids {
		bw.WriteString(id)
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		out.Abort()
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "saved %d ids to %s\n", len(ids), path)
	return ids, nil
}

func readIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if id := strings.TrimSpace(sc.Text()); id != "" {
			ids = append(ids, id)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ids, nil
}

// Run fetches every batch of the configured range that the ledger does not
// already record as done, appending records to the range's raw file. A
// failed batch is recorded in the ledger and skipped; Run continues with
// the next one and returns ErrBatchIncomplete at the end.
func Run(ctx context.Context, c *Client, led *ledger.Ledger, store *blob.Store, cfg types.FetchConfig, w io.Writer) (Summary, error) {
	if err := ValidateConfig(cfg); err != nil {
		return Summary{}, err
	}

	ids, err := LoadOrSearchIDs(ctx, c, store, cfg, w)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{IDs: len(ids)}
	rawPath := RawPath(cfg.DataDir, cfg.BeginYear, cfg.EndYear)

	for index, lo := 0, 0; lo < len(ids); index, lo = index+1, lo+cfg.BatchSize {
		hi := min(lo+cfg.BatchSize, len(ids))
		batch := BatchID(cfg.BeginYear, cfg.EndYear, index)
		summary.Batches++

		if err := ctx.Err(); err != nil {
			return summary, err
		}

		st, ok, err := led.Status(ctx, batch)
		if err != nil {
			return summary, err
		}
		if ok && st.State == ledger.StateDone {
			fmt.Fprintf(w, "skipped %s (done, %d records)\n", batch, st.Records)
			summary.Skipped++
			continue
		}

		if err := led.Start(ctx, batch, hi-lo); err != nil {
			return summary, err
		}
		n, err := fetchBatch(ctx, c, ids[lo:hi], batch, rawPath)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			fmt.Fprintf(w, "failed  %s: %v\n", batch, err)
			summary.Failed++
			if lerr := led.Fail(ctx, batch, err); lerr != nil {
				return summary, lerr
			}
			continue
		}
		if err := led.Complete(ctx, batch, n); err != nil {
			return summary, err
		}
		fmt.Fprintf(w, "fetched %s (%d/%d records)\n", batch, n, hi-lo)
		summary.Completed++
		summary.Records += n
	}

	fmt.Fprintf(w, "\nfetched: %d batches, %d completed, %d skipped, %d failed, %d records\n",
		summary.Batches, summary.Completed, summary.Skipped, summary.Failed, summary.Records)

	if summary.HasFailures() {
		return summary, fmt.Errorf("%w: %d of %d batches failed", ErrBatchIncomplete, summary.Failed, summary.Batches)
	}
	return summary, nil
}

// fetchBatch retrieves one batch and appends its records to rawPath.
func fetchBatch(ctx context.Context, c *Client, ids []string, batch, rawPath string) (int, error) {
	recs, err := c.FetchBatch(ctx, ids)
	if err != nil {
		return 0, err
	}
	for i := range recs {
		recs[i].Batch = batch
	}

	if err := os.MkdirAll(filepath.Dir(rawPath), 0o755); err != nil {
		return 0, fmt.Errorf("creating raw directory: %w", err)
	}
	f, err := os.OpenFile(rawPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", rawPath, err)
	}
	rw := recordio.NewWriter[types.RawFetchRecord](f)
	for _, r := range recs {
		if err := rw.Write(r); err != nil {
			f.Close()
			return 0, err
		}
	}
	if err := rw.Flush(); err != nil {
		f.Close()
		return 0, fmt.Errorf("appending to %s: %w", rawPath, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("closing %s: %w", rawPath, err)
	}
	return len(recs), nil
}
