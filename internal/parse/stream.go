// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package parse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/abstract-miner/internal/blob"
	"github.com/pdiddy/abstract-miner/internal/recordio"
	"github.com/pdiddy/abstract-miner/pkg/types"
)

const progressEvery = 10000

// Rejection describes a record the parser could not accept. Rejections are
// written to their own stream so that they can be inspected and re-fetched.
type Rejection struct {
	Source string `json:"source,omitempty"`
	Line   int    `json:"line"`
	PMID   string `json:"pmid,omitempty"`
	Batch  string `json:"batch,omitempty"`
	Error  string `json:"error"`
}

// Summary holds counts from parsing one stream.
type Summary struct {
	Source    string
	Processed int
	Written   int
	Rejected  int
}

// Stream parses every RawFetchRecord in r, writing StructuredRecords to out
// and Rejections to rejects. Record-level failures are counted and never
// stop the stream; only I/O errors do.
func Stream(ctx context.Context, source string, r io.Reader, out, rejects io.Writer, status io.Writer) (Summary, error) {
	summary := Summary{Source: source}
	rw := recordio.NewWriter[Rejection](rejects)
	ow := recordio.NewWriter[types.StructuredRecord](out)

	var rejectErr error
	reject := func(rej Rejection) {
		summary.Rejected++
		fmt.Fprintf(status, "rejected %s:%d: %s\n", source, rej.Line, rej.Error)
		if err := rw.Write(rej); err != nil && rejectErr == nil {
			rejectErr = err
		}
	}

	rd := recordio.NewReader[types.RawFetchRecord](r)
	rd.OnMalformed = func(line int, err error) {
		summary.Processed++
		reject(Rejection{
			Source: source,
			Line:   line,
			Error:  fmt.Sprintf("%v: %v", ErrMalformedRecord, err),
		})
	}

	for rd.Next() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		raw := rd.Record()
		summary.Processed++

		rec, err := Parse(raw)
		if err != nil {
			reject(Rejection{
				Source: source,
				Line:   rd.Line(),
				PMID:   raw.PMID,
				Batch:  raw.Batch,
				Error:  err.Error(),
			})
		} else {
			if err := ow.Write(rec); err != nil {
				return summary, err
			}
			summary.Written++
		}

		if summary.Processed%progressEvery == 0 {
			fmt.Fprintf(status, "%s: processed %d records\n", source, summary.Processed)
		}
	}
	if err := rd.Err(); err != nil {
		return summary, fmt.Errorf("reading %s: %w", source, err)
	}
	if rejectErr != nil {
		return summary, fmt.Errorf("writing rejections: %w", rejectErr)
	}
	if err := ow.Flush(); err != nil {
		return summary, fmt.Errorf("flushing output: %w", err)
	}
	if err := rw.Flush(); err != nil {
		return summary, fmt.Errorf("flushing rejections: %w", err)
	}
	return summary, nil
}

// FilesSummary holds per-file and total counts from ParseFiles.
type FilesSummary struct {
	Files     []Summary
	Processed int
	Written   int
	Rejected  int
}

// OutputPaths returns the structured and rejection output paths for input.
func OutputPaths(input, outputDir string) (out, rejects string) {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return joinPath(outputDir, stem+".jsonl"), joinPath(outputDir, stem+".rejects.jsonl")
}

func joinPath(dir, name string) string {
	if blob.IsRemote(dir) {
		return strings.TrimSuffix(dir, "/") + "/" + name
	}
	return filepath.Join(dir, name)
}

// ParseFiles parses each input file into its own output file under
// cfg.OutputDir. Files are independent and parsed concurrently, bounded by
// cfg.Workers. Local inputs are checked before any work starts.
func ParseFiles(ctx context.Context, store *blob.Store, inputs []string, cfg types.ParseConfig, status io.Writer) (FilesSummary, error) {
	if len(inputs) == 0 {
		return FilesSummary{}, fmt.Errorf("no input files to parse")
	}
	if cfg.OutputDir == "" {
		return FilesSummary{}, fmt.Errorf("output directory is required")
	}
	seen := make(map[string]string, len(inputs))
	for _, in := range inputs {
		if !blob.IsRemote(in) {
			if _, err := os.Stat(in); err != nil {
				return FilesSummary{}, fmt.Errorf("input %s: %w", in, err)
			}
		}
		out, _ := OutputPaths(in, cfg.OutputDir)
		if prev, ok := seen[out]; ok {
			return FilesSummary{}, fmt.Errorf("inputs %s and %s map to the same output %s", prev, in, out)
		}
		seen[out] = in
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}

	sw := &syncWriter{w: status}
	results := make([]Summary, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			s, err := parseFile(gctx, store, in, cfg.OutputDir, sw)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", in, err)
			}
			results[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return FilesSummary{}, err
	}

	var total FilesSummary
	total.Files = results
	for _, s := range results {
		total.Processed += s.Processed
		total.Written += s.Written
		total.Rejected += s.Rejected
	}
	fmt.Fprintf(status, "\nparsed: %d files, %d records, %d written, %d rejected\n",
		len(results), total.Processed, total.Written, total.Rejected)
	return total, nil
}

func parseFile(ctx context.Context, store *blob.Store, input, outputDir string, status io.Writer) (Summary, error) {
	outPath, rejectPath := OutputPaths(input, outputDir)

	in, err := store.Open(ctx, input)
	if err != nil {
		return Summary{}, err
	}
	defer in.Close()

	out, err := store.Create(ctx, outPath, "application/x-ndjson")
	if err != nil {
		return Summary{}, err
	}
	rejects, err := store.Create(ctx, rejectPath, "application/x-ndjson")
	if err != nil {
		out.Abort()
		return Summary{}, err
	}

	summary, err := Stream(ctx, input, in, out, rejects, status)
	if err != nil {
		out.Abort()
		rejects.Abort()
		return summary, err
	}
	if err := errors.Join(out.Close(), rejects.Close()); err != nil {
		return summary, err
	}
	fmt.Fprintf(status, "parsed  %s -> %s (%d written, %d rejected)\n",
		input, outPath, summary.Written, summary.Rejected)
	return summary, nil
}

// syncWriter serializes writes from concurrent parsers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
