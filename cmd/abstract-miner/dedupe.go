// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/abstract-miner/internal/blob"
	"github.com/pdiddy/abstract-miner/internal/dedup"
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Collapse records sharing a PMID into one canonical record",
	Long: `Dedupe keeps one record per PMID across the merged corpus. The record with
the most sections wins; among equals, the latest one in the file wins.
Records are written in the order their PMID first appears.

The input is read twice. A gs:// input is first copied to a local
temporary file.`,
	RunE: runDedupe,
}

func init() {
	dedupeCmd.Flags().String("input", "", "merged structured records")
	dedupeCmd.Flags().String("output", "", "canonical records output path")

	rootCmd.AddCommand(dedupeCmd)
}

func runDedupe(cmd *cobra.Command, args []string) error {
	in, _ := cmd.Flags().GetString("input")
	out, _ := cmd.Flags().GetString("output")

	store := newStore()
	defer store.Close()

	_, err := dedupeStage(cmd.Context(), store, in, out)
	return err
}

func dedupeStage(ctx context.Context, store *blob.Store, in, out string) (dedup.Stats, error) {
	path, cleanup, err := localPath(ctx, store, in)
	if err != nil {
		return dedup.Stats{}, err
	}
	defer cleanup()

	w, err := createOutput(ctx, store, out, "application/x-ndjson")
	if err != nil {
		return dedup.Stats{}, err
	}
	stats, err := dedup.DedupeFile(ctx, path, w, os.Stdout)
	return stats, finish(w, err)
}

// localPath returns a local file path for in, copying remote objects to a
// temporary file that cleanup removes.
func localPath(ctx context.Context, store *blob.Store, in string) (string, func(), error) {
	noop := func() {}
	if in == "" {
		return "", noop, configErrorf("--input is required")
	}
	if !blob.IsRemote(in) {
		if _, err := os.Stat(in); err != nil {
			return "", noop, &ConfigError{Err: err}
		}
		return in, noop, nil
	}

	r, err := openInput(ctx, store, in)
	if err != nil {
		return "", noop, err
	}
	defer r.Close()

	f, err := os.CreateTemp("", "abstract-miner-dedupe-*.jsonl")
	if err != nil {
		return "", noop, fmt.Errorf("creating local copy: %w", err)
	}
	cleanup := func() { os.Remove(f.Name()) }
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		cleanup()
		return "", noop, fmt.Errorf("copying %s: %w", in, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", noop, err
	}
	return f.Name(), cleanup, nil
}
