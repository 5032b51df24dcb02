// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/abstract-miner/internal/blob"
	"github.com/pdiddy/abstract-miner/internal/clean"
	"github.com/pdiddy/abstract-miner/internal/labels"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Keep records with at least three sections and a conclusion",
	Long: `Clean keeps canonical records whose abstract has at least three sections,
one of them labeled as a conclusion. Labels are normalized (& becomes AND,
colons removed, upper-cased) and compared exactly against the conclusion
label set. Rejected records are counted and dropped.`,
	RunE: runClean,
}

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Keep records from one journal",
	Long:  `Select keeps records whose journal name equals --journal exactly.`,
	RunE:  runSelect,
}

func init() {
	cleanCmd.Flags().String("input", "", "canonical records")
	cleanCmd.Flags().String("output", "", "cleaned records output path")
	cleanCmd.Flags().String("labels", "", "conclusion label set YAML (default: built-in set)")

	selectCmd.Flags().String("input", "", "records to select from")
	selectCmd.Flags().String("output", "", "selected records output path")
	selectCmd.Flags().String("journal", "", "journal name to keep")

	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(selectCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	in, _ := cmd.Flags().GetString("input")
	out, _ := cmd.Flags().GetString("output")
	set, err := labelSet(cmd)
	if err != nil {
		return err
	}

	store := newStore()
	defer store.Close()

	_, err = cleanStage(cmd.Context(), store, set, in, out)
	return err
}

func cleanStage(ctx context.Context, store *blob.Store, set *labels.Set, in, out string) (clean.Summary, error) {
	r, err := openInput(ctx, store, in)
	if err != nil {
		return clean.Summary{}, err
	}
	defer r.Close()

	w, err := createOutput(ctx, store, out, "application/x-ndjson")
	if err != nil {
		return clean.Summary{}, err
	}
	s, err := clean.Filter(ctx, r, w, set, os.Stdout)
	return s, finish(w, err)
}

func runSelect(cmd *cobra.Command, args []string) error {
	in, _ := cmd.Flags().GetString("input")
	out, _ := cmd.Flags().GetString("output")
	journal, _ := cmd.Flags().GetString("journal")
	if journal == "" {
		return configErrorf("--journal is required")
	}

	ctx := cmd.Context()
	store := newStore()
	defer store.Close()

	r, err := openInput(ctx, store, in)
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := createOutput(ctx, store, out, "application/x-ndjson")
	if err != nil {
		return err
	}
	_, err = clean.Select(ctx, r, w, journal, os.Stdout)
	return finish(w, err)
}
