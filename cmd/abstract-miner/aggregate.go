// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/abstract-miner/internal/aggregate"
	"github.com/pdiddy/abstract-miner/internal/blob"
	"github.com/pdiddy/abstract-miner/internal/report"
	"github.com/pdiddy/abstract-miner/pkg/types"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Count journals, labels, subject categories, and keywords",
	Long: `Aggregate counts every occurrence of each journal, canonical section
label, subject category, and keyword across the cleaned records and writes
the four frequency tables as one JSON object. Tables are sorted by count,
then by value. No thresholds are applied; see "report" for that.`,
	RunE: runAggregate,
}

func init() {
	aggregateCmd.Flags().String("input", "", "cleaned records")
	aggregateCmd.Flags().String("output", "", "frequency report output path (JSON)")

	rootCmd.AddCommand(aggregateCmd)
}

func runAggregate(cmd *cobra.Command, args []string) error {
	in, _ := cmd.Flags().GetString("input")
	out, _ := cmd.Flags().GetString("output")

	store := newStore()
	defer store.Close()

	_, err := aggregateStage(cmd.Context(), store, in, out)
	return err
}

func aggregateStage(ctx context.Context, store *blob.Store, in, out string) (types.Report, error) {
	r, err := openInput(ctx, store, in)
	if err != nil {
		return types.Report{}, err
	}
	defer r.Close()

	w, err := createOutput(ctx, store, out, "application/json")
	if err != nil {
		return types.Report{}, err
	}
	rep, err := aggregate.Stream(ctx, r, os.Stdout)
	if err == nil {
		err = report.WriteJSON(w, rep)
	}
	return rep, finish(w, err)
}
