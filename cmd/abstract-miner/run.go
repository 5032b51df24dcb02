// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/abstract-miner/internal/blob"
	"github.com/pdiddy/abstract-miner/internal/report"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run dedupe, clean, and aggregate on a merged corpus",
	Long: `Run chains the whole-corpus stages. It writes deduped.jsonl, cleaned.jsonl,
and report.json to --output-dir and prints the report with the configured
minimum counts.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().String("input", "", "merged structured records")
	runCmd.Flags().String("output-dir", "", "directory for stage outputs (default <data-dir>/results)")
	runCmd.Flags().String("labels", "", "conclusion label set YAML (default: built-in set)")
	runCmd.Flags().Int("journal-min", 0, "minimum journal count")
	runCmd.Flags().Int("label-min", 0, "minimum section label count")
	runCmd.Flags().Int("subject-category-min", 0, "minimum subject category count")
	runCmd.Flags().Int("keyword-min", 0, "minimum keyword count")

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	in, _ := cmd.Flags().GetString("input")
	outDir, _ := cmd.Flags().GetString("output-dir")
	if outDir == "" {
		outDir = filepath.Join(viper.GetString("data_dir"), "results")
	}
	set, err := labelSet(cmd)
	if err != nil {
		return err
	}
	th, err := reportThresholds(cmd)
	if err != nil {
		return err
	}

	join := func(name string) string {
		if blob.IsRemote(outDir) {
			return strings.TrimSuffix(outDir, "/") + "/" + name
		}
		return filepath.Join(outDir, name)
	}
	deduped, cleaned, reportPath := join("deduped.jsonl"), join("cleaned.jsonl"), join("report.json")

	store := newStore()
	defer store.Close()

	stats, err := dedupeStage(ctx, store, in, deduped)
	if err != nil {
		return err
	}
	cs, err := cleanStage(ctx, store, set, deduped, cleaned)
	if err != nil {
		return err
	}
	rep, err := aggregateStage(ctx, store, cleaned, reportPath)
	if err != nil {
		return err
	}

	fmt.Printf("\npipeline: %d records, %d unique (%d duplicate keys), %d cleaned, report at %s\n\n",
		stats.Records, stats.Unique, stats.DuplicateKeys, cs.Accepted, reportPath)
	return report.WriteText(os.Stdout, report.Apply(rep, th))
}
