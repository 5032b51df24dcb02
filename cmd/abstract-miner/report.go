// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/abstract-miner/internal/report"
	"github.com/pdiddy/abstract-miner/pkg/types"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Present a frequency report with per-category minimum counts",
	Long: `Report reads the JSON produced by aggregate and prints each table, keeping
only entries at or above the category's minimum count. With --serve it
instead serves the report over HTTP for plotting tools:

  GET /api/v1/health
  GET /api/v1/report?journal_min=N&label_min=N&subject_category_min=N&keyword_min=N
  GET /api/v1/report/{journal|label|subject_category|keyword}`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().String("input", "", "frequency report JSON from aggregate")
	reportCmd.Flags().String("output", "", "output path (default: stdout)")
	reportCmd.Flags().String("format", report.FormatText, "output format: text, json, or yaml")
	reportCmd.Flags().Int("journal-min", 0, "minimum journal count")
	reportCmd.Flags().Int("label-min", 0, "minimum section label count")
	reportCmd.Flags().Int("subject-category-min", 0, "minimum subject category count")
	reportCmd.Flags().Int("keyword-min", 0, "minimum keyword count")
	reportCmd.Flags().String("serve", "", "serve the report over HTTP on this address (e.g. :8080)")

	rootCmd.AddCommand(reportCmd)
}

func reportThresholds(cmd *cobra.Command) (types.ReportThresholds, error) {
	th := types.ReportThresholds{
		Journal:         intSetting(cmd, "journal-min", "report.journal_min"),
		Label:           intSetting(cmd, "label-min", "report.label_min"),
		SubjectCategory: intSetting(cmd, "subject-category-min", "report.subject_category_min"),
		Keyword:         intSetting(cmd, "keyword-min", "report.keyword_min"),
	}
	if th.Journal < 0 || th.Label < 0 || th.SubjectCategory < 0 || th.Keyword < 0 {
		return th, configErrorf("minimum counts must not be negative")
	}
	return th, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	in, _ := cmd.Flags().GetString("input")
	out, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	addr, _ := cmd.Flags().GetString("serve")

	th, err := reportThresholds(cmd)
	if err != nil {
		return err
	}

	store := newStore()
	defer store.Close()

	r, err := openInput(ctx, store, in)
	if err != nil {
		return err
	}
	rep, err := report.Read(r)
	r.Close()
	if err != nil {
		return err
	}

	if addr != "" {
		return report.NewServer(rep, th, os.Stderr).ListenAndServe(ctx, addr)
	}

	filtered := report.Apply(rep, th)
	if out == "" {
		if err := report.Write(os.Stdout, filtered, format); err != nil {
			return &ConfigError{Err: err}
		}
		return nil
	}
	w, err := createOutput(ctx, store, out, "")
	if err != nil {
		return err
	}
	return finish(w, report.Write(w, filtered, format))
}
