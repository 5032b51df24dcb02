// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/abstract-miner/internal/parse"
	"github.com/pdiddy/abstract-miner/pkg/types"
)

var parseCmd = &cobra.Command{
	Use:   "parse [raw files...]",
	Short: "Split raw records into structured records with labeled sections",
	Long: `Parse reads raw fetch output (JSON Lines) and writes one structured record
per raw record, keeping every abstract section in publication order with
its canonical and raw label. Records without a valid PMID are written to a
.rejects.jsonl file next to the output instead.

Each input file produces its own output file in --output-dir, and files are
parsed concurrently. Parsing the same input again yields identical output.`,
	RunE: runParse,
}

func init() {
	parseCmd.Flags().String("output-dir", "", "directory for structured output (default <data-dir>/structured)")
	parseCmd.Flags().Int("workers", 4, "files parsed concurrently")

	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return configErrorf("provide one or more raw record files")
	}
	outDir, _ := cmd.Flags().GetString("output-dir")
	if outDir == "" {
		outDir = filepath.Join(viper.GetString("data_dir"), "structured")
	}
	workers, _ := cmd.Flags().GetInt("workers")

	store := newStore()
	defer store.Close()

	_, err := parse.ParseFiles(cmd.Context(), store, args,
		types.ParseConfig{OutputDir: outDir, Workers: workers}, os.Stdout)
	if errors.Is(err, os.ErrNotExist) {
		return &ConfigError{Err: err}
	}
	return err
}
