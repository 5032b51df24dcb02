// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/abstract-miner/internal/recordio"
)

var mergeCmd = &cobra.Command{
	Use:   "merge [files...]",
	Short: "Concatenate record files into one corpus",
	Long: `Merge concatenates JSON Lines files in the order given, making sure every
file ends with a newline. Records are not inspected; duplicates across
files are left for dedupe.`,
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().String("output", "", "merged output path")

	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return configErrorf("provide one or more files to merge")
	}
	for _, p := range args {
		if _, err := os.Stat(p); err != nil {
			return &ConfigError{Err: err}
		}
	}
	outPath, _ := cmd.Flags().GetString("output")

	store := newStore()
	defer store.Close()

	w, err := createOutput(cmd.Context(), store, outPath, "application/x-ndjson")
	if err != nil {
		return err
	}
	_, err = recordio.Merge(cmd.Context(), args, w, os.Stdout)
	return finish(w, err)
}
