// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/abstract-miner/internal/ledger"
)

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "List fetch batches and their state",
	Long: `Batches lists the fetch batches recorded in the ledger. Use --incomplete to
show only batches that failed or were interrupted; fetch retries exactly
those.`,
	RunE: runBatches,
}

func init() {
	batchesCmd.Flags().Bool("incomplete", false, "show only batches that are not done")
	batchesCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(batchesCmd)
}

func runBatches(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	incomplete, _ := cmd.Flags().GetBool("incomplete")
	asJSON, _ := cmd.Flags().GetBool("json")

	path := filepath.Join(viper.GetString("data_dir"), ledger.FileName)
	if _, err := os.Stat(path); err != nil {
		return &ConfigError{Err: fmt.Errorf("no batch ledger at %s: run fetch first", path)}
	}
	led, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer led.Close()

	list := led.List
	if incomplete {
		list = led.Incomplete
	}
	batches, err := list(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(batches)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BATCH\tSTATE\tSIZE\tRECORDS\tATTEMPTS\tUPDATED\tERROR")
	pending := 0
	for _, b := range batches {
		if b.State != ledger.StateDone {
			pending++
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			b.ID, b.State, b.Size, b.Records, b.Attempts, b.UpdatedAt.Local().Format(time.DateTime), b.Error)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d batches, %d incomplete\n", len(batches), pending)
	return nil
}
