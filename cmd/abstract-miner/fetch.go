// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/abstract-miner/internal/fetch"
	"github.com/pdiddy/abstract-miner/internal/ledger"
	"github.com/pdiddy/abstract-miner/internal/secrets"
	"github.com/pdiddy/abstract-miner/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch PubMed records for a publication year range",
	Long: `Fetch searches PubMed for structured abstracts published in a year range,
saves the identifier list to data/uid_<begin>_<end>.txt, and retrieves the
records in batches into data/raw/abstracts_<begin>_<end>.jsonl.

Batch state is kept in a SQLite ledger. Re-running fetch skips finished
batches and retries failed or interrupted ones; any overlap this causes is
removed by dedupe.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().Int("begin-year", 0, "first publication year (inclusive)")
	fetchCmd.Flags().Int("end-year", 0, "last publication year (inclusive)")
	fetchCmd.Flags().Int("batch-size", 0, fmt.Sprintf("records per EFetch request, 1..%d (default 500)", types.MaxBatchSize))
	fetchCmd.Flags().String("query", "", "ESearch term (default \"hasstructuredabstract\")")
	fetchCmd.Flags().String("api-key", "", "NCBI API key (raises the rate limit to 10 requests/s)")
	fetchCmd.Flags().String("email", "", "contact email sent to NCBI")
	fetchCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	fetchCmd.Flags().Int("max-retries", 0, "retries for transient HTTP failures (default 5)")

	rootCmd.AddCommand(fetchCmd)
}

// fetchConfig assembles the fetch settings: flags, then environment and
// config file, then secret files.
func fetchConfig(cmd *cobra.Command) types.FetchConfig {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = viper.GetDuration("fetch.timeout")
	}
	return types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:    timeout,
			UserAgent:  "abstract-miner/" + version,
			MaxRetries: intSetting(cmd, "max-retries", "fetch.max_retries"),
		},
		BeginYear: intSetting(cmd, "begin-year", "fetch.begin_year"),
		EndYear:   intSetting(cmd, "end-year", "fetch.end_year"),
		BatchSize: intSetting(cmd, "batch-size", "fetch.batch_size"),
		Query:     stringSetting(cmd, "query", "fetch.query"),
		APIKey:    secretDefault(secrets.NCBIAPIKey, stringSetting(cmd, "api-key", "fetch.api_key")),
		Email:     secretDefault(secrets.NCBIEmail, stringSetting(cmd, "email", "fetch.email")),
		DataDir:   viper.GetString("data_dir"),
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := fetchConfig(cmd)
	if err := fetch.ValidateConfig(cfg); err != nil {
		return &ConfigError{Err: err}
	}
	if cfg.APIKey == "" {
		fmt.Fprintln(os.Stderr, "warning: no NCBI API key configured; limited to 3 requests/s")
	}

	led, err := ledger.Open(filepath.Join(cfg.DataDir, ledger.FileName))
	if err != nil {
		return err
	}
	defer led.Close()

	store := newStore()
	defer store.Close()

	_, err = fetch.Run(cmd.Context(), fetch.NewClient(cfg), led, store, cfg, os.Stdout)
	if errors.Is(err, fetch.ErrBatchIncomplete) {
		fmt.Fprintln(os.Stderr, "Run fetch again to retry the failed batches; see \"abstract-miner batches --incomplete\".")
	}
	return err
}
