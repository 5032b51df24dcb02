// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the abstract-miner CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/api/option"

	"github.com/pdiddy/abstract-miner/internal/blob"
	"github.com/pdiddy/abstract-miner/internal/labels"
	"github.com/pdiddy/abstract-miner/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds the credential files read at startup.
var loadedSecrets secrets.Set

// secretDefault returns setting when it is non-empty, else the credential
// file named key.
func secretDefault(key, setting string) string {
	return loadedSecrets.Or(key, setting)
}

// ConfigError marks invalid configuration or unusable paths. The CLI exits
// with status 2 for these and 1 for every other failure.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

func configErrorf(format string, args ...any) error {
	return &ConfigError{Err: fmt.Errorf(format, args...)}
}

// rootCmd is the base command for the abstract-miner CLI.
var rootCmd = &cobra.Command{
	Use:   "abstract-miner",
	Short: "Mine structured abstracts from PubMed",
	Long: `abstract-miner fetches biomedical publication records, splits their
abstracts into labeled sections, removes duplicate records, keeps abstracts
with a genuine conclusion section, and counts journals, section labels,
subject categories, and keywords across the corpus.

Each stage is a subcommand that reads and writes JSON Lines files, so stages
can be run one at a time or chained with "run". Paths may be local or
gs://bucket/object.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(secrets.DefaultDir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", s.Names())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./abstract-miner.yaml or ~/.config/abstract-miner/abstract-miner.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "base directory for uid lists, raw batches, and the batch ledger (default \"data\")")
	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}

func initConfig() {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("abstract-miner")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "abstract-miner"))
		}
	}

	viper.SetEnvPrefix("ABSTRACT_MINER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.BindEnv("fetch.api_key", "ABSTRACT_MINER_FETCH_API_KEY", "NCBI_API_KEY")
	viper.BindEnv("fetch.email", "ABSTRACT_MINER_FETCH_EMAIL", "NCBI_EMAIL")

	viper.SetDefault("data_dir", "data")
	viper.SetDefault("fetch.batch_size", 500)
	viper.SetDefault("fetch.query", "hasstructuredabstract")
	viper.SetDefault("fetch.max_retries", 5)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// stringSetting returns the flag value when set on the command line and the
// viper value for key otherwise.
func stringSetting(cmd *cobra.Command, flag, key string) string {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetString(flag)
		return v
	}
	return viper.GetString(key)
}

// intSetting is stringSetting for integers.
func intSetting(cmd *cobra.Command, flag, key string) int {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetInt(flag)
		return v
	}
	return viper.GetInt(key)
}

// newStore returns a blob store using the configured GCS credentials file,
// or application default credentials when none is set.
func newStore() *blob.Store {
	var opts []option.ClientOption
	if f := viper.GetString("storage.credentials_file"); f != "" {
		opts = append(opts, option.WithCredentialsFile(f))
	}
	return blob.NewStore(opts...)
}

// openInput opens a required input path. A missing path or file is a
// configuration error.
func openInput(ctx context.Context, store *blob.Store, path string) (io.ReadCloser, error) {
	if path == "" {
		return nil, configErrorf("--input is required")
	}
	r, err := store.Open(ctx, path)
	if err != nil {
		if errors.Is(err, blob.ErrNotExist) {
			return nil, &ConfigError{Err: err}
		}
		return nil, err
	}
	return r, nil
}

// createOutput creates a required output path.
func createOutput(ctx context.Context, store *blob.Store, path, contentType string) (blob.Writer, error) {
	if path == "" {
		return nil, configErrorf("--output is required")
	}
	w, err := store.Create(ctx, path, contentType)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	return w, nil
}

// finish publishes w when err is nil and discards it otherwise.
func finish(w blob.Writer, err error) error {
	if err != nil {
		w.Abort()
		return err
	}
	return w.Close()
}

// labelSet returns the conclusion label set from --labels, labels.file, or
// the built-in set.
func labelSet(cmd *cobra.Command) (*labels.Set, error) {
	path := stringSetting(cmd, "labels", "labels.file")
	if path == "" {
		return labels.Default(), nil
	}
	set, err := labels.Load(path)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	fmt.Fprintf(os.Stderr, "Using label set %s (version %d, %d labels)\n", path, set.Version(), set.Len())
	return set, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
