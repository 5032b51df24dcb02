package types

import "time"

// MaxBatchSize is the largest batch the E-utilities history server pages
// through in one EFetch call.
const MaxBatchSize = 10000

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "abstract-miner/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries bounds retries of transient failures (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// FetchConfig holds settings for the fetch stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// BeginYear and EndYear bound the publication date range (inclusive).
	BeginYear int `json:"begin_year" yaml:"begin_year"`
	EndYear   int `json:"end_year" yaml:"end_year"`

	// BatchSize is the number of identifiers per EFetch call (1..MaxBatchSize).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// Query is the ESearch term (default "hasstructuredabstract").
	Query string `json:"query" yaml:"query"`

	// APIKey raises the E-utilities rate limit from 3 to 10 requests per second.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Email identifies the caller to NCBI.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// DataDir is the base directory for uid lists, raw batches, and the ledger.
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// ParseConfig holds settings for the parse stage.
type ParseConfig struct {
	// OutputDir receives one structured file per input file.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Workers bounds how many input files are parsed concurrently.
	Workers int `json:"workers" yaml:"workers"`
}

// ReportThresholds are per-category minimum counts applied when presenting
// a Report. They are a presentation filter; aggregation never applies them.
type ReportThresholds struct {
	Journal         int `json:"journal_min" yaml:"journal_min"`
	Label           int `json:"label_min" yaml:"label_min"`
	SubjectCategory int `json:"subject_category_min" yaml:"subject_category_min"`
	Keyword         int `json:"keyword_min" yaml:"keyword_min"`
}
