// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch retrieves publication identifiers and records from the NCBI
// E-utilities API. Identifiers come from ESearch over a publication-date
// range; records come from EFetch in batches and are decoded from PubMed XML
// into RawFetchRecords.
package fetch

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/abstract-miner/internal/httputil"
	"github.com/pdiddy/abstract-miner/pkg/types"
)

// eutilsBase is the E-utilities endpoint root. Declared as a var so tests
// can substitute an httptest server.
var eutilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"

// searchPageSize is the ESearch retmax per request.
var searchPageSize = 10000

// NCBI allows 3 requests per second without an API key and 10 with one.
const (
	anonymousRate = 3
	keyedRate     = 10
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "abstract-miner/0.1"
	defaultQuery     = "hasstructuredabstract"
	toolName         = "abstract-miner"
)

// Client is a rate-limited E-utilities client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	cfg        types.FetchConfig
}

// NewClient returns a Client for cfg. The request rate follows whether an
// API key is configured.
func NewClient(cfg types.FetchConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Query == "" {
		cfg.Query = defaultQuery
	}
	limit := rate.Limit(anonymousRate)
	if cfg.APIKey != "" {
		limit = keyedRate
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		cfg:        cfg,
	}
}

// Limit returns the configured requests per second.
func (c *Client) Limit() rate.Limit { return c.limiter.Limit() }

// commonParams returns the parameters every E-utilities call carries.
func (c *Client) commonParams() url.Values {
	v := url.Values{}
	v.Set("db", "pubmed")
	v.Set("tool", toolName)
	if c.cfg.Email != "" {
		v.Set("email", c.cfg.Email)
	}
	if c.cfg.APIKey != "" {
		v.Set("api_key", c.cfg.APIKey)
	}
	return v
}

func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	return httputil.DoWithRetry(ctx, c.httpClient, req, c.cfg.MaxRetries)
}

type esearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// SearchIDs returns the PMIDs matching the configured query with a
// publication date in [begin, end]. IDs are de-duplicated, keeping
// first-seen order.
func (c *Client) SearchIDs(ctx context.Context, begin, end int) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string

	for retstart := 0; ; {
		v := c.commonParams()
		v.Set("term", c.cfg.Query)
		v.Set("datetype", "pdat")
		v.Set("mindate", strconv.Itoa(begin))
		v.Set("maxdate", strconv.Itoa(end))
		v.Set("retmode", "json")
		v.Set("retstart", strconv.Itoa(retstart))
		v.Set("retmax", strconv.Itoa(searchPageSize))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, eutilsBase+"esearch.fcgi?"+v.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("creating ESearch request: %w", err)
		}
		resp, err := c.do(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("ESearch request: %w", err)
		}

		var page esearchResponse
		err = decodeJSON(resp, &page)
		if err != nil {
			return nil, fmt.Errorf("ESearch: %w", err)
		}
		total, err := strconv.Atoi(page.Result.Count)
		if err != nil {
			return nil, fmt.Errorf("ESearch: invalid count %q", page.Result.Count)
		}

		for _, id := range page.Result.IDList {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}

		retstart += len(page.Result.IDList)
		if len(page.Result.IDList) == 0 || retstart >= total {
			break
		}
	}
	return ids, nil
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// FetchBatch retrieves the records for ids with one EFetch POST. Articles
// the server omits are simply absent from the result.
func (c *Client) FetchBatch(ctx context.Context, ids []string) ([]types.RawFetchRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	v := c.commonParams()
	v.Set("retmode", "xml")
	v.Set("id", strings.Join(ids, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, eutilsBase+"efetch.fcgi", strings.NewReader(v.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating EFetch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("EFetch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("EFetch returned HTTP %d", resp.StatusCode)
	}

	var set pubmedArticleSet
	if err := xml.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("parsing EFetch XML: %w", err)
	}

	recs := make([]types.RawFetchRecord, 0, len(set.Articles))
	for _, a := range set.Articles {
		recs = append(recs, a.record())
	}
	return recs, nil
}
