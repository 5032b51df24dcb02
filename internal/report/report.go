// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report presents aggregated frequency tables. Minimum-count
// thresholds are applied here, at presentation time; the aggregated report
// itself is never filtered.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/abstract-miner/pkg/types"
)

// Output formats accepted by Write.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Filter returns the entries of t with a count of at least minCount, in
// their original order.
func Filter(t types.FrequencyTable, minCount int) types.FrequencyTable {
	out := make(types.FrequencyTable, 0, len(t))
	for _, e := range t {
		if e.Count >= minCount {
			out = append(out, e)
		}
	}
	return out
}

// Apply returns a copy of rep with each table filtered by its threshold.
func Apply(rep types.Report, th types.ReportThresholds) types.Report {
	return types.Report{
		Records:         rep.Records,
		Journal:         Filter(rep.Journal, th.Journal),
		Label:           Filter(rep.Label, th.Label),
		SubjectCategory: Filter(rep.SubjectCategory, th.SubjectCategory),
		Keyword:         Filter(rep.Keyword, th.Keyword),
	}
}

// Read decodes a JSON report.
func Read(r io.Reader) (types.Report, error) {
	var rep types.Report
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return types.Report{}, fmt.Errorf("parsing report: %w", err)
	}
	return rep, nil
}

// Write renders rep in format.
func Write(w io.Writer, rep types.Report, format string) error {
	switch format {
	case FormatText, "":
		return WriteText(w, rep)
	case FormatJSON:
		return WriteJSON(w, rep)
	case FormatYAML:
		return WriteYAML(w, rep)
	}
	return fmt.Errorf("unknown format %q (want text, json, or yaml)", format)
}

// WriteJSON writes rep as indented JSON.
func WriteJSON(w io.Writer, rep types.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(rep)
}

// WriteYAML writes rep as YAML.
func WriteYAML(w io.Writer, rep types.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return enc.Close()
}

// WriteText writes one aligned table per category.
func WriteText(w io.Writer, rep types.Report) error {
	fmt.Fprintf(w, "records: %d\n", rep.Records)
	for _, c := range types.Categories {
		t, _ := rep.Table(c)
		fmt.Fprintf(w, "\n%s (%d)\n", c, len(t))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
		for _, e := range t {
			fmt.Fprintf(tw, "%d\t  %s\n", e.Count, e.Value)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}
