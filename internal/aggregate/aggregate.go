// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate computes frequency tables over a cleaned corpus.
//
// Counting is per occurrence: a record with three keywords adds three to
// the keyword table, and every section adds its canonical label. Empty
// values are not counted. Tables are sorted by count descending, ties by
// value ascending. No thresholds are applied here.
package aggregate

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/pdiddy/abstract-miner/internal/recordio"
	"github.com/pdiddy/abstract-miner/pkg/types"
)

const progressEvery = 10000

// Counter accumulates occurrences across records. The zero value is not
// usable; call NewCounter.
type Counter struct {
	records  int
	journal  map[string]int
	label    map[string]int
	category map[string]int
	keyword  map[string]int
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	return &Counter{
		journal:  make(map[string]int),
		label:    make(map[string]int),
		category: make(map[string]int),
		keyword:  make(map[string]int),
	}
}

// Add counts one record.
func (c *Counter) Add(rec types.CleanedRecord) {
	c.records++
	inc(c.journal, rec.Journal)
	inc(c.category, rec.SubjectCategory)
	for _, kw := range rec.Keywords {
		inc(c.keyword, kw)
	}
	for _, s := range rec.Sections {
		inc(c.label, s.Label)
	}
}

func inc(m map[string]int, v string) {
	if v == "" {
		return
	}
	m[v]++
}

// Report builds the sorted tables from everything added so far.
func (c *Counter) Report() types.Report {
	return types.Report{
		Records:         c.records,
		Journal:         table(c.journal),
		Label:           table(c.label),
		SubjectCategory: table(c.category),
		Keyword:         table(c.keyword),
	}
}

func table(m map[string]int) types.FrequencyTable {
	t := make(types.FrequencyTable, 0, len(m))
	for v, n := range m {
		t = append(t, types.FrequencyEntry{Value: v, Count: n})
	}
	sort.Slice(t, func(i, j int) bool {
		if t[i].Count != t[j].Count {
			return t[i].Count > t[j].Count
		}
		return t[i].Value < t[j].Value
	})
	return t
}

// Aggregate computes the report for an in-memory collection.
func Aggregate(records []types.CleanedRecord) types.Report {
	c := NewCounter()
	for _, rec := range records {
		c.Add(rec)
	}
	return c.Report()
}

// Stream computes the report for a JSON Lines stream of cleaned records.
// Undecodable lines are skipped and reported on status.
func Stream(ctx context.Context, r io.Reader, status io.Writer) (types.Report, error) {
	c := NewCounter()
	rd := recordio.NewReader[types.CleanedRecord](r)
	rd.OnMalformed = func(line int, err error) {
		fmt.Fprintf(status, "aggregate: skipped line %d: %v\n", line, err)
	}
	for rd.Next() {
		if err := ctx.Err(); err != nil {
			return types.Report{}, err
		}
		c.Add(rd.Record())
		if c.records%progressEvery == 0 {
			fmt.Fprintf(status, "aggregate: processed %d records\n", c.records)
		}
	}
	if err := rd.Err(); err != nil {
		return types.Report{}, err
	}
	rep := c.Report()
	fmt.Fprintf(status, "aggregate done: %d records, %d journals, %d labels, %d subject categories, %d keywords\n",
		rep.Records, len(rep.Journal), len(rep.Label), len(rep.SubjectCategory), len(rep.Keyword))
	return rep, nil
}
