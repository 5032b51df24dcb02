// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package clean keeps the canonical records whose abstracts are genuinely
// structured: enough sections, one of which is a conclusion.
package clean

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/abstract-miner/internal/labels"
	"github.com/pdiddy/abstract-miner/internal/recordio"
	"github.com/pdiddy/abstract-miner/pkg/types"
)

// MinSections is the fewest sections an accepted record may have.
const MinSections = 3

const progressEvery = 10000

// Accept reports whether rec has at least MinSections sections and at least
// one section whose raw label is a conclusion label in set.
func Accept(rec types.CanonicalRecord, set *labels.Set) bool {
	if len(rec.Sections) < MinSections {
		return false
	}
	for _, s := range rec.Sections {
		if set.IsConclusion(s.RawLabel) {
			return true
		}
	}
	return false
}

// Summary holds counts from one filtering pass. Rejected records are
// routine and only counted.
type Summary struct {
	Processed int
	Accepted  int
	Rejected  int
	Malformed int
}

// Filter streams records from r to w, keeping those that pass Accept.
func Filter(ctx context.Context, r io.Reader, w io.Writer, set *labels.Set, status io.Writer) (Summary, error) {
	s, err := stream(ctx, "clean", r, w, func(rec types.CanonicalRecord) bool {
		return Accept(rec, set)
	}, status)
	if err != nil {
		return s, err
	}
	fmt.Fprintf(status, "clean done: %d records, %d accepted, %d rejected\n", s.Processed, s.Accepted, s.Rejected)
	return s, nil
}

// Select streams records from r to w, keeping those whose journal equals
// journal exactly.
func Select(ctx context.Context, r io.Reader, w io.Writer, journal string, status io.Writer) (Summary, error) {
	if journal == "" {
		return Summary{}, fmt.Errorf("journal is required")
	}
	s, err := stream(ctx, "select", r, w, func(rec types.CanonicalRecord) bool {
		return rec.Journal == journal
	}, status)
	if err != nil {
		return s, err
	}
	fmt.Fprintf(status, "select done: %d records, %d in %q\n", s.Processed, s.Accepted, journal)
	return s, nil
}

func stream(ctx context.Context, stage string, r io.Reader, w io.Writer, keep func(types.CanonicalRecord) bool, status io.Writer) (Summary, error) {
	var s Summary
	rd := recordio.NewReader[types.CanonicalRecord](r)
	rd.OnMalformed = func(line int, err error) {
		s.Malformed++
		fmt.Fprintf(status, "%s: skipped line %d: %v\n", stage, line, err)
	}
	out := recordio.NewWriter[types.CleanedRecord](w)

	for rd.Next() {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		rec := rd.Record()
		s.Processed++
		if keep(rec) {
			if err := out.Write(rec); err != nil {
				return s, err
			}
			s.Accepted++
		} else {
			s.Rejected++
		}
		if s.Processed%progressEvery == 0 {
			fmt.Fprintf(status, "%s: processed %d records\n", stage, s.Processed)
		}
	}
	if err := rd.Err(); err != nil {
		return s, err
	}
	if err := out.Flush(); err != nil {
		return s, fmt.Errorf("flushing output: %w", err)
	}
	return s, nil
}
