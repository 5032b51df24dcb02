// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup collapses records that share an identity key into one
// canonical record.
//
// Selection policy: the record with the most sections wins; when several
// share the highest section count, the one that appears latest in corpus
// order wins. Fields are never merged across records. Canonical records are
// emitted in the order their key first appears in the corpus, whichever
// occurrence was selected.
package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pdiddy/abstract-miner/internal/recordio"
	"github.com/pdiddy/abstract-miner/pkg/types"
)

const progressEvery = 10000

// Stats reports what a dedup pass did.
type Stats struct {
	Records       int // records read
	Unique        int // canonical records written
	DuplicateKeys int // keys that occurred more than once
	Dropped       int // records discarded in favor of a canonical one
	Invalid       int // lines skipped: undecodable or without an identity key
}

// prefer reports whether candidate replaces current as canonical. Callers
// visit records in corpus order, so >= lets the later record win ties.
func prefer(candidate, current int) bool {
	return candidate >= current
}

// Dedupe applies the selection policy to an in-memory corpus.
func Dedupe(records []types.StructuredRecord) ([]types.CanonicalRecord, Stats) {
	var stats Stats
	index := make(map[string]int)
	counts := make(map[string]int)
	out := make([]types.CanonicalRecord, 0, len(records))

	for _, rec := range records {
		if rec.PMID == "" {
			stats.Invalid++
			continue
		}
		stats.Records++
		counts[rec.PMID]++
		if counts[rec.PMID] == 2 {
			stats.DuplicateKeys++
		}
		i, ok := index[rec.PMID]
		if !ok {
			index[rec.PMID] = len(out)
			out = append(out, rec)
			continue
		}
		stats.Dropped++
		if prefer(len(rec.Sections), len(out[i].Sections)) {
			out[i] = rec
		}
	}
	stats.Unique = len(out)
	return out, stats
}

// entry locates the currently selected line for one key.
type entry struct {
	offset   int64
	length   int
	sections int
	count    int
}

// DedupeFile deduplicates the JSON Lines corpus at path and writes canonical
// records to out. It makes two passes: the first keeps only a small
// per-key index of line offsets, the second reads each selected line back
// with ReadAt. Memory grows with the number of distinct keys, not with the
// size of the records.
func DedupeFile(ctx context.Context, path string, out io.Writer, status io.Writer) (Stats, error) {
	if path == "" {
		return Stats{}, fmt.Errorf("input path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var stats Stats
	index := make(map[string]*entry)
	var order []string

	rd := recordio.NewReader[types.StructuredRecord](f)
	rd.OnMalformed = func(line int, err error) {
		stats.Invalid++
		fmt.Fprintf(status, "skipped %s:%d: %v\n", path, line, err)
	}
	for rd.Next() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		rec := rd.Record()
		if rec.PMID == "" {
			stats.Invalid++
			fmt.Fprintf(status, "skipped %s:%d: missing identity key\n", path, rd.Line())
			continue
		}
		stats.Records++
		if stats.Records%progressEvery == 0 {
			fmt.Fprintf(status, "dedupe: indexed %d records\n", stats.Records)
		}

		e, ok := index[rec.PMID]
		if !ok {
			index[rec.PMID] = &entry{offset: rd.Offset(), length: rd.Len(), sections: len(rec.Sections), count: 1}
			order = append(order, rec.PMID)
			continue
		}
		e.count++
		stats.Dropped++
		if e.count == 2 {
			stats.DuplicateKeys++
		}
		if prefer(len(rec.Sections), e.sections) {
			e.offset, e.length, e.sections = rd.Offset(), rd.Len(), len(rec.Sections)
		}
	}
	if err := rd.Err(); err != nil {
		return stats, fmt.Errorf("reading %s: %w", path, err)
	}

	w := recordio.NewWriter[types.CanonicalRecord](out)
	var buf []byte
	for _, key := range order {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		e := index[key]
		if cap(buf) < e.length {
			buf = make([]byte, e.length)
		}
		buf = buf[:e.length]
		if _, err := f.ReadAt(buf, e.offset); err != nil && err != io.EOF {
			return stats, fmt.Errorf("re-reading record %s: %w", key, err)
		}
		var rec types.CanonicalRecord
		if err := json.Unmarshal(buf, &rec); err != nil {
			return stats, fmt.Errorf("decoding record %s: %w", key, err)
		}
		if err := w.Write(rec); err != nil {
			return stats, err
		}
	}
	if err := w.Flush(); err != nil {
		return stats, fmt.Errorf("flushing output: %w", err)
	}
	stats.Unique = w.Count()

	fmt.Fprintf(status, "dedupe done: %d records, %d unique, %d duplicate keys, %d dropped, %d invalid\n",
		stats.Records, stats.Unique, stats.DuplicateKeys, stats.Dropped, stats.Invalid)
	return stats, nil
}
