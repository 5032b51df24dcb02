// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/abstract-miner/internal/recordio"
	"github.com/pdiddy/abstract-miner/pkg/types"
)

func rec(pmid, batch string, sections int) types.StructuredRecord {
	r := types.StructuredRecord{
		PMID:     pmid,
		Title:    "title " + pmid,
		Journal:  "Lancet",
		Keywords: []string{},
		Sections: []types.AbstractSection{},
		Batch:    batch,
	}
	for i := 0; i < sections; i++ {
		r.Sections = append(r.Sections, types.AbstractSection{Label: "RESULTS", RawLabel: "Results", Text: "t"})
	}
	return r
}

func TestDedupe(t *testing.T) {
	tests := []struct {
		name      string
		in        []types.StructuredRecord
		wantKeys  []string
		wantBatch []string
		wantStats Stats
	}{
		{
			name:      "two records with the same key collapse",
			in:        []types.StructuredRecord{rec("1001", "a", 3), rec("1001", "b", 3)},
			wantKeys:  []string{"1001"},
			wantBatch: []string{"b"},
			wantStats: Stats{Records: 2, Unique: 1, DuplicateKeys: 1, Dropped: 1},
		},
		{
			name:      "most sections wins over later occurrence",
			in:        []types.StructuredRecord{rec("7", "a", 5), rec("7", "b", 2), rec("7", "c", 4)},
			wantKeys:  []string{"7"},
			wantBatch: []string{"a"},
			wantStats: Stats{Records: 3, Unique: 1, DuplicateKeys: 1, Dropped: 2},
		},
		{
			name:      "ties go to the latest occurrence",
			in:        []types.StructuredRecord{rec("7", "a", 4), rec("7", "b", 4), rec("7", "c", 1)},
			wantKeys:  []string{"7"},
			wantBatch: []string{"b"},
			wantStats: Stats{Records: 3, Unique: 1, DuplicateKeys: 1, Dropped: 2},
		},
		{
			name: "first-appearance order regardless of chosen occurrence",
			in: []types.StructuredRecord{
				rec("3", "a", 1), rec("1", "a", 1), rec("2", "a", 1), rec("3", "b", 6), rec("1", "b", 0),
			},
			wantKeys:  []string{"3", "1", "2"},
			wantBatch: []string{"b", "a", "a"},
			wantStats: Stats{Records: 5, Unique: 3, DuplicateKeys: 2, Dropped: 2},
		},
		{
			name:      "records without a key are skipped",
			in:        []types.StructuredRecord{rec("", "a", 3), rec("9", "a", 3)},
			wantKeys:  []string{"9"},
			wantBatch: []string{"a"},
			wantStats: Stats{Records: 1, Unique: 1, Invalid: 1},
		},
		{
			name:      "empty corpus",
			wantStats: Stats{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, stats := Dedupe(tt.in)
			assert.Equal(t, tt.wantStats, stats)
			require.Len(t, got, len(tt.wantKeys))
			for i := range got {
				assert.Equal(t, tt.wantKeys[i], got[i].PMID)
				assert.Equal(t, tt.wantBatch[i], got[i].Batch)
			}
		})
	}
}

func TestDedupeIdempotent(t *testing.T) {
	once, _ := Dedupe([]types.StructuredRecord{rec("1001", "a", 3), rec("1002", "a", 2), rec("1001", "b", 1)})
	twice, stats := Dedupe(once)
	assert.Equal(t, once, twice)
	assert.Zero(t, stats.DuplicateKeys)
	assert.Zero(t, stats.Dropped)
}

func writeCorpus(t *testing.T, recs ...types.StructuredRecord) string {
	t.Helper()
	var buf bytes.Buffer
	w := recordio.NewWriter[types.StructuredRecord](&buf)
	for _, r := range recs {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Flush())
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestDedupeFileMatchesDedupe(t *testing.T) {
	in := []types.StructuredRecord{
		rec("3", "a", 1), rec("1", "a", 1), rec("2", "a", 1), rec("3", "b", 6), rec("1", "b", 1), rec("1", "c", 0),
	}
	path := writeCorpus(t, in...)

	var out, status bytes.Buffer
	stats, err := DedupeFile(context.Background(), path, &out, &status)
	require.NoError(t, err)

	want, wantStats := Dedupe(in)
	assert.Equal(t, wantStats, stats)

	got, err := recordio.ReadAll[types.CanonicalRecord](&out)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Contains(t, status.String(), "dedupe done: 6 records, 3 unique, 2 duplicate keys, 3 dropped, 0 invalid")
}

func TestDedupeFileIdempotent(t *testing.T) {
	path := writeCorpus(t, rec("1001", "a", 3), rec("1001", "b", 3), rec("1002", "a", 3))

	var first bytes.Buffer
	_, err := DedupeFile(context.Background(), path, &first, &bytes.Buffer{})
	require.NoError(t, err)

	again := filepath.Join(t.TempDir(), "deduped.jsonl")
	require.NoError(t, os.WriteFile(again, first.Bytes(), 0o644))
	var second bytes.Buffer
	stats, err := DedupeFile(context.Background(), again, &second, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, first.String(), second.String())
	assert.Zero(t, stats.DuplicateKeys)
	assert.Equal(t, 2, stats.Unique)
}

func TestDedupeFileSkipsBadLines(t *testing.T) {
	good, err := recordio.Marshal(rec("5", "a", 3))
	require.NoError(t, err)
	noKey, err := recordio.Marshal(rec("", "a", 3))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	body := strings.Join([]string{string(good), "not json", "", string(noKey), string(good)}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	var out, status bytes.Buffer
	stats, err := DedupeFile(context.Background(), path, &out, &status)
	require.NoError(t, err)
	assert.Equal(t, Stats{Records: 2, Unique: 1, DuplicateKeys: 1, Dropped: 1, Invalid: 2}, stats)
	assert.Contains(t, status.String(), "corpus.jsonl:2")
	assert.Contains(t, status.String(), "missing identity key")
}

func TestDedupeFileErrors(t *testing.T) {
	_, err := DedupeFile(context.Background(), "", &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)

	_, err = DedupeFile(context.Background(), filepath.Join(t.TempDir(), "missing.jsonl"), &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
