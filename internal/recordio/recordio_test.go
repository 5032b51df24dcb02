// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recordio

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   string `json:"id"`
	Text string `json:"text,omitempty"`
}

func TestReaderSkipsBlankAndMalformedLines(t *testing.T) {
	input := "{\"id\":\"1\"}\n\n   \nnot json\n{\"id\":\"2\",\"text\":\"a\"}\r\n{\"id\":\"3\"}"

	rd := NewReader[item](strings.NewReader(input))
	var malformedLines []int
	rd.OnMalformed = func(line int, err error) {
		malformedLines = append(malformedLines, line)
	}

	var ids []string
	var lines []int
	for rd.Next() {
		ids = append(ids, rd.Record().ID)
		lines = append(lines, rd.Line())
	}
	require.NoError(t, rd.Err())

	assert.Equal(t, []string{"1", "2", "3"}, ids)
	assert.Equal(t, []int{1, 5, 6}, lines)
	assert.Equal(t, 1, rd.Malformed())
	assert.Equal(t, []int{4}, malformedLines)
}

func TestReaderOffsets(t *testing.T) {
	lines := []string{`{"id":"a"}`, `{"id":"bb","text":"x"}`, `{"id":"c"}`}
	input := strings.Join(lines, "\n") + "\n"

	rd := NewReader[item](strings.NewReader(input))
	var got []string
	for rd.Next() {
		got = append(got, input[rd.Offset():rd.Offset()+int64(rd.Len())])
	}
	require.NoError(t, rd.Err())

	require.Len(t, got, 3)
	for i, l := range lines {
		assert.Equal(t, l+"\n", got[i])
	}
}

func TestReaderLineTooLong(t *testing.T) {
	long := `{"id":"` + strings.Repeat("x", MaxLineCapacity) + `"}` + "\n"
	input := `{"id":"ok"}` + "\n" + long

	rd := NewReader[item](strings.NewReader(input))
	require.True(t, rd.Next())
	assert.Equal(t, "ok", rd.Record().ID)
	assert.False(t, rd.Next())
	require.Error(t, rd.Err())
	assert.ErrorIs(t, rd.Err(), ErrLineTooLong)
	assert.Contains(t, rd.Err().Error(), "line 2")
}

func TestWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter[item](&buf)
	require.NoError(t, w.Write(item{ID: "1", Text: "a < b & c"}))
	require.NoError(t, w.Write(item{ID: "2"}))
	require.NoError(t, w.Flush())

	assert.Equal(t, 2, w.Count())
	assert.Equal(t, "{\"id\":\"1\",\"text\":\"a < b & c\"}\n{\"id\":\"2\"}\n", buf.String())

	got, err := ReadAll[item](&buf)
	require.NoError(t, err)
	assert.Equal(t, []item{{ID: "1", Text: "a < b & c"}, {ID: "2"}}, got)
}

func TestMarshalMatchesWriter(t *testing.T) {
	rec := item{ID: "9", Text: "<i>x</i>"}
	var buf bytes.Buffer
	w := NewWriter[item](&buf)
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Flush())

	data, err := Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(data)+"\n")
}

func TestMerge(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jsonl")
	b := filepath.Join(dir, "b.jsonl")
	c := filepath.Join(dir, "c.jsonl")
	require.NoError(t, os.WriteFile(a, []byte("{\"id\":\"1\"}\n{\"id\":\"2\"}\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("{\"id\":\"3\"}"), 0o644))
	require.NoError(t, os.WriteFile(c, nil, 0o644))

	var out, status bytes.Buffer
	summary, err := Merge(context.Background(), []string{a, b, c}, &out, &status)
	require.NoError(t, err)

	assert.Equal(t, MergeSummary{Files: 3, Lines: 3}, summary)
	assert.Equal(t, "{\"id\":\"1\"}\n{\"id\":\"2\"}\n{\"id\":\"3\"}\n", out.String())
	assert.Contains(t, status.String(), "merge done: 3 files, 3 lines")
}

func TestMergeMissingInput(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jsonl")
	require.NoError(t, os.WriteFile(a, []byte("{\"id\":\"1\"}\n"), 0o644))

	var out, status bytes.Buffer
	_, err := Merge(context.Background(), []string{a, filepath.Join(dir, "missing.jsonl")}, &out, &status)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, out.String(), "nothing is written when an input is missing")

	_, err = Merge(context.Background(), nil, &out, &status)
	require.Error(t, err)
}
