// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package labels

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ampersand and colon", "CONCLUSIONS & RELEVANCE:", "CONCLUSIONS AND RELEVANCE"},
		{"mixed case", "Conclusions & Relevance:", "CONCLUSIONS AND RELEVANCE"},
		{"surrounding whitespace", "  results  ", "RESULTS"},
		{"colon exposes whitespace", " : Methods", "METHODS"},
		{"empty", "", ""},
		{"only punctuation", "::", ""},
		{"ampersand without spaces", "R&D", "RANDD"},
		{"parentheses kept", "conclusion(s)", "CONCLUSION(S)"},
		{"inner colon removed", "MAIN: CONCLUSION", "MAIN CONCLUSION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"", " ", "CONCLUSIONS & RELEVANCE:", "conclusion:", "a & b & c",
		"\tBackground :\n", "Ǆ dz", "straße", "::&::", "Résumé & Conclusión",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestDefaultSet(t *testing.T) {
	set := Default()
	assert.Positive(t, set.Version())
	assert.Greater(t, set.Len(), 10)

	tests := []struct {
		raw  string
		want bool
	}{
		{"Conclusions & Relevance:", true},
		{"CONCLUSIONS AND RELEVANCE", true},
		{"conclusion:", true},
		{"Conclusion(s)", true},
		{"MAIN CONCLUSION", true},
		{"Authors' conclusions", true},
		{"RESULTS", false},
		{"METHODS", false},
		{"", false},
		{"CONCLUSIONS OF THE STUDY", false},
		{"PRELIMINARY CONCLUSIONS", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, set.IsConclusion(tt.raw))
		})
	}
}

func TestParse(t *testing.T) {
	set, err := Parse([]byte("version: 7\nlabels:\n  - \"Key Findings & Conclusions:\"\n  - \"\"\n  - conclusion\n"))
	require.NoError(t, err)

	assert.Equal(t, 7, set.Version())
	assert.Equal(t, []string{"CONCLUSION", "KEY FINDINGS AND CONCLUSIONS"}, set.Labels())
	assert.True(t, set.IsConclusion("key findings & conclusions"))
	assert.True(t, set.Contains("CONCLUSION"))
	assert.False(t, set.Contains("conclusion"), "Contains expects canonical input")
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("version: 1\nlabels: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no labels")

	_, err = Parse([]byte("labels: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing label set")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 2\nlabels: [FINAL REMARKS]\n"), 0o644))

	set, err := Load(path)
	require.NoError(t, err)
	assert.True(t, set.IsConclusion("Final remarks:"))
	assert.False(t, set.IsConclusion("Conclusions"))

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading label set")
}
