// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package labels normalizes abstract section labels and classifies
// conclusion-type sections against a versioned label set.
package labels

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"
)

//go:embed conclusion_labels.yaml
var defaultSetYAML []byte

// Normalize maps a raw section label to its canonical form: every "&"
// becomes "AND", every ":" is removed, surrounding whitespace is trimmed,
// and the result is upper-cased. It is total and idempotent.
func Normalize(raw string) string {
	s := strings.ReplaceAll(raw, "&", "AND")
	s = strings.ReplaceAll(s, ":", "")
	s = strings.TrimSpace(s)
	return strings.ToUpper(s)
}

// setFile is the on-disk representation of a label set.
type setFile struct {
	Version int      `yaml:"version"`
	Labels  []string `yaml:"labels"`
}

// Set is an immutable set of canonical conclusion labels.
type Set struct {
	version int
	labels  map[string]struct{}
}

// NewSet builds a set from raw labels, normalizing each one. Empty labels
// are ignored.
func NewSet(version int, raw []string) *Set {
	s := &Set{version: version, labels: make(map[string]struct{}, len(raw))}
	for _, l := range raw {
		n := Normalize(l)
		if n == "" {
			continue
		}
		s.labels[n] = struct{}{}
	}
	return s
}

// Parse decodes a YAML label set.
func Parse(data []byte) (*Set, error) {
	var f setFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing label set: %w", err)
	}
	set := NewSet(f.Version, f.Labels)
	if set.Len() == 0 {
		return nil, fmt.Errorf("label set has no labels")
	}
	return set, nil
}

// Load reads a YAML label set from path.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading label set %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the built-in conclusion label set.
func Default() *Set {
	set, err := Parse(defaultSetYAML)
	if err != nil {
		panic(fmt.Sprintf("labels: embedded label set: %v", err))
	}
	return set
}

// Version returns the label set version.
func (s *Set) Version() int { return s.version }

// Len returns the number of canonical labels in the set.
func (s *Set) Len() int { return len(s.labels) }

// Labels returns the canonical labels in lexical order.
func (s *Set) Labels() []string {
	out := make([]string, 0, len(s.labels))
	for l := range s.labels {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether canonical is in the set. The argument must
// already be normalized; use IsConclusion for raw labels.
func (s *Set) Contains(canonical string) bool {
	_, ok := s.labels[canonical]
	return ok
}

// IsConclusion reports whether a raw label normalizes to a conclusion label.
// Matching is exact; there is no substring or fuzzy matching.
func (s *Set) IsConclusion(raw string) bool {
	return s.Contains(Normalize(raw))
}
