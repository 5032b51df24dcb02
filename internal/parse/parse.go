// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package parse turns fetched publication records into structured records
// with an ordered sequence of labeled abstract sections. Parsing a record
// depends on nothing but the record itself, so batches can be parsed
// independently, concurrently, and repeatedly with identical output.
package parse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/abstract-miner/internal/labels"
	"github.com/pdiddy/abstract-miner/pkg/types"
)

// ErrMalformedRecord marks a record that cannot yield a valid identity key.
var ErrMalformedRecord = errors.New("malformed record")

// Parse converts one RawFetchRecord into a StructuredRecord. A record whose
// identity key is missing or not numeric is rejected with
// ErrMalformedRecord. Missing optional metadata and an empty abstract are
// not errors.
func Parse(raw types.RawFetchRecord) (types.StructuredRecord, error) {
	key, err := identityKey(raw.PMID)
	if err != nil {
		return types.StructuredRecord{}, err
	}

	rec := types.StructuredRecord{
		PMID:            key,
		Title:           strings.TrimSpace(raw.Title),
		Journal:         strings.TrimSpace(raw.JournalTitle),
		Year:            parseYear(raw.Year),
		SubjectCategory: strings.TrimSpace(raw.SubjectCategory),
		DOI:             strings.TrimSpace(raw.DOI),
		Language:        strings.TrimSpace(raw.Language),
		Volume:          strings.TrimSpace(raw.Volume),
		Issue:           strings.TrimSpace(raw.Issue),
		Keywords:        make([]string, 0, len(raw.Keywords)),
		Sections:        make([]types.AbstractSection, 0, len(raw.Abstract)),
		Batch:           raw.Batch,
	}

	for _, kw := range raw.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		rec.Keywords = append(rec.Keywords, kw)
	}

	// Sections are kept one-to-one and in source order, even when labels repeat.
	for _, s := range raw.Abstract {
		rec.Sections = append(rec.Sections, types.AbstractSection{
			Label:       labels.Normalize(s.Label),
			RawLabel:    s.Label,
			NlmCategory: s.NlmCategory,
			Text:        s.Text,
		})
	}

	return rec, nil
}

// identityKey validates and trims a PMID.
func identityKey(pmid string) (string, error) {
	key := strings.TrimSpace(pmid)
	if key == "" {
		return "", fmt.Errorf("%w: missing identity key", ErrMalformedRecord)
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: identity key %q is not numeric", ErrMalformedRecord, key)
		}
	}
	return key, nil
}

// parseYear reads a leading four-digit year ("2019", "2019 Jan-Feb").
// Anything else yields 0, meaning unknown.
func parseYear(s string) int {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return 0
	}
	for i := 0; i < 4; i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0
		}
	}
	y, _ := strconv.Atoi(s[:4])
	return y
}
