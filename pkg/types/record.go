// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the abstract-miner pipeline.
// Records flow between stages as JSON Lines: the fetch stage writes
// RawFetchRecords, the parse stage turns each one into a StructuredRecord,
// and every later stage (dedupe, clean, aggregate, select) reads and writes
// StructuredRecords so stages compose through plain files.
package types

// RawSection is one (label, text) pair of an abstract exactly as the source
// returned it.
type RawSection struct {
	// Label is the section label from the source (e.g. "CONCLUSIONS:").
	Label string `json:"label" yaml:"label"`

	// NlmCategory is the NLM-assigned category for the section, when present.
	NlmCategory string `json:"nlm_category,omitempty" yaml:"nlm_category,omitempty"`

	// Text is the section body.
	Text string `json:"text" yaml:"text"`
}

// RawFetchRecord is one publication as produced by the fetch stage. It is
// immutable once written.
type RawFetchRecord struct {
	// PMID is the publication identifier used as identity key.
	PMID string `json:"pmid" yaml:"pmid"`

	Title        string `json:"title" yaml:"title"`
	JournalTitle string `json:"journal_title" yaml:"journal_title"`
	JournalISO   string `json:"journal_iso,omitempty" yaml:"journal_iso,omitempty"`
	Volume       string `json:"volume,omitempty" yaml:"volume,omitempty"`
	Issue        string `json:"issue,omitempty" yaml:"issue,omitempty"`
	DOI          string `json:"doi,omitempty" yaml:"doi,omitempty"`
	Language     string `json:"language,omitempty" yaml:"language,omitempty"`

	// Year is the publication year as text; sources sometimes carry ranges
	// or seasons, so it is validated by the parser rather than here.
	Year string `json:"year,omitempty" yaml:"year,omitempty"`

	// SubjectCategory is the primary publication type.
	SubjectCategory string `json:"subject_category,omitempty" yaml:"subject_category,omitempty"`

	Keywords []string     `json:"keywords" yaml:"keywords"`
	Abstract []RawSection `json:"abstract" yaml:"abstract"`

	// Batch identifies the retrieval run that produced the record
	// (e.g. "2020-2023/0004").
	Batch string `json:"batch,omitempty" yaml:"batch,omitempty"`
}

// AbstractSection is a labeled section of a structured abstract. Sections
// keep publication order and are never reordered or merged.
type AbstractSection struct {
	// Label is the canonical label after normalization.
	Label string `json:"label" yaml:"label"`

	// RawLabel is the label exactly as it appeared in the source.
	RawLabel string `json:"raw_label" yaml:"raw_label"`

	// NlmCategory is carried through from the source for auditability.
	NlmCategory string `json:"nlm_category,omitempty" yaml:"nlm_category,omitempty"`

	// Text is the section body.
	Text string `json:"text" yaml:"text"`
}

// StructuredRecord is the parsed form of one RawFetchRecord. The same shape
// is used for canonical (deduplicated) and cleaned records; what differs is
// which stage emitted it.
type StructuredRecord struct {
	// PMID is the identity key. It is never empty.
	PMID string `json:"pmid" yaml:"pmid"`

	Title           string `json:"title" yaml:"title"`
	Journal         string `json:"journal" yaml:"journal"`
	Year            int    `json:"year,omitempty" yaml:"year,omitempty"`
	SubjectCategory string `json:"subject_category,omitempty" yaml:"subject_category,omitempty"`

	DOI      string `json:"doi,omitempty" yaml:"doi,omitempty"`
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
	Volume   string `json:"volume,omitempty" yaml:"volume,omitempty"`
	Issue    string `json:"issue,omitempty" yaml:"issue,omitempty"`

	Keywords []string          `json:"keywords" yaml:"keywords"`
	Sections []AbstractSection `json:"sections" yaml:"sections"`

	// Batch is the retrieval run the record came from.
	Batch string `json:"batch,omitempty" yaml:"batch,omitempty"`
}

// CanonicalRecord is the StructuredRecord chosen to represent every record
// sharing one identity key.
type CanonicalRecord = StructuredRecord

// CleanedRecord is a CanonicalRecord accepted by the clean filter.
type CleanedRecord = StructuredRecord
