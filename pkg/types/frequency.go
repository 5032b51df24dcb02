// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Category names one of the frequency tables in a Report.
type Category string

const (
	CategoryJournal         Category = "journal"
	CategoryLabel           Category = "label"
	CategorySubjectCategory Category = "subject_category"
	CategoryKeyword         Category = "keyword"
)

// Categories lists every report category in output order.
var Categories = []Category{
	CategoryJournal,
	CategoryLabel,
	CategorySubjectCategory,
	CategoryKeyword,
}

// FrequencyEntry is one (value, count) pair.
type FrequencyEntry struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// FrequencyTable is sorted by count descending, ties broken by ascending
// value. Consumers rely on this ranking being stable.
type FrequencyTable []FrequencyEntry

// Report holds the four frequency tables computed over a cleaned corpus.
type Report struct {
	// Records is the number of records aggregated.
	Records int `json:"records" yaml:"records"`

	Journal         FrequencyTable `json:"journal" yaml:"journal"`
	Label           FrequencyTable `json:"label" yaml:"label"`
	SubjectCategory FrequencyTable `json:"subject_category" yaml:"subject_category"`
	Keyword         FrequencyTable `json:"keyword" yaml:"keyword"`
}

// Table returns the table for c, or nil and false for an unknown category.
func (r *Report) Table(c Category) (FrequencyTable, bool) {
	switch c {
	case CategoryJournal:
		return r.Journal, true
	case CategoryLabel:
		return r.Label, true
	case CategorySubjectCategory:
		return r.SubjectCategory, true
	case CategoryKeyword:
		return r.Keyword, true
	}
	return nil, false
}
