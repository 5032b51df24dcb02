// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"encoding/xml"
	"strings"

	"github.com/pdiddy/abstract-miner/pkg/types"
)

// PubMed EFetch XML, reduced to the elements the pipeline reads.

type pubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation   medlineCitation `xml:"MedlineCitation"`
	ArticleIDs []articleID     `xml:"PubmedData>ArticleIdList>ArticleId"`
}

type medlineCitation struct {
	PMID     string      `xml:"PMID"`
	Article  article     `xml:"Article"`
	Keywords []innerText `xml:"KeywordList>Keyword"`
}

type article struct {
	Journal          journal        `xml:"Journal"`
	Title            innerText      `xml:"ArticleTitle"`
	ELocationIDs     []eLocationID  `xml:"ELocationID"`
	Abstract         []abstractText `xml:"Abstract>AbstractText"`
	Languages        []string       `xml:"Language"`
	PublicationTypes []string       `xml:"PublicationTypeList>PublicationType"`
}

type journal struct {
	Title string `xml:"Title"`
	ISO   string `xml:"ISOAbbreviation"`
	Issue struct {
		Volume  string `xml:"Volume"`
		Issue   string `xml:"Issue"`
		PubDate struct {
			Year        string `xml:"Year"`
			MedlineDate string `xml:"MedlineDate"`
		} `xml:"PubDate"`
	} `xml:"JournalIssue"`
}

type eLocationID struct {
	Type  string `xml:"EIdType,attr"`
	Valid string `xml:"ValidYN,attr"`
	Value string `xml:",chardata"`
}

type articleID struct {
	Type  string `xml:"IdType,attr"`
	Value string `xml:",chardata"`
}

// innerText collects all character data of an element, including text
// inside inline markup such as <i> or <sup>.
type innerText string

func (t *innerText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch tok := tok.(type) {
		case xml.CharData:
			b.Write(tok)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				*t = innerText(strings.TrimSpace(b.String()))
				return nil
			}
			depth--
		}
	}
}

// abstractText is one AbstractText element. Unstructured abstracts have a
// single element without a Label.
type abstractText struct {
	Label       string
	NlmCategory string
	Text        string
}

func (a *abstractText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "Label":
			a.Label = attr.Value
		case "NlmCategory":
			a.NlmCategory = attr.Value
		}
	}
	var text innerText
	if err := text.UnmarshalXML(d, start); err != nil {
		return err
	}
	a.Text = string(text)
	return nil
}

func (a pubmedArticle) record() types.RawFetchRecord {
	c := a.Citation
	art := c.Article
	rec := types.RawFetchRecord{
		PMID:         strings.TrimSpace(c.PMID),
		Title:        string(art.Title),
		JournalTitle: strings.TrimSpace(art.Journal.Title),
		JournalISO:   strings.TrimSpace(art.Journal.ISO),
		Volume:       strings.TrimSpace(art.Journal.Issue.Volume),
		Issue:        strings.TrimSpace(art.Journal.Issue.Issue),
		DOI:          a.doi(),
		Year:         pubYear(art.Journal.Issue.PubDate.Year, art.Journal.Issue.PubDate.MedlineDate),
		Keywords:     make([]string, 0, len(c.Keywords)),
		Abstract:     make([]types.RawSection, 0, len(art.Abstract)),
	}
	if len(art.Languages) > 0 {
		rec.Language = strings.TrimSpace(art.Languages[0])
	}
	if len(art.PublicationTypes) > 0 {
		rec.SubjectCategory = strings.TrimSpace(art.PublicationTypes[0])
	}
	for _, kw := range c.Keywords {
		if s := string(kw); s != "" {
			rec.Keywords = append(rec.Keywords, s)
		}
	}
	for _, s := range art.Abstract {
		rec.Abstract = append(rec.Abstract, types.RawSection{
			Label:       s.Label,
			NlmCategory: s.NlmCategory,
			Text:        s.Text,
		})
	}
	return rec
}

// doi prefers a valid ELocationID of type doi, then the ArticleIdList.
func (a pubmedArticle) doi() string {
	for _, e := range a.Citation.Article.ELocationIDs {
		if e.Type == "doi" && e.Valid != "N" {
			return strings.TrimSpace(e.Value)
		}
	}
	for _, id := range a.ArticleIDs {
		if id.Type == "doi" {
			return strings.TrimSpace(id.Value)
		}
	}
	return ""
}

// pubYear returns Year, or the leading year of a MedlineDate such as
// "1998 Dec-1999 Jan".
func pubYear(year, medlineDate string) string {
	if y := strings.TrimSpace(year); y != "" {
		return y
	}
	md := strings.TrimSpace(medlineDate)
	if len(md) >= 4 {
		return md[:4]
	}
	return md
}
