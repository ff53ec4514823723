package scrape

import (
	"time"

	"poitiers-connector/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// ParseFunc normalizes one raw extracted string. The returned value is
// stored in the record as-is, so a parser may change the field's type
// (e.g. a date string into a time.Time).
type ParseFunc func(raw string) (any, error)

// Field declares how one record field is pulled out of a row: the first
// descendant matching Selector, its Attr value when set (its text content
// otherwise), run through Parse when set.
type Field struct {
	Name     string
	Selector string
	Attr     string
	Parse    ParseFunc
}

// Schema is the ordered set of fields extracted for one page type.
type Schema []Field

// Record holds the extracted values of one row.
type Record map[string]any

func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

func (r Record) Time(key string) (time.Time, bool) {
	t, ok := r[key].(time.Time)
	return t, ok
}

// Extract returns one record per element matched by rowSelector, in document
// order. A field whose selector matches nothing in its row, or whose parser
// rejects the raw value, resolves to an empty string; the row is still
// emitted. Rows never fail as a whole, so a page with drifting markup
// degrades field by field instead of aborting the scrape.
func Extract(doc *goquery.Document, rowSelector string, schema Schema) []Record {
	var records []Record
	doc.Find(rowSelector).Each(func(_ int, row *goquery.Selection) {
		record := Record{}
		for _, field := range schema {
			record[field.Name] = extractField(row, field)
		}
		records = append(records, record)
	})
	return records
}

func extractField(row *goquery.Selection, field Field) any {
	cell := row.Find(field.Selector).First()
	if cell.Length() == 0 {
		return ""
	}

	raw := htmlutil.GetText(cell.Nodes[0])
	if field.Attr != "" {
		raw = cell.AttrOr(field.Attr, "")
	}

	if field.Parse == nil {
		return raw
	}
	value, err := field.Parse(raw)
	if err != nil {
		return ""
	}
	return value
}
