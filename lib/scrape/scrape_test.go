package scrape

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"poitiers-connector/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, markup string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

func TestRowOrderPreserved(t *testing.T) {
	doc := parseDoc(t, `
		<div class="row"><span>first</span></div>
		<div class="row"><span>second</span></div>
		<div class="row"><span>third</span></div>
	`)

	records := Extract(doc, "div.row", Schema{
		{Name: "label", Selector: "span"},
	})

	require.Len(t, records, 3)
	require.Equal(t, "first", records[0].String("label"))
	require.Equal(t, "second", records[1].String("label"))
	require.Equal(t, "third", records[2].String("label"))
}

func TestMissingFieldDoesNotFailRow(t *testing.T) {
	doc := parseDoc(t, `
		<li><span>full row</span><a href="/doc/1">doc</a></li>
		<li><span>no link here</span></li>
	`)

	records := Extract(doc, "li", Schema{
		{Name: "label", Selector: "span"},
		{Name: "href", Selector: "a", Attr: "href"},
	})

	require.Len(t, records, 2)
	require.Equal(t, "/doc/1", records[0].String("href"))
	require.Equal(t, "no link here", records[1].String("label"))
	require.Equal(t, "", records[1].String("href"))
}

func TestParserChangesFieldType(t *testing.T) {
	doc := parseDoc(t, `<div class="row"><span>29/08/2021</span></div>`)

	records := Extract(doc, "div.row", Schema{
		{
			Name:     "date",
			Selector: "span",
			Parse: func(raw string) (any, error) {
				return textutil.ParseFrenchDate(raw)
			},
		},
	})

	require.Len(t, records, 1)
	date, ok := records[0].Time("date")
	require.True(t, ok)
	require.Equal(t, time.Date(2021, 8, 29, 0, 0, 0, 0, time.Local), date)
}

func TestParserErrorYieldsEmptyValue(t *testing.T) {
	doc := parseDoc(t, `<div class="row"><span>not a date</span><a href="/x">x</a></div>`)

	records := Extract(doc, "div.row", Schema{
		{
			Name:     "date",
			Selector: "span",
			Parse: func(raw string) (any, error) {
				return nil, fmt.Errorf("unparseable: %q", raw)
			},
		},
		{Name: "href", Selector: "a", Attr: "href"},
	})

	require.Len(t, records, 1)
	_, ok := records[0].Time("date")
	require.False(t, ok)
	// the failed field does not take the rest of the row with it
	require.Equal(t, "/x", records[0].String("href"))
}
