package poitiers

import (
	"context"
	"fmt"

	"poitiers-connector/lib/scrape"
	"poitiers-connector/lib/textutil"

	"go.opentelemetry.io/otel/codes"
)

type contractType struct {
	key   string
	label string
}

// The portal tags each contract block with data-contract=<key>. Only the
// keys listed here are picked up; blocks of any other type are skipped.
// The portal likely also exposes "health", "protection", "leisure" and
// "bank", add them here once their labels are confirmed.
var contractTypes = []contractType{
	{key: "vehicle", label: "véhicule"},
	{key: "house", label: "habitation"},
}

func collapseSpaces(raw string) (any, error) {
	return textutil.CollapseSpaces(raw), nil
}

func contractSchema() scrape.Schema {
	return scrape.Schema{
		{Name: "name", Selector: "span.sr-only", Parse: collapseSpaces},
		{Name: "subUrl", Selector: "a.contract-detail-load", Attr: "data-contract-detail"},
	}
}

func documentSchema(base string) scrape.Schema {
	return scrape.Schema{
		{Name: "filename", Selector: "a", Parse: safeFilename},
		{Name: "fileurl", Selector: "a", Attr: "href", Parse: absolutize(base)},
	}
}

func safeFilename(raw string) (any, error) {
	return textutil.SafeFilename(raw), nil
}

// FetchContracts scrapes the contracts page once and returns every contract
// of a supported type, each tagged with its display label, in the order of
// the type table then of the page.
func (c *Client) FetchContracts(ctx context.Context) ([]Contract, error) {
	ctx, span := tracer.Start(ctx, "client:FetchContracts")
	defer span.End()

	doc, err := c.fetchDocument(ctx, "/contrats")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch contracts page")
		return nil, err
	}

	var contracts []Contract
	for _, ct := range contractTypes {
		rows := scrape.Extract(doc, fmt.Sprintf("div[data-contract=%s]", ct.key), contractSchema())
		for _, row := range rows {
			contracts = append(contracts, Contract{
				Name:   row.String("name"),
				SubUrl: row.String("subUrl"),
				Type:   ct.label,
			})
		}
	}
	return contracts, nil
}

// FetchContractDocs scrapes one contract's detail page into one File per
// listed document, stored under the contract's type label.
func (c *Client) FetchContractDocs(ctx context.Context, contract Contract) ([]File, error) {
	ctx, span := tracer.Start(ctx, "client:FetchContractDocs")
	defer span.End()

	doc, err := c.fetchDocument(ctx, contract.SubUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch contract detail page")
		return nil, err
	}

	rows := scrape.Extract(doc, "ul li", documentSchema(c.BaseUrl.String()))

	files := make([]File, 0, len(rows))
	for _, row := range rows {
		filename := row.String("filename")
		files = append(files, File{
			Filename: filename,
			FileUrl:  row.String("fileurl"),
			SubPath:  contract.Type,
			Metadata: Metadata{
				CarbonCopy:    true,
				ContentAuthor: Vendor,
				Title:         filename,
			},
		})
	}
	return files, nil
}
