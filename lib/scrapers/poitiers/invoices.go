package poitiers

import (
	"context"
	"errors"
	"fmt"

	"poitiers-connector/lib/scrape"
	"poitiers-connector/lib/textutil"

	"go.opentelemetry.io/otel/codes"
)

// ErrMalformedDate reports an invoice row whose date cell did not parse as
// DD/MM/YYYY. The date names the file, so this cannot be papered over.
var ErrMalformedDate = errors.New("invoice date is not DD/MM/YYYY")

func parseFrenchDate(raw string) (any, error) {
	return textutil.ParseFrenchDate(raw)
}

func absolutize(base string) scrape.ParseFunc {
	return func(raw string) (any, error) {
		return textutil.AbsoluteURL(base, raw), nil
	}
}

func invoiceSchema(base string) scrape.Schema {
	return scrape.Schema{
		{Name: "date", Selector: "span.color-primary", Parse: parseFrenchDate},
		{Name: "fileurl", Selector: "div.row-grey-button a", Attr: "href", Parse: absolutize(base)},
	}
}

// FetchInvoices scrapes the billing-statements page into one File per
// statement row.
func (c *Client) FetchInvoices(ctx context.Context) ([]File, error) {
	ctx, span := tracer.Start(ctx, "client:FetchInvoices")
	defer span.End()

	doc, err := c.fetchDocument(ctx, "/cotisations")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch billing statements page")
		return nil, err
	}

	rows := scrape.Extract(doc, "div#avis-echeance div.row-grey", invoiceSchema(c.BaseUrl.String()))

	files := make([]File, 0, len(rows))
	for _, row := range rows {
		date, ok := row.Time("date")
		if !ok {
			err := fmt.Errorf("%w (row %d of %d)", ErrMalformedDate, len(files)+1, len(rows))
			span.RecordError(err)
			span.SetStatus(codes.Error, "invoice row has no usable date")
			return nil, err
		}

		files = append(files, File{
			Filename: date.Format("2006-01-02") + "_avis_d_échéance.pdf",
			FileUrl:  row.String("fileurl"),
			SubPath:  "factures",
			Metadata: Metadata{
				CarbonCopy:     true,
				Classification: "invoicing",
			},
		})
	}
	return files, nil
}
