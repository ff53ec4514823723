package connector

import (
	"context"
	"log/slog"

	"poitiers-connector/lib/scrapers/poitiers"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/connector")

// Credentials identify one account on the portal. They are passed through to
// the login form and never persisted here.
type Credentials struct {
	Login    string
	Password string
}

// SaveOptions carries the persistence context of one sync.
type SaveOptions struct {
	SourceAccountIdentifier string
	DedupKeys               []string
}

// Saver persists the documents discovered by one sync. Implementations must
// dedupe on the keys named in SaveOptions and fetch each FileUrl with the
// same authenticated session the files were listed with.
type Saver interface {
	Save(ctx context.Context, files []poitiers.File, opts SaveOptions) error
}

type Service struct {
	client *poitiers.Client
	saver  Saver
}

func NewService(client *poitiers.Client, saver Saver) Service {
	return Service{
		client: client,
		saver:  saver,
	}
}

// Sync runs the whole pipeline in order: login, invoices, contracts, then
// the documents of each contract, then one Save of the union. A login error
// is fatal before any page fetch; any later error aborts the run with
// nothing saved. Returns the files handed to the saver.
func (s Service) Sync(ctx context.Context, creds Credentials) ([]poitiers.File, error) {
	ctx, span := tracer.Start(ctx, "service:Sync")
	defer span.End()

	slog.InfoContext(ctx, "authenticating")
	err := s.client.Login(ctx, creds.Login, creds.Password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "authentication failed")
		return nil, err
	}
	slog.InfoContext(ctx, "successfully logged in")

	slog.InfoContext(ctx, "fetching the list of invoices")
	files, err := s.client.FetchInvoices(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list invoices")
		return nil, err
	}

	slog.InfoContext(ctx, "fetching the list of contracts")
	contracts, err := s.client.FetchContracts(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list contracts")
		return nil, err
	}

	slog.InfoContext(ctx, "fetching the list of documents for each contract", "contracts", len(contracts))
	for _, contract := range contracts {
		docs, err := s.client.FetchContractDocs(ctx, contract)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to list contract documents")
			return nil, err
		}
		files = append(files, docs...)
	}

	slog.InfoContext(ctx, "saving files", "count", len(files))
	err = s.saver.Save(ctx, files, SaveOptions{
		SourceAccountIdentifier: creds.Login,
		DedupKeys:               []string{"filename", "subPath"},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save files")
		return nil, err
	}

	return files, nil
}
