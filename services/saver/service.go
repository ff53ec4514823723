package saver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"time"

	"poitiers-connector/lib/scrapers/poitiers"
	"poitiers-connector/services/connector"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/saver")

// Service persists discovered documents: each file is downloaded with the
// authenticated portal session and written under <subPath>/<filename>. A
// ledger keyed on (account, filename, sub_path) makes the operation safe to
// re-run, a file already recorded for the account is skipped.
type Service struct {
	fs     afero.Fs
	db     *sql.DB
	client *resty.Client
}

// NewService wires a saver over the given filesystem, ledger database and
// http client. The client must carry the session cookies of the login that
// produced the file urls.
func NewService(fs afero.Fs, database *sql.DB, client *resty.Client) Service {
	return Service{
		fs:     fs,
		db:     database,
		client: client,
	}
}

func supportedDedupKeys(keys []string) bool {
	return len(keys) == 2 && keys[0] == "filename" && keys[1] == "subPath"
}

func (s Service) Save(ctx context.Context, files []poitiers.File, opts connector.SaveOptions) error {
	ctx, span := tracer.Start(ctx, "service:Save")
	defer span.End()

	// the ledger schema only dedupes on this pair
	if !supportedDedupKeys(opts.DedupKeys) {
		err := fmt.Errorf("unsupported dedup keys: %v", opts.DedupKeys)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	runId := uuid.NewString()

	for _, file := range files {
		saved, err := s.alreadySaved(ctx, opts.SourceAccountIdentifier, file)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to query ledger")
			return err
		}
		if saved {
			slog.DebugContext(ctx, "file already saved",
				"filename", file.Filename,
				"sub_path", file.SubPath,
			)
			continue
		}

		err = s.download(ctx, file)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to download file")
			return fmt.Errorf("save %s/%s: %w", file.SubPath, file.Filename, err)
		}

		err = s.record(ctx, opts.SourceAccountIdentifier, runId, file)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to record file in ledger")
			return err
		}

		slog.InfoContext(ctx, "saved file",
			"filename", file.Filename,
			"sub_path", file.SubPath,
		)
	}

	return nil
}

func (s Service) alreadySaved(ctx context.Context, account string, file poitiers.File) (bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM saved_file WHERE account = ? AND filename = ? AND sub_path = ?`,
		account, file.Filename, file.SubPath,
	)
	var count int
	err := row.Scan(&count)
	return count > 0, err
}

func (s Service) download(ctx context.Context, file poitiers.File) error {
	res, err := s.client.R().
		SetContext(ctx).
		Get(file.FileUrl)
	if err != nil {
		return err
	}
	if res.StatusCode() != 200 {
		return fmt.Errorf("unexpected status %d fetching %s", res.StatusCode(), file.FileUrl)
	}

	err = s.fs.MkdirAll(file.SubPath, 0o755)
	if err != nil {
		return err
	}
	return afero.WriteFile(s.fs, path.Join(file.SubPath, file.Filename), res.Body(), 0o644)
}

func (s Service) record(ctx context.Context, account, runId string, file poitiers.File) error {
	metadata, err := json.Marshal(file.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO saved_file (account, filename, sub_path, run_id, metadata, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		account, file.Filename, file.SubPath, runId, string(metadata), time.Now().Unix(),
	)
	return err
}
