// Command reservation-import loads gzipped CSV exports of the legacy
// reservations book into the relay database.
//
// Each input file is a gzip-compressed CSV with a header row and the columns
// id,name,phone,status. Phone numbers are normalized to +233 form where
// possible; rows without an id are skipped.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-relay/internal/phone"
	"github.com/xenking/storefront-relay/internal/storage/postgres"
)

func main() {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	files := flag.Args()
	if len(files) == 0 {
		slog.Error("no input files: pass one or more reservations .csv.gz exports")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, files); err != nil {
		slog.Error("reservation import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("reservation import completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string) error {
	// Parse all files concurrently before touching the database.
	parsed := make([][]postgres.ReservationRecord, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			records, err := parseFile(gctx, f)
			if err != nil {
				return errors.Wrapf(err, "parse %s", f)
			}
			parsed[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	repo := postgres.NewReservationRepository(pool)
	for i, records := range parsed {
		n, err := repo.BulkImport(ctx, records)
		if err != nil {
			return errors.Wrapf(err, "import %s", files[i])
		}
		slog.Info("imported file",
			slog.String("file", files[i]),
			slog.Int64("rows", n),
		)
	}

	return nil
}

// parseFile streams one gzipped CSV export into reservation records.
func parseFile(ctx context.Context, path string) ([]postgres.ReservationRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	r := csv.NewReader(gz)
	r.FieldsPerRecord = 4

	// Header row.
	if _, err := r.Read(); err != nil {
		return nil, errors.Wrap(err, "read header")
	}

	var (
		records []postgres.ReservationRecord
		skipped int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read row")
		}

		if row[0] == "" {
			skipped++
			continue
		}

		rec := postgres.ReservationRecord{
			ID:     row[0],
			Name:   row[1],
			Phone:  row[2],
			Status: row[3],
		}
		if canonical, ok := phone.Normalize(rec.Phone); ok {
			rec.Phone = canonical
		}
		records = append(records, rec)
	}

	if skipped > 0 {
		slog.Warn("skipped rows without id",
			slog.String("file", path),
			slog.Int("skipped", skipped),
		)
	}

	return records, nil
}
