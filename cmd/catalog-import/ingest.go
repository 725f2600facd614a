package main

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/thitiwat/salika-pos/internal/domain/product"
)

const (
	// Supplier exports run to a few hundred thousand rows at most; size the
	// filter an order of magnitude above that.
	bloomCapacity = 5_000_000
	bloomFPR      = 0.001

	recordFields = 7
)

// skuUpserter is the slice of the product repository the importer needs.
type skuUpserter interface {
	UpsertBySKU(ctx context.Context, p *product.Product) error
}

type ingestStats struct {
	Rows       int
	Imported   int
	Duplicates int
	Malformed  int
}

// ingest streams each gzipped CSV concurrently, funnels parsed rows to a
// single writer, and upserts each SKU once. The bloom filter makes the
// cross-file dedup cheap; its rare false positives only skip a re-upsert of
// a row that is overwhelmingly likely present already.
func ingest(ctx context.Context, repo skuUpserter, files []string) (ingestStats, error) {
	records := make(chan *product.Product, 1024)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	var stats ingestStats

	// Writer: owns the filter and the stats, no locking needed. After an
	// upsert failure it cancels the readers and keeps draining the channel,
	// so a reader mid-send never blocks on a full buffer.
	done := make(chan struct{})
	var writeErr error
	go func() {
		defer close(done)
		seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		for p := range records {
			if writeErr != nil {
				continue
			}
			stats.Rows++
			if seen.TestOrAddString(p.SKU) {
				stats.Duplicates++
				continue
			}
			if err := repo.UpsertBySKU(ctx, p); err != nil {
				writeErr = errors.Wrapf(err, "upsert sku %s", p.SKU)
				cancel()
				continue
			}
			stats.Imported++
		}
	}()

	var malformed atomic.Int64
	for _, file := range files {
		g.Go(readFile(ctx, file, records, &malformed))
	}

	err := g.Wait()
	close(records)
	<-done
	stats.Malformed = int(malformed.Load())

	// The upsert failure is the root cause; the readers' context errors
	// are just its fallout.
	if writeErr != nil {
		return stats, writeErr
	}
	return stats, err
}

// readFile parses one gzipped CSV into the shared records channel.
// Malformed rows are counted and skipped, not fatal: one bad supplier row
// should not abort a whole import.
func readFile(ctx context.Context, path string, records chan<- *product.Product, malformed *atomic.Int64) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer f.Close()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "gzip reader %s", path)
		}
		defer gz.Close()

		r := csv.NewReader(gz)
		r.FieldsPerRecord = -1

		header := true
		for {
			rec, err := r.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			if header {
				header = false
				continue
			}

			p, err := parseRecord(rec)
			if err != nil {
				malformed.Add(1)
				slog.Warn("skipping malformed row",
					slog.String("file", path),
					slog.String("error", err.Error()),
				)
				continue
			}

			select {
			case records <- p:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// parseRecord converts a CSV row (sku, name, description, price, stock,
// category, image_url) into a product with a fresh ID.
func parseRecord(rec []string) (*product.Product, error) {
	if len(rec) != recordFields {
		return nil, errors.Errorf("expected %d fields, got %d", recordFields, len(rec))
	}

	sku := strings.TrimSpace(rec[0])
	name := strings.TrimSpace(rec[1])
	if sku == "" || name == "" {
		return nil, errors.New("sku and name are required")
	}

	price, err := decimal.NewFromString(strings.TrimSpace(rec[3]))
	if err != nil || price.IsNegative() {
		return nil, errors.Errorf("bad price %q", rec[3])
	}

	stock, err := strconv.Atoi(strings.TrimSpace(rec[4]))
	if err != nil || stock < 0 {
		return nil, errors.Errorf("bad stock %q", rec[4])
	}

	return &product.Product{
		ID:          uuid.New().String(),
		SKU:         sku,
		Name:        name,
		Description: strings.TrimSpace(rec[2]),
		Price:       price,
		Stock:       stock,
		Category:    strings.TrimSpace(rec[5]),
		ImageURL:    strings.TrimSpace(rec[6]),
	}, nil
}
