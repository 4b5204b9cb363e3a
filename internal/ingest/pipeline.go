package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/metrics"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/repository"
)

// ProgressReporter receives progress from a running pipeline. Returning an error stops the run.
type ProgressReporter interface {
	// Started is called once with the number of data rows in the file.
	Started(ctx context.Context, total int64) error
	// Advanced is called after each committed batch with the cumulative consumed row count.
	Advanced(ctx context.Context, processed int64) error
}

// Summary describes a finished or aborted run.
type Summary struct {
	Total     int64 `json:"total"`
	Processed int64 `json:"processed"`
	Accepted  int64 `json:"accepted"`
	Rejected  int64 `json:"rejected"`
	Batches   int   `json:"batches"`
}

// Pipeline streams a CSV file through normalization into the upsert engine.
type Pipeline struct {
	upserter  repository.ProductUpserter
	batchSize int
}

// NewPipeline creates a pipeline writing to upserter in batches of batchSize rows.
func NewPipeline(upserter repository.ProductUpserter, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Pipeline{upserter: upserter, batchSize: batchSize}
}

// Run ingests the file at path. Batches are committed one at a time, so on error the returned
// summary reflects what was committed before the failure.
func (p *Pipeline) Run(ctx context.Context, path string, progress ProgressReporter) (Summary, error) {
	var summary Summary

	reader, err := OpenChunkedReader(path, p.batchSize)
	if err != nil {
		return summary, err
	}
	defer reader.Close()

	total, err := CountRows(path)
	if err != nil {
		return summary, err
	}
	summary.Total = total
	if err := progress.Started(ctx, total); err != nil {
		return summary, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("ingestion interrupted after %d rows: %w", summary.Processed, err)
		}

		batch, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, err
		}

		records, rejected := NormalizeBatch(batch)
		started := time.Now()
		if err := p.upserter.UpsertBatch(ctx, records); err != nil {
			return summary, &StoreError{Batch: summary.Batches + 1, Err: err}
		}
		metrics.BatchDuration.Observe(time.Since(started).Seconds())
		metrics.ProductsUpserted.Add(float64(len(records)))
		metrics.RowsProcessed.WithLabelValues(metrics.OutcomeAccepted).Add(float64(len(records)))
		metrics.RowsProcessed.WithLabelValues(metrics.OutcomeRejected).Add(float64(rejected))

		summary.Batches++
		summary.Processed += int64(len(batch))
		summary.Accepted += int64(len(records))
		summary.Rejected += int64(rejected)

		slog.Debug("batch committed",
			slog.String("path", path),
			slog.Int("batch", summary.Batches),
			slog.Int("rows", len(batch)),
			slog.Int("rejected", rejected),
			slog.Int64("processed", summary.Processed),
			slog.Int64("total", summary.Total))

		if err := progress.Advanced(ctx, summary.Processed); err != nil {
			return summary, err
		}
	}

	return summary, nil
}
