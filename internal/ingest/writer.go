package ingest

import (
	"context"
	"time"

	"github.com/iliyamo/boxoffice-sales/internal/metrics"
	"github.com/iliyamo/boxoffice-sales/internal/model"
	"github.com/iliyamo/boxoffice-sales/internal/repository"
)

const (
	// MaxBatchSize is the most writes a single store transaction accepts.
	MaxBatchSize = 500
	// DefaultBatchSize leaves headroom under MaxBatchSize for writes a
	// backend adds to the same transaction.
	DefaultBatchSize = 490
)

// ClampBatchSize maps n into [1, MaxBatchSize]; zero or negative selects
// DefaultBatchSize.
func ClampBatchSize(n int) int {
	switch {
	case n <= 0:
		return DefaultBatchSize
	case n > MaxBatchSize:
		return MaxBatchSize
	}
	return n
}

// Progress is reported after every successful batch commit.
type Progress struct {
	IngestionID string  `json:"ingestion_id"`
	Committed   int     `json:"committed"`
	Batches     int     `json:"batches"`
	Consumed    int64   `json:"consumed_bytes"`
	Total       int64   `json:"total_bytes"`
	Fraction    float64 `json:"fraction"`
}

// Observer receives progress during a run.  It is called synchronously
// between batches and must not block for long.
type Observer interface {
	OnProgress(ctx context.Context, p Progress)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, p Progress)

func (f ObserverFunc) OnProgress(ctx context.Context, p Progress) { f(ctx, p) }

// Stats counts what a writer has durably stored.
type Stats struct {
	Committed int
	Batches   int
}

// BatchWriter buffers sale records and commits them to sales_data in
// bounded batches.  It is not safe for concurrent use.
type BatchWriter struct {
	store       repository.Store
	size        int
	buf         []model.SaleRecord
	stats       Stats
	ingestionID string
	observers   []Observer
	onCommit    []func([]model.SaleRecord)
	position    func() (consumed, total int64)
}

// WriterOption customises a BatchWriter.
type WriterOption func(*BatchWriter)

// WithObservers registers progress observers.
func WithObservers(obs ...Observer) WriterOption {
	return func(w *BatchWriter) { w.observers = append(w.observers, obs...) }
}

// WithCommitHook registers fn to receive every committed batch.
func WithCommitHook(fn func([]model.SaleRecord)) WriterOption {
	return func(w *BatchWriter) { w.onCommit = append(w.onCommit, fn) }
}

// WithInputPosition reports how far the input has been read, for the
// Fraction in Progress.
func WithInputPosition(fn func() (consumed, total int64)) WriterOption {
	return func(w *BatchWriter) { w.position = fn }
}

// WithIngestionID labels progress with the run id.
func WithIngestionID(id string) WriterOption {
	return func(w *BatchWriter) { w.ingestionID = id }
}

// NewBatchWriter builds a writer committing at most size records per batch.
func NewBatchWriter(store repository.Store, size int, opts ...WriterOption) *BatchWriter {
	size = ClampBatchSize(size)
	w := &BatchWriter{
		store: store,
		size:  size,
		buf:   make([]model.SaleRecord, 0, size),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Size returns the batch cap in use.
func (w *BatchWriter) Size() int { return w.size }

// Stats returns the totals committed so far.
func (w *BatchWriter) Stats() Stats { return w.stats }

// Add buffers rec and commits the batch once it is full.  It blocks while
// the commit is in flight.
func (w *BatchWriter) Add(ctx context.Context, rec model.SaleRecord) error {
	w.buf = append(w.buf, rec)
	if len(w.buf) >= w.size {
		return w.commit(ctx)
	}
	return nil
}

// Flush commits any buffered records.
func (w *BatchWriter) Flush(ctx context.Context) error {
	if len(w.buf) == 0 {
		return nil
	}
	return w.commit(ctx)
}

// Write stores records and flushes the final partial batch.
func (w *BatchWriter) Write(ctx context.Context, records []model.SaleRecord) (Stats, error) {
	for _, r := range records {
		if err := w.Add(ctx, r); err != nil {
			return w.stats, err
		}
	}
	err := w.Flush(ctx)
	return w.stats, err
}

func (w *BatchWriter) commit(ctx context.Context) error {
	// Cancellation is only honoured here, between batches.
	if err := ctx.Err(); err != nil {
		return err
	}

	docs := make([]repository.Document, len(w.buf))
	for i, r := range w.buf {
		docs[i] = repository.Document{Fields: r.Fields()}
	}

	start := time.Now()
	err := w.store.BatchCommit(ctx, model.SalesCollection, docs)
	metrics.BatchCommitDuration.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.BatchCommits.WithLabelValues("error").Inc()
		return &StorageError{Op: "batch commit", Committed: w.stats.Committed, Err: err}
	}
	metrics.BatchCommits.WithLabelValues("ok").Inc()
	metrics.RecordsCommitted.Add(float64(len(docs)))

	w.stats.Committed += len(w.buf)
	w.stats.Batches++
	committed := w.buf
	w.buf = make([]model.SaleRecord, 0, w.size)

	for _, fn := range w.onCommit {
		fn(committed)
	}
	p := Progress{IngestionID: w.ingestionID, Committed: w.stats.Committed, Batches: w.stats.Batches}
	if w.position != nil {
		p.Consumed, p.Total = w.position()
		if p.Total > 0 {
			p.Fraction = float64(p.Consumed) / float64(p.Total)
			if p.Fraction > 1 {
				p.Fraction = 1
			}
		}
	}
	for _, o := range w.observers {
		o.OnProgress(ctx, p)
	}
	return nil
}
