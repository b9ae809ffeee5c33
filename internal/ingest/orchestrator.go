// Package ingest runs a sales CSV through validation, batched storage and
// summary aggregation.
//
// A run never stops for a bad row: every row error is collected into the
// report.  Only storage failures end a run early, and the report returned
// alongside the error still says how many records were committed.
package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/boxoffice-sales/internal/metrics"
	"github.com/iliyamo/boxoffice-sales/internal/model"
	"github.com/iliyamo/boxoffice-sales/internal/repository"
	"github.com/iliyamo/boxoffice-sales/internal/summary"
	"github.com/iliyamo/boxoffice-sales/internal/validation"
)

// Notifier is told about every run that reached Done.  Failures are logged
// and do not change the outcome of the run.
type Notifier interface {
	IngestionCompleted(ctx context.Context, report *model.IngestionReport) error
}

// Orchestrator is the single entry point for ingesting a file.
type Orchestrator struct {
	store      repository.Store
	validator  *validation.Validator
	aggregator *summary.Aggregator
	batchSize  int
	observers  []Observer
	notifiers  []Notifier
	logger     *slog.Logger
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithBatchSize sets the batch cap, clamped to [1, MaxBatchSize].
func WithBatchSize(n int) Option {
	return func(o *Orchestrator) { o.batchSize = ClampBatchSize(n) }
}

// WithValidator replaces the default row validator.
func WithValidator(v *validation.Validator) Option {
	return func(o *Orchestrator) { o.validator = v }
}

// WithAggregator replaces the default summary aggregator, e.g. to add a
// bucket lock.
func WithAggregator(a *summary.Aggregator) Option {
	return func(o *Orchestrator) { o.aggregator = a }
}

// WithObserver registers a progress observer for every run.
func WithObserver(obs ...Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, obs...) }
}

// WithNotifier registers completion notifiers.
func WithNotifier(n ...Notifier) Option {
	return func(o *Orchestrator) { o.notifiers = append(o.notifiers, n...) }
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator builds an Orchestrator writing to store.
func NewOrchestrator(store repository.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     store,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.validator == nil {
		o.validator = validation.New()
	}
	if o.aggregator == nil {
		o.aggregator = summary.New(store)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// With returns a copy of o with opts applied on top of its settings.
func (o *Orchestrator) With(opts ...Option) *Orchestrator {
	cp := *o
	cp.observers = append([]Observer(nil), o.observers...)
	cp.notifiers = append([]Notifier(nil), o.notifiers...)
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

type run struct {
	report *model.IngestionReport
	logger *slog.Logger
}

func (r *run) set(s model.IngestionState) {
	if r.report.State == s {
		return
	}
	r.report.State = s
	r.logger.Debug("ingestion state", "state", s)
}

// Ingest processes one CSV file.  The report is non-nil whenever the run
// started, including when an error is returned.  A *StorageError or the
// context error ends the run early; a nil reader yields a
// *ConfigurationError and no report.
func (o *Orchestrator) Ingest(ctx context.Context, r io.Reader) (*model.IngestionReport, error) {
	if r == nil {
		return nil, &ConfigurationError{Reason: "no file supplied"}
	}
	if o.store == nil {
		return nil, &ConfigurationError{Reason: "no store configured"}
	}

	start := time.Now()
	id := uuid.NewString()
	rep := &model.IngestionReport{IngestionID: id, State: model.StateIdle, Errors: []model.RowError{}}
	ru := &run{report: rep, logger: o.logger.With("ingestion_id", id)}

	in := newCountingReader(r)
	src := NewCSVSource(in)
	buckets := make(summary.Buckets)
	w := NewBatchWriter(o.store, o.batchSize,
		WithIngestionID(id),
		WithObservers(o.observers...),
		WithInputPosition(in.position),
		WithCommitHook(func(batch []model.SaleRecord) {
			for k, b := range summary.Aggregate(batch) {
				if cur, ok := buckets[k]; ok {
					cur.Merge(*b)
				} else {
					buckets[k] = b
				}
			}
		}),
	)

	ru.set(model.StateParsing)
	for {
		idx, raw, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			var rowErr *RowError
			if !errors.As(err, &rowErr) {
				return o.fail(ru, w, start, err)
			}
			rep.TotalRows++
			rep.Failed++
			rep.Errors = append(rep.Errors, model.RowError{RowIndex: idx, Messages: []string{rowErr.Err.Error()}})
			metrics.RowsProcessed.WithLabelValues("invalid").Inc()
			continue
		}
		rep.TotalRows++

		ru.set(model.StateValidating)
		rec, err := o.validator.Validate(raw, idx)
		if err != nil {
			ru.set(model.StateRecording)
			rep.Failed++
			var ve *validation.ValidationError
			if errors.As(err, &ve) {
				rep.Errors = append(rep.Errors, model.RowError{RowIndex: ve.RowIndex, Messages: ve.Messages})
			} else {
				rep.Errors = append(rep.Errors, model.RowError{RowIndex: idx, Messages: []string{err.Error()}})
			}
			metrics.RowsProcessed.WithLabelValues("invalid").Inc()
			continue
		}
		metrics.RowsProcessed.WithLabelValues("valid").Inc()

		ru.set(model.StateBuffering)
		rec.IngestionID = id
		rep.Succeeded++
		if err := w.Add(ctx, *rec); err != nil {
			return o.fail(ru, w, start, err)
		}
	}

	ru.set(model.StateFlushing)
	if err := w.Flush(ctx); err != nil {
		return o.fail(ru, w, start, err)
	}
	rep.Committed, rep.Batches = w.Stats().Committed, w.Stats().Batches

	ru.set(model.StateAggregating)
	touched, err := o.aggregator.Merge(ctx, buckets)
	rep.BucketsTouched = touched
	metrics.BucketsMerged.Add(float64(touched))
	if err != nil {
		return o.fail(ru, w, start, &StorageError{Op: "summary merge", Committed: rep.Committed, Err: err})
	}

	ru.set(model.StateDone)
	metrics.Ingestions.WithLabelValues(string(model.StateDone)).Inc()
	metrics.IngestionDuration.Observe(time.Since(start).Seconds())
	ru.logger.Info("ingestion complete",
		"rows", rep.TotalRows, "succeeded", rep.Succeeded, "failed", rep.Failed,
		"committed", rep.Committed, "batches", rep.Batches, "buckets", rep.BucketsTouched)

	for _, n := range o.notifiers {
		if err := n.IngestionCompleted(ctx, rep); err != nil {
			ru.logger.Warn("completion notification failed", "err", err)
		}
	}
	return rep, nil
}

func (o *Orchestrator) fail(ru *run, w *BatchWriter, start time.Time, err error) (*model.IngestionReport, error) {
	rep := ru.report
	rep.Committed, rep.Batches = w.Stats().Committed, w.Stats().Batches
	ru.set(model.StateFailed)
	metrics.Ingestions.WithLabelValues(string(model.StateFailed)).Inc()
	metrics.IngestionDuration.Observe(time.Since(start).Seconds())
	ru.logger.Error("ingestion failed",
		"rows", rep.TotalRows, "committed", rep.Committed, "err", err)
	if rep.Committed > 0 {
		ru.logger.Warn("daily summaries are stale: committed sales were not aggregated, run recompute",
			"committed", rep.Committed, "batches", rep.Batches)
	}
	return rep, err
}
